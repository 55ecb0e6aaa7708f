package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/okranz/steady/internal/cmdrun"
	"github.com/okranz/steady/internal/config"
	"github.com/okranz/steady/internal/ctxrun"
	"github.com/okranz/steady/internal/filereg"
	"github.com/okranz/steady/internal/latch"
	"github.com/okranz/steady/internal/log"
	"github.com/okranz/steady/internal/schedule"
	"github.com/okranz/steady/internal/server"
	"github.com/okranz/steady/internal/statetrack"
	"github.com/okranz/steady/internal/watcher"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
)

var (
	fGreen         = color.New(color.FgGreen, color.Bold)
	fBlueUnderline = color.New(color.FgBlue, color.Underline)
)

func main() {
	conf := config.MustParse()
	log.SetLevel(log.LogLevel(conf.Log.Level))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	tracker := statetrack.NewTracker()

	// The sink fans indicator transitions out to the terminal
	// and to connected status page clients.
	sink := func(show bool) {
		tracker.SetRefreshing(show)
		if show {
			log.Verbosef("refreshing...")
		} else {
			log.Verbosef("done")
		}
	}

	indicatorOpts := []latch.Option{
		latch.WithShowDelay(conf.Indicator.ShowDelay),
		latch.WithMinShow(conf.Indicator.MinShow),
	}
	if log.Level() == log.LogLevelDebug {
		indicatorOpts = append(indicatorOpts, latch.WithLogger(log.NewDebugLogger()))
	}
	indicator, err := latch.New(sink, indicatorOpts...)
	if err != nil {
		log.Fatalf("initializing indicator: %v", err)
	}

	runner := ctxrun.New()
	files := filereg.New()

	refresh := func(ctx context.Context) {
		indicator.SetBusy(true)
		defer indicator.SetBusy(false)

		start := time.Now()
		out, err := cmdrun.Sh(ctx, conf.Refresh.DirWork, string(conf.Refresh.Cmd))
		switch {
		case ctx.Err() != nil:
			// Superseded by a newer file change. The command is killed
			// on cancellation, so the error is meaningless here.
		case errors.Is(err, cmdrun.ErrExitCode1):
			tracker.SetErrOutput(string(out))
			log.Errorf("refresh failed:\n%s", out)
		case err != nil:
			tracker.SetErrOutput(err.Error())
			log.Errorf("refresh: %v", err)
		default:
			tracker.SetErrOutput("")
			log.Verbosef("refreshed (%s)", log.DurStr(time.Since(start)))
		}
	}

	// Bursts of file change events coalesce into a single refresh.
	var triggerLock sync.Mutex
	coalesce := schedule.New(&triggerLock)

	onChange := func(ctx context.Context, e fsnotify.Event) {
		switch {
		case e.Op.Has(fsnotify.Chmod):
			return // Permission changes don't affect the refresh outcome.
		case e.Op.Has(fsnotify.Remove) || e.Op.Has(fsnotify.Rename):
			files.Forget(e.Name)
		case e.Op.Has(fsnotify.Write) || e.Op.Has(fsnotify.Create):
			changed, err := files.Changed(e.Name)
			if err == nil && !changed {
				log.Debugf("ignoring unchanged file: %q", e.Name)
				return
			}
		}
		log.Debugf("file changed: %q (%s)", e.Name, e.Op)

		triggerLock.Lock()
		defer triggerLock.Unlock()
		coalesce.CancelAll()
		coalesce.After(conf.Refresh.Coalesce, func() {
			runner.Go(ctx, refresh)
		})
	}

	fsWatcher, err := watcher.New(conf.Watch.DirAbsolute(), onChange)
	if err != nil {
		log.Fatalf("initializing file watcher: %v", err)
	}

	for _, expr := range conf.Watch.Exclude {
		if err := fsWatcher.Ignore(expr); err != nil {
			log.Fatalf("adding ignore filter to watcher (%q): %v", expr, err)
		}
	}
	if err := fsWatcher.Add(conf.Watch.DirAbsolute()); err != nil {
		log.Fatalf("setting up file watcher for watch.dir (%q): %v",
			conf.Watch.DirAbsolute(), err)
	}

	go func() {
		err := fsWatcher.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("running file watcher: %v", err)
			cancel()
		}
	}()

	var statusSrv *http.Server
	if conf.HTTP.Host != "" {
		statusSrv = &http.Server{
			Addr:    conf.HTTP.Host,
			Handler: server.New(tracker),
		}
		go func() {
			err := statusSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("listening status server host: %v", err)
				cancel()
			}
		}()
	}

	fmt.Print("🔄 steady ")
	fGreen.Print("watching ")
	fBlueUnderline.Println(conf.Watch.DirAbsolute())
	if conf.HTTP.Host != "" {
		fmt.Print("🔄 status page on ")
		fBlueUnderline.Println("http://" + conf.HTTP.Host)
	}

	// Run the refresh command once on startup.
	runner.Go(ctx, refresh)

	<-ctx.Done()

	// Teardown order matters: stop triggering, wait for the running
	// refresh to finish, then retire the indicator.
	triggerLock.Lock()
	coalesce.CancelAll()
	triggerLock.Unlock()
	runner.Stop()
	indicator.Dispose()

	if statusSrv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(
			context.Background(), 3*time.Second)
		defer cancelShutdown()
		if err := statusSrv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("shutting down status server: %v", err)
		}
	}
}
