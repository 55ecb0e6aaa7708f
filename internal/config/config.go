// Package config provides steady's configuration.
package config

import (
	"bytes"
	"debug/buildinfo"
	"encoding"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okranz/steady/internal/latch"
	"github.com/okranz/steady/internal/log"

	"github.com/gobwas/glob"
	"github.com/romshark/yamagiconf"
)

const Version = "0.1.0"

const DefaultCoalesce = 50 * time.Millisecond

var config Config

type Config struct {
	// Watch configures what file tree triggers refreshes.
	Watch ConfigWatch `yaml:"watch"`

	// Refresh configures the refresh command.
	Refresh ConfigRefresh `yaml:"refresh"`

	// Indicator configures the debounced busy indicator timing.
	Indicator ConfigIndicator `yaml:"indicator"`

	// HTTP configures the optional status server.
	HTTP ConfigHTTP `yaml:"http"`

	// Log specifies logging related configurations.
	Log ConfigLog `yaml:"log"`
}

type ConfigWatch struct {
	// Dir is the root directory watched recursively.
	Dir string `yaml:"dir" validate:"dirpath,required"`

	dirAbsolute string `yaml:"-"` // Initialized from Dir.

	// Exclude defines glob expressions matching paths
	// excluded from watching, relative to dir.
	Exclude GlobList `yaml:"exclude"`
}

func (c *ConfigWatch) DirAbsolute() string { return c.dirAbsolute }

type ConfigRefresh struct {
	// Cmd is the shell command rerun on every relevant file change.
	Cmd CmdStr `yaml:"cmd" validate:"required"`

	// DirWork is the working directory cmd runs in.
	DirWork string `yaml:"dir-work" validate:"dirpath,required"`

	// Coalesce defines how long to wait for more file changes after the
	// first one before rerunning cmd. Default is applied if left empty.
	Coalesce time.Duration `yaml:"coalesce"`
}

func (c ConfigRefresh) Validate() error {
	if c.Coalesce < 0 {
		return errors.New("coalesce must not be negative")
	}
	return nil
}

type ConfigIndicator struct {
	// ShowDelay is the minimum busy time before the indicator is shown.
	// Refreshes finishing before show-delay elapsed never show it at all.
	ShowDelay time.Duration `yaml:"show-delay"`

	// MinShow is the minimum time the indicator stays visible once shown,
	// even if the refresh finishes earlier.
	MinShow time.Duration `yaml:"min-show"`
}

func (c ConfigIndicator) Validate() error {
	if c.ShowDelay < 0 {
		return errors.New("show-delay must not be negative")
	}
	if c.MinShow < 0 {
		return errors.New("min-show must not be negative")
	}
	return nil
}

type ConfigHTTP struct {
	// Host is the status server host address, for example "127.0.0.1:7331".
	// Keep empty to disable the status server.
	Host string `yaml:"host"`
}

type ConfigLog struct {
	// Level accepts either of:
	//  - "": empty string is the same as "erronly"
	//  - "erronly": error logs only.
	//  - "verbose": verbose logging of relevant events.
	//  - "debug": verbose debug logging including indicator transitions.
	Level LogLevel `yaml:"level"`
}

type LogLevel log.LogLevel

var _ encoding.TextUnmarshaler = new(LogLevel)

func (l *LogLevel) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "erronly":
		*l = LogLevel(log.LogLevelErrOnly)
	case "verbose":
		*l = LogLevel(log.LogLevelVerbose)
	case "debug":
		*l = LogLevel(log.LogLevelDebug)
	default:
		return fmt.Errorf(`invalid log level %q, `+
			`use either of: ["" (same as erronly), "erronly", "verbose", "debug"]`,
			string(text))
	}
	return nil
}

type GlobList []string

func (e GlobList) Validate() error {
	for i, expr := range e {
		if _, err := glob.Compile(expr); err != nil {
			return fmt.Errorf("at index %d: %w", i, err)
		}
	}
	return nil
}

// CmdStr is a whitespace-trimmed shell command string.
type CmdStr string

var _ encoding.TextUnmarshaler = new(CmdStr)

func (c *CmdStr) UnmarshalText(t []byte) error {
	*c = CmdStr(bytes.Trim(t, " \t\n\r"))
	return nil
}

func PrintVersionInfoAndExit() {
	defer os.Exit(0)

	p, err := os.Executable()
	if err != nil {
		fmt.Printf("resolving executable file path: %v\n", err)
		os.Exit(1)
	}

	info, err := buildinfo.ReadFile(p)
	if err != nil {
		fmt.Printf("reading build information: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("steady v%s\n\n", Version)
	fmt.Printf("%v\n", info)
}

// MustParse parses CLI flags and the YAML config file,
// terminating the process on failure.
func MustParse() *Config {
	var fVersion bool
	var fConfigPath string
	flag.BoolVar(&fVersion, "version", false, "show version")
	flag.StringVar(&fConfigPath, "config", "", "config file path")
	flag.Parse()

	if fVersion {
		PrintVersionInfoAndExit()
	}

	// Set default config.
	config.Watch.Dir = "./"
	config.Refresh.DirWork = "./"
	config.Refresh.Coalesce = DefaultCoalesce
	config.Indicator.ShowDelay = latch.DefaultShowDelay
	config.Indicator.MinShow = latch.DefaultMinShow
	config.Log.Level = LogLevel(log.LogLevelErrOnly)

	if fConfigPath == "" {
		// Try to detect the config file automatically.
		if _, err := os.Stat("steady.yml"); err == nil {
			fConfigPath = "steady.yml"
		} else if _, err := os.Stat("steady.yaml"); err == nil {
			fConfigPath = "steady.yaml"
		} else {
			log.Fatalf("couldn't find config file: steady.yml")
		}
	}
	if err := yamagiconf.LoadFile(fConfigPath, &config); err != nil {
		log.Fatalf("reading config file: %v", err)
	}

	if config.Refresh.Coalesce == 0 {
		config.Refresh.Coalesce = DefaultCoalesce
	}

	var err error
	config.Watch.dirAbsolute, err = filepath.Abs(config.Watch.Dir)
	if err != nil {
		log.Fatalf("getting absolute path for watch.dir: %v", err)
	}

	log.Debugf("read config file: %q", fConfigPath)
	return &config
}
