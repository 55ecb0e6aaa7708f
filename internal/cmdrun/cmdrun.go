// Package cmdrun runs the refresh command.
package cmdrun

import (
	"context"
	"errors"
	"os/exec"

	"github.com/okranz/steady/internal/log"
)

var ErrExitCode1 = errors.New("exit code 1")

// Run runs an arbitrary command and returns (output, ErrExitCode1)
// if it exits with error code 1, otherwise returns the original error.
func Run(
	ctx context.Context, workDir string, cmd string, args ...string,
) (out []byte, err error) {
	c := exec.CommandContext(ctx, cmd, args...)
	c.Dir = workDir

	log.Debugf("running command: %s", c.String())
	out, err = c.CombinedOutput()
	var exitError *exec.ExitError
	if errors.As(err, &exitError) && exitError.ExitCode() == 1 {
		return out, ErrExitCode1
	} else if err != nil {
		return nil, err
	}
	return out, nil
}

// Sh runs an arbitrary shell script and behaves like Run.
func Sh(ctx context.Context, workDir, sh string) (out []byte, err error) {
	return Run(ctx, workDir, "sh", "-c", sh)
}
