// Package cmdexec abstracts external command execution for testability.
// Production code uses Commander interface; tests inject FakeCommander from testutil.
package cmdexec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Commander abstracts external command execution.
type Commander interface {
	// Run executes an external command and returns its combined output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunIn executes an external command in dir with exactly the given
	// environment (nothing is inherited from the current process).
	// Stdout and stderr are captured separately. A non-zero exit is reported
	// as an error implementing ExitCode() int.
	RunIn(ctx context.Context, dir string, environ []string, name string, args ...string) (stdout, stderr []byte, err error)
}

// RealCommander executes actual external commands via os/exec.
type RealCommander struct{}

// Run executes the command using os/exec.CommandContext.
func (c *RealCommander) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// RunIn executes the command rooted at dir with the given environment.
func (c *RealCommander) RunIn(ctx context.Context, dir string, environ []string, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append([]string{}, environ...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// ExitCode는 err에서 프로세스 종료 코드를 추출한다. 종료 코드가 없으면 ok=false.
func ExitCode(err error) (code int, ok bool) {
	var coder interface{ ExitCode() int }
	if !errors.As(err, &coder) {
		return 0, false
	}
	code = coder.ExitCode()
	if code < 0 {
		return 0, false
	}
	return code, true
}
