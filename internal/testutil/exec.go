package testutil

import (
	"context"
	"fmt"
	"strings"
)

// Response represents a pre-configured command response for FakeCommander.
type Response struct {
	Output []byte
	Stderr []byte
	Err    error
}

// InCall records one RunIn invocation.
type InCall struct {
	Dir     string
	Environ []string
	Command string
}

// ExitStatus is a fake process exit error. It implements ExitCode() int the
// way *exec.ExitError does.
type ExitStatus int

func (e ExitStatus) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

// ExitCode returns the fake exit status.
func (e ExitStatus) ExitCode() int { return int(e) }

// FakeCommander returns pre-configured responses for testing.
// Responses are keyed by "name arg1 arg2 ..." format.
// If no exact match is found, it tries prefix matching.
type FakeCommander struct {
	// Responses maps command strings to their responses.
	// Key format: "command arg1 arg2" (e.g., "direnv export json", "tmux new-window")
	Responses map[string]Response

	// Calls records all commands that were executed, in order.
	Calls []string

	// InCalls records the directory and environment passed to RunIn, in order.
	InCalls []InCall

	// DefaultResponse is returned when no matching response is found.
	// If nil, an error is returned for unmatched commands.
	DefaultResponse *Response

	// OnRun, if set, is invoked before the response lookup. Tests use it to
	// observe filesystem state at the moment a command runs.
	OnRun func(fullCmd string)
}

// NewFakeCommander creates a FakeCommander with an empty response map.
func NewFakeCommander() *FakeCommander {
	return &FakeCommander{
		Responses: make(map[string]Response),
	}
}

// Register adds a response for the given command key.
func (c *FakeCommander) Register(key string, output string, err error) {
	c.Responses[key] = Response{
		Output: []byte(output),
		Err:    err,
	}
}

// RegisterStreams adds a response with separate stdout and stderr for RunIn.
func (c *FakeCommander) RegisterStreams(key, stdout, stderr string, err error) {
	c.Responses[key] = Response{
		Output: []byte(stdout),
		Stderr: []byte(stderr),
		Err:    err,
	}
}

// Run looks up the command in Responses and returns the matching response.
func (c *FakeCommander) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	resp, err := c.lookup(ctx, name, args)
	if err != nil {
		return nil, err
	}
	return resp.Output, resp.Err
}

// RunIn records the directory and environment and delegates to the Run logic.
func (c *FakeCommander) RunIn(ctx context.Context, dir string, environ []string, name string, args ...string) ([]byte, []byte, error) {
	c.InCalls = append(c.InCalls, InCall{Dir: dir, Environ: environ, Command: joinCmd(name, args)})
	resp, err := c.lookup(ctx, name, args)
	if err != nil {
		return nil, nil, err
	}
	return resp.Output, resp.Stderr, resp.Err
}

func (c *FakeCommander) lookup(ctx context.Context, name string, args []string) (Response, error) {
	fullCmd := joinCmd(name, args)
	c.Calls = append(c.Calls, fullCmd)

	if c.OnRun != nil {
		c.OnRun(fullCmd)
	}
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	// Exact match first.
	if resp, ok := c.Responses[fullCmd]; ok {
		return resp, nil
	}

	// Try prefix matching (longest prefix wins).
	bestKey := ""
	for key := range c.Responses {
		if strings.HasPrefix(fullCmd, key) && len(key) > len(bestKey) {
			bestKey = key
		}
	}
	if bestKey != "" {
		return c.Responses[bestKey], nil
	}

	// Default response.
	if c.DefaultResponse != nil {
		return *c.DefaultResponse, nil
	}

	return Response{}, fmt.Errorf("FakeCommander: no response registered for %q", fullCmd)
}

// Called returns true if a command matching the given prefix was executed.
func (c *FakeCommander) Called(prefix string) bool {
	for _, call := range c.Calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

// CallCount returns the number of times a command matching the given prefix was executed.
func (c *FakeCommander) CallCount(prefix string) int {
	count := 0
	for _, call := range c.Calls {
		if strings.HasPrefix(call, prefix) {
			count++
		}
	}
	return count
}

func joinCmd(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
