package dispatch_test

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hbjs97/direnv-instant/internal/dispatch"
	"github.com/hbjs97/direnv-instant/internal/jobfile"
	"github.com/hbjs97/direnv-instant/internal/loader"
	"github.com/hbjs97/direnv-instant/internal/mux"
	"github.com/hbjs97/direnv-instant/internal/result"
	"github.com/hbjs97/direnv-instant/internal/session"
	"github.com/hbjs97/direnv-instant/internal/shell"
	"github.com/hbjs97/direnv-instant/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testExe = "/usr/local/bin/direnv-instant"

func jobArgv(path, gen string) []string {
	return []string{testExe, "job", "--path", path, "--generation", gen}
}

// newDispatcher는 FakeCommander 하나로 로더와 tmux를 모두 흉내내는 Dispatcher를 만든다.
func newDispatcher(t *testing.T, fc *testutil.FakeCommander, attached bool) *dispatch.Dispatcher {
	t.Helper()
	env := map[string]string{}
	if attached {
		env["TMUX"] = "/tmp/tmux-1000/default,4242,0"
	}
	return &dispatch.Dispatcher{
		Loader:        loader.New(fc, "direnv"),
		Locator:       session.NewLocator(testutil.StateDir(t)),
		Mux:           &mux.Tmux{Commander: fc, Getenv: func(k string) string { return env[k] }},
		JobArgv:       jobArgv,
		NewGeneration: func() (string, error) { return "gen-1", nil },
	}
}

func request(dir string) dispatch.Request {
	return dispatch.Request{
		Dir:     dir,
		Dialect: shell.Bash,
		Session: session.Context{MuxSession: "/tmp/tmux-1000/default,4242,0", MuxPane: "%1", ShellPID: 100},
		Environ: []string{"HOME=/home/u", "PATH=/usr/bin"},
	}
}

func registerSuccess(t *testing.T, fc *testutil.FakeCommander) {
	t.Helper()
	fc.RegisterStreams("direnv export json",
		testutil.DirenvJSON(t, map[string]*string{"VAR": testutil.Ptr("success")}),
		"direnv: loading .envrc\n", nil)
}

func TestDispatch_SyncWithoutMultiplexer(t *testing.T) {
	fc := testutil.NewFakeCommander()
	registerSuccess(t, fc)
	d := newDispatcher(t, fc, false)

	out, err := d.Dispatch(context.Background(), request("/work"))
	require.NoError(t, err)

	assert.False(t, out.Async)
	assert.Equal(t, dispatch.StateDone, out.State)
	assert.Equal(t, []dispatch.State{dispatch.StateDeciding, dispatch.StateSynchronous, dispatch.StateDone}, out.Trace)
	assert.Equal(t, "export VAR='success'\n", out.Script)
	assert.Equal(t, "direnv: loading .envrc\n", string(out.Stderr))
	assert.False(t, fc.Called("tmux"))

	require.Len(t, fc.InCalls, 1)
	assert.Equal(t, "/work", fc.InCalls[0].Dir)
	assert.Equal(t, []string{"HOME=/home/u", "PATH=/usr/bin"}, fc.InCalls[0].Environ)
}

func TestDispatch_SyncDenied(t *testing.T) {
	fc := testutil.NewFakeCommander()
	fc.RegisterStreams("direnv export json", "",
		"direnv: error /work/.envrc is blocked. Run `direnv allow` to approve its content\n",
		testutil.ExitStatus(1))
	d := newDispatcher(t, fc, false)

	out, err := d.Dispatch(context.Background(), request("/work"))
	require.Error(t, err)
	assert.ErrorIs(t, err, loader.ErrDenied)
	assert.Equal(t, dispatch.StateFailed, out.State)
	assert.Empty(t, out.Script)
	assert.Contains(t, string(out.Stderr), "is blocked")
}

func TestDispatch_SyncTimeout(t *testing.T) {
	fc := testutil.NewFakeCommander()
	registerSuccess(t, fc)
	fc.OnRun = func(string) { time.Sleep(50 * time.Millisecond) }
	d := newDispatcher(t, fc, false)
	d.SyncTimeout = time.Millisecond

	out, err := d.Dispatch(context.Background(), request("/work"))
	assert.ErrorIs(t, err, loader.ErrTimeout)
	assert.Equal(t, dispatch.StateFailed, out.State)
}

func TestDispatch_AsyncWritesPlaceholderBeforeSpawn(t *testing.T) {
	fc := testutil.NewFakeCommander()
	fc.Register("tmux new-window", "", nil)
	d := newDispatcher(t, fc, true)

	var seen *result.File
	var seenJob *jobfile.Job
	var path string
	fc.OnRun = func(string) {
		if path == "" {
			return
		}
		seen, _ = result.Read(path)
		seenJob, _ = jobfile.Load(path)
	}
	// Dispatch 전에 경로를 알 수 있도록 같은 Locator로 미리 계산한다.
	req := request("/work")
	var err error
	path, err = d.Locator.Resolve(req.Dir, req.Session)
	require.NoError(t, err)

	out, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, out.Async)
	assert.Equal(t, path, out.Path)
	assert.Equal(t, "gen-1", out.Generation)
	assert.Equal(t, []dispatch.State{dispatch.StateDeciding, dispatch.StateAsyncStarting, dispatch.StateDone}, out.Trace)

	require.NotNil(t, seen)
	assert.Equal(t, result.StateEmpty, seen.State)
	require.NotNil(t, seenJob)
	assert.Equal(t, "gen-1", seenJob.Generation)
	assert.Equal(t, "/work", seenJob.Dir)
	assert.Equal(t, "bash", seenJob.Dialect)
	assert.Equal(t, req.Environ, seenJob.Environ)

	assert.False(t, fc.Called("direnv"), "async start must not run the loader")
	require.Len(t, fc.Calls, 1)
	assert.Equal(t,
		"tmux new-window -d -n direnv-instant -c /work "+testExe+" job --path "+path+" --generation gen-1",
		fc.Calls[0])
}

func TestDispatch_SpawnFailureFallsBackToSync(t *testing.T) {
	fc := testutil.NewFakeCommander()
	fc.Register("tmux new-window", "no server running", testutil.ExitStatus(1))
	registerSuccess(t, fc)
	d := newDispatcher(t, fc, true)

	req := request("/work")
	out, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, out.Async)
	assert.ErrorIs(t, out.Fallback, mux.ErrSpawn)
	assert.Equal(t, []dispatch.State{
		dispatch.StateDeciding, dispatch.StateAsyncStarting, dispatch.StateSynchronous, dispatch.StateDone,
	}, out.Trace)
	assert.Equal(t, "export VAR='success'\n", out.Script)

	path, err := d.Locator.Resolve(req.Dir, req.Session)
	require.NoError(t, err)
	f, err := result.Read(path)
	require.NoError(t, err)
	assert.Equal(t, result.StateAbsent, f.State, "no placeholder may outlive a failed spawn")
	_, err = jobfile.Load(path)
	assert.ErrorIs(t, err, jobfile.ErrNotFound)
}

func TestDispatch_FallbackIsQuietAtDefaultLevel(t *testing.T) {
	fc := testutil.NewFakeCommander()
	fc.Register("tmux new-window", "no server running", testutil.ExitStatus(1))
	registerSuccess(t, fc)
	d := newDispatcher(t, fc, true)

	var warn, debug bytes.Buffer
	d.Logger = slog.New(slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}))
	_, err := d.Dispatch(context.Background(), request("/work"))
	require.NoError(t, err)
	assert.Empty(t, warn.String())

	d.Logger = slog.New(slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err = d.Dispatch(context.Background(), request("/work"))
	require.NoError(t, err)
	assert.Contains(t, debug.String(), "level=DEBUG")
	assert.Contains(t, debug.String(), "no server running")
}

func TestDispatch_StorageUnavailableFallsBackToSync(t *testing.T) {
	fc := testutil.NewFakeCommander()
	registerSuccess(t, fc)
	d := newDispatcher(t, fc, true)

	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	testutil.WriteFile(t, blocker, "x")
	d.Locator = session.NewLocator(filepath.Join(blocker, "state"))

	out, err := d.Dispatch(context.Background(), request("/work"))
	require.NoError(t, err)
	assert.False(t, out.Async)
	assert.ErrorIs(t, out.Fallback, session.ErrStorageUnavailable)
	assert.Equal(t, dispatch.StateDone, out.State)
	assert.False(t, fc.Called("tmux"))
}

func TestDispatch_DefaultGenerationIsUUIDv7(t *testing.T) {
	fc := testutil.NewFakeCommander()
	fc.Register("tmux new-window", "", nil)
	d := newDispatcher(t, fc, true)
	d.NewGeneration = nil

	out, err := d.Dispatch(context.Background(), request("/work"))
	require.NoError(t, err)

	id, err := uuid.Parse(out.Generation)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestDispatch_NewLoadSupersedesPrevious(t *testing.T) {
	fc := testutil.NewFakeCommander()
	fc.Register("tmux new-window", "", nil)
	d := newDispatcher(t, fc, true)
	gens := []string{"gen-1", "gen-2"}
	d.NewGeneration = func() (string, error) {
		g := gens[0]
		gens = gens[1:]
		return g, nil
	}

	first, err := d.Dispatch(context.Background(), request("/work"))
	require.NoError(t, err)
	second, err := d.Dispatch(context.Background(), request("/work"))
	require.NoError(t, err)

	assert.Equal(t, first.Path, second.Path)
	assert.True(t, jobfile.Superseded(first.Path, "gen-1"))
	assert.False(t, jobfile.Superseded(second.Path, "gen-2"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "deciding", dispatch.StateDeciding.String())
	assert.Equal(t, "async-starting", dispatch.StateAsyncStarting.String())
	assert.Equal(t, "state(42)", dispatch.State(42).String())
}
