package watch_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hbjs97/direnv-instant/internal/session"
	"github.com/hbjs97/direnv-instant/internal/testutil"
	"github.com/hbjs97/direnv-instant/internal/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDecode_RoundTrip(t *testing.T) {
	times := []watch.FileTime{
		{Path: "/home/u/project/.envrc", Modtime: 1700000000, Exists: true},
		{Path: "/home/u/.local/share/direnv/allow/abc", Modtime: 0, Exists: false},
	}
	s, err := watch.Encode(times)
	require.NoError(t, err)

	got, err := watch.Decode(s)
	require.NoError(t, err)
	assert.Equal(t, times, got)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := watch.Decode("not base64!!")
	assert.Error(t, err)

	got, err := watch.Decode("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestChanged(t *testing.T) {
	dir := testutil.TempEnvrc(t, "export A=1\n")
	rc := filepath.Join(dir, ".envrc")
	info, err := os.Stat(rc)
	require.NoError(t, err)
	missing := filepath.Join(dir, ".env")

	fresh := []watch.FileTime{
		{Path: rc, Modtime: info.ModTime().Unix(), Exists: true},
		{Path: missing, Exists: false},
	}
	assert.False(t, watch.Changed(fresh))

	assert.True(t, watch.Changed(nil), "empty list forces a reload")
	assert.True(t, watch.Changed([]watch.FileTime{{Path: rc, Modtime: info.ModTime().Unix() - 10, Exists: true}}))
	assert.True(t, watch.Changed([]watch.FileTime{{Path: missing, Exists: true}}))

	testutil.WriteFile(t, missing, "B=2\n")
	assert.True(t, watch.Changed(fresh), "appeared file")
}

func TestFindEnvrc_WalksUp(t *testing.T) {
	dir := testutil.TempEnvrc(t, "")
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0700))

	assert.Equal(t, filepath.Join(session.Canonical(dir), ".envrc"), watch.FindEnvrc(session.Canonical(nested)))
	assert.Equal(t, "", watch.FindEnvrc(session.Canonical(t.TempDir())))
}

func TestNeedsReload(t *testing.T) {
	dir := testutil.TempEnvrc(t, "export A=1\n")
	rc := watch.FindEnvrc(session.Canonical(dir))
	require.NotEmpty(t, rc)

	t.Run("nothing loaded and no envrc", func(t *testing.T) {
		assert.False(t, watch.NeedsReload(envMap(nil), t.TempDir()))
	})
	t.Run("envrc not yet loaded", func(t *testing.T) {
		assert.True(t, watch.NeedsReload(envMap(nil), dir))
	})
	t.Run("loaded and unchanged", func(t *testing.T) {
		assert.False(t, watch.NeedsReload(envMap(testutil.DirenvState(t, rc)), dir))
	})
	t.Run("left the loaded directory", func(t *testing.T) {
		assert.True(t, watch.NeedsReload(envMap(testutil.DirenvState(t, rc)), t.TempDir()))
	})
	t.Run("DIRENV_DIR only", func(t *testing.T) {
		state := testutil.DirenvState(t, rc)
		delete(state, watch.FileVar)
		assert.False(t, watch.NeedsReload(envMap(state), dir))
	})
}

func TestNeedsReload_EditedEnvrc(t *testing.T) {
	dir := testutil.TempEnvrc(t, "export A=1\n")
	rc := watch.FindEnvrc(session.Canonical(dir))
	state := testutil.DirenvState(t, rc)
	require.False(t, watch.NeedsReload(envMap(state), dir))

	testutil.WriteFile(t, rc, "export A=2\n")
	later := time.Now().Add(5 * time.Second)
	require.NoError(t, os.Chtimes(rc, later, later))

	assert.True(t, watch.NeedsReload(envMap(state), dir))
}

func TestFingerprint_ChangesOnEditAndAllow(t *testing.T) {
	dir := testutil.TempEnvrc(t, "export A=1\n")
	data := t.TempDir()
	env := envMap(map[string]string{"XDG_DATA_HOME": data})

	before := watch.Fingerprint(env, dir)
	assert.Equal(t, before, watch.Fingerprint(env, dir))

	allow := filepath.Join(data, "direnv", "allow")
	require.NoError(t, os.MkdirAll(allow, 0700))
	allowed := watch.Fingerprint(env, dir)
	assert.NotEqual(t, before, allowed, "direnv allow creates the allow dir")

	rc := filepath.Join(dir, ".envrc")
	later := time.Now().Add(5 * time.Second)
	require.NoError(t, os.Chtimes(rc, later, later))
	assert.NotEqual(t, allowed, watch.Fingerprint(env, dir))
}

func TestFailureRecord(t *testing.T) {
	path := filepath.Join(testutil.StateDir(t), "abc.env")

	assert.False(t, watch.FailedUnchanged(path, "fp"))
	require.NoError(t, watch.RecordFailure(path, "fp"))
	assert.True(t, watch.FailedUnchanged(path, "fp"))
	assert.False(t, watch.FailedUnchanged(path, "other"))

	require.NoError(t, watch.ClearFailure(path))
	assert.False(t, watch.FailedUnchanged(path, "fp"))
	require.NoError(t, watch.ClearFailure(path), "missing record is ignored")
}

func TestEnvLookup(t *testing.T) {
	get := watch.EnvLookup([]string{"HOME=/home/u", "EMPTY=", "WITH=a=b", "BROKEN"})
	assert.Equal(t, "/home/u", get("HOME"))
	assert.Equal(t, "", get("EMPTY"))
	assert.Equal(t, "a=b", get("WITH"))
	assert.Equal(t, "", get("BROKEN"))
}
