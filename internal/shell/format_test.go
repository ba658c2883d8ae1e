package shell_test

import (
	"os/exec"
	"strings"
	"testing"

	"github.com/hbjs97/direnv-instant/internal/envdiff"
	"github.com/hbjs97/direnv-instant/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func testDiff() envdiff.Diff {
	return envdiff.New(map[string]*string{
		"VAR":     ptr("success"),
		"OLD_VAR": nil,
	})
}

func TestFormat_Bash(t *testing.T) {
	out, err := shell.Format(testDiff(), shell.Bash)
	require.NoError(t, err)
	assert.Equal(t, "unset OLD_VAR\nexport VAR='success'\n", out)
}

func TestFormat_Zsh(t *testing.T) {
	out, err := shell.Format(testDiff(), shell.Zsh)
	require.NoError(t, err)
	assert.Contains(t, out, "export VAR='success'")
	assert.Contains(t, out, "unset OLD_VAR")
}

func TestFormat_Fish(t *testing.T) {
	out, err := shell.Format(testDiff(), shell.Fish)
	require.NoError(t, err)
	assert.NotContains(t, out, "export")
	assert.Contains(t, out, "set -gx VAR 'success'")
	assert.Contains(t, out, "set -e -g OLD_VAR")
}

func TestFormat_UnsupportedDialect(t *testing.T) {
	_, err := shell.Format(testDiff(), shell.Dialect("tcsh"))
	assert.ErrorIs(t, err, shell.ErrUnsupportedDialect)
}

func TestFormat_EmptyDiff(t *testing.T) {
	out, err := shell.Format(envdiff.New(nil), shell.Bash)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFormat_PosixEscapesSingleQuote(t *testing.T) {
	d := envdiff.New(map[string]*string{"Q": ptr("it's")})
	out, err := shell.Format(d, shell.Bash)
	require.NoError(t, err)
	assert.Equal(t, "export Q='it'\\''s'\n", out)
}

func TestFormat_FishEscapesBackslashAndQuote(t *testing.T) {
	d := envdiff.New(map[string]*string{"Q": ptr(`a\b'c`)})
	out, err := shell.Format(d, shell.Fish)
	require.NoError(t, err)
	assert.Equal(t, `set -gx Q 'a\\b\'c'`+"\n", out)
}

func TestFormat_FishSplitsPath(t *testing.T) {
	d := envdiff.New(map[string]*string{"PATH": ptr("/a/bin:/usr/bin")})
	out, err := shell.Format(d, shell.Fish)
	require.NoError(t, err)
	assert.Equal(t, "set -gx PATH '/a/bin' '/usr/bin'\n", out)
}

func TestFormat_SkipsInvalidNames(t *testing.T) {
	d := envdiff.New(map[string]*string{
		"BASH_FUNC_x%%": ptr("() { :; }"),
		"1BAD":          ptr("x"),
		"GOOD":          ptr("y"),
	})
	out, err := shell.Format(d, shell.Bash)
	require.NoError(t, err)
	assert.Equal(t, "export GOOD='y'\n", out)
}

func TestFormatSessionVars(t *testing.T) {
	out, err := shell.FormatSessionVars(shell.Bash, "/run/x/abc.env", "gen-1")
	require.NoError(t, err)
	assert.Contains(t, out, "export __DIRENV_INSTANT_ENV_FILE='/run/x/abc.env'")
	assert.Contains(t, out, "export __DIRENV_INSTANT_GENERATION='gen-1'")

	out, err = shell.FormatSessionVars(shell.Fish, "/run/x/abc.env", "gen-1")
	require.NoError(t, err)
	assert.Contains(t, out, "set -gx __DIRENV_INSTANT_ENV_FILE '/run/x/abc.env'")
}

func TestFormatClearSessionVars(t *testing.T) {
	out, err := shell.FormatClearSessionVars(shell.Zsh)
	require.NoError(t, err)
	assert.Equal(t, "unset __DIRENV_INSTANT_ENV_FILE\nunset __DIRENV_INSTANT_GENERATION\n", out)

	out, err = shell.FormatClearSessionVars(shell.Fish)
	require.NoError(t, err)
	assert.Contains(t, out, "set -e -g __DIRENV_INSTANT_ENV_FILE")
}

// hostileValues는 셸 메타문자를 포함한 값들이다.
var hostileValues = []string{
	"plain",
	"",
	"it's",
	`"double"`,
	"$(touch /tmp/pwned)",
	"`id`",
	"back\\slash",
	"multi\nline\nvalue",
	"semi; rm -rf /",
	"trailing\\",
	"'",
	"\\'",
}

func TestFormat_RoundTripPosix(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	for _, v := range hostileValues {
		d := envdiff.New(map[string]*string{"RT": ptr(v), "GONE": nil})
		script, err := shell.Format(d, shell.Sh)
		require.NoError(t, err)

		out, err := exec.Command(sh, "-c", "GONE=present\n"+script+`printf '%s|%s' "$RT" "${GONE-unset}"`).Output()
		require.NoError(t, err, "value %q", v)
		assert.Equal(t, v+"|unset", string(out), "value %q", v)
	}
}

func TestFormat_RoundTripFish(t *testing.T) {
	fish, err := exec.LookPath("fish")
	if err != nil {
		t.Skip("fish not available")
	}

	for _, v := range hostileValues {
		d := envdiff.New(map[string]*string{"RT": ptr(v)})
		script, err := shell.Format(d, shell.Fish)
		require.NoError(t, err)

		out, err := exec.Command(fish, "--no-config", "-c", script+`printf '%s' "$RT"`).Output()
		require.NoError(t, err, "value %q", v)
		assert.Equal(t, v, string(out), "value %q", v)
	}
}

func TestFormat_NeverAddsVariables(t *testing.T) {
	d := testDiff()
	for _, dialect := range []shell.Dialect{shell.Bash, shell.Zsh, shell.Sh, shell.Fish} {
		out, err := shell.Format(d, dialect)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		assert.Len(t, lines, d.Len(), "dialect %s", dialect)
	}
}
