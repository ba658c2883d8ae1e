package setup

import (
	"context"
	"fmt"
	"testing"

	"github.com/hbjs97/direnv-instant/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDetectShell(t *testing.T) {
	tests := []struct {
		shell string
		want  string
	}{
		{"/bin/zsh", "zsh"},
		{"/usr/bin/bash", "bash"},
		{"/usr/local/bin/fish", "fish"},
		{"-zsh", "zsh"},
		{"/bin/tcsh", "tcsh"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			t.Setenv("SHELL", tt.shell)
			assert.Equal(t, tt.want, DetectShell())
		})
	}
}

func TestShellRCPath(t *testing.T) {
	assert.Equal(t, "/home/u/.zshrc", ShellRCPath("zsh", "/home/u"))
	assert.Equal(t, "/home/u/.bashrc", ShellRCPath("bash", "/home/u"))
	assert.Equal(t, "/home/u/.config/fish/conf.d/direnv-instant.fish", ShellRCPath("fish", "/home/u"))
	assert.Empty(t, ShellRCPath("tcsh", "/home/u"))
}

func TestDetectTmux(t *testing.T) {
	fc := testutil.NewFakeCommander()
	fc.Register("tmux -V", "tmux 3.4", nil)
	assert.True(t, DetectTmux(context.Background(), fc, ""))

	fc = testutil.NewFakeCommander()
	fc.Register("tmux -V", "", fmt.Errorf("not found"))
	assert.False(t, DetectTmux(context.Background(), fc, ""))
}
