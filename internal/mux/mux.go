// Package mux provides an abstraction over terminal multiplexers. It only
// detects whether one is attached and spawns detached background jobs in it;
// it does not manage session lifecycle.
package mux

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hbjs97/direnv-instant/internal/cmdexec"
)

// ErrSpawn은 멀티플렉서가 백그라운드 작업을 띄우지 못했을 때 반환된다.
var ErrSpawn = errors.New("백그라운드 작업 실행 실패")

// Multiplexer abstracts terminal multiplexer operations.
type Multiplexer interface {
	// Name returns the multiplexer name (e.g., "tmux").
	Name() string

	// Attached reports whether the current shell runs inside the multiplexer.
	Attached() bool

	// Spawn starts argv as a detached job rooted at dir and returns without
	// waiting for it.
	Spawn(ctx context.Context, dir string, argv []string) error
}

// 멀티플렉서 선택 모드 (config의 multiplexer 값).
// auto와 tmux는 모두 $TMUX가 있을 때 비동기로 로드한다.
// tmux는 tmux를 필수로 선언하므로 doctor가 tmux 바이너리가 없으면 실패로 보고한다.
const (
	ModeAuto = "auto"
	ModeTmux = "tmux"
	ModeNone = "none"
)

// Tmux는 tmux CLI 기반 Multiplexer다.
type Tmux struct {
	Commander cmdexec.Commander
	Getenv    func(string) string
	// Binary는 tmux 실행 파일이다. 비어있으면 "tmux".
	Binary string
	// WindowName은 백그라운드 창 이름이다.
	WindowName string
}

var _ Multiplexer = (*Tmux)(nil)

// Name returns "tmux".
func (t *Tmux) Name() string { return "tmux" }

// Attached는 $TMUX가 설정되어 있으면 true다.
func (t *Tmux) Attached() bool {
	return t.Getenv("TMUX") != ""
}

// Spawn은 현재 세션에 포커스를 옮기지 않는 새 창(-d)을 열어 argv를 실행한다.
func (t *Tmux) Spawn(ctx context.Context, dir string, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("mux.Spawn: %w: 빈 명령", ErrSpawn)
	}
	bin := t.Binary
	if bin == "" {
		bin = "tmux"
	}
	name := t.WindowName
	if name == "" {
		name = "direnv-instant"
	}

	args := []string{"new-window", "-d", "-n", name, "-c", dir}
	args = append(args, argv...)
	out, err := t.Commander.Run(ctx, bin, args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("mux.Spawn: %w: %s: %v", ErrSpawn, msg, err)
		}
		return fmt.Errorf("mux.Spawn: %w: %v", ErrSpawn, err)
	}
	return nil
}

// None은 멀티플렉서가 없음을 나타낸다. 항상 동기 모드가 된다.
type None struct{}

var _ Multiplexer = None{}

// Name returns "none".
func (None) Name() string { return ModeNone }

// Attached always reports false.
func (None) Attached() bool { return false }

// Spawn always fails.
func (None) Spawn(context.Context, string, []string) error {
	return fmt.Errorf("mux.Spawn: %w: 멀티플렉서 없음", ErrSpawn)
}

// Options는 Detect의 입력이다.
type Options struct {
	Mode       string
	Binary     string
	WindowName string
}

// Detect는 mode에 맞는 Multiplexer를 반환한다. 알 수 없는 mode는 에러다.
func Detect(opts Options, cmd cmdexec.Commander, getenv func(string) string) (Multiplexer, error) {
	switch opts.Mode {
	case "", ModeAuto, ModeTmux:
		return &Tmux{Commander: cmd, Getenv: getenv, Binary: opts.Binary, WindowName: opts.WindowName}, nil
	case ModeNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("mux.Detect: 알 수 없는 멀티플렉서: %q", opts.Mode)
	}
}
