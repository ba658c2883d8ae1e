// Package session locates the result file that scopes one asynchronous load
// to a (working directory, multiplexer session, shell process) tuple.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// ErrStorageUnavailable는 상태 디렉토리를 만들거나 쓸 수 없을 때 반환된다.
// 호출자는 동기 모드로 전환해야 한다.
var ErrStorageUnavailable = errors.New("세션 저장소를 사용할 수 없음")

// Context는 같은 디렉토리의 동시 셸을 구분하는 신호다.
type Context struct {
	MuxSession string // $TMUX (socket,server pid,session)
	MuxPane    string // $TMUX_PANE
	ShellPID   int
}

// ContextFromEnv는 환경변수에서 Context를 만든다.
// DIRENV_INSTANT_SHELL_PID가 없거나 잘못되면 fallbackPID를 사용한다.
func ContextFromEnv(getenv func(string) string, fallbackPID int) Context {
	pid := fallbackPID
	if v := getenv("DIRENV_INSTANT_SHELL_PID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pid = n
		}
	}
	return Context{
		MuxSession: getenv("TMUX"),
		MuxPane:    getenv("TMUX_PANE"),
		ShellPID:   pid,
	}
}

// Locator는 세션별 결과 파일 경로를 계산한다.
type Locator struct {
	// Dir은 결과 파일을 두는 사용자 전용 디렉토리다.
	Dir string
}

// NewLocator는 base가 비어있으면 DefaultDir을 사용하는 Locator를 만든다.
func NewLocator(base string) *Locator {
	if base == "" {
		base = DefaultDir()
	}
	return &Locator{Dir: base}
}

// DefaultDir은 $XDG_RUNTIME_DIR/direnv-instant, 없으면 $TMPDIR/direnv-instant-<uid>이다.
func DefaultDir() string {
	if runtime := os.Getenv("XDG_RUNTIME_DIR"); runtime != "" {
		return filepath.Join(runtime, "direnv-instant")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("direnv-instant-%d", os.Getuid()))
}

// Resolve는 workDir과 c에 대한 결과 파일 경로를 반환한다.
// 같은 입력에는 항상 같은 경로, 다른 Context에는 다른 경로를 준다.
func (l *Locator) Resolve(workDir string, c Context) (string, error) {
	if err := l.Ensure(); err != nil {
		return "", err
	}
	return filepath.Join(l.Dir, Key(Canonical(workDir), c)+".env"), nil
}

// Key는 정규화된 디렉토리와 Context의 해시다.
func Key(canonicalDir string, c Context) string {
	h := sha256.New()
	for _, part := range []string{canonicalDir, c.MuxSession, c.MuxPane, strconv.Itoa(c.ShellPID)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Canonical은 절대 경로로 만들고 심볼릭 링크를 풀고 NFC로 정규화한다.
// macOS는 NFD 경로를 돌려줄 수 있어 정규화 없이는 같은 디렉토리가 다른 키가 된다.
func Canonical(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return norm.NFC.String(abs)
}

// Ensure는 0700 디렉토리를 만들고 실제로 쓸 수 있는지 확인한다.
func (l *Locator) Ensure() error {
	if err := os.MkdirAll(l.Dir, 0700); err != nil {
		return fmt.Errorf("session.Resolve: %w: %v", ErrStorageUnavailable, err)
	}
	info, err := os.Stat(l.Dir)
	if err != nil {
		return fmt.Errorf("session.Resolve: %w: %v", ErrStorageUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("session.Resolve: %w: %s는 디렉토리가 아닙니다", ErrStorageUnavailable, l.Dir)
	}
	probe, err := os.CreateTemp(l.Dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("session.Resolve: %w: %v", ErrStorageUnavailable, err)
	}
	name := probe.Name()
	probe.Close()
	_ = os.Remove(name) // 프로브 정리 실패는 무시
	return nil
}
