// Package loader runs the external directory environment loader (direnv) and
// captures the environment diff it produces without touching the calling
// process's own environment.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hbjs97/direnv-instant/internal/cmdexec"
	"github.com/hbjs97/direnv-instant/internal/envdiff"
)

var (
	// ErrDenied는 direnv의 allow 검사가 .envrc를 거부했을 때의 sentinel error다.
	ErrDenied = errors.New("envrc 실행이 허용되지 않음")
	// ErrFailed는 로더가 non-zero로 종료했을 때의 sentinel error다.
	ErrFailed = errors.New("envrc 로드 실패")
	// ErrTimeout은 호출자가 지정한 deadline이 지났을 때의 sentinel error다.
	ErrTimeout = errors.New("envrc 로드 시간 초과")
)

// deniedMarkers는 direnv가 차단된 .envrc에 대해 출력하는 문구다.
var deniedMarkers = []string{"is blocked", "is not allowed"}

// Error는 로더 실패의 종류, 종료 코드, stderr를 담는다.
type Error struct {
	Kind     error
	ExitCode int
	Stderr   []byte
	Err      error
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(string(e.Stderr))
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %s", e.Kind, msg)
}

// Unwrap은 종류 sentinel과 원인 에러를 모두 노출한다.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Result는 성공한 로드의 결과다.
type Result struct {
	Diff   envdiff.Diff
	Stderr []byte
}

// Invoker는 direnv export json을 실행한다.
type Invoker struct {
	Commander cmdexec.Commander
	// Binary는 direnv 실행 파일이다. 비어있으면 "direnv".
	Binary string
}

// New는 Invoker를 만든다.
func New(cmd cmdexec.Commander, binary string) *Invoker {
	return &Invoker{Commander: cmd, Binary: binary}
}

// Run은 dir에서 environ 환경으로 로더를 끝까지 실행하고 diff를 반환한다.
// ctx에 deadline이 있으면 초과 시 ErrTimeout이다.
func (i *Invoker) Run(ctx context.Context, dir string, environ []string) (*Result, error) {
	bin := i.Binary
	if bin == "" {
		bin = "direnv"
	}

	stdout, stderr, err := i.Commander.RunIn(ctx, dir, environ, bin, "export", "json")
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.DeadlineExceeded) {
		return nil, &Error{Kind: ErrTimeout, ExitCode: -1, Stderr: stderr, Err: ctxErr}
	}
	if err != nil {
		code, ok := cmdexec.ExitCode(err)
		if !ok {
			// 실행 자체 실패 (바이너리 없음 등)
			return nil, &Error{Kind: ErrFailed, ExitCode: 1, Stderr: stderr, Err: err}
		}
		kind := ErrFailed
		if isDenied(stderr) {
			kind = ErrDenied
		}
		return nil, &Error{Kind: kind, ExitCode: code, Stderr: stderr, Err: err}
	}

	diff, err := parseExport(stdout)
	if err != nil {
		return nil, &Error{Kind: ErrFailed, ExitCode: 1, Stderr: stderr, Err: err}
	}
	return &Result{Diff: diff, Stderr: stderr}, nil
}

func isDenied(stderr []byte) bool {
	s := string(stderr)
	for _, m := range deniedMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// parseExport는 direnv export json 출력을 해석한다. 빈 출력은 변경 없음이다.
func parseExport(stdout []byte) (envdiff.Diff, error) {
	if len(strings.TrimSpace(string(stdout))) == 0 {
		return envdiff.New(nil), nil
	}
	var vars map[string]*string
	if err := json.Unmarshal(stdout, &vars); err != nil {
		return envdiff.Diff{}, fmt.Errorf("loader: direnv 출력 해석 실패: %w", err)
	}
	return envdiff.New(vars), nil
}
