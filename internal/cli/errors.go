package cli

import (
	"errors"
	"fmt"

	"github.com/hbjs97/direnv-instant/internal/config"
	"github.com/hbjs97/direnv-instant/internal/loader"
	"github.com/hbjs97/direnv-instant/internal/mux"
	"github.com/hbjs97/direnv-instant/internal/result"
	"github.com/hbjs97/direnv-instant/internal/session"
	"github.com/hbjs97/direnv-instant/internal/shell"
)

// 각 도메인 패키지의 sentinel error를 CLI 레이어에서 편의상 re-export한다.
var (
	// ErrDenied는 .envrc가 allow되지 않았을 때의 sentinel error다.
	ErrDenied = loader.ErrDenied
	// ErrLoadFailed는 로더가 실패했을 때의 sentinel error다.
	ErrLoadFailed = loader.ErrFailed
	// ErrLoadTimeout은 동기 로드가 sync_timeout을 넘겼을 때의 sentinel error다.
	ErrLoadTimeout = loader.ErrTimeout
	// ErrPollTimeout은 wait가 결과를 기다리다 포기했을 때의 sentinel error다.
	ErrPollTimeout = result.ErrPollTimeout
	// ErrCorrupt는 결과 파일을 해석할 수 없을 때의 sentinel error다.
	ErrCorrupt = result.ErrCorrupt
	// ErrUnsupportedDialect는 알 수 없는 셸 이름의 sentinel error다.
	ErrUnsupportedDialect = shell.ErrUnsupportedDialect
	// ErrStorageUnavailable은 세션 디렉토리를 쓸 수 없을 때의 sentinel error다.
	ErrStorageUnavailable = session.ErrStorageUnavailable
	// ErrSpawn은 멀티플렉서가 작업을 띄우지 못했을 때의 sentinel error다.
	ErrSpawn = mux.ErrSpawn
	// ErrConfig는 설정 파일 오류를 나타내는 sentinel error다.
	ErrConfig = config.ErrConfig
)

// reportedError는 사용자에게 이미 출력된 에러다. main은 다시 출력하지 않는다.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// IsReported는 err가 이미 stderr로 보고되었으면 true다.
func IsReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

// failedResultError는 비동기 로드가 남긴 실패 결과다. 기록된 종료 코드를 그대로 쓴다.
type failedResultError struct {
	code int
}

func (e *failedResultError) Error() string {
	return fmt.Sprintf("envrc 로드 실패 (exit %d)", e.code)
}

func (e *failedResultError) Unwrap() error { return loader.ErrFailed }
