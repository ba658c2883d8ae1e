package cli

import (
	"errors"

	"github.com/hbjs97/direnv-instant/internal/loader"
)

// ExitCode는 direnv-instant의 종료 코드다.
type ExitCode int

const (
	// ExitSuccess는 정상 종료다.
	ExitSuccess ExitCode = 0
	// ExitGeneral는 일반 에러다.
	ExitGeneral ExitCode = 1
	// ExitUsage는 지원하지 않는 셸 등 잘못된 사용이다.
	ExitUsage ExitCode = 2
	// ExitConfigError는 설정 파일 오류다.
	ExitConfigError ExitCode = 5
	// ExitTimeout은 로드 또는 대기 시간 초과다 (timeout(1)과 같은 값).
	ExitTimeout ExitCode = 124
)

// MapExitCode는 sentinel error를 기반으로 적절한 종료 코드를 반환한다.
// 로더가 실패하면 로더 자신의 종료 코드를 그대로 전달한다.
func MapExitCode(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var lerr *loader.Error
	var ferr *failedResultError
	switch {
	case errors.Is(err, ErrLoadTimeout), errors.Is(err, ErrPollTimeout):
		return ExitTimeout
	case errors.As(err, &ferr):
		return ExitCode(ferr.code)
	case errors.As(err, &lerr) && lerr.ExitCode > 0:
		return ExitCode(lerr.ExitCode)
	case errors.Is(err, ErrUnsupportedDialect):
		return ExitUsage
	case errors.Is(err, ErrConfig):
		return ExitConfigError
	default:
		return ExitGeneral
	}
}
