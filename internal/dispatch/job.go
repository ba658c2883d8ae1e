package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hbjs97/direnv-instant/internal/jobfile"
	"github.com/hbjs97/direnv-instant/internal/loader"
	"github.com/hbjs97/direnv-instant/internal/result"
	"github.com/hbjs97/direnv-instant/internal/shell"
	"github.com/hbjs97/direnv-instant/internal/watch"
)

// timeoutExitCode는 timeout(1)과 같은 종료 코드다.
const timeoutExitCode = 124

// RunJob은 분리된 작업의 본체다. 작업 파일을 읽어 로더를 실행하고,
// 결과(성공 대입문 또는 실패 마커)를 결과 파일에 원자적으로 기록한다.
// 더 새로운 로드가 시작되었으면 결과를 버린다.
func (d *Dispatcher) RunJob(ctx context.Context, path, generation string) error {
	job, err := jobfile.Load(path)
	if err != nil {
		if errors.Is(err, jobfile.ErrNotFound) {
			d.logger().Info("작업 파일이 없어 종료 (이미 대체됨)", "path", path)
			return nil
		}
		return fmt.Errorf("dispatch.RunJob: %w", err)
	}
	if job.Generation != generation {
		d.logger().Info("더 새로운 로드가 있어 종료", "path", path, "generation", generation, "current", job.Generation)
		return nil
	}

	// 로드 중 .envrc가 바뀌어도 다음 프롬프트가 다시 시도하도록 입력 요약은 로드 전에 만든다.
	fingerprint := watch.Fingerprint(watch.EnvLookup(job.Environ), job.Dir)
	f, log := d.loadForJob(ctx, job, generation)

	if jobfile.Superseded(path, generation) {
		d.logger().Info("로드 중 대체되어 결과를 버림", "path", path, "generation", generation)
		return nil
	}
	if err := result.WriteLog(path, log); err != nil {
		return fmt.Errorf("dispatch.RunJob: %w", err)
	}
	if err := result.Write(path, f); err != nil {
		return fmt.Errorf("dispatch.RunJob: %w", err)
	}
	d.logger().Debug("결과 기록 완료", "path", path, "state", f.State)
	d.rememberFailure(path, f, fingerprint)

	if job.NotifyPID > 0 && d.Notify != nil {
		if err := d.Notify(job.NotifyPID); err != nil {
			d.logger().Debug("셸 알림 실패", "pid", job.NotifyPID, "err", err)
		}
	}
	return nil
}

// loadForJob은 로더를 실행해 결과 파일 내용과 로그를 만든다. 실패는 삼키지 않고 Failed로 기록한다.
func (d *Dispatcher) loadForJob(ctx context.Context, job *jobfile.Job, generation string) (*result.File, []byte) {
	dialect, err := shell.ParseDialect(job.Dialect)
	if err != nil {
		return result.Failed(generation, 2, err.Error()), nil
	}

	res, err := d.Loader.Run(ctx, job.Dir, job.Environ)
	if err != nil {
		return failedResult(generation, err), nil
	}

	script, err := shell.Format(res.Diff, dialect)
	if err != nil {
		return result.Failed(generation, 1, err.Error()), nil
	}
	return result.Populated(generation, script), res.Stderr
}

func failedResult(generation string, err error) *result.File {
	var lerr *loader.Error
	if !errors.As(err, &lerr) {
		return result.Failed(generation, 1, err.Error())
	}
	code := lerr.ExitCode
	if errors.Is(err, loader.ErrTimeout) {
		code = timeoutExitCode
	}
	msg := string(lerr.Stderr)
	if strings.TrimSpace(msg) == "" {
		msg = err.Error()
	}
	return result.Failed(generation, code, msg)
}

// rememberFailure는 실패한 로드의 입력 요약을 남기고, 성공하면 지운다.
func (d *Dispatcher) rememberFailure(path string, f *result.File, fingerprint string) {
	var err error
	if f.State == result.StateFailed {
		err = watch.RecordFailure(path, fingerprint)
	} else {
		err = watch.ClearFailure(path)
	}
	if err != nil {
		d.logger().Debug("실패 기록 갱신 실패", "path", path, "err", err)
	}
}
