// Package dispatch decides between synchronous and asynchronous loading and
// drives each invocation through an explicit state machine:
//
//	Deciding -> Synchronous -> Done | Failed
//	Deciding -> AsyncStarting -> Done
//	AsyncStarting -> Synchronous (session storage or multiplexer unavailable)
//
// The asynchronous branch writes the job file and an empty placeholder
// before spawning the detached job, so an empty result file always means a
// load is in flight.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hbjs97/direnv-instant/internal/jobfile"
	"github.com/hbjs97/direnv-instant/internal/loader"
	"github.com/hbjs97/direnv-instant/internal/mux"
	"github.com/hbjs97/direnv-instant/internal/result"
	"github.com/hbjs97/direnv-instant/internal/session"
	"github.com/hbjs97/direnv-instant/internal/shell"
)

// State는 한 번의 호출이 거치는 상태다.
type State int

const (
	StateDeciding State = iota
	StateSynchronous
	StateAsyncStarting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDeciding:
		return "deciding"
	case StateSynchronous:
		return "synchronous"
	case StateAsyncStarting:
		return "async-starting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Loader는 direnv 로드를 실행한다. *loader.Invoker가 구현한다.
type Loader interface {
	Run(ctx context.Context, dir string, environ []string) (*loader.Result, error)
}

// Request는 한 번의 로드 요청이다.
type Request struct {
	Dir     string
	Dialect shell.Dialect
	Session session.Context
	// Environ은 로더에 넘길 셸의 환경이다.
	Environ []string
	// NotifyPID는 비동기 로드 완료 시 SIGUSR1을 받을 셸 PID다. 0이면 알리지 않는다.
	NotifyPID int
}

// Outcome은 Dispatch의 결과다.
type Outcome struct {
	State State
	Async bool
	// Script는 동기 로드의 대입문이다.
	Script string
	// Stderr는 동기 로드의 로더 stderr다. 성공/실패 모두 사용자에게 그대로 전달한다.
	Stderr []byte
	// Path와 Generation은 비동기 로드의 결과 파일과 세대다.
	Path       string
	Generation string
	// Fallback은 비동기에서 동기로 전환된 원인이다.
	Fallback error
	// Trace는 거쳐간 상태 목록이다.
	Trace []State
}

// Dispatcher는 동기/비동기 로드를 결정하고 실행한다.
type Dispatcher struct {
	Loader  Loader
	Locator *session.Locator
	Mux     mux.Multiplexer
	// JobArgv는 분리된 작업으로 실행할 명령을 만든다.
	JobArgv func(path, generation string) []string
	// SyncTimeout이 0보다 크면 동기 로드에 deadline을 건다.
	SyncTimeout time.Duration
	// NewGeneration이 nil이면 UUIDv7을 사용한다.
	NewGeneration func() (string, error)
	// Notify는 비동기 로드 완료를 셸에 알린다. nil이면 알리지 않는다.
	Notify func(pid int) error
	Logger *slog.Logger
}

// Dispatch는 상태 머신을 끝까지 진행한다.
// 동기 로드가 실패하면 Outcome(StateFailed)과 로더 에러를 함께 반환한다.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Outcome, error) {
	trace := []State{StateDeciding}
	state := StateDeciding
	var fallback error

	move := func(next State) {
		d.logger().Debug("dispatch transition", "from", state, "to", next, "dir", req.Dir)
		state = next
		trace = append(trace, next)
	}

	for {
		switch state {
		case StateDeciding:
			if d.Mux != nil && d.Mux.Attached() {
				move(StateAsyncStarting)
			} else {
				move(StateSynchronous)
			}

		case StateAsyncStarting:
			out, err := d.startAsync(ctx, req)
			if err != nil {
				d.logger().Debug("비동기 로드를 시작하지 못해 동기 로드로 전환", "err", err)
				fallback = err
				move(StateSynchronous)
				continue
			}
			move(StateDone)
			out.State = state
			out.Trace = trace
			return out, nil

		case StateSynchronous:
			out, err := d.runSync(ctx, req)
			out.Fallback = fallback
			if err != nil {
				move(StateFailed)
				out.State = state
				out.Trace = trace
				return out, err
			}
			move(StateDone)
			out.State = state
			out.Trace = trace
			return out, nil

		default:
			return nil, fmt.Errorf("dispatch.Dispatch: 잘못된 상태: %s", state)
		}
	}
}

func (d *Dispatcher) runSync(ctx context.Context, req Request) (*Outcome, error) {
	if d.SyncTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.SyncTimeout)
		defer cancel()
	}

	res, err := d.Loader.Run(ctx, req.Dir, req.Environ)
	if err != nil {
		out := &Outcome{}
		var lerr *loader.Error
		if errors.As(err, &lerr) {
			out.Stderr = lerr.Stderr
		}
		return out, err
	}

	script, err := shell.Format(res.Diff, req.Dialect)
	if err != nil {
		return &Outcome{Stderr: res.Stderr}, err
	}
	return &Outcome{Script: script, Stderr: res.Stderr}, nil
}

func (d *Dispatcher) startAsync(ctx context.Context, req Request) (*Outcome, error) {
	if d.JobArgv == nil {
		return nil, fmt.Errorf("dispatch.startAsync: %w: 작업 명령 없음", mux.ErrSpawn)
	}
	path, err := d.Locator.Resolve(req.Dir, req.Session)
	if err != nil {
		return nil, err
	}
	gen, err := d.newGeneration()
	if err != nil {
		return nil, fmt.Errorf("dispatch.startAsync: %w", err)
	}

	// 작업 파일 -> placeholder -> spawn 순서. placeholder는 spawn보다 먼저 보여야 한다.
	job := jobfile.New(gen, req.Dir, string(req.Dialect), req.Environ, req.NotifyPID)
	if err := job.Save(path); err != nil {
		return nil, fmt.Errorf("dispatch.startAsync: %w: %v", session.ErrStorageUnavailable, err)
	}
	if err := result.WriteLog(path, nil); err != nil {
		return nil, fmt.Errorf("dispatch.startAsync: %w: %v", session.ErrStorageUnavailable, err)
	}
	if err := result.WritePlaceholder(path); err != nil {
		_ = result.Remove(path) // 작업 파일 정리, 실패해도 동기 로드는 진행
		return nil, fmt.Errorf("dispatch.startAsync: %w: %v", session.ErrStorageUnavailable, err)
	}

	if err := d.Mux.Spawn(ctx, req.Dir, d.JobArgv(path, gen)); err != nil {
		// 기다릴 작업이 없으므로 placeholder를 남기지 않는다.
		_ = result.Remove(path)
		return nil, err
	}

	d.logger().Debug("비동기 로드 시작", "path", path, "generation", gen, "mux", d.Mux.Name())
	return &Outcome{Async: true, Path: path, Generation: gen}, nil
}

func (d *Dispatcher) newGeneration() (string, error) {
	if d.NewGeneration != nil {
		return d.NewGeneration()
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d.Logger
}
