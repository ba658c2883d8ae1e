package result

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// matches는 f가 기다리는 세대의 결과인지 확인한다. generation이 비어있으면 세대를 검사하지 않는다.
func matches(f *File, generation string) bool {
	return generation == "" || f.Generation == generation
}

// Consume은 결과를 정확히 한 번 소비한다.
// 기다리는 세대의 완료(성공/실패) 결과이면 반환하고 결과/로그/작업 파일을 지운다.
// 없거나 진행 중이면 파일을 건드리지 않는다. 다른 세대의 결과는 StateStale로 무시한다.
func Consume(path, generation string) (*File, error) {
	f, err := Read(path)
	if err != nil {
		return nil, err
	}
	switch f.State {
	case StateAbsent, StateEmpty:
		return f, nil
	}
	if !matches(f, generation) {
		return &File{State: StateStale, Generation: f.Generation}, nil
	}

	if f.State == StatePopulated {
		log, err := os.ReadFile(LogPath(path))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("result.Consume: %w", err)
		}
		f.Log = string(log)
	}

	if err := Remove(path); err != nil {
		return nil, fmt.Errorf("result.Consume: %w", err)
	}
	return f, nil
}

// Poll은 interval 간격으로 결과 파일을 확인하여 기다리는 세대의 결과가 완료되면 반환한다.
// 파일이 없으면 진행 중인 로드가 없으므로 즉시 StateAbsent를 반환한다.
// attempts번 확인해도 준비되지 않으면 ErrPollTimeout이다. 파일은 소비하지 않는다.
func Poll(ctx context.Context, path, generation string, interval time.Duration, attempts int) (*File, error) {
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		f, err := Read(path)
		if err != nil {
			return nil, err
		}
		switch f.State {
		case StateAbsent:
			return f, nil
		case StatePopulated, StateFailed:
			if matches(f, generation) {
				return f, nil
			}
		}

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("result.Poll: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
	return nil, fmt.Errorf("result.Poll: %d회 확인 후 %w", attempts, ErrPollTimeout)
}
