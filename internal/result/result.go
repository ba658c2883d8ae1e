// Package result implements the result file handed from the detached loader
// to the interactive shell. A result file is absent, empty (load in
// progress), populated with dialect statements, or failed with a message.
// Every write replaces the file atomically so readers never see a partial
// state.
package result

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
)

var (
	// ErrCorrupt는 결과 파일 헤더를 해석할 수 없을 때 반환된다.
	ErrCorrupt = errors.New("결과 파일 형식 오류")
	// ErrPollTimeout은 최대 시도 횟수 안에 결과가 준비되지 않았을 때 반환된다.
	ErrPollTimeout = errors.New("결과 대기 시간 초과")
)

// State는 결과 파일의 상태다.
type State int

const (
	// StateAbsent는 로드가 시작되지 않았거나 이미 소비된 상태다.
	StateAbsent State = iota
	// StateEmpty는 placeholder만 있는, 로드 진행 중 상태다.
	StateEmpty
	// StatePopulated는 로드가 성공하여 대입문이 기록된 상태다.
	StatePopulated
	// StateFailed는 로드가 실패하여 에러 마커가 기록된 상태다.
	StateFailed
	// StateStale은 기다리는 세대와 다른 세대의 결과가 기록된 상태다.
	StateStale
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateEmpty:
		return "loading"
	case StatePopulated:
		return "ready"
	case StateFailed:
		return "failed"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

const (
	headerPrefix  = "# direnv-instant "
	messagePrefix = "#>"
	logSuffix     = ".log"
	jobSuffix     = ".job"
)

// File은 결과 파일의 내용이다.
type File struct {
	State      State
	Generation string
	// Script는 StatePopulated일 때 셸에서 실행할 대입문이다.
	Script string
	// Message는 StateFailed일 때 사용자에게 보여줄 로더 출력이다.
	Message string
	// ExitCode는 StateFailed일 때 로더의 종료 코드다.
	ExitCode int
	// Log는 Consume이 함께 읽은 성공 로드의 로더 stderr다.
	Log string
}

// Populated는 성공 결과를 만든다.
func Populated(generation, script string) *File {
	return &File{State: StatePopulated, Generation: generation, Script: script}
}

// Failed는 실패 결과를 만든다. exitCode가 0이면 1로 기록한다.
func Failed(generation string, exitCode int, message string) *File {
	if exitCode == 0 {
		exitCode = 1
	}
	return &File{State: StateFailed, Generation: generation, ExitCode: exitCode, Message: message}
}

// LogPath는 결과 파일에 딸린 로더 로그 경로다.
func LogPath(path string) string { return path + logSuffix }

// JobPath는 결과 파일에 딸린 작업 파일 경로다.
func JobPath(path string) string { return path + jobSuffix }

// Encode는 File을 결과 파일 바이트로 변환한다.
func Encode(f *File) ([]byte, error) {
	var b strings.Builder
	switch f.State {
	case StateEmpty:
		return []byte{}, nil
	case StatePopulated:
		fmt.Fprintf(&b, "%sok gen=%s\n", headerPrefix, f.Generation)
		b.WriteString(f.Script)
	case StateFailed:
		fmt.Fprintf(&b, "%serror gen=%s exit=%d\n", headerPrefix, f.Generation, f.ExitCode)
		msg := strings.TrimRight(f.Message, "\n")
		if msg != "" {
			for _, line := range strings.Split(msg, "\n") {
				if line == "" {
					b.WriteString(messagePrefix + "\n")
					continue
				}
				b.WriteString(messagePrefix + " " + line + "\n")
			}
		}
	default:
		return nil, fmt.Errorf("result.Encode: 기록할 수 없는 상태: %s", f.State)
	}
	return []byte(b.String()), nil
}

// Decode는 결과 파일 바이트를 File로 해석한다. 빈 입력은 StateEmpty다.
func Decode(data []byte) (*File, error) {
	if len(data) == 0 {
		return &File{State: StateEmpty}, nil
	}
	text := string(data)
	header, body, _ := strings.Cut(text, "\n")
	if !strings.HasPrefix(header, headerPrefix) {
		return nil, fmt.Errorf("result.Decode: %w: 헤더 없음", ErrCorrupt)
	}
	fields := strings.Fields(strings.TrimPrefix(header, headerPrefix))
	if len(fields) < 2 {
		return nil, fmt.Errorf("result.Decode: %w: %q", ErrCorrupt, header)
	}
	attrs := make(map[string]string, len(fields)-1)
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("result.Decode: %w: %q", ErrCorrupt, header)
		}
		attrs[k] = v
	}

	switch fields[0] {
	case "ok":
		return &File{State: StatePopulated, Generation: attrs["gen"], Script: body}, nil
	case "error":
		code, err := strconv.Atoi(attrs["exit"])
		if err != nil {
			return nil, fmt.Errorf("result.Decode: %w: exit=%q", ErrCorrupt, attrs["exit"])
		}
		return &File{
			State:      StateFailed,
			Generation: attrs["gen"],
			ExitCode:   code,
			Message:    decodeMessage(body),
		}, nil
	default:
		return nil, fmt.Errorf("result.Decode: %w: %q", ErrCorrupt, header)
	}
}

func decodeMessage(body string) string {
	var lines []string
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		if !strings.HasPrefix(line, messagePrefix) {
			continue
		}
		line = strings.TrimPrefix(line, messagePrefix)
		lines = append(lines, strings.TrimPrefix(line, " "))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Read는 path의 결과 파일을 읽는다. 파일이 없으면 StateAbsent다.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &File{State: StateAbsent}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("result.Read: %w", err)
	}
	return Decode(data)
}

// Write는 f를 path에 원자적으로 기록한다 (같은 디렉토리의 임시 파일 + rename).
func Write(path string, f *File) error {
	data, err := Encode(f)
	if err != nil {
		return err
	}
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("result.Write: %w", err)
	}
	return nil
}

// WritePlaceholder는 이전 내용을 지우고 빈 placeholder를 기록한다.
func WritePlaceholder(path string) error {
	if err := writeAtomic(path, []byte{}); err != nil {
		return fmt.Errorf("result.WritePlaceholder: %w", err)
	}
	return nil
}

// WriteLog는 성공 로드의 로더 stderr를 기록한다. 비어있으면 이전 로그를 지운다.
func WriteLog(path string, log []byte) error {
	if len(log) == 0 {
		if err := os.Remove(LogPath(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("result.WriteLog: %w", err)
		}
		return nil
	}
	if err := writeAtomic(LogPath(path), log); err != nil {
		return fmt.Errorf("result.WriteLog: %w", err)
	}
	return nil
}

// Remove는 결과 파일과 딸린 로그/작업 파일을 지운다. 없는 파일은 무시한다.
func Remove(path string) error {
	var errs []error
	for _, p := range []string{path, LogPath(path), JobPath(path)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("result.Remove: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	return renameio.WriteFile(path, data, 0600, renameio.WithTempDir(filepath.Dir(path)))
}
