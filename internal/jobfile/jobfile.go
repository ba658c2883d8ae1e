// Package jobfile stores the description of the in-flight asynchronous load
// next to its result file. The detached job reads everything it needs from
// it, and compares its generation to detect that it has been superseded.
package jobfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/hbjs97/direnv-instant/internal/result"
)

// ErrNotFound는 작업 파일이 없을 때 반환된다.
var ErrNotFound = errors.New("작업 파일 없음")

// Job은 하나의 비동기 로드 요청이다.
type Job struct {
	Version    int      `json:"version"`
	Generation string   `json:"generation"`
	Dir        string   `json:"dir"`
	Dialect    string   `json:"dialect"`
	Environ    []string `json:"environ"`
	NotifyPID  int      `json:"notify_pid,omitempty"`
	CreatedAt  string   `json:"created_at"`
}

// New는 현재 시각으로 Job을 만든다.
func New(generation, dir, dialect string, environ []string, notifyPID int) *Job {
	return &Job{
		Version:    1,
		Generation: generation,
		Dir:        dir,
		Dialect:    dialect,
		Environ:    environ,
		NotifyPID:  notifyPID,
		CreatedAt:  time.Now().Format(time.RFC3339),
	}
}

// Load는 resultPath에 딸린 작업 파일을 읽는다.
func Load(resultPath string) (*Job, error) {
	data, err := os.ReadFile(result.JobPath(resultPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("jobfile.Load: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("jobfile.Load: %w", err)
	}
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("jobfile.Load: %w", err)
	}
	return &j, nil
}

// Save는 작업 파일을 원자적으로 저장한다 (0600 권한, 환경변수가 담기므로).
func (j *Job) Save(resultPath string) error {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("jobfile.Save: %w", err)
	}
	path := result.JobPath(resultPath)
	if err := renameio.WriteFile(path, data, 0600, renameio.WithTempDir(filepath.Dir(path))); err != nil {
		return fmt.Errorf("jobfile.Save: %w", err)
	}
	return nil
}

// CurrentGeneration은 작업 파일에 기록된 세대를 반환한다. 읽을 수 없으면 빈 문자열이다.
func CurrentGeneration(resultPath string) string {
	j, err := Load(resultPath)
	if err != nil {
		return ""
	}
	return j.Generation
}

// Superseded는 generation이 더 이상 최신 작업이 아니면 true다.
func Superseded(resultPath, generation string) bool {
	return CurrentGeneration(resultPath) != generation
}
