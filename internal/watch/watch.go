// Package watch decides cheaply whether the directory environment needs to be
// reloaded at a prompt. It reads the bookkeeping variables direnv leaves in
// the shell (DIRENV_DIR, DIRENV_FILE, DIRENV_WATCHES) and remembers the inputs
// of the last failed background load so a broken .envrc is not retried until
// something changes.
package watch

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/hbjs97/direnv-instant/internal/session"
)

// direnv가 셸에 남기는 상태 변수.
const (
	DirVar     = "DIRENV_DIR"
	FileVar    = "DIRENV_FILE"
	WatchesVar = "DIRENV_WATCHES"
)

const (
	envrcName     = ".envrc"
	failureSuffix = ".failed"
)

// FileTime은 direnv가 감시하는 파일 하나의 기록이다.
type FileTime struct {
	Path    string
	Modtime int64
	Exists  bool
}

// Decode는 DIRENV_WATCHES 값(zlib 압축 JSON의 URL-safe base64)을 해석한다.
func Decode(s string) ([]FileTime, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("watch.Decode: %w", err)
	}
	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("watch.Decode: %w", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("watch.Decode: %w", err)
	}
	var times []FileTime
	if err := json.Unmarshal(data, &times); err != nil {
		return nil, fmt.Errorf("watch.Decode: %w", err)
	}
	return times, nil
}

// Encode는 Decode의 역이다.
func Encode(times []FileTime) (string, error) {
	data, err := json.Marshal(times)
	if err != nil {
		return "", fmt.Errorf("watch.Encode: %w", err)
	}
	var b bytes.Buffer
	w := zlib.NewWriter(&b)
	if _, err := w.Write(data); err != nil {
		return "", fmt.Errorf("watch.Encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("watch.Encode: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b.Bytes()), nil
}

// Changed는 감시 파일 중 하나라도 생기거나 사라지거나 수정되었으면 true다.
// 빈 목록은 변경으로 본다.
func Changed(times []FileTime) bool {
	if len(times) == 0 {
		return true
	}
	for _, ft := range times {
		info, err := os.Stat(ft.Path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			if ft.Exists {
				return true
			}
		case err != nil:
			return true
		case !ft.Exists:
			return true
		case info.ModTime().Unix() != ft.Modtime:
			return true
		}
	}
	return false
}

// FindEnvrc는 dir부터 위로 올라가며 .envrc를 찾는다. 없으면 빈 문자열이다.
func FindEnvrc(dir string) string {
	for {
		candidate := filepath.Join(dir, envrcName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadedEnvrc는 셸에 현재 로드된 .envrc 경로다. 로드된 것이 없으면 빈 문자열이다.
func LoadedEnvrc(getenv func(string) string) string {
	if f := getenv(FileVar); f != "" {
		return session.Canonical(f)
	}
	if d := strings.TrimPrefix(getenv(DirVar), "-"); d != "" {
		return filepath.Join(session.Canonical(d), envrcName)
	}
	return ""
}

// NeedsReload는 dir의 환경을 다시 로드해야 하면 true다.
// 찾은 .envrc와 로드된 .envrc가 다르거나, 같아도 감시 파일이 바뀌었으면 다시 로드한다.
func NeedsReload(getenv func(string) string, dir string) bool {
	found := FindEnvrc(session.Canonical(dir))
	loaded := LoadedEnvrc(getenv)
	if found == "" && loaded == "" {
		return false
	}
	if found != loaded {
		return true
	}
	times, err := Decode(getenv(WatchesVar))
	if err != nil {
		return true
	}
	return Changed(times)
}

// Fingerprint는 dir의 로드 입력(.envrc와 direnv의 allow/deny 기록)을 요약한다.
// .envrc 수정이나 direnv allow/deny가 있으면 값이 바뀐다.
func Fingerprint(getenv func(string) string, dir string) string {
	rc := FindEnvrc(session.Canonical(dir))
	data := dataDir(getenv)
	parts := []string{rc, stamp(rc), stamp(filepath.Join(data, "allow")), stamp(filepath.Join(data, "deny"))}
	return strings.Join(parts, "\x00")
}

func stamp(path string) string {
	if path == "" {
		return "-"
	}
	info, err := os.Stat(path)
	if err != nil {
		return "-"
	}
	return strconv.FormatInt(info.ModTime().UnixNano(), 10) + ":" + strconv.FormatInt(info.Size(), 10)
}

// dataDir은 direnv의 데이터 디렉토리다 ($XDG_DATA_HOME/direnv, 없으면 ~/.local/share/direnv).
func dataDir(getenv func(string) string) string {
	if d := getenv("XDG_DATA_HOME"); d != "" {
		return filepath.Join(d, "direnv")
	}
	return filepath.Join(getenv("HOME"), ".local", "share", "direnv")
}

// FailurePath는 결과 파일에 딸린 실패 기록 경로다.
func FailurePath(resultPath string) string { return resultPath + failureSuffix }

// RecordFailure는 실패한 백그라운드 로드의 입력 요약을 남긴다.
func RecordFailure(resultPath, fingerprint string) error {
	path := FailurePath(resultPath)
	if err := renameio.WriteFile(path, []byte(fingerprint), 0600, renameio.WithTempDir(filepath.Dir(path))); err != nil {
		return fmt.Errorf("watch.RecordFailure: %w", err)
	}
	return nil
}

// ClearFailure는 실패 기록을 지운다. 없으면 무시한다.
func ClearFailure(resultPath string) error {
	if err := os.Remove(FailurePath(resultPath)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("watch.ClearFailure: %w", err)
	}
	return nil
}

// FailedUnchanged는 마지막 실패 이후 로드 입력이 그대로이면 true다.
func FailedUnchanged(resultPath, fingerprint string) bool {
	data, err := os.ReadFile(FailurePath(resultPath))
	if err != nil {
		return false
	}
	return string(data) == fingerprint
}

// EnvLookup은 KEY=VALUE 목록을 getenv 형태로 바꾼다.
func EnvLookup(environ []string) func(string) string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return func(key string) string { return m[key] }
}
