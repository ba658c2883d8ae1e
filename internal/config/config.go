package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio/v2"
)

// ErrConfig는 설정 파일 오류를 나타내는 sentinel error다.
var ErrConfig = errors.New("설정 오류")

// 기본값.
const (
	DefaultDirenv       = "direnv"
	DefaultMultiplexer  = "auto"
	DefaultWindowName   = "direnv-instant"
	DefaultPollInterval = 100 * time.Millisecond
	DefaultPollAttempts = 100
)

// Config는 direnv-instant 설정 파일의 최상위 구조체다.
type Config struct {
	Version int `toml:"version"`
	// Direnv는 로더 실행 파일이다.
	Direnv string `toml:"direnv"`
	// Multiplexer는 auto, tmux, none 중 하나다.
	Multiplexer string `toml:"multiplexer"`
	// Tmux는 tmux 실행 파일이다. 비어있으면 PATH의 tmux.
	Tmux string `toml:"tmux,omitempty"`
	// StateDir이 비어있으면 session.DefaultDir을 사용한다.
	StateDir string `toml:"state_dir,omitempty"`
	// SyncTimeout이 0이면 동기 로드에 제한을 두지 않는다.
	SyncTimeout  Duration `toml:"sync_timeout"`
	PollInterval Duration `toml:"poll_interval"`
	PollAttempts int      `toml:"poll_attempts"`
	WindowName   string   `toml:"window_name"`
	Notify       *bool    `toml:"notify"`
}

// Duration은 "250ms", "2s" 같은 문자열로 기록되는 time.Duration이다.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default는 설정 파일이 없을 때의 설정이다.
func Default() *Config {
	cfg := &Config{Version: 1}
	cfg.applyDefaults()
	return cfg
}

// DefaultPath는 ~/.config/direnv-instant/config.toml이다.
// $XDG_CONFIG_HOME이 있으면 그 아래를 사용한다.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "direnv-instant", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "경고: 홈 디렉토리 확인 실패: %v\n", err)
		home = "."
	}
	return filepath.Join(home, ".config", "direnv-instant", "config.toml")
}

// Load는 config.toml을 파싱하여 Config를 반환한다. 파일이 없으면 기본값이다.
func Load(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w: %v", ErrConfig, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		fmt.Fprintf(os.Stderr, "경고: %s: 알 수 없는 설정 키 %v\n", path, undecoded)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save는 cfg를 path에 0600 권한으로 원자적으로 저장한다. 상위 디렉토리가 없으면 만든다.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0600, renameio.WithTempDir(filepath.Dir(path))); err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	return nil
}

// ApplyEnv는 환경변수 재정의를 적용한다.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("DIRENV_INSTANT_MUX"); v != "" {
		c.Multiplexer = v
	}
	if v := getenv("DIRENV_INSTANT_STATE_DIR"); v != "" {
		c.StateDir = v
	}
	if v := getenv("DIRENV_BIN"); v != "" {
		c.Direnv = v
	}
	return c.validate()
}

// IsNotify는 notify 설정값을 반환한다.
func (c *Config) IsNotify() bool {
	if c.Notify == nil {
		return true
	}
	return *c.Notify
}

// ValidateFilePermissions는 파일 권한이 0600보다 넓으면 에러를 반환한다.
func ValidateFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config.ValidateFilePermissions: %w", err)
	}
	perm := info.Mode().Perm()
	if perm&0077 != 0 {
		return fmt.Errorf("config.ValidateFilePermissions: %s 권한이 %o (0600 필요)", path, perm)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Direnv == "" {
		c.Direnv = DefaultDirenv
	}
	if c.Multiplexer == "" {
		c.Multiplexer = DefaultMultiplexer
	}
	if c.PollInterval.Duration == 0 {
		c.PollInterval.Duration = DefaultPollInterval
	}
	if c.PollAttempts == 0 {
		c.PollAttempts = DefaultPollAttempts
	}
	if c.WindowName == "" {
		c.WindowName = DefaultWindowName
	}
	if c.Notify == nil {
		t := true
		c.Notify = &t
	}
}

func (c *Config) validate() error {
	switch c.Multiplexer {
	case "auto", "tmux", "none":
	default:
		return fmt.Errorf("config.Load: %w: multiplexer는 auto, tmux, none 중 하나: %q", ErrConfig, c.Multiplexer)
	}
	if c.SyncTimeout.Duration < 0 {
		return fmt.Errorf("config.Load: %w: sync_timeout은 음수일 수 없음", ErrConfig)
	}
	if c.PollInterval.Duration < 0 {
		return fmt.Errorf("config.Load: %w: poll_interval은 음수일 수 없음", ErrConfig)
	}
	if c.PollAttempts < 0 {
		return fmt.Errorf("config.Load: %w: poll_attempts는 음수일 수 없음", ErrConfig)
	}
	return nil
}
