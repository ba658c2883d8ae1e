//go:build unix

package dispatch

import (
	"os"
	"syscall"
)

// NotifyShell은 셸에 SIGUSR1을 보내 결과를 바로 적용하게 한다.
func NotifyShell(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Signal(syscall.SIGUSR1)
}
