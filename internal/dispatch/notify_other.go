//go:build !unix

package dispatch

// NotifyShell은 SIGUSR1이 없는 플랫폼에서는 아무것도 하지 않는다.
func NotifyShell(int) error { return nil }
