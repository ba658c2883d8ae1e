package result_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/hbjs97/direnv-instant/internal/result"
	"github.com/hbjs97/direnv-instant/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsume_PopulatedOnce(t *testing.T) {
	path := resultPath(t)
	require.NoError(t, result.Write(path, result.Populated("g1", "export VAR='success'\n")))
	require.NoError(t, result.WriteLog(path, []byte("direnv: loading .envrc\n")))

	f, err := result.Consume(path, "g1")
	require.NoError(t, err)
	assert.Equal(t, result.StatePopulated, f.State)
	assert.Equal(t, "export VAR='success'\n", f.Script)
	assert.Equal(t, "direnv: loading .envrc\n", f.Log)

	// 즉시 다시 확인해도 같은 변수를 다시 적용하지 않는다.
	again, err := result.Consume(path, "g1")
	require.NoError(t, err)
	assert.Equal(t, result.StateAbsent, again.State)
	assert.Empty(t, again.Script)
}

func TestConsume_FailedOnce(t *testing.T) {
	path := resultPath(t)
	require.NoError(t, result.Write(path, result.Failed("g1", 2, "boom\n")))

	f, err := result.Consume(path, "g1")
	require.NoError(t, err)
	assert.Equal(t, result.StateFailed, f.State)
	assert.Equal(t, 2, f.ExitCode)
	assert.Empty(t, f.Script)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestConsume_InProgressKeepsPlaceholder(t *testing.T) {
	path := resultPath(t)
	require.NoError(t, result.WritePlaceholder(path))

	f, err := result.Consume(path, "g1")
	require.NoError(t, err)
	assert.Equal(t, result.StateEmpty, f.State)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestConsume_StaleGenerationIgnored(t *testing.T) {
	path := resultPath(t)
	require.NoError(t, result.Write(path, result.Populated("old", "export VAR='old'\n")))

	f, err := result.Consume(path, "new")
	require.NoError(t, err)
	assert.Equal(t, result.StateStale, f.State)
	assert.Empty(t, f.Script)

	// 독자는 자신의 세대가 아니면 파일에 쓰지 않는다.
	assert.Contains(t, testutil.ReadFile(t, path), "gen=old")
}

func TestConsume_EmptyGenerationAcceptsAny(t *testing.T) {
	path := resultPath(t)
	require.NoError(t, result.Write(path, result.Populated("whatever", "export A='1'\n")))

	f, err := result.Consume(path, "")
	require.NoError(t, err)
	assert.Equal(t, result.StatePopulated, f.State)
}

func TestConsume_Corrupt(t *testing.T) {
	path := resultPath(t)
	testutil.WriteFile(t, path, "garbage\n")

	_, err := result.Consume(path, "g")
	assert.ErrorIs(t, err, result.ErrCorrupt)
}

func TestPoll_ReturnsWhenPopulated(t *testing.T) {
	path := resultPath(t)
	require.NoError(t, result.WritePlaceholder(path))

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = result.Write(path, result.Populated("g1", "export VAR='success'\n"))
	}()

	f, err := result.Poll(context.Background(), path, "g1", 5*time.Millisecond, 1000)
	require.NoError(t, err)
	assert.Equal(t, result.StatePopulated, f.State)

	// Poll은 소비하지 않는다.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestPoll_Timeout(t *testing.T) {
	path := resultPath(t)
	require.NoError(t, result.WritePlaceholder(path))

	_, err := result.Poll(context.Background(), path, "g1", time.Millisecond, 3)
	assert.ErrorIs(t, err, result.ErrPollTimeout)
}

func TestPoll_IgnoresStaleUntilTimeout(t *testing.T) {
	path := resultPath(t)
	require.NoError(t, result.Write(path, result.Populated("old", "export A='1'\n")))

	_, err := result.Poll(context.Background(), path, "new", time.Millisecond, 3)
	assert.ErrorIs(t, err, result.ErrPollTimeout)
}

func TestPoll_AbsentReturnsImmediately(t *testing.T) {
	f, err := result.Poll(context.Background(), resultPath(t), "g1", time.Hour, 10)
	require.NoError(t, err)
	assert.Equal(t, result.StateAbsent, f.State)
}

func TestPoll_ContextCancelled(t *testing.T) {
	path := resultPath(t)
	require.NoError(t, result.WritePlaceholder(path))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := result.Poll(ctx, path, "g1", time.Hour, 10)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
