package backup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jpillora/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userdb/internal/shared/logger"
)

// recordingLogger counts log calls by level so tests can assert on
// what the retry loop announced.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) record(args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := ""
	if len(args) > 0 {
		if s, ok := args[0].(string); ok {
			msg = s
		}
	}
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func (l *recordingLogger) Debug(args ...interface{})                 {}
func (l *recordingLogger) Info(args ...interface{})                  {}
func (l *recordingLogger) Warn(args ...interface{})                  { l.record(args...) }
func (l *recordingLogger) Error(args ...interface{})                 {}
func (l *recordingLogger) Fatal(args ...interface{})                 {}
func (l *recordingLogger) Debugf(format string, args ...interface{}) {}
func (l *recordingLogger) Infof(format string, args ...interface{})  {}
func (l *recordingLogger) Warnf(format string, args ...interface{})  { l.record(format) }
func (l *recordingLogger) Errorf(format string, args ...interface{}) {}
func (l *recordingLogger) Fatalf(format string, args ...interface{}) {}

func (l *recordingLogger) WithFields(fields map[string]interface{}) logger.Logger { return l }
func (l *recordingLogger) WithContext(ctx context.Context) logger.Logger          { return l }
func (l *recordingLogger) WithComponent(component string) logger.Logger           { return l }

func fastBackoff() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    time.Millisecond,
		Max:    5 * time.Millisecond,
		Factor: 2,
	}
}

func TestDialWithRetry_NoRetryAnnouncementAfterFinalAttempt(t *testing.T) {
	log := &recordingLogger{}
	dials := 0
	dialErr := errors.New("connection refused")

	err := dialWithRetry(context.Background(), connectAttempts, fastBackoff(), log, func(ctx context.Context) error {
		dials++
		return dialErr
	})

	require.ErrorIs(t, err, dialErr)
	assert.Equal(t, connectAttempts, dials)
	// The last failure is terminal, so only the attempts that were
	// actually followed by another dial get a retry warning.
	assert.Equal(t, connectAttempts-1, log.warnCount())
}

func TestDialWithRetry_StopsOnSuccess(t *testing.T) {
	log := &recordingLogger{}
	dials := 0

	err := dialWithRetry(context.Background(), connectAttempts, fastBackoff(), log, func(ctx context.Context) error {
		dials++
		if dials < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, dials)
	assert.Equal(t, 2, log.warnCount())
}

func TestDialWithRetry_FirstAttemptSuccessLogsNothing(t *testing.T) {
	log := &recordingLogger{}

	err := dialWithRetry(context.Background(), connectAttempts, fastBackoff(), log, func(ctx context.Context) error {
		return nil
	})

	require.NoError(t, err)
	assert.Zero(t, log.warnCount())
}

func TestDialWithRetry_ContextCancelledDuringDelay(t *testing.T) {
	log := &recordingLogger{}
	ctx, cancel := context.WithCancel(context.Background())

	err := dialWithRetry(ctx, connectAttempts, fastBackoff(), log, func(ctx context.Context) error {
		cancel()
		return errors.New("unreachable host")
	})

	require.ErrorIs(t, err, context.Canceled)
}
