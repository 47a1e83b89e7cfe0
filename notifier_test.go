package users_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	users "github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncNotifierDeliversInBackground(t *testing.T) {
	var mu sync.Mutex
	var delivered []users.Notification

	inner := users.NotifierFunc(func(ctx context.Context, n users.Notification) error {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, n)
		return nil
	})

	async := users.NewAsyncNotifier(inner)

	err := async.Notify(context.Background(), users.Notification{
		Kind:  users.NotificationVerified,
		Email: "jane@example.com",
	})
	require.NoError(t, err)

	async.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, 1)
	assert.Equal(t, users.NotificationVerified, delivered[0].Kind)
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) log(format string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, format)
}

func (l *recordingLogger) Debug(format string, args ...any) { l.log(format) }
func (l *recordingLogger) Info(format string, args ...any)  { l.log(format) }
func (l *recordingLogger) Warn(format string, args ...any)  { l.log(format) }
func (l *recordingLogger) Error(format string, args ...any) { l.log(format) }

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, entry := range l.entries {
		if strings.Contains(entry, substr) {
			return true
		}
	}
	return false
}

func TestAsyncNotifierSwallowsDeliveryFailure(t *testing.T) {
	logger := &recordingLogger{}

	inner := users.NotifierFunc(func(ctx context.Context, n users.Notification) error {
		return errors.New("smtp connection refused")
	})

	async := users.NewAsyncNotifier(inner, users.WithAsyncNotifierLogger(logger))

	err := async.Notify(context.Background(), users.Notification{
		Kind:  users.NotificationPromoted,
		Email: "jane@example.com",
	})
	require.NoError(t, err)

	async.Wait()
	assert.True(t, logger.contains("notification delivery failed"))
}

func TestAsyncNotifierOutlivesRequestContext(t *testing.T) {
	done := make(chan users.Notification, 1)

	inner := users.NotifierFunc(func(ctx context.Context, n users.Notification) error {
		// The dispatch context must not inherit the caller's cancellation.
		select {
		case <-ctx.Done():
			t.Error("delivery context canceled with the request")
		default:
		}
		done <- n
		return nil
	})

	async := users.NewAsyncNotifier(inner, users.WithAsyncNotifierTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, async.Notify(ctx, users.Notification{Kind: users.NotificationVerified}))
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery never happened")
	}
	async.Wait()
}

func TestNotifierFuncAdapts(t *testing.T) {
	called := false
	fn := users.NotifierFunc(func(ctx context.Context, n users.Notification) error {
		called = true
		return nil
	})

	require.NoError(t, fn.Notify(context.Background(), users.Notification{}))
	assert.True(t, called)
}
