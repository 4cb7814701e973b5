package health

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/feedback_assistant/internal/config"
)

func TestSnapshotBeforeFirstSweep(t *testing.T) {
	m := NewMonitor(config.HealthConfig{}, nil, Check{Name: "sentiment/azure", Run: func(context.Context) error { return nil }})

	report := m.Snapshot()
	require.Equal(t, StatusOK, report.Status)
	require.Len(t, report.Checks, 1)
	require.Equal(t, StatusUnknown, report.Checks[0].Status)
}

func TestCheckNowAggregates(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	m := NewMonitor(config.HealthConfig{Timeout: time.Second}, nil,
		Check{Name: "redis", Run: func(context.Context) error { return nil }},
		Check{Name: "generation/openai", Run: func(context.Context) error {
			if failing.Load() {
				return errors.New(`POST https://acct.openai.azure.com/openai/models?api-key=secret: 401 {"error":"unauthorized"}`)
			}
			return nil
		}},
		Check{Name: "ignored"},
	)

	m.CheckNow(context.Background())
	report := m.Snapshot()
	require.Equal(t, StatusDegraded, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "generation/openai", report.Checks[0].Name)
	require.Equal(t, StatusDegraded, report.Checks[0].Status)
	require.Equal(t, ReasonFailed, report.Checks[0].Error)
	require.NotContains(t, report.Checks[0].Error, "https://")
	require.Equal(t, StatusOK, report.Checks[1].Status)
	require.False(t, report.Checks[1].CheckedAt.IsZero())

	failing.Store(false)
	m.CheckNow(context.Background())
	report = m.Snapshot()
	require.Equal(t, StatusOK, report.Status)
	require.Empty(t, report.Checks[0].Error)
}

func TestCheckHonoursTimeout(t *testing.T) {
	m := NewMonitor(config.HealthConfig{CheckInterval: time.Minute, Timeout: 20 * time.Millisecond}, nil,
		Check{Name: "slow", Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	)

	m.CheckNow(context.Background())
	report := m.Snapshot()
	require.Equal(t, StatusDegraded, report.Status)
	require.Equal(t, ReasonTimeout, report.Checks[0].Error)
}

func TestReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "deadline", err: context.DeadlineExceeded, want: ReasonTimeout},
		{name: "wrapped deadline", err: fmt.Errorf("get https://lang.example/x: %w", context.DeadlineExceeded), want: ReasonTimeout},
		{name: "canceled", err: context.Canceled, want: ReasonCanceled},
		{name: "other", err: errors.New("dial tcp 10.0.0.4:443: connection refused"), want: ReasonFailed},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Reason(tt.err))
		})
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	m := NewMonitor(config.HealthConfig{CheckInterval: 10 * time.Millisecond, Timeout: 5 * time.Millisecond}, nil,
		Check{Name: "tick", Run: func(context.Context) error {
			calls.Add(1)
			return nil
		}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	m.Start(ctx)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	m.Wait()
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, after, calls.Load())
}

func TestNilMonitor(t *testing.T) {
	var m *Monitor
	m.Start(context.Background())
	m.CheckNow(context.Background())
	m.Wait()
	require.Equal(t, StatusOK, m.Snapshot().Status)
}
