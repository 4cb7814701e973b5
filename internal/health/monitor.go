package health

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ncecere/feedback_assistant/internal/config"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusUnknown  = "unknown"
)

// Reasons reported in place of raw check errors. The full error is only logged.
const (
	ReasonTimeout  = "timeout"
	ReasonCanceled = "canceled"
	ReasonFailed   = "check failed"
)

// Reason maps a check error onto a short public reason. Raw errors can carry
// endpoint URLs and response bodies.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	default:
		return ReasonFailed
	}
}

// Check is one named health check, typically a backend HealthCheck or an
// infrastructure ping.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// CheckStatus is the last observed result of a Check.
type CheckStatus struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at,omitempty"`
}

// Report aggregates every check.
type Report struct {
	Status string        `json:"status"`
	Checks []CheckStatus `json:"checks"`
}

type checkState struct {
	check     Check
	checked   atomic.Bool
	healthy   atomic.Bool
	reason    atomic.Value // string
	checkedAt atomic.Int64
}

// Monitor periodically runs every check and keeps the latest results.
type Monitor struct {
	states    []*checkState
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	startOnce sync.Once
	wg        sync.WaitGroup
}

// NewMonitor constructs a monitor using the health configuration. Checks
// without a Run func are ignored.
func NewMonitor(cfg config.HealthConfig, logger *slog.Logger, checks ...Check) *Monitor {
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := cfg.Timeout
	if timeout <= 0 || timeout > interval {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Monitor{interval: interval, timeout: timeout, logger: logger}
	for _, c := range checks {
		if c.Run == nil {
			continue
		}
		m.states = append(m.states, &checkState{check: c})
	}
	sort.Slice(m.states, func(i, j int) bool { return m.states[i].check.Name < m.states[j].check.Name })
	return m
}

// Start begins the monitoring loop until ctx is canceled.
func (m *Monitor) Start(ctx context.Context) {
	if m == nil || len(m.states) == 0 {
		return
	}
	m.startOnce.Do(func() {
		m.wg.Add(1)
		go m.run(ctx)
	})
}

// Wait blocks until the loop started by Start has exited.
func (m *Monitor) Wait() {
	if m == nil {
		return
	}
	m.wg.Wait()
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckNow(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// CheckNow runs every check concurrently and waits for all of them.
func (m *Monitor) CheckNow(ctx context.Context) {
	if m == nil {
		return
	}
	var wg sync.WaitGroup
	for _, st := range m.states {
		wg.Add(1)
		go func(st *checkState) {
			defer wg.Done()
			timeoutCtx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()

			err := st.check.Run(timeoutCtx)
			if ctx.Err() != nil {
				return
			}
			wasHealthy := st.healthy.Load()
			wasChecked := st.checked.Load()
			if err != nil {
				st.reason.Store(Reason(err))
				st.healthy.Store(false)
				if !wasChecked || wasHealthy {
					m.logger.Warn("health check failed", "check", st.check.Name, "error", err)
				} else {
					m.logger.Debug("health check still failing", "check", st.check.Name, "error", err)
				}
			} else {
				st.reason.Store("")
				st.healthy.Store(true)
				if wasChecked && !wasHealthy {
					m.logger.Info("health check recovered", "check", st.check.Name)
				}
			}
			st.checkedAt.Store(time.Now().UnixNano())
			st.checked.Store(true)
		}(st)
	}
	wg.Wait()
}

// Snapshot returns the latest status of every check. Checks that have not
// run yet report unknown and do not degrade the overall status.
func (m *Monitor) Snapshot() Report {
	report := Report{Status: StatusOK, Checks: []CheckStatus{}}
	if m == nil {
		return report
	}
	for _, st := range m.states {
		cs := CheckStatus{Name: st.check.Name, Status: StatusUnknown}
		if st.checked.Load() {
			cs.CheckedAt = time.Unix(0, st.checkedAt.Load()).UTC()
			if st.healthy.Load() {
				cs.Status = StatusOK
			} else {
				cs.Status = StatusDegraded
				cs.Error, _ = st.reason.Load().(string)
				report.Status = StatusDegraded
			}
		}
		report.Checks = append(report.Checks, cs)
	}
	return report
}
