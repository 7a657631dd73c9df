package authcore

import "sync/atomic"

// MetricID indexes one engine counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricChallengeIssued
	MetricChallengeSuccess
	MetricChallengeFailure
	MetricSessionCreated
	MetricSessionRevoked
	MetricSessionsBulkRevoked
	MetricLogout
	MetricRegisterSuccess
	MetricRegisterFailure
	MetricPasswordChangeSuccess
	MetricPasswordChangeFailure
	MetricPasswordUpgraded
	MetricUsernameChangeSuccess
	MetricUsernameChangeFailure
	MetricLocaleChanged
	MetricTOTPSetupIssued
	MetricTOTPEnabled
	MetricTOTPDisabled
	MetricResetCompleted
	MetricResetRejected
	metricIDCount
)

const cacheLineSize = 64

// paddedCounter keeps each hot counter on its own cache line.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of in-process counters, lock-free on the write
// path. A nil or disabled Metrics makes Inc a no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Reads are individually atomic, not
// mutually consistent; good enough for an operator dashboard.
func (m *Metrics) Snapshot() map[MetricID]uint64 {
	s := make(map[MetricID]uint64, int(metricIDCount))
	if m == nil || !m.enabled {
		return s
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
