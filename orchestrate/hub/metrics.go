package hub

import "sync/atomic"

type MetricsSnapshot struct {
	Agents     int64 `json:"agents"`
	Routed     int64 `json:"routed"`
	Dropped    int64 `json:"dropped"`
	Broadcasts int64 `json:"broadcasts"`
}

type Metrics struct {
	agents     atomic.Int64
	routed     atomic.Int64
	dropped    atomic.Int64
	broadcasts atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) SetAgents(n int) {
	m.agents.Store(int64(n))
}

func (m *Metrics) RecordRouted() {
	m.routed.Add(1)
}

func (m *Metrics) RecordDropped() {
	m.dropped.Add(1)
}

func (m *Metrics) RecordBroadcast() {
	m.broadcasts.Add(1)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Agents:     m.agents.Load(),
		Routed:     m.routed.Load(),
		Dropped:    m.dropped.Load(),
		Broadcasts: m.broadcasts.Load(),
	}
}
