package monitoring

import (
	"context"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

const (
	maxHealthyMemory     = 500 * 1024 * 1024
	maxHealthyGoroutines = 1000
	renderAlpha          = 0.1
)

// Monitor counts server activity and samples runtime memory on an interval
type Monitor struct {
	interval  time.Duration
	startedAt time.Time

	mu                sync.RWMutex
	memory            int64
	heap              int64
	goroutines        int
	gcCycles          uint32
	httpRequests      int64
	httpErrors        int64
	activeConnections int64
	totalConnections  int64
	framesAccepted    int64
	framesRejected    int64
	renders           int64
	avgRender         time.Duration

	runMu   sync.Mutex
	stopCh  chan struct{}
	running bool
}

// NewMonitor creates a monitor sampling runtime stats every interval
func NewMonitor(interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	m := &Monitor{interval: interval, startedAt: time.Now()}
	m.sample()
	return m
}

// Start begins periodic sampling until ctx is done or Stop is called
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})

	go m.collect(ctx, m.stopCh)
}

// Stop ends sampling. Safe to call when not started.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)
}

func (m *Monitor) collect(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *Monitor) sample() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	goroutines := runtime.NumGoroutine()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.memory = safeUint64ToInt64(stats.Alloc)
	m.heap = safeUint64ToInt64(stats.HeapAlloc)
	m.goroutines = goroutines
	m.gcCycles = stats.NumGC
}

// RecordHTTPRequest counts a finished request; 5xx counts as an error
func (m *Monitor) RecordHTTPRequest(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.httpRequests++
	if status >= 500 {
		m.httpErrors++
	}
}

// RecordConnection tracks real-time channel attach and detach
func (m *Monitor) RecordConnection(open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if open {
		m.activeConnections++
		m.totalConnections++
		return
	}
	if m.activeConnections > 0 {
		m.activeConnections--
	}
}

// RecordFrame counts an inbound websocket frame
func (m *Monitor) RecordFrame(accepted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if accepted {
		m.framesAccepted++
	} else {
		m.framesRejected++
	}
}

// RecordRender folds a render duration into an exponential moving average
func (m *Monitor) RecordRender(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.renders++
	if m.avgRender == 0 {
		m.avgRender = d
		return
	}
	m.avgRender = time.Duration(float64(m.avgRender)*(1-renderAlpha) + float64(d)*renderAlpha)
}

// Report returns the current figures
func (m *Monitor) Report() ports.MetricsReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return ports.MetricsReport{
		Healthy:           m.memory < maxHealthyMemory && m.goroutines < maxHealthyGoroutines,
		UptimeSec:         time.Since(m.startedAt).Seconds(),
		MemoryMB:          m.memory / (1024 * 1024),
		HeapMB:            m.heap / (1024 * 1024),
		Goroutines:        m.goroutines,
		GCCycles:          m.gcCycles,
		HTTPRequests:      m.httpRequests,
		HTTPErrors:        m.httpErrors,
		ActiveConnections: m.activeConnections,
		TotalConnections:  m.totalConnections,
		FramesAccepted:    m.framesAccepted,
		FramesRejected:    m.framesRejected,
		Renders:           m.renders,
		AvgRenderMs:       float64(m.avgRender) / float64(time.Millisecond),
	}
}

// safeUint64ToInt64 caps val at the largest int64
func safeUint64ToInt64(val uint64) int64 {
	if val > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(val)
}

var _ ports.MetricsRecorder = (*Monitor)(nil)
