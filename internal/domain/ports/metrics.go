package ports

import "time"

// MetricsRecorder collects server counters and runtime figures
type MetricsRecorder interface {
	RecordHTTPRequest(status int)
	// RecordConnection is called with true on attach and false on detach
	RecordConnection(open bool)
	RecordFrame(accepted bool)
	RecordRender(d time.Duration)
	Report() MetricsReport
}

// MetricsReport is the point-in-time view served by /api/metrics
type MetricsReport struct {
	Healthy    bool    `json:"healthy"`
	UptimeSec  float64 `json:"uptimeSeconds"`
	MemoryMB   int64   `json:"memoryMb"`
	HeapMB     int64   `json:"heapMb"`
	Goroutines int     `json:"goroutines"`
	GCCycles   uint32  `json:"gcCycles"`

	HTTPRequests      int64   `json:"httpRequests"`
	HTTPErrors        int64   `json:"httpErrors"`
	ActiveConnections int64   `json:"activeConnections"`
	TotalConnections  int64   `json:"totalConnections"`
	FramesAccepted    int64   `json:"framesAccepted"`
	FramesRejected    int64   `json:"framesRejected"`
	Renders           int64   `json:"renders"`
	AvgRenderMs       float64 `json:"avgRenderMs"`
}
