package types

// ------------------------
// Host state (retained)
// ------------------------

type HALState struct {
	Level   string `json:"level"`  // "idle", "running", "stopped"
	Status  string `json:"status"` // freeform short code
	Devices int    `json:"devices"`
	TS      int64  `json:"ts_ns"` // publish Unix ns
}

// Link is the state reported for a sensor.
type Link string

const (
	LinkUp       Link = "up"
	LinkDown     Link = "down"
	LinkDegraded Link = "degraded"
)

type SensorStatus struct {
	Link  Link   `json:"link"`
	TS    int64  `json:"ts_ns"`
	Error string `json:"error,omitempty"` // machine-readable short code
}

// SensorSample is published on hal/sensor/<name>/value.
type SensorSample struct {
	Sensor string     `json:"sensor"`
	ID     uint32     `json:"id"`
	Type   SensorType `json:"type"`
	Data   SensorData `json:"data"`
}

// Interval is the control payload for hal/sensor/<name>/control/interval.
type Interval struct {
	Ms uint32 `json:"ms"`
}

// Reply answers a control request.
type Reply struct {
	OK    bool        `json:"ok"`
	Error string      `json:"error,omitempty"`
	Data  *SensorData `json:"data,omitempty"`
}

// Heartbeat is published retained on hal/heartbeat while the daemon runs.
type Heartbeat struct {
	Seq    uint64 `json:"seq"`
	Uptime int64  `json:"uptime_ms"`
	TS     int64  `json:"ts_ns"`
}
