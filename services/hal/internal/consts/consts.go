package consts

// Topic tokens
const (
	TokHAL     = "hal"
	TokSensor  = "sensor"
	TokInfo    = "info"
	TokState   = "state"
	TokValue   = "value"
	TokControl = "control"
)

// Control verbs, the last token of hal/sensor/<name>/control/<verb>.
const (
	CtrlEnable   = "enable"
	CtrlDisable  = "disable"
	CtrlInterval = "interval"
	CtrlRead     = "read"
)

// Service levels published on hal/state.
const (
	LevelIdle    = "idle"
	LevelRunning = "running"
	LevelStopped = "stopped"
)
