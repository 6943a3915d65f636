package input

// Event types.
const (
	EvSyn uint16 = 0x00
	EvKey uint16 = 0x01
	EvRel uint16 = 0x02
	EvAbs uint16 = 0x03
	EvMsc uint16 = 0x04
)

// Relative axes.
const (
	RelX      uint16 = 0x00
	RelY      uint16 = 0x01
	RelZ      uint16 = 0x02
	RelRX     uint16 = 0x03
	RelRY     uint16 = 0x04
	RelRZ     uint16 = 0x05
	RelHWheel uint16 = 0x06
	RelDial   uint16 = 0x07
	RelWheel  uint16 = 0x08
	RelMisc   uint16 = 0x09
)

// Absolute axes used by sensor hubs.
const (
	AbsX        uint16 = 0x00
	AbsY        uint16 = 0x01
	AbsZ        uint16 = 0x02
	AbsDistance uint16 = 0x19
	AbsMisc     uint16 = 0x28
)

// Misc events.
const (
	MscSerial    uint16 = 0x00
	MscPulseLed  uint16 = 0x01
	MscGesture   uint16 = 0x02
	MscRaw       uint16 = 0x03
	MscScan      uint16 = 0x04
	MscTimestamp uint16 = 0x05
)

// SynReport terminates a frame.
const SynReport uint16 = 0x00
