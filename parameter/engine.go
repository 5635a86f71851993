package parameter

import "time"

// Tilt sample ring buffer
const (
	// TiltQueueSize must be a power of two
	TiltQueueSize  = 1024
	TiltBufferMask = TiltQueueSize - 1
)

// Control events are never dropped, producers block when the buffer is full
const ControlQueueSize = 64

// Terminal front-end
const (
	// KeyTiltMagnitude is the tilt emitted per arrow key press
	KeyTiltMagnitude = 1.0
	// KeyRepeatSamples is how many frames one key press keeps the board tilted
	KeyRepeatSamples = 8
	// FrameInterval paces redraws and the emulated sensor, one sample per frame
	FrameInterval = 33 * time.Millisecond
)

// StoreSyncInterval is how often a running session rereads the alarm store
const StoreSyncInterval = 2 * time.Second
