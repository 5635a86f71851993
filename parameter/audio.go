package parameter

import "time"

// Alarm tone
const (
	AlarmSampleRate   = 44100
	AlarmBufferLength = 100 * time.Millisecond
	AlarmToneHz       = 880.0
	AlarmBeepOn       = 250 * time.Millisecond
	AlarmBeepOff      = 150 * time.Millisecond
	// AlarmBeepsPerBurst beeps are followed by one long gap
	AlarmBeepsPerBurst = 4
	AlarmBurstGap      = 600 * time.Millisecond
	AlarmVolume        = 0.3
)
