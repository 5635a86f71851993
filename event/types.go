// Package event defines the inputs the dispatcher serializes into the coordinator.
package event

import (
	"github.com/lixenwraith/tilt-alarm/alarm"
)

// TiltSample is one orientation reading; y is positive when tilted away from the user
type TiltSample struct {
	X, Y float64
}

// Type identifies a control event
type Type uint8

const (
	// TypeAlarmFired starts a session | Payload: Alarm
	TypeAlarmFired Type = iota
	// TypeQuizAnswer grades a choice by text | Payload: Choice
	TypeQuizAnswer
	// TypeQuizAnswerIndex grades the choice at Index | Payload: Index
	TypeQuizAnswerIndex
	// TypeCancel tears down the session for AlarmID | Payload: AlarmID
	TypeCancel
	// TypeFlush closes Done once every earlier input was handled | Payload: Done
	TypeFlush
)

var typeNames = [...]string{"alarm_fired", "quiz_answer", "quiz_answer_index", "cancel", "flush"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// Control is a lossless input; only the fields for Type are set
type Control struct {
	Type    Type
	Alarm   alarm.Descriptor
	Choice  string
	Index   int
	AlarmID string
	Done    chan struct{}
}

func Fired(d alarm.Descriptor) Control {
	return Control{Type: TypeAlarmFired, Alarm: d, AlarmID: d.ID}
}

func Answer(choice string) Control {
	return Control{Type: TypeQuizAnswer, Choice: choice}
}

func AnswerIndex(i int) Control {
	return Control{Type: TypeQuizAnswerIndex, Index: i}
}

func Cancel(id string) Control {
	return Control{Type: TypeCancel, AlarmID: id}
}

func Flush() Control {
	return Control{Type: TypeFlush, Done: make(chan struct{})}
}
