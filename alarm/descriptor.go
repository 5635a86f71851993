// Package alarm holds alarm records and the coordinator that turns a fired
// alarm into a gated challenge session.
package alarm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lixenwraith/tilt-alarm/challenge"
	"github.com/lixenwraith/tilt-alarm/parameter"
)

var (
	ErrInvalidDescriptor = errors.New("invalid alarm descriptor")
	ErrInvalidClock      = errors.New("invalid clock time")
)

// Descriptor is a persisted alarm; Hour is 24h
type Descriptor struct {
	ID         string
	Hour       int
	Minute     int
	Kind       challenge.Kind
	Difficulty int
	Label      string
	Enabled    bool
	// Days limits the weekdays the alarm rings on; zero rings daily
	Days Days
}

// NewID returns a fresh alarm identifier
func NewID() string {
	return uuid.NewString()
}

// New creates an enabled alarm with a fresh id; zero difficulty takes the default
func New(hour, minute int, kind challenge.Kind, difficulty int, label string) (Descriptor, error) {
	if difficulty == 0 {
		difficulty = parameter.DefaultDifficulty
	}
	d := Descriptor{
		ID:         NewID(),
		Hour:       hour,
		Minute:     minute,
		Kind:       kind,
		Difficulty: difficulty,
		Label:      label,
		Enabled:    true,
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// Validate checks the fields a schedule depends on
// Difficulty is not checked: it is clamped when the challenge is built
func (d Descriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDescriptor)
	}
	if d.Hour < 0 || d.Hour > 23 || d.Minute < 0 || d.Minute > 59 {
		return fmt.Errorf("%w: time %02d:%02d out of range", ErrInvalidDescriptor, d.Hour, d.Minute)
	}
	if d.Kind != challenge.KindQuiz && d.Kind != challenge.KindMaze {
		return fmt.Errorf("%w: %s", ErrInvalidDescriptor, d.Kind)
	}
	if d.Days&^allDays != 0 {
		return fmt.Errorf("%w: days mask %#x", ErrInvalidDescriptor, uint8(d.Days))
	}
	return nil
}

// Clock formats the alarm time as HH:MM
func (d Descriptor) Clock() string {
	return fmt.Sprintf("%02d:%02d", d.Hour, d.Minute)
}

// CronSpec is the five-field schedule for this alarm, restricted to its days
func (d Descriptor) CronSpec() string {
	return fmt.Sprintf("%d %d * * %s", d.Minute, d.Hour, d.Days.cronField())
}

// ChallengeSpec derives the session request; seed 0 asks for a fresh seed
func (d Descriptor) ChallengeSpec(seed int64) challenge.Spec {
	return challenge.Spec{
		AlarmID:    d.ID,
		Kind:       d.Kind,
		Difficulty: d.Difficulty,
		Seed:       seed,
	}
}

// ParseClock reads "7:30", "07:30", "19:05", "7:30 AM" or "12:15pm"
// 12 AM is midnight, 12 PM is noon
func ParseClock(s string) (hour, minute int, err error) {
	t := strings.ToLower(strings.TrimSpace(s))
	meridiem := ""
	for _, suffix := range []string{"am", "pm"} {
		if strings.HasSuffix(t, suffix) {
			meridiem = suffix
			t = strings.TrimSpace(strings.TrimSuffix(t, suffix))
			break
		}
	}

	hh, mm, ok := strings.Cut(t, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, err = strconv.Atoi(hh)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minute, err = strconv.Atoi(mm)
	if err != nil || len(mm) != 2 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	switch meridiem {
	case "":
		if hour < 0 || hour > 23 {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
	default:
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		hour %= 12
		if meridiem == "pm" {
			hour += 12
		}
	}
	return hour, minute, nil
}
