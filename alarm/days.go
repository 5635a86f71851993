package alarm

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Days is the set of weekdays an alarm repeats on, one bit per time.Weekday
// The empty set means every day
type Days uint8

const (
	Everyday Days = 0
	Weekdays Days = 1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday | 1<<time.Thursday | 1<<time.Friday
	Weekends Days = 1<<time.Saturday | 1<<time.Sunday

	allDays Days = Weekdays | Weekends
)

var dayNames = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// DaysOf builds a set from weekdays
func DaysOf(days ...time.Weekday) Days {
	var d Days
	for _, w := range days {
		d |= 1 << w
	}
	return d.normalize()
}

// normalize folds the full week into Everyday so both spellings compare equal
func (d Days) normalize() Days {
	if d&allDays == allDays {
		return Everyday
	}
	return d & allDays
}

// Has reports whether the alarm rings on w
func (d Days) Has(w time.Weekday) bool {
	return d.normalize() == Everyday || d&(1<<w) != 0
}

func (d Days) String() string {
	switch d.normalize() {
	case Everyday:
		return "daily"
	case Weekdays:
		return "weekdays"
	case Weekends:
		return "weekends"
	}
	var names []string
	for w := time.Sunday; w <= time.Saturday; w++ {
		if d&(1<<w) != 0 {
			names = append(names, dayNames[w])
		}
	}
	return strings.Join(names, ",")
}

// cronField renders the cron day-of-week field
func (d Days) cronField() string {
	d = d.normalize()
	if d == Everyday {
		return "*"
	}
	var nums []string
	for w := time.Sunday; w <= time.Saturday; w++ {
		if d&(1<<w) != 0 {
			nums = append(nums, strconv.Itoa(int(w)))
		}
	}
	return strings.Join(nums, ",")
}

// ParseDays reads "daily", "weekdays", "weekends" or a comma list such as "mon,wed,fri"
func ParseDays(s string) (Days, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	switch t {
	case "", "daily", "everyday":
		return Everyday, nil
	case "weekdays":
		return Weekdays, nil
	case "weekends":
		return Weekends, nil
	}
	var d Days
	for _, part := range strings.Split(t, ",") {
		part = strings.TrimSpace(part)
		found := false
		for w, name := range dayNames {
			if part == name {
				d |= 1 << w
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: day %q", ErrInvalidDescriptor, part)
		}
	}
	return d.normalize(), nil
}
