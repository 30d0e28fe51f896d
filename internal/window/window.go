package window

import (
	"errors"
	"fmt"
	"time"
)

// Frequency selects how reporting periods are cut.
type Frequency string

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

var ErrUnsupportedFrequency = errors.New("unsupported frequency")

// ParseFrequency validates a configured frequency string.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case Weekly, Monthly:
		return Frequency(s), nil
	default:
		return "", fmt.Errorf("%w: %q (valid choices: weekly, monthly)", ErrUnsupportedFrequency, s)
	}
}

// Window is one reporting period. Start is inclusive, End exclusive, both
// calendar dates at midnight UTC. For weekly windows End falls on a Monday;
// for monthly windows End is the first day of the following month.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the calendar date d falls inside the window.
func (w Window) Contains(d time.Time) bool {
	return !d.Before(w.Start) && d.Before(w.End)
}

// Key is the bucket key for this window.
func (w Window) Key() time.Time {
	return w.Start
}

func (w Window) String() string {
	return fmt.Sprintf("%s-%s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// Date truncates t to a calendar date at midnight UTC.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Build computes the reporting window at the given offset back from the
// reference date. Offset 1 is the most recent complete window.
//
// Weekly windows align to the Monday boundary at or before the reference
// date rather than a rolling 7-day lookback, so repeated runs over the same
// nominal window reproduce the same dates. Monthly windows span the full
// calendar month, honoring 28-31 day months.
func Build(freq Frequency, ref time.Time, offset int) (Window, error) {
	ref = Date(ref)
	switch freq {
	case Weekly:
		sinceMonday := (int(ref.Weekday()) + 6) % 7
		end := ref.AddDate(0, 0, -sinceMonday-7*(offset-1))
		return Window{Start: end.AddDate(0, 0, -7), End: end}, nil
	case Monthly:
		start := time.Date(ref.Year(), ref.Month()-time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: start, End: start.AddDate(0, 1, 0)}, nil
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrUnsupportedFrequency, freq)
	}
}

// BuildSet returns n windows at offsets 1..n, newest first. The windows are
// pairwise disjoint and contiguous: each window's start equals the next
// older window's end.
func BuildSet(freq Frequency, ref time.Time, n int) ([]Window, error) {
	windows := make([]Window, 0, n)
	for offset := 1; offset <= n; offset++ {
		w, err := Build(freq, ref, offset)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}
