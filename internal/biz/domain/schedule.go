package domain

import (
	"strings"
	"time"
)

// DeadlineLayout is the accepted deadline input format
const DeadlineLayout = "2006-01-02"

// ReminderMode selects how the reminder instant is derived from the deadline
type ReminderMode string

const (
	ReminderModeLead        ReminderMode = "lead"         // deadline minus a fixed lead time
	ReminderModePreviousDay ReminderMode = "previous_day" // previous day at a fixed local hour
)

// ReminderPolicy represents reminder timing configuration (value object)
type ReminderPolicy struct {
	Mode ReminderMode
	Lead time.Duration // used by ReminderModeLead
	Hour int           // 0-23, used by ReminderModePreviousDay
}

// DefaultReminderPolicy reminds 12 hours before the deadline
var DefaultReminderPolicy = ReminderPolicy{Mode: ReminderModeLead, Lead: 12 * time.Hour, Hour: 12}

// RemindAt returns the reminder instant for a deadline
func (p ReminderPolicy) RemindAt(deadline time.Time) time.Time {
	if p.Mode == ReminderModePreviousDay {
		prev := deadline.AddDate(0, 0, -1)
		return time.Date(prev.Year(), prev.Month(), prev.Day(), p.Hour, 0, 0, 0, deadline.Location())
	}
	return deadline.Add(-p.Lead)
}

// Window is a half-open polling window [Start, Start+Period)
type Window struct {
	Start  time.Time
	Period time.Duration
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.Start.Add(w.Period))
}

// Passed reports whether the whole window lies before t
func (w Window) Passed(t time.Time) bool {
	return !t.Before(w.Start.Add(w.Period))
}

// ReminderWindow returns the polling window that fires the reminder
func (c *Campaign) ReminderWindow(policy ReminderPolicy, period time.Duration) Window {
	return Window{Start: policy.RemindAt(c.Deadline), Period: period}
}

// CloseWindow returns the polling window that fires the closing notice
func (c *Campaign) CloseWindow(period time.Duration) Window {
	return Window{Start: c.Deadline, Period: period}
}

// ParseDeadline parses a YYYY-MM-DD date anchored to local midnight in loc
func ParseDeadline(input string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DeadlineLayout, strings.TrimSpace(input), loc)
	if err != nil {
		return time.Time{}, Classify(ErrInvalidDate, err, "parse deadline %q", input)
	}
	return t, nil
}
