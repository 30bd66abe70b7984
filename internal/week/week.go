// Package week computes ISO week identifiers, the candidate time slots of a
// week and the weekly checkpoint at which a poll should already exist.
package week

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	labelLayout = "Mon 02.01 15:04"

	scheduledRunHour = 12
)

var specifierPattern = regexp.MustCompile(`^(\d{4})(?:-|\s+)[Ww](\d{1,2})$`)

// Context identifies one ISO week.
type Context struct {
	Year   int
	Number int
	Key    string
}

// Slot is one entry of the weekly template. Weekday follows ISO numbering:
// 1 is Monday, 7 is Sunday.
type Slot struct {
	Weekday int
	Hour    int
	Minute  int
}

// Option is a template slot projected onto a concrete week.
type Option struct {
	Index   int
	Label   string
	At      time.Time
	Weekday int
	Hour    int
	Minute  int
}

// Key returns the canonical week key, e.g. "2026-W03".
func Key(year, number int) string {
	return fmt.Sprintf("%04d-W%02d", year, number)
}

func newContext(year, number int) Context {
	return Context{Year: year, Number: number, Key: Key(year, number)}
}

// Current returns the ISO week containing now in the given location.
func Current(location *time.Location, now time.Time) Context {
	year, number := now.In(location).ISOWeek()
	return newContext(year, number)
}

// Start returns Monday 00:00 of the ISO week in the given location.
func Start(location *time.Location, year, number int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, location)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, (number-1)*7)
}

// BuildOptions projects the template onto the given week, in template order.
func BuildOptions(location *time.Location, year, number int, template []Slot) []Option {
	start := Start(location, year, number)
	options := make([]Option, 0, len(template))

	for i, slot := range template {
		day := start.AddDate(0, 0, slot.Weekday-1)
		at := time.Date(day.Year(), day.Month(), day.Day(), slot.Hour, slot.Minute, 0, 0, location)

		options = append(options, Option{
			Index:   i,
			Label:   at.Format(labelLayout),
			At:      at,
			Weekday: slot.Weekday,
			Hour:    slot.Hour,
			Minute:  slot.Minute,
		})
	}

	return options
}

// ScheduledRun is the instant by which the week's poll should exist:
// Monday noon, local time.
func ScheduledRun(location *time.Location, year, number int) time.Time {
	start := Start(location, year, number)
	return time.Date(start.Year(), start.Month(), start.Day(), scheduledRunHour, 0, 0, 0, location)
}

// Parse accepts "YYYY-Www" and "YYYY Www". Week numbers that do not exist in
// the given year (e.g. W53 of a 52-week year) are rejected.
func Parse(raw string) (Context, bool) {
	match := specifierPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return Context{}, false
	}

	year, err := strconv.Atoi(match[1])
	if err != nil {
		return Context{}, false
	}
	number, err := strconv.Atoi(match[2])
	if err != nil || number < 1 || number > 53 {
		return Context{}, false
	}

	normalizedYear, normalizedNumber := Start(time.UTC, year, number).ISOWeek()
	if normalizedYear != year || normalizedNumber != number {
		return Context{}, false
	}

	return newContext(year, number), true
}

// IsCurrentOrFuture compares week starts rather than raw numbers so that
// year boundaries are handled.
func IsCurrentOrFuture(location *time.Location, year, number int, now time.Time) bool {
	current := Current(location, now)
	currentStart := Start(location, current.Year, current.Number)
	return !Start(location, year, number).Before(currentStart)
}
