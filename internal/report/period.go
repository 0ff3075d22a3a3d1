// Package report aggregates transaction lists into chart buckets, totals,
// goal progress and budget consumption.
//
// Every function is pure: nothing here reads the clock, so callers pass
// "today" explicitly and identical inputs always produce identical output.
//
// This file implements the Strategy Pattern for period bucketing. Each
// reporting period (day, month, year, all) has its own Bucketer that lays
// out the zero-filled buckets and maps a calendar day onto one of them.
package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Period is a reporting window.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

var ErrUnknownPeriod = errors.New("unknown period")

// ParsePeriod normalises s. An empty string selects the month view.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PeriodMonth, nil
	}
	p := Period(s)
	if _, ok := bucketers[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
	return p, nil
}

// Layout is the set of buckets for one window plus the mapping from a
// calendar day to its bucket. Index returns -1 for days outside the window.
type Layout struct {
	Buckets []Bucket
	Index   func(core.Date) int
}

// Bucketer is the strategy interface for one reporting period.
type Bucketer interface {
	// Layout returns zero-filled buckets in chronological order. Only
	// transactions with a valid date are passed in.
	Layout(txns []core.Transaction, today core.Date) Layout
	// Contains reports whether d falls inside the period's window.
	Contains(d, today core.Date) bool
}

// DayBucketer has no buckets; day views only use totals.
type DayBucketer struct{}

func (DayBucketer) Layout([]core.Transaction, core.Date) Layout {
	return Layout{Buckets: []Bucket{}, Index: outside}
}

func (DayBucketer) Contains(d, today core.Date) bool {
	return d.Equal(today)
}

// MonthBucketer creates one bucket per day of today's month.
type MonthBucketer struct{}

func (MonthBucketer) Layout(_ []core.Transaction, today core.Date) Layout {
	n := core.DaysInMonth(today.Year(), today.Month())
	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i] = newBucket("Day " + strconv.Itoa(i+1))
	}
	return Layout{
		Buckets: buckets,
		Index: func(d core.Date) int {
			if !d.SameMonth(today.Year(), today.Month()) {
				return -1
			}
			return d.Day() - 1
		},
	}
}

func (MonthBucketer) Contains(d, today core.Date) bool {
	return d.SameMonth(today.Year(), today.Month())
}

// YearBucketer creates twelve buckets labelled Jan..Dec for today's year.
type YearBucketer struct{}

func (YearBucketer) Layout(_ []core.Transaction, today core.Date) Layout {
	buckets := make([]Bucket, 12)
	for i := range buckets {
		buckets[i] = newBucket(time.Month(i + 1).String()[:3])
	}
	return Layout{
		Buckets: buckets,
		Index: func(d core.Date) int {
			if d.Year() != today.Year() {
				return -1
			}
			return d.Month() - 1
		},
	}
}

func (YearBucketer) Contains(d, today core.Date) bool {
	return d.Year() == today.Year()
}

// AllBucketer creates one bucket per year between the earliest and latest
// transaction, inclusive. No transactions means no buckets.
type AllBucketer struct{}

func (AllBucketer) Layout(txns []core.Transaction, _ core.Date) Layout {
	if len(txns) == 0 {
		return Layout{Buckets: []Bucket{}, Index: outside}
	}
	first, last := txns[0].OccurredOn.Year(), txns[0].OccurredOn.Year()
	for _, t := range txns[1:] {
		y := t.OccurredOn.Year()
		if y < first {
			first = y
		}
		if y > last {
			last = y
		}
	}
	buckets := make([]Bucket, 0, last-first+1)
	for y := first; y <= last; y++ {
		buckets = append(buckets, newBucket(strconv.Itoa(y)))
	}
	return Layout{
		Buckets: buckets,
		Index: func(d core.Date) int {
			if d.Year() < first || d.Year() > last {
				return -1
			}
			return d.Year() - first
		},
	}
}

func (AllBucketer) Contains(core.Date, core.Date) bool {
	return true
}

func outside(core.Date) int { return -1 }

// bucketers maps periods to their strategies.
var bucketers = map[Period]Bucketer{
	PeriodDay:   DayBucketer{},
	PeriodMonth: MonthBucketer{},
	PeriodYear:  YearBucketer{},
	PeriodAll:   AllBucketer{},
}

// GetBucketer returns the strategy for p.
func GetBucketer(p Period) (Bucketer, error) {
	b, ok := bucketers[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPeriod, string(p))
	}
	return b, nil
}

// RegisterBucketer adds or replaces the strategy for a period. It is not
// safe to call concurrently with aggregation and is meant for init time.
func RegisterBucketer(p Period, b Bucketer) {
	bucketers[p] = b
}
