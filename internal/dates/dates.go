// Package dates normalizes the upstream platform's heterogeneous timestamp
// encodings into canonical UTC instants and RFC822-style text.
//
// The platform emits publish times as UNIX-epoch integers or as loosely
// formatted strings, several of which are relative ("3天前") or year-less
// ("03月25日"). All ambiguous forms are anchored to a fixed UTC+8 reference
// zone before conversion to UTC. The current time is read from an injected
// Clock so parsing stays deterministic under test.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/reouo/bilifeed/internal/domain"
)

// CanonicalLayout is the RFC822-style layout used for canonical text output.
const CanonicalLayout = "Mon, 02 Jan 2006 15:04:05 -0700"

// referenceZoneOffset is the reference zone's offset east of UTC in seconds.
const referenceZoneOffset = 8 * 60 * 60

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system wall clock.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Ordered, mutually exclusive timestamp patterns. Order matters: the short
// localized date is a textual subset of the long one, so the long form must
// be tried first via full-string anchors.
var (
	reISODate   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reLongDate  = regexp.MustCompile(`^(\d{4})年(\d{2})月(\d{2})日$`)
	reShortDate = regexp.MustCompile(`^(\d{2})月(\d{2})日$`)
	reMinutes   = regexp.MustCompile(`^(\d+)分钟前$`)
	reHours     = regexp.MustCompile(`^(\d+)小时前$`)
	reDays      = regexp.MustCompile(`^(\d+)天前$`)
	reYesterday = regexp.MustCompile(`^昨天\s+(\d{2}):(\d{2})$`)
)

// Normalizer converts platform timestamps into canonical UTC instants.
type Normalizer struct {
	clock Clock
	zone  *time.Location
}

// New creates a Normalizer with the given clock.
func New(clock Clock) *Normalizer {
	return &Normalizer{
		clock: clock,
		zone:  time.FixedZone("UTC+8", referenceZoneOffset),
	}
}

// NewSystem creates a Normalizer backed by the system clock.
func NewSystem() *Normalizer {
	return New(SystemClock{})
}

// Now returns the current time in the reference zone.
func (n *Normalizer) Now() time.Time {
	return n.clock.Now().In(n.zone)
}

// Format renders an instant as canonical RFC822-style text in UTC.
func Format(t time.Time) string {
	return t.UTC().Format(CanonicalLayout)
}

// CanonicalNow returns the current time as canonical text. Used for feed
// build timestamps.
func (n *Normalizer) CanonicalNow() string {
	return Format(n.Now())
}

// ResolveUnix converts an integer platform timestamp to a UTC instant. The
// raw number is decoded as a reference-zone wall-clock reading, not as an
// epoch already denominated in UTC.
func (n *Normalizer) ResolveUnix(ts int64) time.Time {
	wall := time.Unix(ts, 0).UTC()
	return time.Date(
		wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), 0, n.zone,
	).UTC()
}

// Resolve classifies a timestamp string against the known patterns and
// returns the UTC instant it denotes. An unrecognized string returns
// domain.ErrUnrecognizedDateFormat; the caller skips that record only.
func (n *Normalizer) Resolve(value string) (time.Time, error) {
	now := n.Now()

	switch {
	case reISODate.MatchString(value):
		t, err := time.ParseInLocation("2006-01-02", value, n.zone)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", domain.ErrUnrecognizedDateFormat, value)
		}
		return t.UTC(), nil

	case reLongDate.MatchString(value):
		m := reLongDate.FindStringSubmatch(value)
		return n.dateFromParts(m[1], m[2], m[3])

	case reShortDate.MatchString(value):
		// No year present; default to the current reference-zone year.
		// A documented approximation around year boundaries.
		m := reShortDate.FindStringSubmatch(value)
		return n.dateFromParts(strconv.Itoa(now.Year()), m[1], m[2])

	case reMinutes.MatchString(value):
		d, err := relativeDelta(reMinutes, value, time.Minute)
		if err != nil {
			return time.Time{}, err
		}
		return now.Add(-d).UTC(), nil

	case reHours.MatchString(value):
		d, err := relativeDelta(reHours, value, time.Hour)
		if err != nil {
			return time.Time{}, err
		}
		return now.Add(-d).UTC(), nil

	case reDays.MatchString(value):
		d, err := relativeDelta(reDays, value, 24*time.Hour)
		if err != nil {
			return time.Time{}, err
		}
		return now.Add(-d).UTC(), nil

	case reYesterday.MatchString(value):
		// Calendar reconstruction: yesterday's reference-zone date combined
		// with the embedded clock reading.
		m := reYesterday.FindStringSubmatch(value)
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		yesterday := now.AddDate(0, 0, -1)
		t := time.Date(
			yesterday.Year(), yesterday.Month(), yesterday.Day(),
			hour, minute, 0, 0, n.zone,
		)
		return t.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", domain.ErrUnrecognizedDateFormat, value)
}

// Canonical resolves a timestamp string and renders it as canonical text.
func (n *Normalizer) Canonical(value string) (string, error) {
	t, err := n.Resolve(value)
	if err != nil {
		return "", err
	}
	return Format(t), nil
}

// CanonicalUnix renders an integer platform timestamp as canonical text.
func (n *Normalizer) CanonicalUnix(ts int64) string {
	return Format(n.ResolveUnix(ts))
}

// CalendarDate extracts the UTC calendar date from canonical text,
// falling back to the full classifier when the text is not canonical.
// Some callers hold only canonical text, never a structured instant, so
// re-parsing here is part of the contract.
func (n *Normalizer) CalendarDate(text string) (time.Time, error) {
	t, err := time.Parse(CanonicalLayout, text)
	if err != nil {
		t, err = n.Resolve(text)
		if err != nil {
			return time.Time{}, err
		}
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// dateFromParts builds a reference-zone midnight instant from decimal
// year/month/day strings and converts it to UTC.
func (n *Normalizer) dateFromParts(year, month, day string) (time.Time, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrUnrecognizedDateFormat, year)
	}
	mo, err := strconv.Atoi(month)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrUnrecognizedDateFormat, month)
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrUnrecognizedDateFormat, day)
	}
	return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, n.zone).UTC(), nil
}

// relativeDelta extracts the numeric delta from a relative expression.
func relativeDelta(re *regexp.Regexp, value string, unit time.Duration) (time.Duration, error) {
	m := re.FindStringSubmatch(value)
	count, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnrecognizedDateFormat, value)
	}
	return time.Duration(count) * unit, nil
}
