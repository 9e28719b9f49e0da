package dida

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The provider expects dates as yyyy-MM-dd'T'HH:mm:ss±HHMM (no colon in the
// offset), or a bare yyyy-MM-dd for all-day tasks.
const dateLayout = "2006-01-02T15:04:05-0700"

var (
	explicitOffsetRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(?::\d{2})?)([+-]\d{2}:?\d{2}|Z)$`)
	dateTimeRe       = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})(?:[T\s](\d{1,2}):(\d{1,2})(?::(\d{1,2}))?)?$`)
	timeComponentRe  = regexp.MustCompile(`[T\s]\d{1,2}:\d{1,2}`)
)

// HasTimeComponent reports whether a raw date string carries an explicit
// time of day. Date-only inputs imply an all-day task.
func HasTimeComponent(value string) bool {
	return timeComponentRe.MatchString(strings.TrimSpace(value))
}

// FormatDate normalizes a caller-supplied date string into the provider's
// offset format, resolving the offset from the given IANA time zone when the
// input has none. Returns "" for inputs that cannot be interpreted.
func FormatDate(value, timeZone string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return ""
	}

	// Inputs with an explicit offset keep their wall-clock time; only the
	// offset format is normalized.
	if m := explicitOffsetRe.FindStringSubmatch(raw); m != nil {
		offset := m[2]
		if strings.EqualFold(offset, "Z") {
			offset = "+0000"
		} else {
			offset = strings.Replace(offset, ":", "", 1)
		}
		return m[1] + offset
	}

	loc := loadLocation(timeZone)

	// Date-only or date+time without an offset: attach the zone's offset for
	// that instant (DST-correct).
	if m := dateTimeRe.FindStringSubmatch(raw); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		hour, minute, second := 0, 0, 0
		if m[4] != "" {
			hour, _ = strconv.Atoi(m[4])
			minute, _ = strconv.Atoi(m[5])
			if m[6] != "" {
				second, _ = strconv.Atoi(m[6])
			}
		}
		t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
		return t.Format(dateLayout)
	}

	// Last resort: accept anything RFC3339-shaped and re-express its UTC
	// wall-clock time in the target zone's offset.
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		u := t.UTC()
		shifted := time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), 0, loc)
		return shifted.Format(dateLayout)
	}

	return ""
}

// FormatTime expresses an instant in the given zone using the provider's
// offset format.
func FormatTime(t time.Time, timeZone string) string {
	return t.In(loadLocation(timeZone)).Format(dateLayout)
}

// DateOnly strips the time portion of a formatted date for all-day
// serialization.
func DateOnly(value string) string {
	if idx := strings.IndexByte(value, 'T'); idx >= 0 {
		return value[:idx]
	}
	return value
}

func loadLocation(timeZone string) *time.Location {
	if timeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// MapPriority translates a human readable priority into the provider's
// numeric levels (0, 1, 3, 5).
func MapPriority(value string) int {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "urgent", "highest", "high", "5":
		return 5
	case "medium", "normal", "2", "3":
		return 3
	case "low", "1":
		return 1
	default:
		return 0
	}
}
