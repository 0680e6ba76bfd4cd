package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Spec is a parsed 5-field cron expression bound to one canonical
// timezone. Field order: minute hour day-of-month month day-of-week.
//
// Supported syntax per field: "*", single values, names for month and
// day-of-week ("jan", "mon"), ranges "a-b", steps "*/n" and "a-b/n",
// and comma-separated lists. Day-of-week accepts 0 or 7 for Sunday.
type Spec struct {
	expr string
	loc  *time.Location

	minute uint64
	hour   uint64
	dom    uint64
	month  uint64
	dow    uint64

	// A "*" day field is unrestricted. When both day fields are
	// restricted, a time matches if either does (standard cron).
	domStar bool
	dowStar bool
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var dowNames = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

// ParseSpec parses a cron expression and coerces the timezone input
// into a canonical location. A malformed expression or unresolvable
// timezone is a configuration error; nothing is registered.
func ParseSpec(expr, timezone string) (*Spec, error) {
	loc, err := NormalizeZone(timezone)
	if err != nil {
		return nil, err
	}

	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, &ScheduleError{
			Code:    ErrCodeSpecInvalid,
			Message: fmt.Sprintf("cron expression %q has %d fields, want 5", expr, len(fields)),
		}
	}

	s := &Spec{expr: expr, loc: loc}

	if s.minute, _, err = parseField(fields[0], 0, 59, nil); err != nil {
		return nil, specFieldError(expr, "minute", err)
	}
	if s.hour, _, err = parseField(fields[1], 0, 23, nil); err != nil {
		return nil, specFieldError(expr, "hour", err)
	}
	if s.dom, s.domStar, err = parseField(fields[2], 1, 31, nil); err != nil {
		return nil, specFieldError(expr, "day-of-month", err)
	}
	if s.month, _, err = parseField(fields[3], 1, 12, monthNames); err != nil {
		return nil, specFieldError(expr, "month", err)
	}
	if s.dow, s.dowStar, err = parseField(fields[4], 0, 7, dowNames); err != nil {
		return nil, specFieldError(expr, "day-of-week", err)
	}

	// 7 means Sunday too.
	if s.dow&(1<<7) != 0 {
		s.dow |= 1
		s.dow &^= 1 << 7
	}

	return s, nil
}

func specFieldError(expr, field string, err error) error {
	return &ScheduleError{
		Code:    ErrCodeSpecInvalid,
		Message: fmt.Sprintf("cron expression %q: bad %s field", expr, field),
		Err:     err,
	}
}

// Expression returns the original cron expression.
func (s *Spec) Expression() string {
	return s.expr
}

// Location returns the canonical timezone.
func (s *Spec) Location() *time.Location {
	return s.loc
}

// Next returns the first occurrence strictly after the given time,
// evaluated in the spec's timezone. Returns the zero time if no
// occurrence exists within five years (e.g. "0 0 30 2 *").
func (s *Spec) Next(after time.Time) time.Time {
	t := after.In(s.loc).Truncate(time.Minute).Add(time.Minute)
	limit := after.AddDate(5, 0, 0)

	for t.Before(limit) {
		if s.month&(1<<uint(t.Month())) == 0 {
			// Advance to the start of the next month.
			t = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, s.loc).AddDate(0, 1, 0)
			continue
		}
		if !s.dayMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, 1)
			continue
		}
		if s.hour&(1<<uint(t.Hour())) == 0 {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, s.loc).Add(time.Hour)
			continue
		}
		if s.minute&(1<<uint(t.Minute())) == 0 {
			t = t.Add(time.Minute)
			continue
		}
		return t
	}

	return time.Time{}
}

// dayMatches applies standard cron day semantics: when both the
// day-of-month and day-of-week fields are restricted, either may
// match; otherwise the restricted one decides.
func (s *Spec) dayMatches(t time.Time) bool {
	domMatch := s.dom&(1<<uint(t.Day())) != 0
	dowMatch := s.dow&(1<<uint(t.Weekday())) != 0

	switch {
	case s.domStar && s.dowStar:
		return true
	case s.domStar:
		return dowMatch
	case s.dowStar:
		return domMatch
	default:
		return domMatch || dowMatch
	}
}

// parseField parses one cron field into a bitmask over [min, max].
// Returns the mask and whether the field was an unrestricted "*".
func parseField(field string, min, max int, names map[string]int) (uint64, bool, error) {
	var mask uint64
	star := false

	for _, term := range strings.Split(field, ",") {
		termMask, termStar, err := parseTerm(term, min, max, names)
		if err != nil {
			return 0, false, err
		}
		mask |= termMask
		star = star || termStar
	}

	if mask == 0 {
		return 0, false, fmt.Errorf("field %q matches nothing", field)
	}
	return mask, star, nil
}

// parseTerm parses a single comma-separated term: "*", "*/n", "a",
// "a-b", or "a-b/n".
func parseTerm(term string, min, max int, names map[string]int) (uint64, bool, error) {
	if term == "" {
		return 0, false, fmt.Errorf("empty term")
	}

	body, step := term, 1
	if idx := strings.IndexByte(term, '/'); idx >= 0 {
		body = term[:idx]
		n, err := strconv.Atoi(term[idx+1:])
		if err != nil || n < 1 {
			return 0, false, fmt.Errorf("bad step in %q", term)
		}
		step = n
	}

	lo, hi := min, max
	star := false
	switch {
	case body == "*":
		star = step == 1
	case strings.Contains(body, "-"):
		parts := strings.SplitN(body, "-", 2)
		var err error
		if lo, err = parseValue(parts[0], names); err != nil {
			return 0, false, err
		}
		if hi, err = parseValue(parts[1], names); err != nil {
			return 0, false, err
		}
	default:
		v, err := parseValue(body, names)
		if err != nil {
			return 0, false, err
		}
		lo, hi = v, v
		if step > 1 {
			// "a/n" means "a-max/n".
			hi = max
		}
	}

	if lo < min || hi > max || lo > hi {
		return 0, false, fmt.Errorf("range %d-%d outside %d-%d", lo, hi, min, max)
	}

	var mask uint64
	for v := lo; v <= hi; v += step {
		mask |= 1 << uint(v)
	}
	return mask, star, nil
}

// parseValue parses a numeric value or a case-insensitive name.
func parseValue(v string, names map[string]int) (int, error) {
	if names != nil {
		if n, ok := names[strings.ToLower(v)]; ok {
			return n, nil
		}
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("bad value %q", v)
	}
	return n, nil
}

// NormalizeZone coerces heterogeneous timezone input into one
// canonical location. Accepts IANA names in any case, "UTC", "Z",
// "Local", and the empty string (UTC).
func NormalizeZone(name string) (*time.Location, error) {
	trimmed := strings.TrimSpace(name)
	switch strings.ToLower(trimmed) {
	case "", "utc", "z":
		return time.UTC, nil
	case "local":
		return time.Local, nil
	}

	loc, err := time.LoadLocation(trimmed)
	if err == nil {
		return loc, nil
	}

	// Retry with IANA-style casing ("europe/berlin" -> "Europe/Berlin").
	if loc, retryErr := time.LoadLocation(canonicalZoneName(trimmed)); retryErr == nil {
		return loc, nil
	}

	return nil, &ScheduleError{
		Code:    ErrCodeSpecInvalid,
		Message: fmt.Sprintf("unknown timezone %q", name),
		Err:     err,
	}
}

// canonicalZoneName title-cases each word of each path segment, the
// convention IANA zone names follow.
func canonicalZoneName(name string) string {
	segments := strings.Split(name, "/")
	for i, seg := range segments {
		words := strings.Split(seg, "_")
		for j, w := range words {
			if w == "" {
				continue
			}
			words[j] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
		segments[i] = strings.Join(words, "_")
	}
	return strings.Join(segments, "/")
}
