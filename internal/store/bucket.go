package store

import "time"

// dayAnchorHour is the UTC hour at which a counting day starts. The
// day running from 08:00 UTC to 08:00 UTC the next morning is
// attributed to the date it started on.
const dayAnchorHour = 8

// Epoch marks when counting began. No bucket reaches further back.
var Epoch = time.Date(2018, time.January, 1, dayAnchorHour, 0, 0, 0, time.UTC)

// DayBucket returns the start of the counting day containing t.
func DayBucket(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), dayAnchorHour, 0, 0, 0, time.UTC)
	if t.Before(day) {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// MonthBucket returns the first counting day of the month containing
// the counting day of t.
func MonthBucket(t time.Time) time.Time {
	day := DayBucket(t)
	return time.Date(day.Year(), day.Month(), 1, dayAnchorHour, 0, 0, 0, time.UTC)
}

// YearBucket returns the first counting day of the year containing
// the counting day of t.
func YearBucket(t time.Time) time.Time {
	day := DayBucket(t)
	return time.Date(day.Year(), time.January, 1, dayAnchorHour, 0, 0, 0, time.UTC)
}

// monthWindow returns the half-open day-bucket window covering the
// previous completed calendar month relative to now.
func monthWindow(now time.Time) (start, end time.Time) {
	end = MonthBucket(now)
	start = end.AddDate(0, -1, 0)
	return start, end
}

// yearWindow returns the half-open month-bucket window covering the
// previous completed calendar year relative to now.
func yearWindow(now time.Time) (start, end time.Time) {
	end = YearBucket(now)
	start = end.AddDate(-1, 0, 0)
	return start, end
}
