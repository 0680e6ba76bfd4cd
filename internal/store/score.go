package store

import (
	"context"
	"fmt"
	"time"
)

// BucketNames lists the score buckets in presentation order.
var BucketNames = []string{
	"today",
	"yesterday",
	"this_week",
	"last_week",
	"this_month",
	"last_month",
	"this_year",
	"last_year",
	"all_time",
}

// ScoreReport holds the nine named time-bucket counts for one
// (subject, scope) pair, summed across counter types.
type ScoreReport struct {
	SubjectID string `json:"subject_id"`
	ScopeID   string `json:"scope_id"`

	Today     int64 `json:"today"`
	Yesterday int64 `json:"yesterday"`
	ThisWeek  int64 `json:"this_week"`
	LastWeek  int64 `json:"last_week"`
	ThisMonth int64 `json:"this_month"`
	LastMonth int64 `json:"last_month"`
	ThisYear  int64 `json:"this_year"`
	LastYear  int64 `json:"last_year"`
	AllTime   int64 `json:"all_time"`
}

// Bucket returns the count for a named bucket.
func (r *ScoreReport) Bucket(name string) int64 {
	switch name {
	case "today":
		return r.Today
	case "yesterday":
		return r.Yesterday
	case "this_week":
		return r.ThisWeek
	case "last_week":
		return r.LastWeek
	case "this_month":
		return r.ThisMonth
	case "last_month":
		return r.LastMonth
	case "this_year":
		return r.ThisYear
	case "last_year":
		return r.LastYear
	case "all_time":
		return r.AllTime
	}
	return 0
}

// window is a half-open [Start, End) interval over bucket timestamps.
type window struct {
	Start time.Time
	End   time.Time
}

// bucketWindows computes the nine score windows relative to now.
// All boundaries fall on counting-day starts (08:00 UTC), so every
// window aligns with day buckets; month and year windows also align
// with month buckets. Weeks start on Monday.
func bucketWindows(now time.Time) map[string]window {
	day := DayBucket(now)
	weekday := (int(day.Weekday()) + 6) % 7 // Monday = 0
	weekStart := day.AddDate(0, 0, -weekday)
	monthStart := MonthBucket(now)
	yearStart := YearBucket(now)

	return map[string]window{
		"today":      {day, day.AddDate(0, 0, 1)},
		"yesterday":  {day.AddDate(0, 0, -1), day},
		"this_week":  {weekStart, weekStart.AddDate(0, 0, 7)},
		"last_week":  {weekStart.AddDate(0, 0, -7), weekStart},
		"this_month": {monthStart, monthStart.AddDate(0, 1, 0)},
		"last_month": {monthStart.AddDate(0, -1, 0), monthStart},
		"this_year":  {yearStart, yearStart.AddDate(1, 0, 0)},
		"last_year":  {yearStart.AddDate(-1, 0, 0), yearStart},
		"all_time":   {Epoch, day.AddDate(0, 0, 1)},
	}
}

// Score computes the nine named bucket counts for (subject, scope) as
// of now, summed across counter types.
//
// Every bucket sums the fine and medium rows whose day or month
// buckets fall inside its window, so a count moved by a rollup is
// found in whichever tier currently holds it and a bucket total stays
// the same across the rollup boundary. all_time additionally reads
// the total tier, which is the only place mass promoted by the yearly
// rollup remains visible: once a year's months have been promoted,
// last_year drains to zero by design.
func (s *Store) Score(ctx context.Context, subjectID, scopeID string, now time.Time) (*ScoreReport, error) {
	report := &ScoreReport{SubjectID: subjectID, ScopeID: scopeID}
	windows := bucketWindows(now)

	for _, name := range BucketNames {
		w := windows[name]

		fine, err := s.sumTier(ctx, "fine_counters", "day_bucket", subjectID, scopeID, w)
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", name, err)
		}
		medium, err := s.sumTier(ctx, "medium_counters", "month_bucket", subjectID, scopeID, w)
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", name, err)
		}

		total := fine + medium
		if name == "all_time" {
			eternal, err := s.sumTotal(ctx, subjectID, scopeID)
			if err != nil {
				return nil, fmt.Errorf("score %s: %w", name, err)
			}
			total += eternal
		}

		switch name {
		case "today":
			report.Today = total
		case "yesterday":
			report.Yesterday = total
		case "this_week":
			report.ThisWeek = total
		case "last_week":
			report.LastWeek = total
		case "this_month":
			report.ThisMonth = total
		case "last_month":
			report.LastMonth = total
		case "this_year":
			report.ThisYear = total
		case "last_year":
			report.LastYear = total
		case "all_time":
			report.AllTime = total
		}
	}

	return report, nil
}

// sumTier sums one counter tier's rows for (subject, scope) whose
// buckets fall inside the window.
func (s *Store) sumTier(ctx context.Context, table, bucketCol, subjectID, scopeID string, w window) (int64, error) {
	var sum int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COALESCE(SUM(count), 0) FROM %[1]s
		WHERE subject_id = ? AND scope_id = ?
		AND %[2]s >= ? AND %[2]s < ?
	`, table, bucketCol),
		subjectID, scopeID, w.Start.Unix(), w.End.Unix(),
	).Scan(&sum)
	if err != nil {
		return 0, classify("score", err)
	}
	return sum, nil
}

// sumTotal sums the all-time tier for (subject, scope).
func (s *Store) sumTotal(ctx context.Context, subjectID, scopeID string) (int64, error) {
	var sum int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(count), 0) FROM total_counters
		WHERE subject_id = ? AND scope_id = ?
	`, subjectID, scopeID).Scan(&sum)
	if err != nil {
		return 0, classify("score", err)
	}
	return sum, nil
}
