package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec_RejectsWrongFieldCount(t *testing.T) {
	_, err := ParseSpec("0 8 1 *", "UTC")
	require.Error(t, err)
	assert.True(t, IsSpecError(err))

	_, err = ParseSpec("0 8 1 * * *", "UTC")
	require.Error(t, err)
	assert.True(t, IsSpecError(err))
}

func TestParseSpec_RejectsOutOfRangeValues(t *testing.T) {
	cases := []string{
		"60 * * * *", // minute > 59
		"* 24 * * *", // hour > 23
		"* * 0 * *",  // day-of-month < 1
		"* * 32 * *", // day-of-month > 31
		"* * * 13 *", // month > 12
		"* * * * 8",  // day-of-week > 7
		"* * * * x",  // not a name
		"5-2 * * * *", // inverted range
		"*/0 * * * *", // zero step
	}
	for _, expr := range cases {
		_, err := ParseSpec(expr, "UTC")
		assert.Truef(t, IsSpecError(err), "ParseSpec(%q) = %v, want SPEC_INVALID", expr, err)
	}
}

func TestParseSpec_AcceptsNames(t *testing.T) {
	spec, err := ParseSpec("0 8 1 jan mon", "UTC")
	require.NoError(t, err)

	// Monday 2024-01-01 08:00 matches both restricted day fields.
	next := spec.Next(time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC), next)
}

func TestSpecNext_StrictlyAfter(t *testing.T) {
	spec, err := ParseSpec("5 8 1 * *", "UTC")
	require.NoError(t, err)

	occurrence := time.Date(2024, time.March, 1, 8, 5, 0, 0, time.UTC)
	next := spec.Next(occurrence)
	assert.Equal(t, time.Date(2024, time.April, 1, 8, 5, 0, 0, time.UTC), next,
		"an exact occurrence time must yield the following occurrence")
}

func TestSpecNext_EveryMinute(t *testing.T) {
	spec, err := ParseSpec("* * * * *", "UTC")
	require.NoError(t, err)

	from := time.Date(2024, time.March, 15, 12, 0, 30, 0, time.UTC)
	next := spec.Next(from)
	assert.Equal(t, time.Date(2024, time.March, 15, 12, 1, 0, 0, time.UTC), next)
}

func TestSpecNext_Steps(t *testing.T) {
	spec, err := ParseSpec("*/15 * * * *", "UTC")
	require.NoError(t, err)

	from := time.Date(2024, time.March, 15, 12, 16, 0, 0, time.UTC)
	next := spec.Next(from)
	assert.Equal(t, time.Date(2024, time.March, 15, 12, 30, 0, 0, time.UTC), next)
}

func TestSpecNext_MonthRollover(t *testing.T) {
	spec, err := ParseSpec("15 8 1 * *", "UTC")
	require.NoError(t, err)

	from := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	next := spec.Next(from)
	assert.Equal(t, time.Date(2024, time.April, 1, 8, 15, 0, 0, time.UTC), next)
}

func TestSpecNext_YearRollover(t *testing.T) {
	spec, err := ParseSpec("15 8 1 1 *", "UTC")
	require.NoError(t, err)

	from := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	next := spec.Next(from)
	assert.Equal(t, time.Date(2025, time.January, 1, 8, 15, 0, 0, time.UTC), next)
}

func TestSpecNext_SundayAsSevenAndZero(t *testing.T) {
	seven, err := ParseSpec("0 9 * * 7", "UTC")
	require.NoError(t, err)
	zero, err := ParseSpec("0 9 * * 0", "UTC")
	require.NoError(t, err)

	from := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC) // Friday
	want := time.Date(2024, time.March, 17, 9, 0, 0, 0, time.UTC)  // Sunday
	assert.Equal(t, want, seven.Next(from))
	assert.Equal(t, want, zero.Next(from))
}

func TestSpecNext_RestrictedDomAndDowMatchEither(t *testing.T) {
	// Standard cron: with both day fields restricted, either matches.
	spec, err := ParseSpec("0 9 15 * mon", "UTC")
	require.NoError(t, err)

	from := time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC) // Tuesday the 12th
	first := spec.Next(from)
	assert.Equal(t, time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC), first,
		"the 15th (a Friday) matches via day-of-month")

	second := spec.Next(first)
	assert.Equal(t, time.Date(2024, time.March, 18, 9, 0, 0, 0, time.UTC), second,
		"the following Monday matches via day-of-week")
}

func TestSpecNext_ImpossibleSpecReturnsZero(t *testing.T) {
	spec, err := ParseSpec("0 0 30 2 *", "UTC")
	require.NoError(t, err)

	next := spec.Next(time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC))
	assert.True(t, next.IsZero(), "February 30th never occurs")
}

func TestSpecNext_EvaluatesInZone(t *testing.T) {
	spec, err := ParseSpec("0 8 * * *", "Europe/Berlin")
	require.NoError(t, err)

	// 07:30 UTC in winter is 08:30 in Berlin, so today's 08:00 Berlin
	// occurrence has passed.
	from := time.Date(2024, time.January, 10, 7, 30, 0, 0, time.UTC)
	next := spec.Next(from)

	berlin := spec.Location()
	assert.Equal(t, 8, next.In(berlin).Hour())
	assert.Equal(t, 11, next.In(berlin).Day())
}

func TestNormalizeZone_CanonicalizesInput(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "UTC"},
		{"utc", "UTC"},
		{"UTC", "UTC"},
		{"Z", "UTC"},
		{" utc ", "UTC"},
		{"Europe/Berlin", "Europe/Berlin"},
		{"europe/berlin", "Europe/Berlin"},
		{"america/new_york", "America/New_York"},
	}
	for _, tc := range cases {
		loc, err := NormalizeZone(tc.in)
		require.NoErrorf(t, err, "NormalizeZone(%q)", tc.in)
		assert.Equalf(t, tc.want, loc.String(), "NormalizeZone(%q)", tc.in)
	}
}

func TestNormalizeZone_RejectsUnknown(t *testing.T) {
	_, err := NormalizeZone("Atlantis/Central")
	require.Error(t, err)
	assert.True(t, IsSpecError(err))
}
