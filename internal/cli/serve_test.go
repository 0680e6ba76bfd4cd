package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallybot/tally/internal/config"
	"github.com/tallybot/tally/internal/schedule"
	"github.com/tallybot/tally/internal/store"
	"github.com/tallybot/tally/internal/testutil"
)

func TestRegisterSchedules_DefaultConfig(t *testing.T) {
	st, err := store.Open(testDBPath(t))
	require.NoError(t, err)
	defer st.Close()

	clock := testutil.NewVirtualClock(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	sched := schedule.New(clock)

	require.NoError(t, registerSchedules(sched, config.Default(), st, clock.Now))

	entries := sched.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "monthly-rollup", entries[0].Name())
	assert.Equal(t, "yearly-rollup", entries[1].Name())
	assert.Equal(t, schedule.StateScheduled, entries[0].State())
}

func TestRegisterSchedules_BadExpressionRejected(t *testing.T) {
	st, err := store.Open(testDBPath(t))
	require.NoError(t, err)
	defer st.Close()

	cfg := config.Default()
	cfg.Schedules[0].Expression = "61 8 1 * *"

	sched := schedule.New(testutil.NewVirtualClock(time.Now()))
	err = registerSchedules(sched, cfg, st, time.Now)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRegisterSchedules_ScheduledRollupMovesCounters(t *testing.T) {
	st, err := store.Open(testDBPath(t))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.EnsureSubject(ctx, "user-42"))
	require.NoError(t, st.EnsureScope(ctx, "guild-7"))
	require.NoError(t, st.Increment(ctx, "user-42", "guild-7", "message",
		time.Date(2024, time.February, 10, 12, 0, 0, 0, time.UTC), 4))

	clock := testutil.NewVirtualClock(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	sched := schedule.New(clock)
	require.NoError(t, registerSchedules(sched, config.Default(), st, clock.Now))

	// The monthly schedule fires at 08:05 on the 1st.
	clock.Advance(9 * time.Hour)

	select {
	case ee := <-sched.Errors():
		t.Fatalf("unexpected job error: %v", ee.Err)
	default:
	}

	var fine, medium int64
	row := st.DB().QueryRow("SELECT COUNT(*) FROM fine_counters")
	require.NoError(t, row.Scan(&fine))
	row = st.DB().QueryRow("SELECT COALESCE(SUM(count), 0) FROM medium_counters")
	require.NoError(t, row.Scan(&medium))

	assert.Equal(t, int64(0), fine, "February's fine rows were consumed")
	assert.Equal(t, int64(4), medium, "February's total landed in the monthly tier")
}
