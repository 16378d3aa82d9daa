package services

import (
	"sync/atomic"
	"testing"

	"github.com/Dosada05/league-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresh_StaleWriteIsOverwritten(t *testing.T) {
	f := newFixture(t)
	league, matches := f.scheduledLeague(t, 3)

	// Hold the first write until a newer refresh has landed.
	entered := make(chan struct{})
	release := make(chan struct{})
	var held atomic.Bool
	f.tableRepo.beforeReplace = func([]models.Standing) {
		if held.CompareAndSwap(false, true) {
			close(entered)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.standings.Refresh(f.ctx, league.ID)
		done <- err
	}()
	<-entered
	f.decide(t, matches[0], matches[0].Player1ID)
	close(release)
	require.NoError(t, <-done)

	live, err := f.standings.ComputeStandings(f.ctx, league.ID)
	require.NoError(t, err)
	snapshot := f.league(t, league.ID).Standings
	assert.Equal(t, live, snapshot)

	played := 0
	for _, row := range snapshot {
		played += row.Played
	}
	assert.Equal(t, 2, played)
}

func TestCheckCompletion(t *testing.T) {
	f := newFixture(t)
	league, matches := f.scheduledLeague(t, 3)

	completion, err := f.standings.CheckCompletion(f.ctx, league.ID)
	require.NoError(t, err)
	assert.False(t, completion.Ready)
	assert.Equal(t, 3, completion.Expected)

	for _, m := range matches {
		f.decide(t, m, min(m.Player1ID, m.Player2ID))
	}
	completion, err = f.standings.CheckCompletion(f.ctx, league.ID)
	require.NoError(t, err)
	assert.True(t, completion.Ready)
	assert.Equal(t, 3, completion.Completed)
}
