// Package standings derives ranked league tables from decided matches.
package standings

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/Dosada05/league-engine/models"
)

// Rules holds the points awarded per result. Only the ordering "more points ranks higher"
// is relied on elsewhere.
type Rules struct {
	Win  int
	Loss int
}

func DefaultRules() Rules {
	return Rules{Win: models.DefaultPointsForWin, Loss: models.DefaultPointsForLoss}
}

// RulesFor reads the league's scoring settings, falling back to the defaults when unset.
func RulesFor(settings models.LeagueSettings) Rules {
	if settings.PointsForWin == 0 && settings.PointsForLoss == 0 {
		return DefaultRules()
	}
	return Rules{Win: settings.PointsForWin, Loss: settings.PointsForLoss}
}

// Compute builds the table from scratch. Only regular matches that are completed or
// walkovers count. Declared participants without results appear with zero rows; sides of
// counted matches that were never declared are added as they are found.
//
// Order: points desc, won desc, lost asc. Equal (points, won, lost) share a rank, and the
// next row's rank is 1 + the number of rows strictly ahead of it (1, 1, 3). Within a tie
// rows are ordered by name then id so the output does not depend on input order.
//
// A nil match or a winner that is not one of its match's sides is a programming error and
// panics.
func Compute(participants []models.Participant, matches []*models.Match, rules Rules) []models.Standing {
	rows := make(map[string]*models.Standing, len(participants))
	order := make([]string, 0, len(participants))

	declared := make(map[string]struct{}, len(participants))

	// Undeclared sides take the smallest non-empty name their matches carry.
	row := func(id, name string) *models.Standing {
		if s, ok := rows[id]; ok {
			if _, fixed := declared[id]; !fixed && name != "" && (s.PlayerName == "" || name < s.PlayerName) {
				s.PlayerName = name
			}
			return s
		}
		s := &models.Standing{PlayerID: id, PlayerName: name}
		rows[id] = s
		order = append(order, id)
		return s
	}

	for _, p := range participants {
		if p.PlayerID == "" {
			continue
		}
		row(p.PlayerID, p.Name())
		declared[p.PlayerID] = struct{}{}
	}

	for _, m := range matches {
		if m == nil {
			panic("standings: nil match")
		}
		if m.Type.IsPlayoff() || !m.Status.IsDecided() || m.WinnerID == nil {
			continue
		}
		winnerID := *m.WinnerID
		if !m.HasPlayer(winnerID) {
			panic(fmt.Sprintf("standings: match %s winner %q is not a participant", m.ID, winnerID))
		}
		loserID, loserName := m.Opponent(winnerID)

		w := row(winnerID, m.NameOf(winnerID))
		w.Played++
		w.Won++
		w.Points += rules.Win

		l := row(loserID, loserName)
		l.Played++
		l.Lost++
		l.Points += rules.Loss
	}

	table := make([]models.Standing, 0, len(order))
	for _, id := range order {
		table = append(table, *rows[id])
	}

	slices.SortFunc(table, func(a, b models.Standing) int {
		if c := compareRecord(a, b); c != 0 {
			return c
		}
		if c := cmp.Compare(a.PlayerName, b.PlayerName); c != 0 {
			return c
		}
		return cmp.Compare(a.PlayerID, b.PlayerID)
	})

	for i := range table {
		if i > 0 && compareRecord(table[i-1], table[i]) == 0 {
			table[i].Rank = table[i-1].Rank
			continue
		}
		table[i].Rank = i + 1
	}

	return table
}

// compareRecord orders by the ranking tuple only.
func compareRecord(a, b models.Standing) int {
	if c := cmp.Compare(b.Points, a.Points); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Won, a.Won); c != 0 {
		return c
	}
	return cmp.Compare(a.Lost, b.Lost)
}

// Top returns the first n rows of an already computed table.
func Top(table []models.Standing, n int) []models.Standing {
	if n > len(table) {
		n = len(table)
	}
	out := make([]models.Standing, n)
	copy(out, table[:n])
	return out
}
