package repositories

import (
	"context"
	"slices"
	"sync"

	"github.com/Dosada05/league-engine/models"
	"github.com/google/uuid"
)

// MemoryStore is a process-local document store. Every read returns a copy and
// every update runs under one mutex, which gives the same per-document atomicity
// as the postgres repositories.
type MemoryStore struct {
	mu        sync.Mutex
	leagues   map[uuid.UUID]*models.League
	matches   map[uuid.UUID]*models.Match
	standings map[uuid.UUID][]models.Standing
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leagues:   make(map[uuid.UUID]*models.League),
		matches:   make(map[uuid.UUID]*models.Match),
		standings: make(map[uuid.UUID][]models.Standing),
	}
}

func (s *MemoryStore) Store() Store {
	return Store{
		Leagues:   memoryLeagues{s},
		Matches:   memoryMatches{s},
		Standings: memoryStandings{s},
	}
}

type memoryLeagues struct{ s *MemoryStore }

func (r memoryLeagues) Create(_ context.Context, league *models.League) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.leagues[league.ID]; ok {
		return ErrLeagueConflict
	}
	r.s.leagues[league.ID] = league.Clone()
	return nil
}

func (r memoryLeagues) GetByID(_ context.Context, id uuid.UUID) (*models.League, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.leagues[id]
	if !ok {
		return nil, ErrLeagueNotFound
	}
	return l.Clone(), nil
}

func (r memoryLeagues) Update(_ context.Context, id uuid.UUID, mutate LeagueMutation) (*models.League, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.leagues[id]
	if !ok {
		return nil, ErrLeagueNotFound
	}
	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	r.s.leagues[id] = working.Clone()
	return working, nil
}

func (r memoryLeagues) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.leagues[id]; !ok {
		return ErrLeagueNotFound
	}
	delete(r.s.leagues, id)
	for matchID, m := range r.s.matches {
		if m.LeagueID == id {
			delete(r.s.matches, matchID)
		}
	}
	delete(r.s.standings, id)
	return nil
}

type memoryMatches struct{ s *MemoryStore }

func (r memoryMatches) CreateBatch(_ context.Context, matches []*models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := make(map[uuid.UUID]struct{}, len(matches))
	for _, m := range matches {
		if _, ok := r.s.leagues[m.LeagueID]; !ok {
			return ErrMatchLeagueInvalid
		}
		if _, ok := r.s.matches[m.ID]; ok {
			return ErrMatchConflict
		}
		if _, ok := seen[m.ID]; ok {
			return ErrMatchConflict
		}
		seen[m.ID] = struct{}{}
	}
	for _, m := range matches {
		r.s.matches[m.ID] = m.Clone()
	}
	return nil
}

func (r memoryMatches) GetByID(_ context.Context, id uuid.UUID) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (r memoryMatches) ListByLeague(_ context.Context, leagueID uuid.UUID) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	matches := make([]*models.Match, 0)
	for _, m := range r.s.matches {
		if m.LeagueID == leagueID {
			matches = append(matches, m.Clone())
		}
	}
	slices.SortFunc(matches, func(a, b *models.Match) int {
		if a.Round != b.Round {
			return a.Round - b.Round
		}
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return matches, nil
}

func (r memoryMatches) Update(_ context.Context, id uuid.UUID, mutate MatchMutation) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	r.s.matches[id] = working.Clone()
	return working, nil
}

func (r memoryMatches) DeleteByLeague(_ context.Context, leagueID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var deleted int64
	for id, m := range r.s.matches {
		if m.LeagueID == leagueID {
			delete(r.s.matches, id)
			deleted++
		}
	}
	return deleted, nil
}

type memoryStandings struct{ s *MemoryStore }

func (r memoryStandings) Replace(_ context.Context, leagueID uuid.UUID, standings []models.Standing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.standings[leagueID] = slices.Clone(standings)
	return nil
}

func (r memoryStandings) ListByLeague(_ context.Context, leagueID uuid.UUID) ([]models.Standing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	standings := slices.Clone(r.s.standings[leagueID])
	if standings == nil {
		standings = make([]models.Standing, 0)
	}
	return standings, nil
}

func (r memoryStandings) DeleteByLeague(_ context.Context, leagueID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.standings, leagueID)
	return nil
}
