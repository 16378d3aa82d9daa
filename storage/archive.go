package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/Dosada05/league-engine/brackets"
	"github.com/Dosada05/league-engine/models"
	"github.com/google/uuid"
)

// LeagueArchive is the document written once a league is completed.
type LeagueArchive struct {
	League     *models.League       `json:"league"`
	Standings  []models.Standing    `json:"standings"`
	Bracket    brackets.BracketView `json:"bracket"`
	ArchivedAt time.Time            `json:"archived_at"`
}

type Archiver struct {
	store  ObjectStore
	prefix string
}

func NewArchiver(store ObjectStore, prefix string) *Archiver {
	return &Archiver{store: store, prefix: prefix}
}

func (a *Archiver) Key(leagueID uuid.UUID) string {
	return path.Join(a.prefix, "leagues", leagueID.String(), "final-bracket.json")
}

func (a *Archiver) Archive(ctx context.Context, archive LeagueArchive) (*UploadResult, error) {
	if archive.League == nil {
		return nil, fmt.Errorf("archive without league")
	}
	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode archive for league %s: %w", archive.League.ID, err)
	}
	return a.store.Upload(ctx, a.Key(archive.League.ID), "application/json", bytes.NewReader(data))
}

func (a *Archiver) Remove(ctx context.Context, leagueID uuid.UUID) error {
	return a.store.Delete(ctx, a.Key(leagueID))
}
