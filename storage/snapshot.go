package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"time"
)

// SnapshotStore publishes public JSON snapshots of season data.
type SnapshotStore struct {
	objects ObjectStore
	prefix  string
	maxAge  time.Duration
}

// NewSnapshotStore keeps snapshots under prefix. CDN caches may serve a
// snapshot for up to maxAge after it was replaced.
func NewSnapshotStore(objects ObjectStore, prefix string, maxAge time.Duration) *SnapshotStore {
	return &SnapshotStore{objects: objects, prefix: prefix, maxAge: maxAge}
}

func (s *SnapshotStore) standingsKey(seasonID int) string {
	return path.Join(s.prefix, "seasons", strconv.Itoa(seasonID), "standings.json")
}

func (s *SnapshotStore) cacheControl() string {
	if s.maxAge <= 0 {
		return "no-cache"
	}
	return fmt.Sprintf("public, max-age=%d", int(s.maxAge.Seconds()))
}

// PutStandings uploads the standings of a season and returns its public URL.
func (s *SnapshotStore) PutStandings(ctx context.Context, seasonID int, standings any) (string, error) {
	data, err := json.Marshal(standings)
	if err != nil {
		return "", fmt.Errorf("marshal standings snapshot for season %d: %w", seasonID, err)
	}
	res, err := s.objects.Put(ctx, Object{
		Key:          s.standingsKey(seasonID),
		ContentType:  "application/json",
		CacheControl: s.cacheControl(),
		Body:         data,
	})
	if err != nil {
		return "", err
	}
	return res.URL, nil
}

func (s *SnapshotStore) StandingsURL(seasonID int) string {
	return s.objects.PublicURL(s.standingsKey(seasonID))
}
