// Package markets holds the settlement rules for prediction markets. It is
// free of storage concerns: everything is evaluated against a Context built
// once per finished match.
package markets

import "github.com/Maxxvall/OBNLIGA-sub002/models"

// Context carries the match facts every market is evaluated against.
type Context struct {
	MatchID    int
	Outcome    models.Side
	TotalGoals int
	EventCodes map[models.MatchEventType]struct{}
}

func NewContext(m *models.Match, events []*models.MatchEvent) Context {
	codes := make(map[models.MatchEventType]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.MatchID != m.ID {
			continue
		}
		codes[e.Type] = struct{}{}
	}
	return Context{
		MatchID:    m.ID,
		Outcome:    m.Outcome(),
		TotalGoals: m.TotalGoals(),
		EventCodes: codes,
	}
}

// HasAny reports whether any of the codes occurred in the match.
func (c Context) HasAny(codes []models.MatchEventType) bool {
	for _, code := range codes {
		if _, ok := c.EventCodes[code]; ok {
			return true
		}
	}
	return false
}
