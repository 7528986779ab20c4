// Package notify fans league change notifications out to websocket rooms and
// Redis streams.
package notify

import (
	"context"
	"errors"
	"strconv"
	"time"
)

const (
	TopicTableUpdated    = "league.table.updated"
	TopicResultsUpdated  = "league.results.updated"
	TopicScheduleUpdated = "league.schedule.updated"
	TopicBracketUpdated  = "league.bracket.updated"
)

// Message is a best-effort notification about a season.
type Message struct {
	Topic     string    `json:"topic"`
	SeasonID  int       `json:"season_id"`
	MatchID   int       `json:"match_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// SeasonRoom is the websocket room of a season.
func SeasonRoom(seasonID int) string {
	return "season_" + strconv.Itoa(seasonID)
}

// Multi delivers a message to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, msg Message) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
