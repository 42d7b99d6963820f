// Package notify delivers notifications to a user's real-time room.
package notify

import (
	"context"
	"errors"
	"time"

	"vibin_matchcore/logging"
	"vibin_matchcore/models"
	"vibin_matchcore/services"
)

// Dispatcher turns service notifications into notification events on the
// recipient's user room. Push delivery plugs in behind the same interface.
type Dispatcher struct {
	rooms services.Broadcaster
	now   func() time.Time
}

func NewDispatcher(rooms services.Broadcaster) *Dispatcher {
	return &Dispatcher{rooms: rooms, now: time.Now}
}

// Notify implements services.Notifier.
func (d *Dispatcher) Notify(ctx context.Context, n models.Notification) error {
	if n.RecipientID == "" {
		return errors.New("notification has no recipient")
	}

	logging.Ctx(ctx).Debug().
		Str("type", n.Type).
		Str("recipient", n.RecipientID).
		Str("sender", n.SenderID).
		Msg("dispatching notification")

	if d.rooms == nil {
		return nil
	}
	return d.rooms.Publish(ctx, models.UserRoom(n.RecipientID), models.Event{
		Type:      models.EventNotification,
		ActorID:   n.SenderID,
		Payload:   n,
		Timestamp: d.now(),
	})
}
