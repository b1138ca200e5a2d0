// Package notify delivers the best-effort "ticket ready" signal after
// a purchase: an Expo push to the buyer's device and a PubNub publish
// on the buyer's channel so an open client can re-fetch its tickets.
// Nothing here may fail a purchase.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"eventpass/internal/services/notify/expo"
	"eventpass/models"
	"eventpass/monitoring"
	"eventpass/utils"

	pubnub "github.com/pubnub/go/v7"
)

type Notifier struct {
	expo    *expo.Client
	pubnub  *pubnub.PubNub
	breaker *utils.CircuitBreaker
}

func NewNotifier(expoClient *expo.Client, pn *pubnub.PubNub) *Notifier {
	return &Notifier{
		expo:    expoClient,
		pubnub:  pn,
		breaker: utils.NewCircuitBreaker("expo-push"),
	}
}

// TicketReady announces a finished purchase. Errors are logged and
// counted, never returned; the ticket is already committed.
func (n *Notifier) TicketReady(ctx context.Context, user *models.User, event *models.Event, ticket *models.Ticket) {
	n.publishRealtime(user, event, ticket)

	if user.PushToken == "" {
		return
	}

	_, err := n.breaker.Execute(ctx, func() (any, error) {
		return nil, n.expo.Send(ctx, user.PushToken,
			"Ticket purchased",
			fmt.Sprintf("Your ticket for %q is ready!", event.Name),
			map[string]any{
				"eventId":  event.ID,
				"ticketId": ticket.ID,
			},
		)
	})
	if err != nil {
		monitoring.RecordNotification("error")
		slog.Error("push notification failed",
			"userID", user.ID,
			"ticketID", ticket.ID,
			"error", err,
		)
		return
	}

	monitoring.RecordNotification("sent")
}

func (n *Notifier) publishRealtime(user *models.User, event *models.Event, ticket *models.Ticket) {
	if n.pubnub == nil {
		return
	}

	channel := fmt.Sprintf("user-%s", user.ID)
	_, _, err := n.pubnub.Publish().
		Channel(channel).
		Message(map[string]any{
			"type":       "ticket_ready",
			"ticket_id":  ticket.ID,
			"event_id":   event.ID,
			"event_name": event.Name,
		}).
		Execute()
	if err != nil {
		slog.Error("pubnub publish failed", "channel", channel, "error", err)
	}
}
