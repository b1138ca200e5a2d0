package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"eventpass/internal/status"
	"eventpass/models"
	"eventpass/monitoring"
)

// TicketLedger is the persisted ticket collection. InsertTicket must
// return status.ErrAlreadyPurchased when the (user, event) uniqueness
// constraint rejects the write.
type TicketLedger interface {
	FindTicket(ctx context.Context, userID, eventID string) (*models.Ticket, error)
	InsertTicket(ctx context.Context, t *models.Ticket) (*models.Ticket, error)
	SetTicketArtifact(ctx context.Context, ticketID, pdfURL string) error
}

type EventCatalog interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type ArtifactGenerator interface {
	NewPayload(userID, eventID string) string
	Render(ticket *models.Ticket, event *models.Event, user *models.User) ([]byte, error)
	Store(ticketID string, pdf []byte) (string, error)
}

type TicketNotifier interface {
	TicketReady(ctx context.Context, user *models.User, event *models.Event, ticket *models.Ticket)
}

// PurchaseService fulfills buy requests: duplicate check, event
// lookup, ledger insert, artifact generation, notification. The
// ledger's unique index is the only arbitration between concurrent
// buyers; there are no locks here.
type PurchaseService struct {
	ledger    TicketLedger
	catalog   EventCatalog
	users     UserDirectory
	artifacts ArtifactGenerator
	notifier  TicketNotifier

	notifyTimeout time.Duration
}

func NewPurchaseService(
	ledger TicketLedger,
	catalog EventCatalog,
	users UserDirectory,
	artifacts ArtifactGenerator,
	notifier TicketNotifier,
) *PurchaseService {
	return &PurchaseService{
		ledger:        ledger,
		catalog:       catalog,
		users:         users,
		artifacts:     artifacts,
		notifier:      notifier,
		notifyTimeout: 15 * time.Second,
	}
}

// Purchase buys one ticket for userID to eventID.
//
// Steps 1-4 have no partial rollback: a retry after
// ErrAlreadyPurchased is a no-op. Artifact failure degrades the
// result (empty PDFURL) instead of failing the purchase, and the
// notification can never fail it.
func (s *PurchaseService) Purchase(ctx context.Context, userID, eventID string) (*models.Ticket, error) {
	started := time.Now()

	ticket, err := s.purchase(ctx, userID, eventID)
	switch {
	case err == nil:
		monitoring.RecordPurchase("success", time.Since(started))
	case errors.Is(err, status.ErrAlreadyPurchased):
		monitoring.RecordPurchase("duplicate", time.Since(started))
	case errors.Is(err, status.ErrEventNotFound):
		monitoring.RecordPurchase("event_not_found", time.Since(started))
	default:
		monitoring.RecordPurchase("error", time.Since(started))
	}
	return ticket, err
}

func (s *PurchaseService) purchase(ctx context.Context, userID, eventID string) (*models.Ticket, error) {
	// step 1: duplicate check, cheap fast path before any side effect
	if _, err := s.ledger.FindTicket(ctx, userID, eventID); err == nil {
		return nil, status.ErrAlreadyPurchased
	} else if !errors.Is(err, status.ErrTicketNotFound) {
		return nil, err
	}

	// step 2: the event must exist
	event, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// steps 3-4: payload construction and the arbitrating insert
	ticket, err := s.ledger.InsertTicket(ctx, &models.Ticket{
		UserID:    userID,
		EventID:   eventID,
		QRPayload: s.artifacts.NewPayload(userID, eventID),
	})
	if err != nil {
		return nil, err
	}

	// step 5: artifact generation, degraded on failure
	s.generateArtifact(ctx, ticket, event, user)

	// step 6: fire-and-forget notification, detached from the request
	// lifetime so a slow push gateway cannot hold the response
	go func() {
		nctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		s.notifier.TicketReady(nctx, user, event, ticket)
	}()

	return ticket, nil
}

func (s *PurchaseService) generateArtifact(ctx context.Context, ticket *models.Ticket, event *models.Event, user *models.User) {
	started := time.Now()

	pdf, err := s.artifacts.Render(ticket, event, user)
	if err != nil {
		slog.Error("artifact render failed", "ticketID", ticket.ID, "error", err)
		return
	}

	url, err := s.artifacts.Store(ticket.ID, pdf)
	if err != nil {
		slog.Error("artifact store failed", "ticketID", ticket.ID, "error", err)
		return
	}

	if err := s.ledger.SetTicketArtifact(ctx, ticket.ID, url); err != nil {
		slog.Error("artifact reference save failed", "ticketID", ticket.ID, "error", err)
		return
	}

	ticket.PDFURL = url
	monitoring.ObserveArtifactGeneration(time.Since(started))
}
