package handlers

import (
	"errors"
	"net/http"
	"os"

	"eventpass/internal/services"
	"eventpass/internal/status"
	"eventpass/internal/store"
	"eventpass/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type TicketHandler struct {
	store     *store.Store
	purchases *services.PurchaseService
	artifacts *services.ArtifactService
}

func NewTicketHandler(store *store.Store, purchases *services.PurchaseService, artifacts *services.ArtifactService) *TicketHandler {
	return &TicketHandler{
		store:     store,
		purchases: purchases,
		artifacts: artifacts,
	}
}

func (h *TicketHandler) Buy(e *core.RequestEvent, user *models.User) error {
	var req struct {
		EventID string `json:"eventId"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventID == "" {
		return apis.NewBadRequestError("eventId is required", nil)
	}

	ticket, err := h.purchases.Purchase(e.Request.Context(), user.ID, req.EventID)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrAlreadyPurchased):
			return apis.NewBadRequestError("You already have a ticket for this event", err)
		case errors.Is(err, status.ErrEventNotFound):
			return apis.NewNotFoundError("Event not found", err)
		default:
			return apis.NewBadRequestError("Purchase failed", err)
		}
	}

	return e.JSON(http.StatusCreated, map[string]any{"ticket": ticket})
}

// PDF serves the stored proof-of-purchase document. Any valid
// credential may fetch any ticket's document; there is deliberately
// no ownership check on top (observed behavior, see DESIGN.md).
func (h *TicketHandler) PDF(e *core.RequestEvent, user *models.User) error {
	ticket, err := h.store.GetTicket(e.Request.Context(), e.Request.PathValue("ticketId"))
	if err != nil {
		return apis.NewNotFoundError("Ticket not found", err)
	}

	path := h.artifacts.Path(ticket.ID)
	if _, err := os.Stat(path); err != nil {
		return apis.NewNotFoundError("PDF not generated", status.ErrArtifactMissing)
	}

	e.Response.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(e.Response, e.Request, path)
	return nil
}

func (h *TicketHandler) My(e *core.RequestEvent, user *models.User) error {
	tickets, err := h.store.ListUserTickets(e.Request.Context(), user.ID)
	if err != nil {
		return apis.NewBadRequestError("Failed to list tickets", err)
	}
	return e.JSON(http.StatusOK, map[string]any{"tickets": tickets})
}
