package handlers

import (
	"errors"
	"net/http"
	"strings"

	"eventpass/internal/status"
	"eventpass/internal/store"
	"eventpass/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

type EventHandler struct {
	store *store.Store
}

func NewEventHandler(store *store.Store) *EventHandler {
	return &EventHandler{store: store}
}

// List is public: the client shows the catalog before login.
func (h *EventHandler) List(e *core.RequestEvent) error {
	events, err := h.store.ListEvents(e.Request.Context())
	if err != nil {
		return apis.NewBadRequestError("Failed to list events", err)
	}
	return e.JSON(http.StatusOK, map[string]any{"events": events})
}

// Create accepts any valid credential while delete/update require the
// admin role. The asymmetry is observed behavior, kept deliberately
// (see DESIGN.md).
func (h *EventHandler) Create(e *core.RequestEvent, user *models.User) error {
	var req struct {
		Name  string          `json:"name"`
		Date  string          `json:"date"`
		Price decimal.Decimal `json:"price"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Date == "" {
		return apis.NewBadRequestError("Name and date are required", nil)
	}
	if req.Price.IsNegative() {
		return apis.NewBadRequestError("Price must not be negative", nil)
	}

	event, err := h.store.CreateEvent(e.Request.Context(), &models.Event{
		Name:  req.Name,
		Date:  req.Date,
		Price: req.Price.InexactFloat64(),
	})
	if err != nil {
		return apis.NewBadRequestError("Failed to create event", err)
	}

	return e.JSON(http.StatusCreated, map[string]any{"event": event})
}

func (h *EventHandler) Update(e *core.RequestEvent, user *models.User) error {
	if user.Role != models.RoleAdmin {
		return apis.NewForbiddenError("Access denied", nil)
	}

	var req struct {
		Name  *string          `json:"name"`
		Date  *string          `json:"date"`
		Price *decimal.Decimal `json:"price"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	var price *float64
	if req.Price != nil {
		if req.Price.IsNegative() {
			return apis.NewBadRequestError("Price must not be negative", nil)
		}
		v := req.Price.InexactFloat64()
		price = &v
	}

	event, err := h.store.UpdateEvent(e.Request.Context(), e.Request.PathValue("id"), req.Name, req.Date, price)
	if err != nil {
		if errors.Is(err, status.ErrEventNotFound) {
			return apis.NewNotFoundError("Event not found", err)
		}
		return apis.NewBadRequestError("Failed to update event", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"event": event})
}

// Delete removes an event; the store cascades into its tickets so no
// dangling references survive.
func (h *EventHandler) Delete(e *core.RequestEvent, user *models.User) error {
	if user.Role != models.RoleAdmin {
		return apis.NewForbiddenError("Access denied", nil)
	}

	if err := h.store.DeleteEvent(e.Request.Context(), e.Request.PathValue("id")); err != nil {
		if errors.Is(err, status.ErrEventNotFound) {
			return apis.NewNotFoundError("Event not found", err)
		}
		return apis.NewBadRequestError("Failed to delete event", err)
	}

	return e.JSON(http.StatusOK, map[string]string{"message": "Event deleted"})
}
