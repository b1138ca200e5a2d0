package models

import (
	"time"
)

// Ticket is the buy response shape. Its keys follow the same
// camelCase contract as TicketSummary; the mobile client consumes
// both.
type Ticket struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	EventID   string    `json:"eventId"`
	QRPayload string    `json:"qrCode"`
	PDFURL    string    `json:"pdfUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TicketSummary is the shape of a row in the "my tickets" listing.
// Field names follow what the mobile client already consumes.
type TicketSummary struct {
	ID        string    `json:"id"`
	EventName string    `json:"eventName"`
	EventDate string    `json:"eventDate"`
	CreatedAt time.Time `json:"createdAt"`
	PDFURL    string    `json:"pdfUrl,omitempty"`
	QRPayload string    `json:"qrCode,omitempty"`
}
