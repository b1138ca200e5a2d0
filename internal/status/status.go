package status

import "errors"

var (
	ErrAlreadyPurchased = errors.New("ticket: already purchased for this event")
	ErrEventNotFound    = errors.New("event: event not found")
	ErrTicketNotFound   = errors.New("ticket: ticket not found")
	ErrUserNotFound     = errors.New("user: user not found")
	ErrUsernameTaken    = errors.New("user: username already taken")
	ErrArtifactMissing  = errors.New("artifact: document not generated")
)
