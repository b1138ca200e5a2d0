// Package store adapts the embedded document store to the narrow
// interfaces the services consume. All uniqueness guarantees live in
// the collection indexes; this package only translates their
// violations into the sentinel errors of internal/status.
package store

import (
	"context"
	"database/sql"
	"errors"

	"eventpass/internal/status"
	"eventpass/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

type Store struct {
	app core.App
}

func New(app core.App) *Store {
	return &Store{app: app}
}

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, username, passwordHash, role string) (*models.User, error) {
	collection, err := s.app.FindCollectionByNameOrId("users")
	if err != nil {
		return nil, err
	}

	record := core.NewRecord(collection)
	record.Set("username", username)
	record.Set("password_hash", passwordHash)
	record.Set("role", role)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		// The unique username index is the arbiter; a lost race shows
		// up as a failed save with the winner already persisted.
		if _, ferr := s.FindUserByUsername(ctx, username); ferr == nil {
			return nil, status.ErrUsernameTaken
		}
		return nil, err
	}

	return userFromRecord(record), nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	record, err := s.app.FindRecordById("users", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrUserNotFound
		}
		return nil, err
	}
	return userFromRecord(record), nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"users",
		"username = {:username}",
		dbx.Params{"username": username},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrUserNotFound
		}
		return nil, err
	}
	return userFromRecord(record), nil
}

func (s *Store) SetUserPushToken(ctx context.Context, userID, pushToken string) error {
	record, err := s.app.FindRecordById("users", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrUserNotFound
		}
		return err
	}
	record.Set("push_token", pushToken)
	return s.app.SaveWithContext(ctx, record)
}

func (s *Store) SetUserPassword(ctx context.Context, userID, passwordHash string) error {
	record, err := s.app.FindRecordById("users", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrUserNotFound
		}
		return err
	}
	record.Set("password_hash", passwordHash)
	return s.app.SaveWithContext(ctx, record)
}

// ---- events ----

type eventRow struct {
	ID    string  `db:"id"`
	Name  string  `db:"name"`
	Date  string  `db:"date"`
	Price float64 `db:"price"`
}

func (s *Store) ListEvents(ctx context.Context) ([]*models.Event, error) {
	rows := []eventRow{}
	err := s.app.DB().
		Select("id", "name", "date", "price").
		From("events").
		OrderBy("created DESC").
		All(&rows)
	if err != nil {
		return nil, err
	}

	events := make([]*models.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, &models.Event{
			ID:    row.ID,
			Name:  row.Name,
			Date:  row.Date,
			Price: row.Price,
		})
	}
	return events, nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	record, err := s.app.FindRecordById("events", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrEventNotFound
		}
		return nil, err
	}
	return eventFromRecord(record), nil
}

func (s *Store) CreateEvent(ctx context.Context, ev *models.Event) (*models.Event, error) {
	collection, err := s.app.FindCollectionByNameOrId("events")
	if err != nil {
		return nil, err
	}

	record := core.NewRecord(collection)
	record.Set("name", ev.Name)
	record.Set("date", ev.Date)
	record.Set("price", ev.Price)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return nil, err
	}
	return eventFromRecord(record), nil
}

func (s *Store) UpdateEvent(ctx context.Context, id string, name, date *string, price *float64) (*models.Event, error) {
	record, err := s.app.FindRecordById("events", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrEventNotFound
		}
		return nil, err
	}

	if name != nil {
		record.Set("name", *name)
	}
	if date != nil {
		record.Set("date", *date)
	}
	if price != nil {
		record.Set("price", *price)
	}

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return nil, err
	}
	return eventFromRecord(record), nil
}

// DeleteEvent removes the event; its tickets go with it through the
// cascade on the tickets.event relation.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	record, err := s.app.FindRecordById("events", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrEventNotFound
		}
		return err
	}
	return s.app.Delete(record)
}

// ---- tickets ----

func (s *Store) FindTicket(ctx context.Context, userID, eventID string) (*models.Ticket, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"tickets",
		"user = {:user} && event = {:event}",
		dbx.Params{"user": userID, "event": eventID},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrTicketNotFound
		}
		return nil, err
	}
	return ticketFromRecord(record), nil
}

func (s *Store) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	record, err := s.app.FindRecordById("tickets", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrTicketNotFound
		}
		return nil, err
	}
	return ticketFromRecord(record), nil
}

// InsertTicket is the write that the purchase invariant hangs on. A
// failed save is re-validated against the ledger: if a ticket for the
// pair exists by then, some concurrent purchase won the index race.
func (s *Store) InsertTicket(ctx context.Context, t *models.Ticket) (*models.Ticket, error) {
	collection, err := s.app.FindCollectionByNameOrId("tickets")
	if err != nil {
		return nil, err
	}

	record := core.NewRecord(collection)
	record.Set("user", t.UserID)
	record.Set("event", t.EventID)
	record.Set("qr_payload", t.QRPayload)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		if _, ferr := s.FindTicket(ctx, t.UserID, t.EventID); ferr == nil {
			return nil, status.ErrAlreadyPurchased
		}
		return nil, err
	}

	return ticketFromRecord(record), nil
}

func (s *Store) SetTicketArtifact(ctx context.Context, ticketID, pdfURL string) error {
	record, err := s.app.FindRecordById("tickets", ticketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrTicketNotFound
		}
		return err
	}
	record.Set("pdf_url", pdfURL)
	return s.app.SaveWithContext(ctx, record)
}

type ticketRow struct {
	ID        string         `db:"id"`
	Created   types.DateTime `db:"created"`
	PDFURL    string         `db:"pdf_url"`
	QRPayload string         `db:"qr_payload"`
	EventName string         `db:"event_name"`
	EventDate string         `db:"event_date"`
}

// ListUserTickets joins tickets to their events. The inner join keeps
// tickets of vanished events out of the listing instead of surfacing
// rows with null event fields.
func (s *Store) ListUserTickets(ctx context.Context, userID string) ([]*models.TicketSummary, error) {
	rows := []ticketRow{}
	err := s.app.DB().
		Select(
			"t.id",
			"t.created",
			"t.pdf_url",
			"t.qr_payload",
			"e.name AS event_name",
			"e.date AS event_date",
		).
		From("tickets t").
		InnerJoin("events e", dbx.NewExp("e.id = t.event")).
		Where(dbx.HashExp{"t.user": userID}).
		OrderBy("t.created DESC").
		All(&rows)
	if err != nil {
		return nil, err
	}

	tickets := make([]*models.TicketSummary, 0, len(rows))
	for _, row := range rows {
		tickets = append(tickets, &models.TicketSummary{
			ID:        row.ID,
			EventName: row.EventName,
			EventDate: row.EventDate,
			CreatedAt: row.Created.Time(),
			PDFURL:    row.PDFURL,
			QRPayload: row.QRPayload,
		})
	}
	return tickets, nil
}

// ---- record mapping ----

func userFromRecord(record *core.Record) *models.User {
	return &models.User{
		ID:           record.Id,
		Username:     record.GetString("username"),
		DisplayName:  record.GetString("display_name"),
		Role:         record.GetString("role"),
		PasswordHash: record.GetString("password_hash"),
		PushToken:    record.GetString("push_token"),
		Created:      record.GetDateTime("created").Time(),
	}
}

func eventFromRecord(record *core.Record) *models.Event {
	return &models.Event{
		ID:    record.Id,
		Name:  record.GetString("name"),
		Date:  record.GetString("date"),
		Price: record.GetFloat("price"),
	}
}

func ticketFromRecord(record *core.Record) *models.Ticket {
	return &models.Ticket{
		ID:        record.Id,
		UserID:    record.GetString("user"),
		EventID:   record.GetString("event"),
		QRPayload: record.GetString("qr_payload"),
		PDFURL:    record.GetString("pdf_url"),
		CreatedAt: record.GetDateTime("created").Time(),
	}
}
