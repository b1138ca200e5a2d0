package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"eventpass/internal/status"
	"eventpass/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	mu      sync.Mutex
	tickets map[string]*models.Ticket // keyed by user|event
	nextID  int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{tickets: map[string]*models.Ticket{}}
}

func (l *fakeLedger) key(userID, eventID string) string {
	return userID + "|" + eventID
}

func (l *fakeLedger) FindTicket(ctx context.Context, userID, eventID string) (*models.Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.tickets[l.key(userID, eventID)]; ok {
		copy := *t
		return &copy, nil
	}
	return nil, status.ErrTicketNotFound
}

func (l *fakeLedger) InsertTicket(ctx context.Context, t *models.Ticket) (*models.Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := l.key(t.UserID, t.EventID)
	if _, ok := l.tickets[key]; ok {
		return nil, status.ErrAlreadyPurchased
	}
	l.nextID++
	stored := *t
	stored.ID = fmt.Sprintf("ticket-%d", l.nextID)
	stored.CreatedAt = time.Now()
	l.tickets[key] = &stored
	copy := stored
	return &copy, nil
}

func (l *fakeLedger) SetTicketArtifact(ctx context.Context, ticketID, pdfURL string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.tickets {
		if t.ID == ticketID {
			t.PDFURL = pdfURL
			return nil
		}
	}
	return status.ErrTicketNotFound
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tickets)
}

type fakeCatalog struct {
	events map[string]*models.Event
}

func (c *fakeCatalog) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	if ev, ok := c.events[id]; ok {
		return ev, nil
	}
	return nil, status.ErrEventNotFound
}

type fakeDirectory struct {
	users map[string]*models.User
}

func (d *fakeDirectory) GetUser(ctx context.Context, id string) (*models.User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, status.ErrUserNotFound
}

type fakeArtifacts struct {
	mu        sync.Mutex
	renderErr error
	storeErr  error
	payloadN  int
}

func (a *fakeArtifacts) NewPayload(userID, eventID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.payloadN++
	return fmt.Sprintf("%s|%s|%d", userID, eventID, a.payloadN)
}

func (a *fakeArtifacts) Render(t *models.Ticket, ev *models.Event, u *models.User) ([]byte, error) {
	if a.renderErr != nil {
		return nil, a.renderErr
	}
	return []byte("%PDF-fake"), nil
}

func (a *fakeArtifacts) Store(ticketID string, pdf []byte) (string, error) {
	if a.storeErr != nil {
		return "", a.storeErr
	}
	return "/api/tickets/pdf/" + ticketID, nil
}

type fakeNotifier struct {
	calls chan string // ticket IDs
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{calls: make(chan string, 16)}
}

func (n *fakeNotifier) TicketReady(ctx context.Context, u *models.User, ev *models.Event, t *models.Ticket) {
	n.calls <- t.ID
}

func setupPurchaseService() (*PurchaseService, *fakeLedger, *fakeArtifacts, *fakeNotifier) {
	ledger := newFakeLedger()
	catalog := &fakeCatalog{events: map[string]*models.Event{
		"event-1": {ID: "event-1", Name: "Concert", Date: "2025-01-01", Price: 20},
	}}
	directory := &fakeDirectory{users: map[string]*models.User{
		"user-1": {ID: "user-1", Username: "alice", Role: models.RoleUser, PushToken: "ExponentPushToken[x]"},
		"user-2": {ID: "user-2", Username: "bob", Role: models.RoleUser},
	}}
	artifacts := &fakeArtifacts{}
	notifier := newFakeNotifier()

	return NewPurchaseService(ledger, catalog, directory, artifacts, notifier), ledger, artifacts, notifier
}

func TestPurchase_Success(t *testing.T) {
	service, ledger, _, notifier := setupPurchaseService()
	ctx := context.Background()

	ticket, err := service.Purchase(ctx, "user-1", "event-1")
	require.NoError(t, err)
	require.NotNil(t, ticket)

	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, "user-1", ticket.UserID)
	assert.Equal(t, "event-1", ticket.EventID)
	assert.NotEmpty(t, ticket.QRPayload)
	assert.Equal(t, "/api/tickets/pdf/"+ticket.ID, ticket.PDFURL)
	assert.Equal(t, 1, ledger.count())

	select {
	case id := <-notifier.calls:
		assert.Equal(t, ticket.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was never sent")
	}
}

func TestPurchase_EventNotFound(t *testing.T) {
	service, ledger, _, _ := setupPurchaseService()

	ticket, err := service.Purchase(context.Background(), "user-1", "missing-event")
	assert.ErrorIs(t, err, status.ErrEventNotFound)
	assert.Nil(t, ticket)
	assert.Equal(t, 0, ledger.count())
}

func TestPurchase_Duplicate(t *testing.T) {
	service, ledger, _, _ := setupPurchaseService()
	ctx := context.Background()

	first, err := service.Purchase(ctx, "user-1", "event-1")
	require.NoError(t, err)

	second, err := service.Purchase(ctx, "user-1", "event-1")
	assert.ErrorIs(t, err, status.ErrAlreadyPurchased)
	assert.Nil(t, second)

	// The ledger still holds exactly the first ticket
	assert.Equal(t, 1, ledger.count())
	stored, err := ledger.FindTicket(ctx, "user-1", "event-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
}

func TestPurchase_DistinctUsersMayBuySameEvent(t *testing.T) {
	service, ledger, _, _ := setupPurchaseService()
	ctx := context.Background()

	_, err := service.Purchase(ctx, "user-1", "event-1")
	require.NoError(t, err)
	_, err = service.Purchase(ctx, "user-2", "event-1")
	require.NoError(t, err)

	assert.Equal(t, 2, ledger.count())
}

func TestPurchase_ConcurrentSamePair(t *testing.T) {
	service, ledger, _, _ := setupPurchaseService()
	ctx := context.Background()

	const n = 16
	errs := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Purchase(ctx, "user-1", "event-1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes, duplicates := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, status.ErrAlreadyPurchased):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, duplicates)
	assert.Equal(t, 1, ledger.count())
}

func TestPurchase_ArtifactFailureDegrades(t *testing.T) {
	service, ledger, artifacts, _ := setupPurchaseService()
	artifacts.renderErr = errors.New("render exploded")

	ticket, err := service.Purchase(context.Background(), "user-1", "event-1")
	require.NoError(t, err)
	require.NotNil(t, ticket)

	// The ticket survives without a retrievable artifact
	assert.Empty(t, ticket.PDFURL)
	assert.Equal(t, 1, ledger.count())
}

func TestPurchase_ArtifactStoreFailureDegrades(t *testing.T) {
	service, _, artifacts, _ := setupPurchaseService()
	artifacts.storeErr = errors.New("disk full")

	ticket, err := service.Purchase(context.Background(), "user-1", "event-1")
	require.NoError(t, err)
	assert.Empty(t, ticket.PDFURL)
}

func TestPurchase_PayloadsDifferAcrossAttempts(t *testing.T) {
	service, _, _, _ := setupPurchaseService()
	ctx := context.Background()

	first, err := service.Purchase(ctx, "user-1", "event-1")
	require.NoError(t, err)
	second, err := service.Purchase(ctx, "user-2", "event-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.QRPayload, second.QRPayload)
}
