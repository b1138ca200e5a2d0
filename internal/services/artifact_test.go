package services

import (
	"os"
	"strings"
	"testing"

	"eventpass/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArtifactFixtures() (*models.Ticket, *models.Event, *models.User) {
	ticket := &models.Ticket{
		ID:        "ticket-1",
		UserID:    "user-1",
		EventID:   "event-1",
		QRPayload: "user-1|event-1|1736000000000000000|nonce",
	}
	event := &models.Event{ID: "event-1", Name: "Concert", Date: "2025-01-01", Price: 20}
	user := &models.User{ID: "user-1", Username: "alice"}
	return ticket, event, user
}

func TestArtifactService_NewPayload(t *testing.T) {
	service := NewArtifactService(t.TempDir())

	first := service.NewPayload("user-1", "event-1")
	second := service.NewPayload("user-1", "event-1")

	assert.True(t, strings.HasPrefix(first, "user-1|event-1|"))
	// repeated attempts for the same pair never collide
	assert.NotEqual(t, first, second)
}

func TestArtifactService_Render(t *testing.T) {
	service := NewArtifactService(t.TempDir())
	ticket, event, user := testArtifactFixtures()

	pdf, err := service.Render(ticket, event, user)
	require.NoError(t, err)
	require.NotEmpty(t, pdf)

	content := string(pdf)
	assert.True(t, strings.HasPrefix(content, "%PDF"))
	assert.Contains(t, content, "Concert")
	assert.Contains(t, content, "2025-01-01")
	assert.Contains(t, content, "alice")
	assert.Contains(t, content, "ticket-1")
}

func TestArtifactService_RenderUsesDisplayName(t *testing.T) {
	service := NewArtifactService(t.TempDir())
	ticket, event, user := testArtifactFixtures()
	user.DisplayName = "Alice W."

	pdf, err := service.Render(ticket, event, user)
	require.NoError(t, err)
	assert.Contains(t, string(pdf), "Alice W.")
}

func TestArtifactService_StoreAndPath(t *testing.T) {
	dir := t.TempDir()
	service := NewArtifactService(dir)

	url, err := service.Store("ticket-1", []byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, "/api/tickets/pdf/ticket-1", url)

	data, err := os.ReadFile(service.Path("ticket-1"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))
}

func TestArtifactService_StoreCreatesDir(t *testing.T) {
	dir := t.TempDir() + "/nested/artifacts"
	service := NewArtifactService(dir)

	_, err := service.Store("ticket-1", []byte("x"))
	require.NoError(t, err)

	_, err = os.Stat(service.Path("ticket-1"))
	assert.NoError(t, err)
}
