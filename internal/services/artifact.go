package services

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"eventpass/models"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
)

const qrImageSize = 256 // px, square

// ArtifactService renders the proof-of-purchase document: a PDF with
// the purchase details and an embedded QR image of the ticket payload.
type ArtifactService struct {
	dir string
}

func NewArtifactService(dir string) *ArtifactService {
	return &ArtifactService{dir: dir}
}

// NewPayload builds the QR payload for a purchase attempt. The
// timestamp and nonce keep payloads distinct across repeated attempts
// for the same (user, event) pair.
func (s *ArtifactService) NewPayload(userID, eventID string) string {
	return fmt.Sprintf("%s|%s|%d|%s", userID, eventID, time.Now().UnixNano(), uuid.NewString())
}

// Render produces the PDF bytes for a ticket. Output is not required
// to be byte-stable across calls for the same ticket.
func (s *ArtifactService) Render(ticket *models.Ticket, event *models.Event, user *models.User) ([]byte, error) {
	qrPNG, err := qrcode.Encode(ticket.QRPayload, qrcode.Medium, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr payload: %w", err)
	}

	price := decimal.NewFromFloat(event.Price)

	pdf := fpdf.New("P", "mm", "A4", "")
	// uncompressed streams so the proof of purchase stays greppable
	pdf.SetCompression(false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, fmt.Sprintf("Ticket for %s", event.Name), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Date: %s", event.Date), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Price: %s", price.StringFixed(2)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Holder: %s", user.Name()), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Ticket ID: %s", ticket.ID), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 15, pdf.GetY(), 60, 60, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render ticket pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Store persists the rendered document and returns the URL the client
// retrieves it from.
func (s *ArtifactService) Store(ticketID string, pdf []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(s.Path(ticketID), pdf, 0o644); err != nil {
		return "", fmt.Errorf("write ticket pdf: %w", err)
	}
	return fmt.Sprintf("/api/tickets/pdf/%s", ticketID), nil
}

// Path returns where the document for a ticket lives on disk.
func (s *ArtifactService) Path(ticketID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("ticket_%s.pdf", ticketID))
}
