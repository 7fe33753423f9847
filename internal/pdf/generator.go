package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/healthmode"
	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

const disclaimer = "Swasth AI provides general health information and is not a substitute for professional medical advice. In an emergency call 108."

// PDFGenerator renders conversation transcripts
type PDFGenerator struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewPDFGenerator creates a new PDFGenerator
func NewPDFGenerator(logger *zap.Logger) *PDFGenerator {
	return &PDFGenerator{
		logger: logger,
		now:    time.Now,
	}
}

// TranscriptData contains everything rendered into a transcript
type TranscriptData struct {
	UserName     string
	Conversation model.Conversation
	Messages     []model.Message
	Language     model.Language
}

// Generate creates a PDF transcript of a conversation
func (g *PDFGenerator) Generate(data *TranscriptData) ([]byte, error) {
	g.logger.Info("generating transcript PDF",
		zap.String("conversation_id", data.Conversation.ID),
		zap.Int("message_count", len(data.Messages)),
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	g.addTitle(pdf, tr, data)
	g.addMessages(pdf, tr, data.Messages, data.Language)
	g.addDisclaimer(pdf, tr)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("transcript PDF generated",
		zap.String("conversation_id", data.Conversation.ID),
		zap.Int("size_bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

func (g *PDFGenerator) addTitle(pdf *gofpdf.Fpdf, tr func(string) string, data *TranscriptData) {
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, "Swasth AI Conversation", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, tr("Title: "+data.Conversation.Title), "", 1, "L", false, 0, "")
	if data.UserName != "" {
		pdf.CellFormat(0, 8, tr("User: "+data.UserName), "", 1, "L", false, 0, "")
	}
	if data.Conversation.CreatedAt != nil {
		pdf.CellFormat(0, 8, "Started: "+data.Conversation.CreatedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 8, fmt.Sprintf("Messages: %d", len(data.Messages)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, "Generated: "+g.now().Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(8)
}

func (g *PDFGenerator) addMessages(pdf *gofpdf.Fpdf, tr func(string) string, msgs []model.Message, lang model.Language) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 10, "Transcript", "", 1, "L", true, 0, "")
	pdf.Ln(3)

	if len(msgs) == 0 {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 8, "This conversation has no messages.", "", 1, "L", false, 0, "")
		return
	}

	for _, m := range msgs {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, tr(speakerLine(m, lang)), "", 1, "L", false, 0, "")

		pdf.SetFont("Arial", "", 10)
		if m.Content != "" {
			pdf.MultiCell(0, 5, tr(m.Content), "", "L", false)
		}
		if m.ImageURL != nil && *m.ImageURL != "" {
			pdf.SetFont("Arial", "I", 9)
			pdf.MultiCell(0, 5, tr("Image: "+imageReference(*m.ImageURL)), "", "L", false)
		}
		pdf.Ln(3)
	}
}

func (g *PDFGenerator) addDisclaimer(pdf *gofpdf.Fpdf, tr func(string) string) {
	pdf.Ln(5)
	pdf.SetFont("Arial", "I", 8)
	pdf.MultiCell(0, 4, tr(disclaimer), "T", "L", false)
}

// speakerLine labels a message with its sender, time and mode
func speakerLine(m model.Message, lang model.Language) string {
	speaker := "You"
	if m.Role == model.MessageRoleAssistant {
		speaker = "Swasth AI"
	}
	line := fmt.Sprintf("%s - %s", speaker, m.Timestamp.Format("2006-01-02 15:04"))
	if m.HealthMode != "" && healthmode.IsValid(healthmode.ID(m.HealthMode)) {
		mode := healthmode.Get(healthmode.ID(m.HealthMode))
		name := mode.Name
		if lang == model.LanguageHindi {
			name = mode.NameHindi
		}
		line += " (" + name + ")"
	}
	return line
}

// imageReference keeps inline data URLs out of the document
func imageReference(url string) string {
	if len(url) > 5 && url[:5] == "data:" {
		return "generated inline image"
	}
	return url
}
