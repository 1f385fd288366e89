// Package report renders game summaries and question lists as documents.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/uberfrank/bierephilo/internal/game"
)

// Labels are the translated strings printed on the summary.
type Labels struct {
	Title              string
	Mode               string
	TotalRounds        string
	QuestionsExplored  string
	QuestionsRemaining string
	LastRound          string
	EmptyRound         string
	QuestionNumber     string
}

// SummaryData is everything the completion report shows.
type SummaryData struct {
	SessionID string
	Date      time.Time
	ModeName  string
	Stats     game.Stats
	Round     []game.Question
	Labels    Labels
}

// GenerateSummaryPDF renders a one-page session summary.
func GenerateSummaryPDF(data SummaryData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("") // cp1252 covers French accents
	pdf.SetTitle(data.Labels.Title, true)
	pdf.SetCreationDate(data.Date)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 14, tr(data.Labels.Title), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s: %s | %s", data.Labels.Mode, data.ModeName, data.Date.Format("2006-01-02"))),
		"", 1, "C", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetFillColor(250, 235, 190)
	rows := []struct {
		label string
		value int
	}{
		{data.Labels.TotalRounds, data.Stats.TotalRounds},
		{data.Labels.QuestionsExplored, data.Stats.QuestionsExplored},
		{data.Labels.QuestionsRemaining, data.Stats.QuestionsRemaining},
	}
	for _, row := range rows {
		pdf.CellFormat(120, 8, tr(row.label), "1", 0, "L", true, 0, "")
		pdf.CellFormat(50, 8, fmt.Sprintf("%d", row.value), "1", 1, "C", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 9, tr(data.Labels.LastRound), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	if len(data.Round) == 0 {
		pdf.MultiCell(0, 6, tr(data.Labels.EmptyRound), "", "L", false)
	}
	for _, q := range data.Round {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("%s%d", data.Labels.QuestionNumber, q.ID)), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(q.Text), "", "L", false)
		if len(q.Tags) > 0 {
			pdf.SetTextColor(110, 110, 110)
			pdf.MultiCell(0, 5, tr(strings.Join(q.Tags, "  ")), "", "L", false)
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Ln(2)
	}

	if data.SessionID != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 5, "Session: "+data.SessionID, "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render summary pdf: %w", err)
	}
	return buf.Bytes(), nil
}
