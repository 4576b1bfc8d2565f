// Package export renders transactions as CSV or JSON downloads.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
)

const dateLayout = "01/02/2006"

var csvHeader = []string{"Date", "Description", "Account", "Type", "Amount"}

// ParseFormat accepts csv or json, case-insensitively. An empty string
// selects csv.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", CSV:
		return CSV, nil
	case JSON:
		return JSON, nil
	}
	return "", fmt.Errorf("%w: unsupported export format %q", domain.ErrValidation, s)
}

// Filename is the download name for an export made at the given time.
func Filename(f Format, at time.Time) string {
	return fmt.Sprintf("transactions_%s.%s", at.UTC().Format("2006-01-02"), f)
}

// ContentType is the MIME type of the format.
func ContentType(f Format) string {
	if f == JSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Write renders txs in format f.
func Write(w io.Writer, f Format, txs []*domain.Transaction) error {
	if f == JSON {
		return WriteJSON(w, txs)
	}
	return WriteCSV(w, txs)
}

// WriteCSV writes a header and one record per transaction. Records are
// newline-separated with no trailing newline.
func WriteCSV(w io.Writer, txs []*domain.Transaction) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, tx := range txs {
		record := []string{
			tx.Date.UTC().Format(dateLayout),
			tx.Description,
			tx.Kind.Label(),
			tx.Direction.Label(),
			tx.Amount.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	_, err := w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return err
}

// Row is the JSON form of an exported transaction.
type Row struct {
	ID          uuid.UUID       `json:"id"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Account     string          `json:"account"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category,omitempty"`
	Status      string          `json:"status"`
}

// WriteJSON writes an indented JSON array. No transactions yield [].
func WriteJSON(w io.Writer, txs []*domain.Transaction) error {
	rows := make([]Row, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, Row{
			ID:          tx.ID,
			Date:        tx.Date.UTC().Format(dateLayout),
			Description: tx.Description,
			Account:     tx.Kind.Label(),
			Type:        tx.Direction.Label(),
			Amount:      tx.Amount,
			Category:    tx.Category,
			Status:      tx.Status,
		})
	}
	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
