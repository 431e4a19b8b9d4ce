// Package session keeps uploaded imports between the preview, mapping, test
// and commit requests.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/rpattn/memberimport/internal/spreadsheet"
	"github.com/rpattn/memberimport/pkg/mapping"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("import session not found")

// Session is a parsed upload plus the mapping the user is editing.
type Session struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organizationId"`
	Catalog        string          `json:"catalog"`
	FileName       string          `json:"fileName"`
	SheetName      string          `json:"sheetName"`
	SheetNames     []string        `json:"sheetNames"`
	Headers        []string        `json:"headers"`
	HeaderRowIndex int             `json:"headerRowIndex"`
	HeaderRowCount int             `json:"headerRowCount"`
	Values         [][]string      `json:"values"`
	Mapping        mapping.Mapping `json:"mapping"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// New captures sheet and the initial mapping under a fresh id.
func New(organizationID uuid.UUID, catalog string, sheet *spreadsheet.Sheet, m mapping.Mapping) *Session {
	values := make([][]string, len(sheet.Rows))
	for i, row := range sheet.Rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cell.Value
		}
		values[i] = cells
	}
	return &Session{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		Catalog:        catalog,
		FileName:       sheet.FileName,
		SheetName:      sheet.SheetName,
		SheetNames:     sheet.SheetNames,
		Headers:        sheet.Headers,
		HeaderRowIndex: sheet.HeaderRowIndex,
		HeaderRowCount: sheet.HeaderRowCount,
		Values:         values,
		Mapping:        m.Clone(),
		CreatedAt:      time.Now().UTC(),
	}
}

// Rows rebuilds header/value records.
func (s *Session) Rows() []mapping.Row {
	rows := make([]mapping.Row, len(s.Values))
	for i, values := range s.Values {
		rows[i] = mapping.NewRow(s.Headers, values)
	}
	return rows
}

// FirstDataRow is the 1-based spreadsheet row of the first data row.
func (s *Session) FirstDataRow() int {
	return s.HeaderRowIndex + s.HeaderRowCount
}

// Store persists sessions.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
