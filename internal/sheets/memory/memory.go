// Package memory is an in-process exporter used by tests and local runs
// without spreadsheet credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"moneysaver/internal/core"
	ports "moneysaver/internal/sheets"
)

var _ ports.Exporter = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	base   string
	sheets map[string][][]any
}

func New(base string) *Store {
	if base == "" {
		base = "Transactions"
	}
	return &Store{base: base, sheets: map[string][][]any{}}
}

// Export appends the transaction row and returns a synthetic row reference.
func (s *Store) Export(_ context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		return "", fmt.Errorf("transaction without id")
	}
	sheet := ports.SheetFor(s.base, tx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sheets[sheet]) == 0 {
		s.sheets[sheet] = append(s.sheets[sheet], ports.Header)
	}
	s.sheets[sheet] = append(s.sheets[sheet], ports.Row(tx))
	return fmt.Sprintf("mem:%s!%d", sheet, len(s.sheets[sheet])), nil
}

func (s *Store) Exported(_ context.Context, tx core.Transaction) (bool, error) {
	sheet := ports.SheetFor(s.base, tx)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.sheets[sheet] {
		if row[ports.IDColumn] == tx.ID {
			return true, nil
		}
	}
	return false, nil
}

// Rows returns a copy of the data rows of a sheet, header excluded.
func (s *Store) Rows(sheet string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.sheets[sheet]
	if len(rows) <= 1 {
		return nil
	}
	return append([][]any(nil), rows[1:]...)
}
