package memory

import (
	"context"
	"sync"

	domain "github.com/lumimart/checkout/internal/domain/cart"
)

// CartReader is the in-process cart boundary used by tests and the demo
// wiring. Only lines marked selected are visible to order creation.
type CartReader struct {
	mu    sync.RWMutex
	lines map[int64][]selectedLine
}

type selectedLine struct {
	line     domain.Line
	selected bool
}

func NewCartReader() *CartReader {
	return &CartReader{
		lines: make(map[int64][]selectedLine),
	}
}

// SetLine adds or replaces a user's cart line and its selection flag.
func (r *CartReader) SetLine(userID int64, line domain.Line, selected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.lines[userID] {
		if r.lines[userID][i].line.ProductID == line.ProductID {
			r.lines[userID][i] = selectedLine{line: line, selected: selected}
			return
		}
	}
	r.lines[userID] = append(r.lines[userID], selectedLine{line: line, selected: selected})
}

// Clear empties a user's cart.
func (r *CartReader) Clear(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lines, userID)
}

func (r *CartReader) ReadSelectedLines(ctx context.Context, userID int64) ([]domain.Line, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Line
	for _, sl := range r.lines[userID] {
		if sl.selected {
			out = append(out, sl.line)
		}
	}
	return out, nil
}
