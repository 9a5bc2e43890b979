// Package paginate splits select results into numbered pages. Each page is
// fetched with its total row count in one round trip through
// db.Adapter.Paginate.
package paginate

import (
	"context"
	"fmt"

	"github.com/syssam/tablegate"
	"github.com/syssam/tablegate/db"
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 50

// Page is one page of a paginated select.
type Page struct {
	Rows []map[string]any
	// Number is 1-based.
	Number int
	Size   int
	// Total is the row count of the select without its limit. It is 0 for
	// a page past the last row.
	Total int64
}

// PageCount returns the number of pages holding Total rows.
func (p *Page) PageCount() int {
	if p.Total == 0 {
		return 0
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}

// HasNext reports whether a later page exists.
func (p *Page) HasNext() bool { return p.Number < p.PageCount() }

// HasPrevious reports whether an earlier page exists.
func (p *Page) HasPrevious() bool { return p.Number > 1 }

// Offset returns the 0-based position of the first row of the page.
func (p *Page) Offset() int { return (p.Number - 1) * p.Size }

// Paginator fetches pages of selects built on one adapter.
type Paginator struct {
	adapter *db.Adapter
	size    int
}

// Option configures a Paginator.
type Option func(*Paginator)

// WithPageSize sets the page size.
func WithPageSize(n int) Option {
	return func(p *Paginator) {
		p.size = n
	}
}

// New returns a Paginator over a.
func New(a *db.Adapter, opts ...Option) *Paginator {
	p := &Paginator{adapter: a, size: DefaultPageSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PageSize returns the configured page size.
func (p *Paginator) PageSize() int { return p.size }

// Fetch limits sel to the given 1-based page and runs it. The limit of sel
// is replaced.
func (p *Paginator) Fetch(ctx context.Context, sel *db.Select, page int) (*Page, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page %d", tablegate.ErrInvalidLimit, page)
	}
	if p.size < 1 {
		return nil, fmt.Errorf("%w: page size %d", tablegate.ErrInvalidLimit, p.size)
	}
	rows, total, err := p.adapter.Paginate(sel.LimitPage(page, p.size)).Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return &Page{Rows: rows, Number: page, Size: p.size, Total: total}, nil
}
