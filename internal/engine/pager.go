package engine

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/hgye/pagereader/internal/page"
)

// Pager owns the open database file and turns 1-based page numbers
// into decoded page.Page values. It holds no page cache: callers
// decode on demand and discard, per spec.md §5.
type Pager struct {
	file           *os.File
	pageSize       int
	config         *Config
	resourceMgr    *ResourceManager
	concurrencySem chan struct{} // bounds concurrent ReadPage calls, per the teacher's database_raw.go
}

// Open reads the 100-byte file header, validates page size, and
// returns a Pager ready to serve ReadPage calls.
func Open(path string, opts ...Option) (*Pager, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, Wrap("open_database_file", err, map[string]any{"path": path})
	}

	rm := NewResourceManager()
	rm.Add(f)

	header := make([]byte, 100)
	if _, err := f.ReadAt(header, 0); err != nil {
		rm.Close()
		return nil, Wrap("read_file_header", err, nil)
	}

	rawPageSize := binary.BigEndian.Uint16(header[16:18])
	pageSize := int(rawPageSize)
	if rawPageSize == 1 {
		pageSize = 65536
	}
	if pageSize < 512 || pageSize > 65536 || pageSize&(pageSize-1) != 0 {
		rm.Close()
		return nil, Wrap("validate_page_size", fmt.Errorf("invalid page size %d", pageSize), nil)
	}

	return &Pager{
		file:           f,
		pageSize:       pageSize,
		config:         cfg,
		resourceMgr:    rm,
		concurrencySem: make(chan struct{}, cfg.MaxConcurrency),
	}, nil
}

// PageSize returns the database's declared page size.
func (p *Pager) PageSize() int { return p.pageSize }

// MaxConcurrency returns the configured bound on concurrent page reads
// and row fetches, for callers (the query executor's index plan) that
// size their own worker pools off of it.
func (p *Pager) MaxConcurrency() int { return p.config.MaxConcurrency }

// Close releases the underlying file handle.
func (p *Pager) Close() error { return p.resourceMgr.Close() }

// ReadPage decodes the page numbered pageNum (1-based). Page 1's
// header is offset by the 100-byte file header; every other page's
// header starts at byte 0 of its region. Concurrent calls are bounded
// by the Pager's concurrency semaphore (teacher's database_raw.go
// ReadPage pattern), so callers may fan out freely.
func (p *Pager) ReadPage(ctx context.Context, pageNum uint32) (page.Page, error) {
	if pageNum == 0 {
		return page.Page{}, Wrap("read_page", page.ErrNegativePageIndex, map[string]any{"page_num": pageNum})
	}

	select {
	case p.concurrencySem <- struct{}{}:
		defer func() { <-p.concurrencySem }()
	case <-ctx.Done():
		return page.Page{}, Wrap("read_page", ctx.Err(), map[string]any{"page_num": pageNum})
	}

	offset := int64(pageNum-1) * int64(p.pageSize)
	headerOffset := 0
	if pageNum == 1 {
		headerOffset = 100
	}
	pg, err := page.Read(ctx, p.file, offset, headerOffset, p.pageSize)
	if err != nil {
		return page.Page{}, Wrap("read_page", err, map[string]any{"page_num": pageNum, "offset": offset})
	}
	return pg, nil
}
