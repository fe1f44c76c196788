// Package pager owns the database file handle and maps page numbers to
// in-memory page buffers. It lazily loads pages on miss and writes them back
// on flush; it never evicts, so reaching the cache bound is a fatal error.
package pager

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// ErrTableFull is returned (wrapped) when the cache bound is reached and no
// further page can be allocated.
var ErrTableFull = errors.New("pager: table full")

const (
	// PageSize is the fixed size, in bytes, of every page on disk and in cache.
	PageSize = 4096

	// MaxPages bounds the pager's cache. There is no eviction: once every
	// slot is populated, further allocation fails with ErrTableFull.
	MaxPages = 100
)

// Page is a single cached, fixed-size page buffer.
type Page struct {
	Data    [PageSize]byte
	PageNum uint32
	loaded  bool
}

// Pager is the bounded page cache over a random-access page file. Exactly one
// Pager exists per open table; it is not safe for concurrent use.
type Pager struct {
	file     *os.File
	pages    [MaxPages]*Page
	fileLen  int64
	numPages uint32
	log      *zap.SugaredLogger
}

// Open opens path for read/write, creating it if necessary, and measures its
// length. A file whose length is not a multiple of PageSize is corrupt and
// open fails fatally per the storage layer's no-recovery policy.
func Open(path string, log *zap.SugaredLogger) (*Pager, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		log.Errorw("pager: open failed", "path", path, "err", err)
		return nil, fmt.Errorf("pager: open %q: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		log.Errorw("pager: stat failed", "path", path, "err", err)
		return nil, fmt.Errorf("pager: stat %q: %w", path, err)
	}
	size := fi.Size()
	if size%PageSize != 0 {
		log.Errorw("pager: corrupt file length", "path", path, "size", size)
		return nil, fmt.Errorf("pager: file %q length %d is not a multiple of page size %d", path, size, PageSize)
	}
	p := &Pager{
		file:     f,
		fileLen:  size,
		numPages: uint32(size / PageSize),
		log:      log,
	}
	return p, nil
}

// NumPages reports the pager's current page-number high-water mark.
func (p *Pager) NumPages() uint32 { return p.numPages }

// Get returns a borrowed reference to the cached buffer for pageNum, loading
// it from disk on first touch. Reading a page number at or beyond the
// current high-water mark silently allocates it (the caller may be either
// reading an existing page or about to populate a freshly allocated one);
// Allocate should be preferred when the intent is strictly "give me a new
// page".
func (p *Pager) Get(pageNum uint32) (*Page, error) {
	if pageNum >= MaxPages {
		return nil, fmt.Errorf("pager: page %d exceeds cache bound %d (fatal)", pageNum, MaxPages)
	}
	if p.pages[pageNum] == nil {
		pg := &Page{PageNum: pageNum}
		offset := int64(pageNum) * PageSize
		if offset < p.fileLen {
			if _, err := p.file.ReadAt(pg.Data[:], offset); err != nil && err != io.EOF {
				p.log.Errorw("pager: read failed", "page", pageNum, "err", err)
				return nil, fmt.Errorf("pager: read page %d: %w (fatal)", pageNum, err)
			}
		}
		pg.loaded = true
		p.pages[pageNum] = pg
	}
	if pageNum >= p.numPages {
		p.numPages = pageNum + 1
	}
	return p.pages[pageNum], nil
}

// Allocate returns the next free page number. The caller is responsible for
// populating the buffer via Get and initializing it as a node.
func (p *Pager) Allocate() (uint32, error) {
	if p.numPages >= MaxPages {
		return 0, fmt.Errorf("%w: no pages left under cache bound %d", ErrTableFull, MaxPages)
	}
	return p.numPages, nil
}

// Flush writes pageNum's cached buffer back to disk at its page-aligned
// offset. Flushing an empty slot is a fatal usage error.
func (p *Pager) Flush(pageNum uint32) error {
	if pageNum >= MaxPages || p.pages[pageNum] == nil {
		return fmt.Errorf("pager: flush of unpopulated page %d (fatal)", pageNum)
	}
	pg := p.pages[pageNum]
	offset := int64(pageNum) * PageSize
	n, err := p.file.WriteAt(pg.Data[:], offset)
	if err != nil {
		p.log.Errorw("pager: write failed", "page", pageNum, "err", err)
		return fmt.Errorf("pager: write page %d: %w (fatal)", pageNum, err)
	}
	if n != PageSize {
		p.log.Errorw("pager: partial write", "page", pageNum, "wrote", n)
		return fmt.Errorf("pager: partial write of page %d: wrote %d of %d bytes (fatal)", pageNum, n, PageSize)
	}
	if offset+PageSize > p.fileLen {
		p.fileLen = offset + PageSize
	}
	return nil
}

// Close flushes every populated slot, then closes the underlying file. Any
// error along the way is fatal: the storage layer has no recovery path for
// I/O failures.
func (p *Pager) Close() error {
	for i := uint32(0); i < MaxPages; i++ {
		if p.pages[i] != nil {
			if err := p.Flush(i); err != nil {
				return err
			}
		}
	}
	if err := p.file.Close(); err != nil {
		p.log.Errorw("pager: close failed", "err", err)
		return fmt.Errorf("pager: close: %w (fatal)", err)
	}
	return nil
}
