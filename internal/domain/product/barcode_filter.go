package product

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	filterCapacity = 100_000
	filterFPR      = 0.001
)

// BarcodeFilter is a bloom-filter prefilter over known barcodes. Scan guns
// read plenty of barcodes the catalog has never seen; a definite miss here
// skips the database round trip entirely. A positive answer may be a false
// positive, so callers still hit the repository.
type BarcodeFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewBarcodeFilter builds the filter from every active barcode in the catalog.
func NewBarcodeFilter(ctx context.Context, repo Repository) (*BarcodeFilter, error) {
	f := &BarcodeFilter{
		filter: bloom.NewWithEstimates(filterCapacity, filterFPR),
	}
	products, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.Barcode != "" {
			f.filter.AddString(p.Barcode)
		}
	}
	return f, nil
}

// MayContain reports whether barcode could be in the catalog. False means
// definitely absent.
func (f *BarcodeFilter) MayContain(barcode string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(barcode)
}

// Add records a newly registered barcode so later scans pass the prefilter
// without a rebuild.
func (f *BarcodeFilter) Add(barcode string) {
	if barcode == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(barcode)
}
