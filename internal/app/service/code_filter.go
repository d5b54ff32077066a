package service

import (
	"context"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/cloudflying87/qrgenerator/internal/app/repository"
	"go.uber.org/zap"
)

const (
	filterCapacity      = 1_000_000
	filterFalsePositive = 0.001
	reseedInterval      = 10 * time.Minute
)

// CodeFilter answers "could this short code exist?" without a database
// round-trip, so junk resolution traffic is turned away cheaply. False
// positives fall through to the repository; false negatives cannot happen
// for codes added since the last reseed.
type CodeFilter struct {
	mu     sync.RWMutex
	bloom  *bloom.BloomFilter
	repo   repository.QRCodeRepository
	logger *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewCodeFilter builds an empty filter over the given repository.
func NewCodeFilter(repo repository.QRCodeRepository, logger *zap.Logger) *CodeFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CodeFilter{
		bloom:    bloom.NewWithEstimates(filterCapacity, filterFalsePositive),
		repo:     repo,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Seed loads every allocated short code into the filter.
func (f *CodeFilter) Seed(ctx context.Context) error {
	codes, err := f.repo.ShortCodes(ctx)
	if err != nil {
		return err
	}

	fresh := bloom.NewWithEstimates(filterCapacity, filterFalsePositive)
	for _, code := range codes {
		fresh.AddString(code)
	}

	f.mu.Lock()
	f.bloom = fresh
	f.mu.Unlock()

	f.logger.Info("code filter seeded", zap.Int("codes", len(codes)))
	return nil
}

// Start begins periodic reseeding, which absorbs deletions and any drift.
func (f *CodeFilter) Start() {
	go f.run()
}

// Stop halts the reseed loop. Safe to call more than once.
func (f *CodeFilter) Stop() {
	f.stopOnce.Do(func() { close(f.stopChan) })
}

func (f *CodeFilter) run() {
	ticker := time.NewTicker(reseedInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := f.Seed(context.Background()); err != nil {
				f.logger.Error("failed to reseed code filter", zap.Error(err))
			}
		case <-f.stopChan:
			f.logger.Info("code filter reseed loop stopped")
			return
		}
	}
}

// Add records a freshly allocated short code.
func (f *CodeFilter) Add(code string) {
	f.mu.Lock()
	f.bloom.AddString(code)
	f.mu.Unlock()
}

// MightContain reports whether code could be allocated. A false return is
// definitive for codes created before the last Seed or via Add.
func (f *CodeFilter) MightContain(code string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.bloom.TestString(code)
}
