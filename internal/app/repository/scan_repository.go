package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudflying87/qrgenerator/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Window bounds analytics queries on observed_at. Nil endpoints mean
// unbounded; the zero Window covers the full history.
type Window struct {
	From *time.Time
	To   *time.Time
}

// Bucket is one label of a breakdown (device type, browser, OS).
type Bucket struct {
	Label string `gorm:"column:label"`
	Count int64  `gorm:"column:count"`
}

// TimeBucket is one day of the scan timeline. Day is the DATE() text form
// (YYYY-MM-DD), which both Postgres and SQLite produce.
type TimeBucket struct {
	Day   string `gorm:"column:day"`
	Count int64  `gorm:"column:count"`
}

// ScanRepository owns the scan log and the cached counters derived from it.
type ScanRepository interface {
	// RecordScan appends one event and reconciles the cached counters in a
	// single transaction. It reports whether the event's visitor was new to
	// this code. A failed transaction leaves no partial state behind.
	RecordScan(ctx context.Context, event *model.ScanEvent) (firstVisit bool, err error)

	CountEvents(ctx context.Context, codeID uint, w Window) (int64, error)
	DistinctVisitors(ctx context.Context, codeID uint, w Window) (int64, error)
	DeviceBreakdown(ctx context.Context, codeID uint, w Window) ([]Bucket, error)
	BrowserBreakdown(ctx context.Context, codeID uint, w Window) ([]Bucket, error)
	OSBreakdown(ctx context.Context, codeID uint, w Window) ([]Bucket, error)
	DailyCounts(ctx context.Context, codeID uint, w Window) ([]TimeBucket, error)
	RecentScans(ctx context.Context, codeID uint, limit int) ([]model.ScanEvent, error)
}

type scanRepository struct {
	db *gorm.DB
}

// NewScanRepository returns a GORM-backed ScanRepository.
func NewScanRepository(db *gorm.DB) ScanRepository {
	return &scanRepository{db: db}
}

func (r *scanRepository) RecordScan(ctx context.Context, event *model.ScanEvent) (bool, error) {
	firstVisit := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("insert scan event: %w", err)
		}

		// The unique (code_id, visitor_id) pair decides first-visit
		// atomically: exactly one concurrent transaction wins the insert.
		visitor := model.CodeVisitor{CodeID: event.CodeID, VisitorID: event.VisitorID}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&visitor)
		if res.Error != nil {
			return fmt.Errorf("upsert code visitor: %w", res.Error)
		}
		firstVisit = res.RowsAffected == 1

		uniqueDelta := 0
		if firstVisit {
			uniqueDelta = 1
		}

		// Counter arithmetic stays on the SQL side so concurrent commits
		// never under-count.
		res = tx.Model(&model.QRCode{}).
			Where("id = ?", event.CodeID).
			Updates(map[string]interface{}{
				"total_scans":     gorm.Expr("total_scans + 1"),
				"unique_scans":    gorm.Expr("unique_scans + ?", uniqueDelta),
				"last_scanned_at": event.ObservedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("bump scan counters: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrCodeNotFound
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return firstVisit, nil
}

func (r *scanRepository) windowed(ctx context.Context, codeID uint, w Window) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.ScanEvent{}).Where("code_id = ?", codeID)
	if w.From != nil {
		q = q.Where("observed_at >= ?", *w.From)
	}
	if w.To != nil {
		q = q.Where("observed_at < ?", *w.To)
	}
	return q
}

func (r *scanRepository) CountEvents(ctx context.Context, codeID uint, w Window) (int64, error) {
	var n int64
	if err := r.windowed(ctx, codeID, w).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *scanRepository) DistinctVisitors(ctx context.Context, codeID uint, w Window) (int64, error) {
	var n int64
	if err := r.windowed(ctx, codeID, w).Distinct("visitor_id").Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *scanRepository) breakdown(ctx context.Context, codeID uint, w Window, column string) ([]Bucket, error) {
	var out []Bucket
	err := r.windowed(ctx, codeID, w).
		Select(column + " AS label, COUNT(*) AS count").
		Group(column).
		Order("count DESC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *scanRepository) DeviceBreakdown(ctx context.Context, codeID uint, w Window) ([]Bucket, error) {
	return r.breakdown(ctx, codeID, w, "device_type")
}

func (r *scanRepository) BrowserBreakdown(ctx context.Context, codeID uint, w Window) ([]Bucket, error) {
	return r.breakdown(ctx, codeID, w, "browser")
}

func (r *scanRepository) OSBreakdown(ctx context.Context, codeID uint, w Window) ([]Bucket, error) {
	return r.breakdown(ctx, codeID, w, "os")
}

func (r *scanRepository) DailyCounts(ctx context.Context, codeID uint, w Window) ([]TimeBucket, error) {
	var out []TimeBucket
	err := r.windowed(ctx, codeID, w).
		Select("DATE(observed_at) AS day, COUNT(*) AS count").
		Group("DATE(observed_at)").
		Order("day").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *scanRepository) RecentScans(ctx context.Context, codeID uint, limit int) ([]model.ScanEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	var events []model.ScanEvent
	err := r.db.WithContext(ctx).
		Where("code_id = ?", codeID).
		Order("observed_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
