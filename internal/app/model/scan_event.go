package model

import "time"

// ScanEvent is one successfully recorded scan. Rows are append-only and never
// updated: analytics only change through new inserts.
type ScanEvent struct {
	ID         string    `db:"id" gorm:"primaryKey;size:36"`
	CodeID     uint      `db:"code_id" gorm:"not null;index:idx_scan_events_code_observed,priority:1"`
	ObservedAt time.Time `db:"observed_at" gorm:"not null;index:idx_scan_events_code_observed,priority:2"`

	// VisitorID is a keyed hash over (ip, user agent), not a cookie.
	VisitorID string `db:"visitor_id" gorm:"size:64;index;not null"`

	// Raw request attributes stored verbatim for audit and debugging.
	RawIP        string `db:"raw_ip" gorm:"size:45"`
	RawUserAgent string `db:"raw_user_agent" gorm:"type:text"`
	Referer      string `db:"referer" gorm:"type:text"`

	// Derived classification with an "unknown" fallback.
	DeviceType string `db:"device_type" gorm:"size:20"`
	Browser    string `db:"browser" gorm:"size:50"`
	OS         string `db:"os" gorm:"size:50"`

	// Geolocation columns exist in the schema but are never populated.
	Country string `db:"country" gorm:"size:100"`
	City    string `db:"city" gorm:"size:100"`
}

func (ScanEvent) TableName() string {
	return "scan_events"
}

// CodeVisitor is the storage-level dedup set behind the unique_scans counter.
// The composite unique index makes "first visit by this fingerprint" an
// INSERT ... ON CONFLICT DO NOTHING question the database answers atomically.
type CodeVisitor struct {
	CodeID    uint   `db:"code_id" gorm:"primaryKey;autoIncrement:false"`
	VisitorID string `db:"visitor_id" gorm:"primaryKey;size:64"`
}

func (CodeVisitor) TableName() string {
	return "code_visitors"
}

const (
	ScanStreamName     = "SCANS"
	ScanStreamSubject  = "scans.recorded"
	ScanConsumerName   = "scan-counter"
	ScanStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)

// ScanNotice is the post-commit notification published to JetStream for
// downstream consumers (real-time counters, dashboards). Losing a notice
// never loses a scan: the ScanEvent row is already committed.
type ScanNotice struct {
	EventID    string    `json:"event_id"`
	CodeID     uint      `json:"code_id"`
	ShortCode  string    `json:"short_code"`
	DeviceType string    `json:"device_type"`
	FirstVisit bool      `json:"first_visit"`
	ObservedAt time.Time `json:"observed_at"`
}
