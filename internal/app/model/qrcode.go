package model

import "time"

// Code types. Static codes embed the destination URL in the image itself and
// never pass through resolution or analytics; dynamic codes carry a short code
// that the resolver maps to the destination.
const (
	TypeStatic  = "static"
	TypeDynamic = "dynamic"
)

// Code statuses. Expired and disabled are terminal; active/paused is
// owner-togglable. The status column is a manual override: time-based expiry
// is always evaluated against ExpiresAt at resolution time.
const (
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusExpired  = "expired"
	StatusDisabled = "disabled"
)

// Error correction levels accepted for rendering.
const (
	ErrorCorrectionLow      = "L"
	ErrorCorrectionMedium   = "M"
	ErrorCorrectionQuartile = "Q"
	ErrorCorrectionHigh     = "H"
)

// QRCode describes a registered code stored in Postgres. TotalScans and
// UniqueScans are cached counters maintained by the same transaction that
// appends a ScanEvent; they are never recomputed on the read path.
type QRCode struct {
	ID             uint       `db:"id" gorm:"primaryKey"`
	OwnerID        string     `db:"owner_id" gorm:"size:64;index;not null"`
	Name           string     `db:"name" gorm:"size:255;not null"`
	Type           string     `db:"type" gorm:"size:10;not null;default:dynamic"`
	// Static codes leave ShortCode empty; the partial index keeps
	// uniqueness for allocated codes without colliding on the blanks.
	ShortCode      string     `db:"short_code" gorm:"size:20;uniqueIndex:idx_qr_codes_short_code,where:short_code <> ''"`
	DestinationURL string     `db:"destination_url" gorm:"type:text;not null"`
	Status         string     `db:"status" gorm:"size:10;not null;default:active;index"`
	ExpiresAt      *time.Time `db:"expires_at" gorm:"index"`
	MaxScans       *int64     `db:"max_scans"`
	PasswordHash   string     `db:"password_hash" gorm:"size:128"`

	// Presentation options consumed by the image renderer only.
	Size            int    `db:"size" gorm:"not null;default:300"`
	ErrorCorrection string `db:"error_correction" gorm:"size:1;not null;default:M"`
	ForegroundColor string `db:"foreground_color" gorm:"size:7;not null;default:#000000"`
	BackgroundColor string `db:"background_color" gorm:"size:7;not null;default:#FFFFFF"`

	Description string `db:"description" gorm:"type:text"`
	Tags        string `db:"tags" gorm:"size:255"`

	TotalScans    int64      `db:"total_scans" gorm:"not null;default:0"`
	UniqueScans   int64      `db:"unique_scans" gorm:"not null;default:0"`
	LastScannedAt *time.Time `db:"last_scanned_at"`

	CreatedAt time.Time `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName pins the table name used by the Django-era schema.
func (QRCode) TableName() string {
	return "qr_codes"
}

// IsDynamic reports whether the code participates in resolution and analytics.
func (c *QRCode) IsDynamic() bool {
	return c.Type == TypeDynamic
}
