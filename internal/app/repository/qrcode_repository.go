package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudflying87/qrgenerator/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrCodeNotFound signals that no QR code matches the given key.
	ErrCodeNotFound = errors.New("qr code not found")
	// ErrShortCodeTaken signals a short-code uniqueness violation. The
	// unique index is the source of truth; callers retry with a fresh code.
	ErrShortCodeTaken = errors.New("short code already taken")
)

// ListFilter narrows List results the way the owner console filters them.
type ListFilter struct {
	OwnerID string
	Type    string
	Status  string
	Search  string
	Limit   int
	Offset  int
}

// QRCodeRepository defines the data access contract for QR codes.
type QRCodeRepository interface {
	Create(ctx context.Context, code *model.QRCode) error
	GetByID(ctx context.Context, id uint) (*model.QRCode, error)
	GetByShortCode(ctx context.Context, shortCode string) (*model.QRCode, error)
	List(ctx context.Context, filter ListFilter) ([]model.QRCode, error)
	Update(ctx context.Context, code *model.QRCode) error
	Delete(ctx context.Context, id uint) error
	ShortCodes(ctx context.Context) ([]string, error)
}

type qrCodeRepository struct {
	db *gorm.DB
}

// NewQRCodeRepository returns a GORM-backed QRCodeRepository.
func NewQRCodeRepository(db *gorm.DB) QRCodeRepository {
	return &qrCodeRepository{db: db}
}

func (r *qrCodeRepository) Create(ctx context.Context, code *model.QRCode) error {
	if err := r.db.WithContext(ctx).Create(code).Error; err != nil {
		if isDuplicate(err) {
			return ErrShortCodeTaken
		}
		return err
	}
	return nil
}

func (r *qrCodeRepository) GetByID(ctx context.Context, id uint) (*model.QRCode, error) {
	var code model.QRCode
	if err := r.db.WithContext(ctx).First(&code, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &code, nil
}

func (r *qrCodeRepository) GetByShortCode(ctx context.Context, shortCode string) (*model.QRCode, error) {
	var code model.QRCode
	if err := r.db.WithContext(ctx).Where("short_code = ?", shortCode).First(&code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &code, nil
}

func (r *qrCodeRepository) List(ctx context.Context, filter ListFilter) ([]model.QRCode, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	q := r.db.WithContext(ctx).Model(&model.QRCode{})
	if filter.OwnerID != "" {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("name LIKE ? OR destination_url LIKE ? OR tags LIKE ?", like, like, like)
	}

	var result []model.QRCode
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *qrCodeRepository) Update(ctx context.Context, code *model.QRCode) error {
	result := r.db.WithContext(ctx).
		Model(&model.QRCode{}).
		Where("id = ?", code.ID).
		Updates(map[string]interface{}{
			"name":             code.Name,
			"destination_url":  code.DestinationURL,
			"status":           code.Status,
			"expires_at":       code.ExpiresAt,
			"max_scans":        code.MaxScans,
			"password_hash":    code.PasswordHash,
			"size":             code.Size,
			"error_correction": code.ErrorCorrection,
			"foreground_color": code.ForegroundColor,
			"background_color": code.BackgroundColor,
			"description":      code.Description,
			"tags":             code.Tags,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCodeNotFound
	}

	return r.db.WithContext(ctx).First(code, code.ID).Error
}

// Delete removes a code and everything referencing it in one transaction,
// so scan events never dangle.
func (r *qrCodeRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("code_id = ?", id).Delete(&model.ScanEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("code_id = ?", id).Delete(&model.CodeVisitor{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&model.QRCode{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrCodeNotFound
		}
		return nil
	})
}

// ShortCodes returns every allocated short code; the resolver's membership
// filter is seeded from this set.
func (r *qrCodeRepository) ShortCodes(ctx context.Context) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&model.QRCode{}).
		Where("type = ? AND short_code <> ''", model.TypeDynamic).
		Pluck("short_code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// isDuplicate matches unique-constraint violations across the Postgres and
// SQLite drivers without importing either directly.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
