package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/cloudflying87/qrgenerator/internal/app/model"
	"github.com/cloudflying87/qrgenerator/internal/app/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidDestination rejects destination URLs that are not absolute
	// http(s) URLs.
	ErrInvalidDestination = errors.New("destination must be an absolute http(s) URL")
	// ErrNotOwner rejects mutations by anyone but the owning account.
	ErrNotOwner = errors.New("code is owned by another account")
)

// QRCodeService defines behaviour-level operations on QR codes.
type QRCodeService interface {
	CreateCode(ctx context.Context, input CreateCodeInput) (*model.QRCode, error)
	GetCode(ctx context.Context, ownerID string, id uint) (*model.QRCode, error)
	ListCodes(ctx context.Context, filter repository.ListFilter) ([]model.QRCode, error)
	UpdateCode(ctx context.Context, ownerID string, id uint, input UpdateCodeInput) (*model.QRCode, error)
	DeleteCode(ctx context.Context, ownerID string, id uint) error
}

type qrCodeService struct {
	repo      repository.QRCodeRepository
	allocator *Allocator
	filter    *CodeFilter
}

// NewQRCodeService returns a service backed by the given repository. The
// filter may be nil; when present, freshly allocated codes are added to it.
func NewQRCodeService(repo repository.QRCodeRepository, allocator *Allocator, filter *CodeFilter) QRCodeService {
	return &qrCodeService{repo: repo, allocator: allocator, filter: filter}
}

// CreateCodeInput captures data required to register a code.
type CreateCodeInput struct {
	OwnerID        string
	Name           string
	Type           string
	DestinationURL string
	Password       string
	ExpiresAt      *time.Time
	MaxScans       *int64

	Size            int
	ErrorCorrection string
	ForegroundColor string
	BackgroundColor string
	Description     string
	Tags            string
}

// UpdateCodeInput captures fields the owner may change after creation.
// ShortCode and Type are immutable. A non-nil empty Password clears the gate.
type UpdateCodeInput struct {
	Name           *string
	DestinationURL *string
	Status         *string
	Password       *string
	ExpiresAt      *time.Time
	MaxScans       *int64

	Size            *int
	ErrorCorrection *string
	ForegroundColor *string
	BackgroundColor *string
	Description     *string
	Tags            *string
}

func (s *qrCodeService) CreateCode(ctx context.Context, input CreateCodeInput) (*model.QRCode, error) {
	if err := validateDestination(input.DestinationURL); err != nil {
		return nil, err
	}

	code := &model.QRCode{
		OwnerID:         input.OwnerID,
		Name:            input.Name,
		Type:            input.Type,
		DestinationURL:  input.DestinationURL,
		Status:          model.StatusActive,
		ExpiresAt:       input.ExpiresAt,
		MaxScans:        input.MaxScans,
		Size:            input.Size,
		ErrorCorrection: input.ErrorCorrection,
		ForegroundColor: input.ForegroundColor,
		BackgroundColor: input.BackgroundColor,
		Description:     input.Description,
		Tags:            input.Tags,
	}
	if code.Type == "" {
		code.Type = model.TypeDynamic
	}
	applyPresentationDefaults(code)

	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		code.PasswordHash = string(hash)
	}

	if code.Type != model.TypeDynamic {
		// Static codes carry the destination in the image itself; they
		// get no short code and never enter resolution.
		if err := s.repo.Create(ctx, code); err != nil {
			return nil, fmt.Errorf("create code: %w", err)
		}
		return code, nil
	}

	// Allocate-and-insert loop: the unique index on short_code is the
	// arbiter, so concurrent creations cannot both claim a token.
	for attempt := 0; attempt < s.allocator.Attempts(); attempt++ {
		shortCode, err := s.allocator.Allocate()
		if err != nil {
			return nil, err
		}
		code.ShortCode = shortCode

		err = s.repo.Create(ctx, code)
		if err == nil {
			if s.filter != nil {
				s.filter.Add(shortCode)
			}
			return code, nil
		}
		if !errors.Is(err, repository.ErrShortCodeTaken) {
			return nil, fmt.Errorf("create code: %w", err)
		}
	}
	return nil, ErrAllocationExhausted
}

func (s *qrCodeService) GetCode(ctx context.Context, ownerID string, id uint) (*model.QRCode, error) {
	code, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get code: %w", err)
	}
	if ownerID != "" && code.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return code, nil
}

func (s *qrCodeService) ListCodes(ctx context.Context, filter repository.ListFilter) ([]model.QRCode, error) {
	codes, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	return codes, nil
}

func (s *qrCodeService) UpdateCode(ctx context.Context, ownerID string, id uint, input UpdateCodeInput) (*model.QRCode, error) {
	code, err := s.GetCode(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if input.DestinationURL != nil {
		if err := validateDestination(*input.DestinationURL); err != nil {
			return nil, err
		}
		code.DestinationURL = *input.DestinationURL
	}
	if input.Name != nil {
		code.Name = *input.Name
	}
	if input.Status != nil {
		if err := validateStatusChange(code.Status, *input.Status); err != nil {
			return nil, err
		}
		code.Status = *input.Status
	}
	if input.Password != nil {
		if *input.Password == "" {
			code.PasswordHash = ""
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("hash password: %w", err)
			}
			code.PasswordHash = string(hash)
		}
	}
	if input.ExpiresAt != nil {
		code.ExpiresAt = input.ExpiresAt
	}
	if input.MaxScans != nil {
		code.MaxScans = input.MaxScans
	}
	if input.Size != nil {
		code.Size = *input.Size
	}
	if input.ErrorCorrection != nil {
		code.ErrorCorrection = *input.ErrorCorrection
	}
	if input.ForegroundColor != nil {
		code.ForegroundColor = *input.ForegroundColor
	}
	if input.BackgroundColor != nil {
		code.BackgroundColor = *input.BackgroundColor
	}
	if input.Description != nil {
		code.Description = *input.Description
	}
	if input.Tags != nil {
		code.Tags = *input.Tags
	}

	if err := s.repo.Update(ctx, code); err != nil {
		return nil, fmt.Errorf("update code: %w", err)
	}
	return code, nil
}

func (s *qrCodeService) DeleteCode(ctx context.Context, ownerID string, id uint) error {
	if _, err := s.GetCode(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete code: %w", err)
	}
	return nil
}

var errTerminalStatus = errors.New("expired and disabled are terminal statuses")

// validateStatusChange enforces the lifecycle: active<->paused is togglable,
// expired/disabled are one-way.
func validateStatusChange(current, next string) error {
	switch next {
	case model.StatusActive, model.StatusPaused, model.StatusExpired, model.StatusDisabled:
	default:
		return fmt.Errorf("unknown status %q", next)
	}

	if current == model.StatusExpired || current == model.StatusDisabled {
		if next != current {
			return errTerminalStatus
		}
	}
	return nil
}

func validateDestination(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidDestination
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidDestination
	}
	return nil
}

func applyPresentationDefaults(code *model.QRCode) {
	if code.Size == 0 {
		code.Size = 300
	}
	if code.ErrorCorrection == "" {
		code.ErrorCorrection = model.ErrorCorrectionMedium
	}
	if code.ForegroundColor == "" {
		code.ForegroundColor = "#000000"
	}
	if code.BackgroundColor == "" {
		code.BackgroundColor = "#FFFFFF"
	}
}
