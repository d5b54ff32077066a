package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudflying87/qrgenerator/internal/app/model"
	"github.com/cloudflying87/qrgenerator/internal/app/repository"
	"golang.org/x/crypto/bcrypt"
)

type mockCodeRepository struct {
	createFn     func(ctx context.Context, code *model.QRCode) error
	getByIDFn    func(ctx context.Context, id uint) (*model.QRCode, error)
	getByCodeFn  func(ctx context.Context, shortCode string) (*model.QRCode, error)
	listFn       func(ctx context.Context, filter repository.ListFilter) ([]model.QRCode, error)
	updateFn     func(ctx context.Context, code *model.QRCode) error
	deleteFn     func(ctx context.Context, id uint) error
	shortCodesFn func(ctx context.Context) ([]string, error)
}

func (m *mockCodeRepository) Create(ctx context.Context, code *model.QRCode) error {
	if m.createFn != nil {
		return m.createFn(ctx, code)
	}
	return nil
}

func (m *mockCodeRepository) GetByID(ctx context.Context, id uint) (*model.QRCode, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrCodeNotFound
}

func (m *mockCodeRepository) GetByShortCode(ctx context.Context, shortCode string) (*model.QRCode, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, shortCode)
	}
	return nil, repository.ErrCodeNotFound
}

func (m *mockCodeRepository) List(ctx context.Context, filter repository.ListFilter) ([]model.QRCode, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockCodeRepository) Update(ctx context.Context, code *model.QRCode) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, code)
	}
	return nil
}

func (m *mockCodeRepository) Delete(ctx context.Context, id uint) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockCodeRepository) ShortCodes(ctx context.Context) ([]string, error) {
	if m.shortCodesFn != nil {
		return m.shortCodesFn(ctx)
	}
	return nil, nil
}

func TestQRCodeService_CreateCode_Dynamic(t *testing.T) {
	var created *model.QRCode
	repo := &mockCodeRepository{
		createFn: func(ctx context.Context, code *model.QRCode) error {
			created = code
			return nil
		},
	}

	svc := NewQRCodeService(repo, NewAllocator(), nil)
	code, err := svc.CreateCode(context.Background(), CreateCodeInput{
		OwnerID:        "owner-1",
		Name:           "launch poster",
		DestinationURL: "https://example.com/launch",
	})
	if err != nil {
		t.Fatalf("CreateCode returned error: %v", err)
	}

	if created == nil {
		t.Fatal("expected repository Create to be called")
	}
	if code.Type != model.TypeDynamic {
		t.Fatalf("expected default type dynamic, got %q", code.Type)
	}
	if len(code.ShortCode) != codeLength {
		t.Fatalf("expected allocated short code, got %q", code.ShortCode)
	}
	if code.Status != model.StatusActive {
		t.Fatalf("expected active status, got %q", code.Status)
	}
	if code.Size != 300 || code.ErrorCorrection != model.ErrorCorrectionMedium {
		t.Fatalf("expected presentation defaults, got size=%d ec=%q", code.Size, code.ErrorCorrection)
	}
}

func TestQRCodeService_CreateCode_Static(t *testing.T) {
	repo := &mockCodeRepository{}
	svc := NewQRCodeService(repo, NewAllocator(), nil)

	code, err := svc.CreateCode(context.Background(), CreateCodeInput{
		OwnerID:        "owner-1",
		Name:           "wifi card",
		Type:           model.TypeStatic,
		DestinationURL: "https://example.com",
	})
	if err != nil {
		t.Fatalf("CreateCode returned error: %v", err)
	}
	if code.ShortCode != "" {
		t.Fatalf("static code must not get a short code, got %q", code.ShortCode)
	}
}

func TestQRCodeService_CreateCode_InvalidDestination(t *testing.T) {
	svc := NewQRCodeService(&mockCodeRepository{}, NewAllocator(), nil)

	for _, raw := range []string{"", "not a url", "ftp://example.com/x", "/relative/path", "https://"} {
		_, err := svc.CreateCode(context.Background(), CreateCodeInput{
			OwnerID:        "owner-1",
			Name:           "bad",
			DestinationURL: raw,
		})
		if !errors.Is(err, ErrInvalidDestination) {
			t.Errorf("destination %q: expected ErrInvalidDestination, got %v", raw, err)
		}
	}
}

func TestQRCodeService_CreateCode_RetriesOnCollision(t *testing.T) {
	calls := 0
	var codes []string
	repo := &mockCodeRepository{
		createFn: func(ctx context.Context, code *model.QRCode) error {
			calls++
			codes = append(codes, code.ShortCode)
			if calls < 3 {
				return repository.ErrShortCodeTaken
			}
			return nil
		},
	}

	svc := NewQRCodeService(repo, NewAllocator(), nil)
	_, err := svc.CreateCode(context.Background(), CreateCodeInput{
		OwnerID:        "owner-1",
		Name:           "retry",
		DestinationURL: "https://example.com",
	})
	if err != nil {
		t.Fatalf("CreateCode returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 insert attempts, got %d", calls)
	}
	if codes[0] == codes[1] || codes[1] == codes[2] {
		t.Fatal("expected a fresh candidate on each retry")
	}
}

func TestQRCodeService_CreateCode_AllocationExhausted(t *testing.T) {
	calls := 0
	repo := &mockCodeRepository{
		createFn: func(ctx context.Context, code *model.QRCode) error {
			calls++
			return repository.ErrShortCodeTaken
		},
	}

	allocator := NewAllocator()
	svc := NewQRCodeService(repo, allocator, nil)
	_, err := svc.CreateCode(context.Background(), CreateCodeInput{
		OwnerID:        "owner-1",
		Name:           "doomed",
		DestinationURL: "https://example.com",
	})
	if !errors.Is(err, ErrAllocationExhausted) {
		t.Fatalf("expected ErrAllocationExhausted, got %v", err)
	}
	if calls != allocator.Attempts() {
		t.Fatalf("expected exactly %d attempts, got %d", allocator.Attempts(), calls)
	}
}

func TestQRCodeService_CreateCode_PasswordHashed(t *testing.T) {
	repo := &mockCodeRepository{}
	svc := NewQRCodeService(repo, NewAllocator(), nil)

	code, err := svc.CreateCode(context.Background(), CreateCodeInput{
		OwnerID:        "owner-1",
		Name:           "gated",
		DestinationURL: "https://example.com",
		Password:       "hunter2",
	})
	if err != nil {
		t.Fatalf("CreateCode returned error: %v", err)
	}
	if code.PasswordHash == "" || code.PasswordHash == "hunter2" {
		t.Fatalf("password must be stored hashed, got %q", code.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword([]byte(code.PasswordHash), []byte("hunter2")) != nil {
		t.Fatal("stored hash does not verify the original password")
	}
}

func TestQRCodeService_GetCode_OwnershipEnforced(t *testing.T) {
	repo := &mockCodeRepository{
		getByIDFn: func(ctx context.Context, id uint) (*model.QRCode, error) {
			return &model.QRCode{OwnerID: "owner-1"}, nil
		},
	}
	svc := NewQRCodeService(repo, NewAllocator(), nil)

	if _, err := svc.GetCode(context.Background(), "owner-2", 1); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := svc.GetCode(context.Background(), "owner-1", 1); err != nil {
		t.Fatalf("owner should read their code, got %v", err)
	}
}

func TestQRCodeService_UpdateCode_TerminalStatus(t *testing.T) {
	repo := &mockCodeRepository{
		getByIDFn: func(ctx context.Context, id uint) (*model.QRCode, error) {
			return &model.QRCode{OwnerID: "owner-1", Status: model.StatusExpired}, nil
		},
	}
	svc := NewQRCodeService(repo, NewAllocator(), nil)

	active := model.StatusActive
	_, err := svc.UpdateCode(context.Background(), "owner-1", 1, UpdateCodeInput{Status: &active})
	if err == nil {
		t.Fatal("expected terminal status change to be rejected")
	}
}

func TestQRCodeService_UpdateCode_PauseAndResume(t *testing.T) {
	stored := &model.QRCode{OwnerID: "owner-1", Status: model.StatusActive}
	repo := &mockCodeRepository{
		getByIDFn: func(ctx context.Context, id uint) (*model.QRCode, error) {
			copied := *stored
			return &copied, nil
		},
		updateFn: func(ctx context.Context, code *model.QRCode) error {
			stored = code
			return nil
		},
	}
	svc := NewQRCodeService(repo, NewAllocator(), nil)

	paused := model.StatusPaused
	code, err := svc.UpdateCode(context.Background(), "owner-1", 1, UpdateCodeInput{Status: &paused})
	if err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if code.Status != model.StatusPaused {
		t.Fatalf("expected paused, got %q", code.Status)
	}

	active := model.StatusActive
	code, err = svc.UpdateCode(context.Background(), "owner-1", 1, UpdateCodeInput{Status: &active})
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if code.Status != model.StatusActive {
		t.Fatalf("expected active, got %q", code.Status)
	}
}

func TestQRCodeService_UpdateCode_ClearPassword(t *testing.T) {
	stored := &model.QRCode{OwnerID: "owner-1", Status: model.StatusActive, PasswordHash: "someh"}
	repo := &mockCodeRepository{
		getByIDFn: func(ctx context.Context, id uint) (*model.QRCode, error) {
			copied := *stored
			return &copied, nil
		},
		updateFn: func(ctx context.Context, code *model.QRCode) error {
			stored = code
			return nil
		},
	}
	svc := NewQRCodeService(repo, NewAllocator(), nil)

	empty := ""
	code, err := svc.UpdateCode(context.Background(), "owner-1", 1, UpdateCodeInput{Password: &empty})
	if err != nil {
		t.Fatalf("UpdateCode returned error: %v", err)
	}
	if code.PasswordHash != "" {
		t.Fatal("empty password update must clear the gate")
	}
}

func TestQRCodeService_DeleteCode_NotFound(t *testing.T) {
	svc := NewQRCodeService(&mockCodeRepository{}, NewAllocator(), nil)
	err := svc.DeleteCode(context.Background(), "owner-1", 42)
	if !errors.Is(err, repository.ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", err)
	}
}
