package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloudflying87/qrgenerator/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRCodeRepository_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewQRCodeRepository(db)
	ctx := context.Background()

	code := &model.QRCode{
		OwnerID:        "owner-1",
		Name:           "menu",
		Type:           model.TypeDynamic,
		ShortCode:      "Menu123",
		DestinationURL: "https://example.com/menu",
		Status:         model.StatusActive,
	}
	require.NoError(t, repo.Create(ctx, code))
	require.NotZero(t, code.ID)

	byID, err := repo.GetByID(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, "menu", byID.Name)

	byCode, err := repo.GetByShortCode(ctx, "Menu123")
	require.NoError(t, err)
	assert.Equal(t, code.ID, byCode.ID)
}

func TestQRCodeRepository_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewQRCodeRepository(db)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 404)
	assert.ErrorIs(t, err, ErrCodeNotFound)

	_, err = repo.GetByShortCode(ctx, "nothere")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestQRCodeRepository_DuplicateShortCode(t *testing.T) {
	db := openTestDB(t)
	repo := NewQRCodeRepository(db)
	ctx := context.Background()

	first := &model.QRCode{
		OwnerID: "owner-1", Name: "a", Type: model.TypeDynamic,
		ShortCode: "dup1234", DestinationURL: "https://example.com", Status: model.StatusActive,
	}
	require.NoError(t, repo.Create(ctx, first))

	second := &model.QRCode{
		OwnerID: "owner-2", Name: "b", Type: model.TypeDynamic,
		ShortCode: "dup1234", DestinationURL: "https://example.org", Status: model.StatusActive,
	}
	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, ErrShortCodeTaken)
}

func TestQRCodeRepository_ListFilters(t *testing.T) {
	db := openTestDB(t)
	repo := NewQRCodeRepository(db)
	ctx := context.Background()

	seed := []model.QRCode{
		{OwnerID: "owner-1", Name: "spring menu", Type: model.TypeDynamic, ShortCode: "list001", DestinationURL: "https://example.com/1", Status: model.StatusActive},
		{OwnerID: "owner-1", Name: "poster", Type: model.TypeStatic, DestinationURL: "https://example.com/2", Status: model.StatusPaused},
		{OwnerID: "owner-2", Name: "other menu", Type: model.TypeDynamic, ShortCode: "list003", DestinationURL: "https://example.com/3", Status: model.StatusActive},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	byOwner, err := repo.List(ctx, ListFilter{OwnerID: "owner-1"})
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	byStatus, err := repo.List(ctx, ListFilter{OwnerID: "owner-1", Status: model.StatusPaused})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "poster", byStatus[0].Name)

	bySearch, err := repo.List(ctx, ListFilter{Search: "menu"})
	require.NoError(t, err)
	assert.Len(t, bySearch, 2)

	byType, err := repo.List(ctx, ListFilter{OwnerID: "owner-1", Type: model.TypeStatic})
	require.NoError(t, err)
	assert.Len(t, byType, 1)
}

func TestQRCodeRepository_DeleteCascades(t *testing.T) {
	db := openTestDB(t)
	codes := NewQRCodeRepository(db)
	scans := NewScanRepository(db)
	ctx := context.Background()

	code := seedCode(t, db, "del1234")
	_, err := scans.RecordScan(ctx, newEvent(code.ID, "v1", time.Now()))
	require.NoError(t, err)

	require.NoError(t, codes.Delete(ctx, code.ID))

	_, err = codes.GetByID(ctx, code.ID)
	assert.ErrorIs(t, err, ErrCodeNotFound)

	var events, visitors int64
	require.NoError(t, db.Model(&model.ScanEvent{}).Where("code_id = ?", code.ID).Count(&events).Error)
	require.NoError(t, db.Model(&model.CodeVisitor{}).Where("code_id = ?", code.ID).Count(&visitors).Error)
	assert.Zero(t, events)
	assert.Zero(t, visitors)
}

func TestQRCodeRepository_ShortCodes(t *testing.T) {
	db := openTestDB(t)
	repo := NewQRCodeRepository(db)
	ctx := context.Background()

	seedCode(t, db, "seed001")
	seedCode(t, db, "seed002")
	staticCode := &model.QRCode{
		OwnerID: "owner-1", Name: "static", Type: model.TypeStatic,
		DestinationURL: "https://example.com", Status: model.StatusActive,
	}
	require.NoError(t, repo.Create(ctx, staticCode))

	codes, err := repo.ShortCodes(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"seed001", "seed002"}, codes)
}
