package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cloudflying87/qrgenerator/internal/app/model"
	"github.com/cloudflying87/qrgenerator/internal/app/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func analyticsTestEnv(t *testing.T) (*gorm.DB, AnalyticsService, repository.ScanRepository) {
	t.Helper()
	db := openServiceTestDB(t)
	codes := repository.NewQRCodeRepository(db)
	scans := repository.NewScanRepository(db)
	return db, NewAnalyticsService(codes, scans), scans
}

func TestAnalyticsService_Summary(t *testing.T) {
	db, svc, scans := analyticsTestEnv(t)
	code := seedRecorderCode(t, db, nil)
	ctx := context.Background()

	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	fixtures := []struct {
		visitor string
		device  string
		browser string
		os      string
		offset  time.Duration
	}{
		{"v1", "mobile", "Chrome", "Android", 0},
		{"v1", "mobile", "Chrome", "Android", time.Hour},
		{"v2", "desktop", "Firefox", "Linux", 2 * time.Hour},
		{"v3", "tablet", "Safari", "iOS", 26 * time.Hour},
	}
	for _, f := range fixtures {
		_, err := scans.RecordScan(ctx, &model.ScanEvent{
			ID:         uuid.New().String(),
			CodeID:     code.ID,
			ObservedAt: now.Add(f.offset),
			VisitorID:  f.visitor,
			DeviceType: f.device,
			Browser:    f.browser,
			OS:         f.os,
		})
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx, "owner-1", code.ID, repository.Window{})
	require.NoError(t, err)

	assert.Equal(t, int64(4), summary.TotalScans)
	assert.Equal(t, int64(3), summary.UniqueVisitors)

	// Breakdowns partition the total.
	var deviceSum, browserSum, osSum int64
	for _, b := range summary.ByDevice {
		deviceSum += b.Count
	}
	for _, b := range summary.ByBrowser {
		browserSum += b.Count
	}
	for _, b := range summary.ByOS {
		osSum += b.Count
	}
	assert.Equal(t, summary.TotalScans, deviceSum)
	assert.Equal(t, summary.TotalScans, browserSum)
	assert.Equal(t, summary.TotalScans, osSum)

	require.Len(t, summary.Timeline, 2)
	assert.Equal(t, "2026-02-01", summary.Timeline[0].Day)
	assert.Equal(t, int64(3), summary.Timeline[0].Count)

	require.Len(t, summary.RecentScans, 4)
	assert.Equal(t, "v3", summary.RecentScans[0].VisitorID)

	// The cached counters on the record agree with the aggregates.
	var reloaded model.QRCode
	require.NoError(t, db.First(&reloaded, code.ID).Error)
	assert.Equal(t, reloaded.TotalScans, summary.TotalScans)
	assert.Equal(t, reloaded.UniqueScans, summary.UniqueVisitors)
}

func TestAnalyticsService_EmptyLog(t *testing.T) {
	db, svc, _ := analyticsTestEnv(t)
	code := seedRecorderCode(t, db, nil)

	summary, err := svc.Summary(context.Background(), "owner-1", code.ID, repository.Window{})
	require.NoError(t, err)

	assert.Zero(t, summary.TotalScans)
	assert.Zero(t, summary.UniqueVisitors)
	assert.NotNil(t, summary.ByDevice)
	assert.Empty(t, summary.ByDevice)
	assert.NotNil(t, summary.Timeline)
	assert.Empty(t, summary.Timeline)
	assert.NotNil(t, summary.RecentScans)
	assert.Empty(t, summary.RecentScans)
}

func TestAnalyticsService_WindowFilters(t *testing.T) {
	db, svc, scans := analyticsTestEnv(t)
	code := seedRecorderCode(t, db, nil)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		_, err := scans.RecordScan(ctx, &model.ScanEvent{
			ID:         uuid.New().String(),
			CodeID:     code.ID,
			ObservedAt: base.AddDate(0, 0, i),
			VisitorID:  fmt.Sprintf("v%d", i),
			DeviceType: "mobile",
		})
		require.NoError(t, err)
	}

	from := base.AddDate(0, 0, 5)
	summary, err := svc.Summary(ctx, "owner-1", code.ID, repository.Window{From: &from})
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalScans)
	assert.Len(t, summary.Timeline, 2)
}

func TestAnalyticsService_OwnershipEnforced(t *testing.T) {
	db, svc, _ := analyticsTestEnv(t)
	code := seedRecorderCode(t, db, nil)

	_, err := svc.Summary(context.Background(), "intruder", code.ID, repository.Window{})
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestAnalyticsService_UnknownCode(t *testing.T) {
	_, svc, _ := analyticsTestEnv(t)

	_, err := svc.Summary(context.Background(), "owner-1", 424242, repository.Window{})
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)
}
