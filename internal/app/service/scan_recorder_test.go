package service

import (
	"context"
	"testing"
	"time"

	"github.com/cloudflying87/qrgenerator/internal/app/model"
	"github.com/cloudflying87/qrgenerator/internal/app/repository"
	"github.com/cloudflying87/qrgenerator/internal/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.QRCode{}, &model.ScanEvent{}, &model.CodeVisitor{}))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func recorderTestEnv(t *testing.T) (*gorm.DB, *ScanRecorder) {
	t.Helper()

	db := openServiceTestDB(t)
	recorder := NewScanRecorder(ScanRecorderDeps{
		Codes:        repository.NewQRCodeRepository(db),
		Scans:        repository.NewScanRepository(db),
		Fingerprints: fingerprint.New("test-secret"),
	})
	return db, recorder
}

func seedRecorderCode(t *testing.T, db *gorm.DB, mutate func(*model.QRCode)) *model.QRCode {
	t.Helper()
	code := &model.QRCode{
		OwnerID:        "owner-1",
		Name:           "campaign",
		Type:           model.TypeDynamic,
		ShortCode:      "scan123",
		DestinationURL: "https://example.com/campaign",
		Status:         model.StatusActive,
	}
	if mutate != nil {
		mutate(code)
	}
	require.NoError(t, db.Create(code).Error)
	return code
}

const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

func TestScanRecorder_AllowedScanRecordsEverything(t *testing.T) {
	db, recorder := recorderTestEnv(t)
	code := seedRecorderCode(t, db, nil)

	res, err := recorder.Resolve(context.Background(), "scan123", ScanRequest{
		RawIP:        "203.0.113.7",
		RawUserAgent: iphoneUA,
		Referer:      "https://social.example",
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionAllowed, res.Decision)
	assert.Equal(t, "https://example.com/campaign", res.DestinationURL)

	var event model.ScanEvent
	require.NoError(t, db.Where("code_id = ?", code.ID).First(&event).Error)
	assert.Equal(t, "mobile", event.DeviceType)
	assert.Equal(t, "Safari", event.Browser)
	assert.Equal(t, "iOS", event.OS)
	assert.Equal(t, "203.0.113.7", event.RawIP)
	assert.Len(t, event.VisitorID, 64)

	var reloaded model.QRCode
	require.NoError(t, db.First(&reloaded, code.ID).Error)
	assert.Equal(t, int64(1), reloaded.TotalScans)
	assert.Equal(t, int64(1), reloaded.UniqueScans)
}

func TestScanRecorder_SameVisitorCountedOnce(t *testing.T) {
	db, recorder := recorderTestEnv(t)
	code := seedRecorderCode(t, db, nil)
	ctx := context.Background()

	req := ScanRequest{RawIP: "203.0.113.7", RawUserAgent: iphoneUA}
	for i := 0; i < 3; i++ {
		_, err := recorder.Resolve(ctx, "scan123", req)
		require.NoError(t, err)
	}
	// Different IP means a different fingerprint.
	_, err := recorder.Resolve(ctx, "scan123", ScanRequest{RawIP: "198.51.100.9", RawUserAgent: iphoneUA})
	require.NoError(t, err)

	var reloaded model.QRCode
	require.NoError(t, db.First(&reloaded, code.ID).Error)
	assert.Equal(t, int64(4), reloaded.TotalScans)
	assert.Equal(t, int64(2), reloaded.UniqueScans)
}

func TestScanRecorder_RejectionLeavesNoTrace(t *testing.T) {
	rejections := []struct {
		name   string
		mutate func(*model.QRCode)
		want   Decision
	}{
		{"paused", func(c *model.QRCode) { c.Status = model.StatusPaused }, DecisionPaused},
		{"disabled", func(c *model.QRCode) { c.Status = model.StatusDisabled }, DecisionDisabled},
		{"expired", func(c *model.QRCode) {
			past := time.Now().Add(-time.Hour)
			c.ExpiresAt = &past
		}, DecisionExpired},
		{"limit reached", func(c *model.QRCode) {
			limit := int64(5)
			c.MaxScans = &limit
			c.TotalScans = 5
		}, DecisionScanLimitReached},
	}

	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			db, recorder := recorderTestEnv(t)
			code := seedRecorderCode(t, db, tt.mutate)

			res, err := recorder.Resolve(context.Background(), "scan123", ScanRequest{
				RawIP:        "203.0.113.7",
				RawUserAgent: iphoneUA,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Decision)
			assert.Empty(t, res.DestinationURL)

			// A rejection must not touch the log or the counters.
			var events int64
			require.NoError(t, db.Model(&model.ScanEvent{}).Count(&events).Error)
			assert.Zero(t, events)

			var reloaded model.QRCode
			require.NoError(t, db.First(&reloaded, code.ID).Error)
			assert.Equal(t, code.TotalScans, reloaded.TotalScans)
		})
	}
}

func TestScanRecorder_PasswordFlow(t *testing.T) {
	db, recorder := recorderTestEnv(t)
	code := seedRecorderCode(t, db, func(c *model.QRCode) {
		c.PasswordHash = mustHash(t, "letmein")
	})
	ctx := context.Background()

	res, err := recorder.Resolve(ctx, "scan123", ScanRequest{RawIP: "203.0.113.7", RawUserAgent: iphoneUA})
	require.NoError(t, err)
	assert.Equal(t, DecisionPasswordRequired, res.Decision)

	res, err = recorder.Resolve(ctx, "scan123", ScanRequest{
		RawIP: "203.0.113.7", RawUserAgent: iphoneUA, Password: "wrong",
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionPasswordIncorrect, res.Decision)

	// Nothing recorded so far.
	var events int64
	require.NoError(t, db.Model(&model.ScanEvent{}).Count(&events).Error)
	assert.Zero(t, events)

	res, err = recorder.Resolve(ctx, "scan123", ScanRequest{
		RawIP: "203.0.113.7", RawUserAgent: iphoneUA, Password: "letmein",
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionAllowed, res.Decision)
	assert.Equal(t, code.DestinationURL, res.DestinationURL)

	require.NoError(t, db.Model(&model.ScanEvent{}).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestScanRecorder_UnknownCode(t *testing.T) {
	_, recorder := recorderTestEnv(t)

	_, err := recorder.Resolve(context.Background(), "missing", ScanRequest{
		RawIP: "203.0.113.7", RawUserAgent: iphoneUA,
	})
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)
}

func TestScanRecorder_GarbageUserAgentStillRecords(t *testing.T) {
	db, recorder := recorderTestEnv(t)
	code := seedRecorderCode(t, db, nil)

	res, err := recorder.Resolve(context.Background(), "scan123", ScanRequest{
		RawIP:        "203.0.113.7",
		RawUserAgent: "\x00\xffnot a real agent",
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionAllowed, res.Decision)

	var event model.ScanEvent
	require.NoError(t, db.Where("code_id = ?", code.ID).First(&event).Error)
	assert.Equal(t, "unknown", event.DeviceType)
	assert.Equal(t, "unknown", event.Browser)
}
