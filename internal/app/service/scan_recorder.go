package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudflying87/qrgenerator/internal/app/model"
	"github.com/cloudflying87/qrgenerator/internal/app/repository"
	"github.com/cloudflying87/qrgenerator/internal/fingerprint"
	infraPrometheus "github.com/cloudflying87/qrgenerator/internal/infra/prometheus"
	"github.com/cloudflying87/qrgenerator/internal/useragent"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// storageTimeout bounds each resolution's storage work. A call that cannot
// finish inside it fails whole, leaving no partial scan behind, so callers
// may retry blindly.
const storageTimeout = 5 * time.Second

// ScanRequest carries the raw request attributes of one resolution attempt.
type ScanRequest struct {
	RawIP        string
	RawUserAgent string
	Referer      string
	Password     string
}

// Resolution is the outcome of a resolve call. DestinationURL is set only
// when Decision is DecisionAllowed.
type Resolution struct {
	Decision       Decision
	DestinationURL string
	Code           *model.QRCode
}

// ScanRecorder orchestrates one resolution: load, policy check, fingerprint,
// classification, and the transactional event-plus-counters write.
type ScanRecorder struct {
	codes        repository.QRCodeRepository
	scans        repository.ScanRepository
	fingerprints *fingerprint.Generator
	publisher    *ScanPublisher
	logger       *zap.Logger
	now          func() time.Time
}

// ScanRecorderDeps groups the recorder's dependencies. Publisher may be nil.
type ScanRecorderDeps struct {
	Codes        repository.QRCodeRepository
	Scans        repository.ScanRepository
	Fingerprints *fingerprint.Generator
	Publisher    *ScanPublisher
	Logger       *zap.Logger
	Now          func() time.Time
}

// NewScanRecorder creates a recorder with the provided dependencies.
func NewScanRecorder(deps ScanRecorderDeps) *ScanRecorder {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &ScanRecorder{
		codes:        deps.Codes,
		scans:        deps.Scans,
		fingerprints: deps.Fingerprints,
		publisher:    deps.Publisher,
		logger:       logger,
		now:          now,
	}
}

// Resolve maps a short code to its destination, enforcing policy and
// recording analytics.
//
// A missing code surfaces as repository.ErrCodeNotFound. Policy rejections
// are not errors: they come back as the Resolution's Decision with no
// destination, and leave counters and the scan log untouched. Only allowed
// resolutions produce side effects.
func (r *ScanRecorder) Resolve(ctx context.Context, shortCode string, req ScanRequest) (*Resolution, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	code, err := r.codes.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	observedAt := r.now()

	decision := EvaluatePolicy(code, observedAt, req.Password)
	if decision != DecisionAllowed {
		infraPrometheus.ScanRejections.WithLabelValues(decision.String()).Inc()
		r.logger.Debug("resolution rejected",
			zap.String("short_code", shortCode),
			zap.String("reason", decision.String()),
		)
		return &Resolution{Decision: decision, Code: code}, nil
	}

	visitorID := r.fingerprints.Visitor(req.RawIP, req.RawUserAgent)
	cls := useragent.Classify(req.RawUserAgent)

	event := &model.ScanEvent{
		ID:           uuid.New().String(),
		CodeID:       code.ID,
		ObservedAt:   observedAt,
		VisitorID:    visitorID,
		RawIP:        req.RawIP,
		RawUserAgent: req.RawUserAgent,
		Referer:      req.Referer,
		DeviceType:   cls.DeviceType,
		Browser:      cls.Browser,
		OS:           cls.OS,
	}

	firstVisit, err := r.scans.RecordScan(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("record scan: %w", err)
	}

	infraPrometheus.ScansRecorded.Inc()
	r.logger.Debug("scan recorded",
		zap.String("short_code", shortCode),
		zap.String("device_type", cls.DeviceType),
		zap.Bool("first_visit", firstVisit),
	)

	// Notification is post-commit and best-effort: the scan is already
	// durable, so a publish failure only delays real-time counters.
	if r.publisher != nil {
		notice := model.ScanNotice{
			EventID:    event.ID,
			CodeID:     code.ID,
			ShortCode:  shortCode,
			DeviceType: cls.DeviceType,
			FirstVisit: firstVisit,
			ObservedAt: observedAt,
		}
		go func() {
			if err := r.publisher.Publish(notice); err != nil {
				r.logger.Error("failed to publish scan notice",
					zap.Error(err), zap.String("short_code", shortCode))
			}
		}()
	}

	return &Resolution{
		Decision:       DecisionAllowed,
		DestinationURL: code.DestinationURL,
		Code:           code,
	}, nil
}
