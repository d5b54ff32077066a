package service

import (
	"context"
	"fmt"

	"github.com/cloudflying87/qrgenerator/internal/app/model"
	"github.com/cloudflying87/qrgenerator/internal/app/repository"
)

// AnalyticsSummary is the read-side view of a code's scan log. Empty logs
// yield zeroed totals and empty breakdowns, never an error.
type AnalyticsSummary struct {
	CodeID         uint                    `json:"code_id"`
	TotalScans     int64                   `json:"total_scans"`
	UniqueVisitors int64                   `json:"unique_visitors"`
	ByDevice       []repository.Bucket     `json:"by_device"`
	ByBrowser      []repository.Bucket     `json:"by_browser"`
	ByOS           []repository.Bucket     `json:"by_os"`
	Timeline       []repository.TimeBucket `json:"timeline"`
	RecentScans    []model.ScanEvent       `json:"recent_scans"`
}

// AnalyticsService computes breakdowns over the scan log. It is a stateless
// read path, safe to run concurrently with writers; results are a snapshot
// as of query time.
type AnalyticsService interface {
	Summary(ctx context.Context, ownerID string, codeID uint, w repository.Window) (*AnalyticsSummary, error)
}

type analyticsService struct {
	codes repository.QRCodeRepository
	scans repository.ScanRepository
}

// NewAnalyticsService returns an aggregator over the given repositories.
func NewAnalyticsService(codes repository.QRCodeRepository, scans repository.ScanRepository) AnalyticsService {
	return &analyticsService{codes: codes, scans: scans}
}

func (s *analyticsService) Summary(ctx context.Context, ownerID string, codeID uint, w repository.Window) (*AnalyticsSummary, error) {
	code, err := s.codes.GetByID(ctx, codeID)
	if err != nil {
		return nil, fmt.Errorf("load code: %w", err)
	}
	if ownerID != "" && code.OwnerID != ownerID {
		return nil, ErrNotOwner
	}

	summary := &AnalyticsSummary{CodeID: codeID}

	if summary.TotalScans, err = s.scans.CountEvents(ctx, codeID, w); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	if summary.UniqueVisitors, err = s.scans.DistinctVisitors(ctx, codeID, w); err != nil {
		return nil, fmt.Errorf("count distinct visitors: %w", err)
	}
	if summary.ByDevice, err = s.scans.DeviceBreakdown(ctx, codeID, w); err != nil {
		return nil, fmt.Errorf("device breakdown: %w", err)
	}
	if summary.ByBrowser, err = s.scans.BrowserBreakdown(ctx, codeID, w); err != nil {
		return nil, fmt.Errorf("browser breakdown: %w", err)
	}
	if summary.ByOS, err = s.scans.OSBreakdown(ctx, codeID, w); err != nil {
		return nil, fmt.Errorf("os breakdown: %w", err)
	}
	if summary.Timeline, err = s.scans.DailyCounts(ctx, codeID, w); err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}
	if summary.RecentScans, err = s.scans.RecentScans(ctx, codeID, 10); err != nil {
		return nil, fmt.Errorf("recent scans: %w", err)
	}

	if summary.ByDevice == nil {
		summary.ByDevice = []repository.Bucket{}
	}
	if summary.ByBrowser == nil {
		summary.ByBrowser = []repository.Bucket{}
	}
	if summary.ByOS == nil {
		summary.ByOS = []repository.Bucket{}
	}
	if summary.Timeline == nil {
		summary.Timeline = []repository.TimeBucket{}
	}
	if summary.RecentScans == nil {
		summary.RecentScans = []model.ScanEvent{}
	}

	return summary, nil
}
