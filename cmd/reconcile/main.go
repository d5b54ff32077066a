package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/cloudflying87/qrgenerator/config"
	"github.com/cloudflying87/qrgenerator/internal/infra/logger"
	infraPostgres "github.com/cloudflying87/qrgenerator/internal/infra/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Recomputes total_scans, unique_scans and last_scanned_at for every code
// from the scan event log. The serving path keeps the counters in the same
// transaction as each event, so drift only appears after manual data surgery
// or a restored backup; this job repairs it.
func main() {
	dryRun := flag.Bool("dry-run", false, "report drift without writing")
	flag.Parse()

	log := logger.MustInit(logger.Config{
		Development: os.Getenv("APP_ENV") != "production",
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	drifted, err := findDrift(ctx, pool)
	if err != nil {
		log.Fatal("Failed to compute drift", zap.Error(err))
	}

	if len(drifted) == 0 {
		log.Info("Counters already consistent with the scan log")
		return
	}

	for _, d := range drifted {
		log.Info("Counter drift detected",
			zap.Uint64("code_id", d.CodeID),
			zap.Int64("stored_total", d.StoredTotal),
			zap.Int64("actual_total", d.ActualTotal),
			zap.Int64("stored_unique", d.StoredUnique),
			zap.Int64("actual_unique", d.ActualUnique),
		)
	}

	if *dryRun {
		log.Info("Dry run, not writing", zap.Int("drifted_codes", len(drifted)))
		return
	}

	repaired, err := repair(ctx, pool)
	if err != nil {
		log.Fatal("Failed to repair counters", zap.Error(err))
	}
	log.Info("Counters reconciled", zap.Int64("codes_updated", repaired))
}

type drift struct {
	CodeID       uint64
	StoredTotal  int64
	ActualTotal  int64
	StoredUnique int64
	ActualUnique int64
}

const driftQuery = `
SELECT q.id,
       q.total_scans,
       COALESCE(s.total, 0)  AS actual_total,
       q.unique_scans,
       COALESCE(s.uniq, 0)   AS actual_unique
FROM qr_codes q
LEFT JOIN (
    SELECT code_id,
           COUNT(*)                    AS total,
           COUNT(DISTINCT visitor_id)  AS uniq
    FROM scan_events
    GROUP BY code_id
) s ON s.code_id = q.id
WHERE q.total_scans  <> COALESCE(s.total, 0)
   OR q.unique_scans <> COALESCE(s.uniq, 0)
ORDER BY q.id`

func findDrift(ctx context.Context, pool *pgxpool.Pool) ([]drift, error) {
	rows, err := pool.Query(ctx, driftQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []drift
	for rows.Next() {
		var d drift
		if err := rows.Scan(&d.CodeID, &d.StoredTotal, &d.ActualTotal, &d.StoredUnique, &d.ActualUnique); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const repairQuery = `
UPDATE qr_codes q
SET total_scans     = COALESCE(s.total, 0),
    unique_scans    = COALESCE(s.uniq, 0),
    last_scanned_at = s.last_at
FROM (
    SELECT code_id,
           COUNT(*)                    AS total,
           COUNT(DISTINCT visitor_id)  AS uniq,
           MAX(observed_at)            AS last_at
    FROM scan_events
    GROUP BY code_id
) s
WHERE s.code_id = q.id
  AND (q.total_scans <> s.total OR q.unique_scans <> s.uniq)`

// repair also zeroes codes whose events were purged entirely.
const repairEmptyQuery = `
UPDATE qr_codes q
SET total_scans = 0, unique_scans = 0
WHERE (q.total_scans <> 0 OR q.unique_scans <> 0)
  AND NOT EXISTS (SELECT 1 FROM scan_events e WHERE e.code_id = q.id)`

func repair(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, repairQuery)
	if err != nil {
		return 0, err
	}
	updated := tag.RowsAffected()

	tag, err = tx.Exec(ctx, repairEmptyQuery)
	if err != nil {
		return 0, err
	}
	updated += tag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return updated, nil
}
