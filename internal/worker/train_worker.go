// Package worker runs baseline training off the request path: it consumes
// train requests from the queue and periodically retrains every ledger
// user, since the in-memory baselines vanish on restart.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"finsight/internal/amqp"
	"finsight/internal/core"
	"finsight/internal/log"
	"finsight/internal/services"
	"finsight/internal/storage"
)

type TrainWorker struct {
	analysis *services.AnalysisService
	ledger   *storage.SQLiteRepository
}

func NewTrainWorker(analysis *services.AnalysisService, ledger *storage.SQLiteRepository) *TrainWorker {
	return &TrainWorker{analysis: analysis, ledger: ledger}
}

// HandleTrainRequest processes one queued train request: read the
// statement file the uploader dropped and run it through the engine.
func (w *TrainWorker) HandleTrainRequest(ctx context.Context, msg *amqp.TrainRequestMessage) error {
	slog.InfoContext(ctx, "Processing train request",
		log.FieldUserID, msg.UserID,
		log.FieldCSVPath, msg.CSVPath)

	data, err := os.ReadFile(msg.CSVPath)
	if err != nil {
		return fmt.Errorf("read statement file: %w", err)
	}

	res, err := w.analysis.Train(ctx, msg.UserID, data)
	if err != nil {
		if errors.Is(err, core.ErrMalformedInput) || errors.Is(err, core.ErrEmptyWindow) {
			// Deterministic data problems: log and drop, a retry would
			// fail identically.
			slog.WarnContext(ctx, "Train request rejected",
				log.FieldUserID, msg.UserID,
				log.FieldCSVPath, msg.CSVPath,
				log.FieldError, err)
			return nil
		}
		return fmt.Errorf("train baseline: %w", err)
	}

	slog.InfoContext(ctx, "Train request completed",
		log.FieldUserID, msg.UserID,
		log.FieldMonthsInWindow, len(res.Months))
	return nil
}

// RetrainAll rebuilds the baseline of every user present in the ledger.
// Per-user failures are logged and skipped so one bad ledger cannot stall
// the rest.
func (w *TrainWorker) RetrainAll(ctx context.Context) error {
	if w.ledger == nil {
		return nil
	}

	users, err := w.ledger.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list ledger users: %w", err)
	}
	if len(users) == 0 {
		return nil
	}

	retrained := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := w.analysis.RetrainFromLedger(ctx, userID); err != nil {
			slog.WarnContext(ctx, "Retrain skipped",
				log.FieldUserID, userID,
				log.FieldError, err)
			continue
		}
		retrained++
	}

	slog.InfoContext(ctx, "Ledger retrain pass completed",
		"users", len(users),
		"retrained", retrained)
	return nil
}

// RunPeriodicRetrain retrains on startup and then on every tick until the
// context is cancelled.
func (w *TrainWorker) RunPeriodicRetrain(ctx context.Context, interval time.Duration) error {
	if err := w.RetrainAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.ErrorContext(ctx, "Startup retrain failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.RetrainAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.ErrorContext(ctx, "Periodic retrain failed", "error", err)
			}
		}
	}
}
