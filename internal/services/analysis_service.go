// Package services wires the engine's pieces into the operations the
// outer layers call: training a baseline from statement bytes and
// producing insight reports against it.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finsight/internal/amqp"
	"finsight/internal/baseline"
	"finsight/internal/core"
	"finsight/internal/insight"
	"finsight/internal/log"
	"finsight/internal/statement"
	"finsight/internal/storage"
)

// TrainResult is what a successful training run reports back: the monthly
// aggregates of the window and their averages.
type TrainResult struct {
	Months    []core.MonthlyAggregate
	Averages  core.Averages
	TrainedAt time.Time
}

// AnalysisService runs the parse → window → aggregate → store pipeline
// and answers insight requests. The ledger and AMQP client are optional:
// without a ledger there is no retraining, without AMQP no events are
// published.
type AnalysisService struct {
	baselines    *baseline.Store
	generator    *insight.Generator
	ledger       *storage.SQLiteRepository
	amqpClient   *amqp.Client
	windowMonths int
}

func NewAnalysisService(baselines *baseline.Store, ledger *storage.SQLiteRepository, amqpClient *amqp.Client) *AnalysisService {
	return &AnalysisService{
		baselines:    baselines,
		generator:    insight.NewGenerator(baselines),
		ledger:       ledger,
		amqpClient:   amqpClient,
		windowMonths: baseline.DefaultWindowMonths,
	}
}

// WithWindowMonths overrides the trailing window length used for
// training. Lengths below one month are ignored.
func (s *AnalysisService) WithWindowMonths(months int) *AnalysisService {
	if months >= 1 {
		s.windowMonths = months
	}
	return s
}

// Generator exposes the insight generator, mainly so callers can pin its
// clock.
func (s *AnalysisService) Generator() *insight.Generator {
	return s.generator
}

// Train ingests a statement export and replaces the user's baseline.
//
// The replace is atomic: any failure before the store write leaves a
// previously trained baseline untouched. Failure modes are
// core.ErrMalformedInput and core.ErrEmptyWindow, both deterministic and
// recoverable by the caller.
func (s *AnalysisService) Train(ctx context.Context, userID string, csvData []byte) (TrainResult, error) {
	if userID == "" {
		return TrainResult{}, fmt.Errorf("%w: empty user id", core.ErrMalformedInput)
	}

	records, err := statement.Parse(csvData)
	if err != nil {
		return TrainResult{}, fmt.Errorf("parse statement: %w", err)
	}

	return s.train(ctx, userID, records)
}

// RetrainFromLedger rebuilds the user's baseline from their ledger rows
// instead of a fresh upload. Same window, aggregation and atomicity as
// Train.
func (s *AnalysisService) RetrainFromLedger(ctx context.Context, userID string) (TrainResult, error) {
	if s.ledger == nil {
		return TrainResult{}, fmt.Errorf("no ledger configured")
	}

	rows, err := s.ledger.ListTransactions(ctx, userID)
	if err != nil {
		return TrainResult{}, fmt.Errorf("load ledger: %w", err)
	}
	if len(rows) == 0 {
		return TrainResult{}, fmt.Errorf("%w: empty ledger for %s", core.ErrEmptyWindow, userID)
	}

	records := make([]core.TransactionRecord, len(rows))
	for i, row := range rows {
		records[i] = row.Record()
	}

	return s.train(ctx, userID, records)
}

func (s *AnalysisService) train(ctx context.Context, userID string, records []core.TransactionRecord) (TrainResult, error) {
	windowed, err := baseline.Window(records, s.windowMonths)
	if err != nil {
		return TrainResult{}, err
	}

	agg := baseline.Aggregate(windowed)
	b := core.Baseline{
		UserID:    userID,
		Months:    agg.Months,
		Averages:  agg.Averages,
		TrainedAt: time.Now(),
	}
	s.baselines.Put(b)

	slog.InfoContext(ctx, "Baseline trained",
		log.FieldUserID, userID,
		log.FieldMonthsInWindow, len(agg.Months),
		log.FieldRecordsInWindow, len(windowed))

	// Event publishing is best-effort: the baseline is already stored.
	if err := s.publishTrained(ctx, b); err != nil {
		slog.ErrorContext(ctx, "Failed to publish baseline trained event",
			log.FieldUserID, userID, log.FieldError, err)
	}

	return TrainResult{Months: agg.Months, Averages: agg.Averages, TrainedAt: b.TrainedAt}, nil
}

// Insights compares the reported partial-month totals against the user's
// baseline. Failure modes are core.ErrNoBaseline and core.ErrZeroAverage.
func (s *AnalysisService) Insights(ctx context.Context, userID string, currentExpense, currentSavings float64) (core.InsightReport, error) {
	return s.generator.Report(ctx, userID, currentExpense, currentSavings)
}

func (s *AnalysisService) publishTrained(ctx context.Context, b core.Baseline) error {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping trained event")
		return nil
	}
	return s.amqpClient.PublishBaselineTrained(ctx, &amqp.BaselineTrainedMessage{
		UserID:         b.UserID,
		MonthsInWindow: len(b.Months),
		AvgExpenses:    core.Round2(b.Averages.Expenses),
		AvgSavings:     core.Round2(b.Averages.Savings),
		AvgIncome:      core.Round2(b.Averages.Income),
		TrainedAt:      b.TrainedAt,
	})
}

// Close releases the service's external resources.
func (s *AnalysisService) Close() error {
	var errs []error

	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ledger: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close analysis service: %v", errs)
	}
	return nil
}
