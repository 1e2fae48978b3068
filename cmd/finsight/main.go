package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"finsight/internal/amqp"
	"finsight/internal/baseline"
	"finsight/internal/config"
	"finsight/internal/core"
	"finsight/internal/log"
	"finsight/internal/services"
	"finsight/internal/storage"
)

const usage = `Usage: finsight <command> [options]

Commands:
  train      user=statement.csv [user2=other.csv ...]  train baselines from statement exports
  analyze    -user U -file F -expense X -savings Y     train then report insights in one go
  insights   -user U -expense X -savings Y             report insights against the ledger baseline
  ledger     add|list                                  manage the transaction ledger
  milestone  add|list|outlook                          manage savings milestones
`

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Logs go to stderr so command output on stdout stays parseable.
	logger := log.New(log.Config{
		Component: log.ComponentCLI,
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
	})
	log.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fatal("Invalid configuration", err)
	}

	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "train":
		err = runTrain(ctx, cfg, os.Args[2:])
	case "analyze":
		err = runAnalyze(ctx, cfg, os.Args[2:])
	case "insights":
		err = runInsights(ctx, cfg, os.Args[2:])
	case "ledger":
		err = runLedger(ctx, cfg, os.Args[2:])
	case "milestone":
		err = runMilestone(ctx, cfg, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fatal("Command failed", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	fmt.Fprintf(os.Stderr, "finsight: %v\n", err)
	os.Exit(1)
}

// runTrain trains one baseline per user=file pair. With -queue the pairs
// are published to the worker instead of trained in-process.
func runTrain(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	queue := fs.Bool("queue", false, "publish train requests to AMQP instead of training locally")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pairs, err := parseTrainPairs(fs.Args())
	if err != nil {
		return err
	}

	if *queue {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPTrainQueue, cfg.AMQPEventQueue)
		if err != nil {
			return fmt.Errorf("connect AMQP: %w", err)
		}
		defer client.Close()

		for _, p := range pairs {
			if err := client.PublishTrainRequest(ctx, p.userID, p.path); err != nil {
				return fmt.Errorf("queue train request for %s: %w", p.userID, err)
			}
			fmt.Printf("queued %s (%s)\n", p.userID, p.path)
		}
		return nil
	}

	store := baseline.NewStore()
	analysis := services.NewAnalysisService(store, nil, nil).WithWindowMonths(cfg.WindowMonths)

	g, gctx := errgroup.WithContext(ctx)
	results := make([]services.TrainResult, len(pairs))
	for i, p := range pairs {
		g.Go(func() error {
			data, err := os.ReadFile(p.path)
			if err != nil {
				return fmt.Errorf("read %s: %w", p.path, err)
			}
			res, err := analysis.Train(gctx, p.userID, data)
			if err != nil {
				return fmt.Errorf("train %s: %w", p.userID, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, p := range pairs {
		res := results[i]
		fmt.Printf("%s: %d month(s) in window, avg income %.2f, expenses %.2f, savings %.2f\n",
			p.userID, len(res.Months),
			core.Round2(res.Averages.Income),
			core.Round2(res.Averages.Expenses),
			core.Round2(res.Averages.Savings))
	}
	return nil
}

type trainPair struct {
	userID string
	path   string
}

func parseTrainPairs(args []string) ([]trainPair, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("train needs at least one user=statement.csv pair")
	}
	pairs := make([]trainPair, 0, len(args))
	for _, arg := range args {
		user, path, ok := strings.Cut(arg, "=")
		if !ok || user == "" || path == "" {
			return nil, fmt.Errorf("invalid pair %q: expected user=statement.csv", arg)
		}
		pairs = append(pairs, trainPair{userID: user, path: path})
	}
	return pairs, nil
}

// runAnalyze trains from a statement and reports insights in one process.
// The baseline store is in-memory, so splitting the two into separate
// invocations would lose the trained baseline in between.
func runAnalyze(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	file := fs.String("file", "", "statement CSV file")
	expense := fs.Float64("expense", 0, "current month expense total so far")
	savings := fs.Float64("savings", 0, "current month savings total so far")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" || *file == "" {
		return fmt.Errorf("analyze requires -user and -file")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read %s: %w", *file, err)
	}

	analysis := services.NewAnalysisService(baseline.NewStore(), nil, nil).WithWindowMonths(cfg.WindowMonths)
	if _, err := analysis.Train(ctx, *user, data); err != nil {
		return err
	}

	report, err := analysis.Insights(ctx, *user, *expense, *savings)
	if err != nil {
		return err
	}
	return printJSON(report)
}

// runInsights rebuilds the user's baseline from the ledger and reports
// against it.
func runInsights(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("insights", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	expense := fs.Float64("expense", 0, "current month expense total so far")
	savings := fs.Float64("savings", 0, "current month savings total so far")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return fmt.Errorf("insights requires -user")
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	analysis := services.NewAnalysisService(baseline.NewStore(), repo, nil).WithWindowMonths(cfg.WindowMonths)
	defer analysis.Close()

	if _, err := analysis.RetrainFromLedger(ctx, *user); err != nil {
		if isEarlyMonth(err) {
			// Too early in the month to judge: the ledger has nothing for
			// this user yet, and that is expected in the first days.
			fmt.Println("No transactions recorded yet this early in the month. Add transactions or upload a statement to get insights.")
			return nil
		}
		return err
	}

	report, err := analysis.Insights(ctx, *user, *expense, *savings)
	if err != nil {
		return err
	}
	return printJSON(report)
}

// isEarlyMonth reports whether a missing baseline should be softened: an
// empty ledger inside the first five days of the month is normal, not an
// error worth alarming the user about.
func isEarlyMonth(err error) bool {
	if !errors.Is(err, core.ErrEmptyWindow) && !errors.Is(err, core.ErrNoBaseline) {
		return false
	}
	return time.Now().Day() <= 5
}

func runLedger(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("ledger needs a subcommand: add or list")
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer repo.Close()

	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("ledger add", flag.ExitOnError)
		user := fs.String("user", "", "user id")
		date := fs.String("date", time.Now().Format("2006-01-02"), "transaction date (YYYY-MM-DD)")
		amount := fs.String("amount", "", "transaction amount, e.g. 12.50")
		kind := fs.String("kind", "", "Credited or Debited")
		category := fs.String("category", "", "optional category")
		method := fs.String("method", "", "optional payment method")
		receiver := fs.String("receiver", "", "optional receiver")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		d, err := time.Parse("2006-01-02", *date)
		if err != nil {
			return fmt.Errorf("%w: invalid date %q", core.ErrMalformedInput, *date)
		}
		cents, err := core.ParseAmountToCents(*amount)
		if err != nil {
			return err
		}

		id, err := repo.AddTransaction(ctx, storage.LedgerTransaction{
			UserID:      *user,
			Date:        d,
			AmountCents: cents,
			Kind:        core.TxnKind(*kind),
			Category:    *category,
			Method:      *method,
			Receiver:    *receiver,
		})
		if err != nil {
			return err
		}
		fmt.Printf("added transaction %d\n", id)
		return nil

	case "list":
		fs := flag.NewFlagSet("ledger list", flag.ExitOnError)
		user := fs.String("user", "", "user id")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *user == "" {
			return fmt.Errorf("ledger list requires -user")
		}

		txns, err := repo.ListTransactions(ctx, *user)
		if err != nil {
			return err
		}
		for _, t := range txns {
			fmt.Printf("%d\t%s\t%8.2f\t%s\t%s\n",
				t.ID, t.Date.Format("2006-01-02"),
				core.Money{Cents: t.AmountCents}.Units(),
				t.Kind, t.Category)
		}
		return nil

	default:
		return fmt.Errorf("unknown ledger subcommand %q", args[0])
	}
}

func runMilestone(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("milestone needs a subcommand: add, list or outlook")
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer repo.Close()

	store := baseline.NewStore()
	analysis := services.NewAnalysisService(store, repo, nil).WithWindowMonths(cfg.WindowMonths)
	milestones := services.NewMilestoneService(repo, store)

	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("milestone add", flag.ExitOnError)
		user := fs.String("user", "", "user id")
		goal := fs.String("goal", "", "goal amount, e.g. 4000")
		saved := fs.String("saved", "0", "amount already saved")
		duration := fs.String("duration", "", "optional target duration, e.g. '12 months'")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		goalCents, err := core.ParseAmountToCents(*goal)
		if err != nil {
			return fmt.Errorf("invalid goal: %w", err)
		}
		savedCents, err := core.ParseAmountToCents(*saved)
		if err != nil {
			return fmt.Errorf("invalid saved amount: %w", err)
		}

		id, err := milestones.Create(ctx, storage.Milestone{
			UserID:     *user,
			SavedCents: savedCents,
			GoalCents:  goalCents,
			Duration:   *duration,
		})
		if err != nil {
			return err
		}
		fmt.Printf("added milestone %d\n", id)
		return nil

	case "list":
		fs := flag.NewFlagSet("milestone list", flag.ExitOnError)
		user := fs.String("user", "", "user id")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *user == "" {
			return fmt.Errorf("milestone list requires -user")
		}

		ms, err := milestones.List(ctx, *user)
		if err != nil {
			return err
		}
		for _, m := range ms {
			fmt.Printf("%d\tsaved %.2f of %.2f\t%s\n",
				m.ID,
				core.Money{Cents: m.SavedCents}.Units(),
				core.Money{Cents: m.GoalCents}.Units(),
				m.Duration)
		}
		return nil

	case "outlook":
		fs := flag.NewFlagSet("milestone outlook", flag.ExitOnError)
		id := fs.Int64("id", 0, "milestone id")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *id == 0 {
			return fmt.Errorf("milestone outlook requires -id")
		}

		// The months-to-goal estimate needs a baseline; rebuild it from
		// the ledger first so the outlook reflects current habits.
		m, err := repo.GetMilestone(ctx, *id)
		if err != nil {
			return err
		}
		if _, err := analysis.RetrainFromLedger(ctx, m.UserID); err != nil &&
			!errors.Is(err, core.ErrEmptyWindow) {
			return err
		}

		out, err := milestones.Outlook(ctx, *id)
		if err != nil {
			return err
		}
		return printJSON(out)

	default:
		return fmt.Errorf("unknown milestone subcommand %q", args[0])
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
