package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/taskbridge/internal/domain"
	"github.com/sawpanic/taskbridge/internal/metrics"
	"github.com/sawpanic/taskbridge/internal/persistence"
)

// CurrencySource resolves a ledger's display currency symbol.
type CurrencySource interface {
	GetLedgerCurrency(ctx context.Context, ledgerID string) (string, error)
}

// TaskCreator creates task-manager items.
type TaskCreator interface {
	CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error)
}

// TransformerConfig holds the transaction rules.
type TransformerConfig struct {
	ProjectID      string
	CategoryName   string
	AmountUnit     string
	MaxConcurrency int

	// Dedup claims "txn_<ledger>_<id>" in the store before each create.
	Dedup    bool
	DedupTTL time.Duration
}

// Transformer turns forwarded payloads into tasks.
type Transformer struct {
	cfg      TransformerConfig
	currency CurrencySource
	tasks    TaskCreator
	claims   persistence.KV
	metrics  *metrics.Registry
}

// NewTransformer wires a transformer. claims is only used when cfg.Dedup is set
// and m may be nil.
func NewTransformer(cfg TransformerConfig, currency CurrencySource, tasks TaskCreator, claims persistence.KV, m *metrics.Registry) *Transformer {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if claims == nil {
		cfg.Dedup = false
	}
	return &Transformer{cfg: cfg, currency: currency, tasks: tasks, claims: claims, metrics: m}
}

// DedupKey is the store key claimed for a ledger transaction.
func DedupKey(ledgerID, transactionID string) string {
	return "txn_" + ledgerID + "_" + transactionID
}

// Transform creates one task per qualifying transaction across all ledgers.
// Ledgers and tasks fan out; the first failure cancels the rest and is returned.
func (t *Transformer) Transform(ctx context.Context, payload domain.Payload) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.MaxConcurrency)

	for ledgerID, txns := range payload {
		ledgerID, txns := ledgerID, txns
		g.Go(func() error {
			return t.transformLedger(gctx, ledgerID, txns)
		})
	}

	err := g.Wait()
	if t.metrics != nil {
		result := "success"
		if err != nil {
			result = "failed"
		}
		t.metrics.TransformRuns.WithLabelValues(result).Inc()
	}
	return err
}

func (t *Transformer) transformLedger(ctx context.Context, ledgerID string, txns []domain.Transaction) error {
	logger := log.With().Str("ledger", ledgerID).Logger()

	var qualifying []domain.Transaction
	for _, txn := range Flatten(txns) {
		if Qualifies(txn, t.cfg.CategoryName) {
			qualifying = append(qualifying, txn)
		}
	}
	if len(qualifying) == 0 {
		logger.Debug().Int("received", len(txns)).Msg("No qualifying transactions")
		return nil
	}

	currency, err := t.currency.GetLedgerCurrency(ctx, ledgerID)
	if err != nil {
		return fmt.Errorf("failed to read currency for %s: %w", ledgerID, err)
	}

	rendered := make([]RenderedTask, len(qualifying))
	for i, txn := range qualifying {
		if rendered[i], err = Render(txn, currency, t.cfg.AmountUnit); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.MaxConcurrency)
	for i := range qualifying {
		txn, task := qualifying[i], rendered[i]
		g.Go(func() error {
			return t.create(gctx, ledgerID, txn, task)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info().Int("tasks", len(qualifying)).Str("currency", currency).Msg("Created money-owed tasks")
	return nil
}

func (t *Transformer) create(ctx context.Context, ledgerID string, txn domain.Transaction, task RenderedTask) error {
	claimed := ""
	if t.cfg.Dedup && txn.ID != "" {
		key := DedupKey(ledgerID, txn.ID)
		ok, err := t.claims.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), t.cfg.DedupTTL)
		if err != nil {
			return fmt.Errorf("failed to claim transaction %s: %w", txn.ID, err)
		}
		if !ok {
			log.Info().Str("ledger", ledgerID).Str("transaction", txn.ID).Msg("Transaction already turned into a task, skipping")
			if t.metrics != nil {
				t.metrics.DedupSkipped.Inc()
			}
			return nil
		}
		claimed = key
	}

	_, err := t.tasks.CreateTask(ctx, domain.TaskInput{
		ProjectID:   t.cfg.ProjectID,
		Content:     task.Content,
		Description: task.Description,
		DueDate:     task.DueDate,
	})
	if err != nil {
		if claimed != "" {
			// ctx may already be cancelled by a sibling failure
			if derr := t.claims.Delete(context.WithoutCancel(ctx), claimed); derr != nil {
				log.Warn().Err(derr).Str("key", claimed).Msg("Failed to release transaction claim")
			}
		}
		return fmt.Errorf("failed to create task for transaction %s: %w", txn.ID, err)
	}

	if t.metrics != nil {
		t.metrics.TasksCreated.WithLabelValues("ledger").Inc()
	}
	return nil
}
