package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/taskbridge/internal/clients/ynab"
	"github.com/sawpanic/taskbridge/internal/domain"
	"github.com/sawpanic/taskbridge/internal/metrics"
)

// Source fetches transactions newer than a server-knowledge cursor.
// An empty cursor asks for the full history.
type Source interface {
	GetTransactionsSince(ctx context.Context, ledgerID, cursor string) (ynab.TransactionsPage, error)
}

// Forwarder delivers an aggregated payload downstream. A nil error means
// the receiver accepted it.
type Forwarder interface {
	Forward(ctx context.Context, payload domain.Payload) error
}

// Cursors reads and writes per-ledger cursors.
type Cursors interface {
	Get(ctx context.Context, ledgerID string) (string, bool, error)
	Set(ctx context.Context, ledgerID, cursor string) error
}

// Poller runs one fetch, forward, commit cycle over a fixed set of ledgers.
type Poller struct {
	ledgers        []string
	source         Source
	forwarder      Forwarder
	cursors        Cursors
	maxConcurrency int
	metrics        *metrics.Registry
}

func NewPoller(ledgers []string, source Source, forwarder Forwarder, cursors Cursors, maxConcurrency int, m *metrics.Registry) *Poller {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Poller{
		ledgers:        append([]string(nil), ledgers...),
		source:         source,
		forwarder:      forwarder,
		cursors:        cursors,
		maxConcurrency: maxConcurrency,
		metrics:        m,
	}
}

type fetched struct {
	transactions []domain.Transaction
	knowledge    string
}

// Run fetches every ledger concurrently, forwards the aggregate once and only
// then commits the new cursors. Nothing is committed unless the forward
// succeeded, so a failed cycle is retried in full by the next one.
func (p *Poller) Run(ctx context.Context) error {
	start := time.Now()
	err := p.run(ctx)

	if p.metrics != nil {
		result := "success"
		if err != nil {
			result = "failed"
		}
		p.metrics.RecordPoll(result, time.Since(start))
	}
	return err
}

func (p *Poller) run(ctx context.Context) error {
	if len(p.ledgers) == 0 {
		log.Debug().Msg("No ledgers configured, nothing to poll")
		return nil
	}

	var mu sync.Mutex
	results := make(map[string]fetched, len(p.ledgers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrency)
	for _, id := range p.ledgers {
		id := id
		g.Go(func() error {
			cursor, _, err := p.cursors.Get(gctx, id)
			if err != nil {
				return err
			}
			page, err := p.source.GetTransactionsSince(gctx, id, cursor)
			if err != nil {
				return fmt.Errorf("failed to fetch transactions for %s: %w", id, err)
			}
			log.Debug().
				Str("ledger", id).
				Str("cursor", cursor).
				Str("knowledge", page.Knowledge).
				Int("transactions", len(page.Transactions)).
				Msg("Fetched ledger delta")

			mu.Lock()
			results[id] = fetched{transactions: page.Transactions, knowledge: page.Knowledge}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	payload := make(domain.Payload, len(results))
	total := 0
	for id, r := range results {
		txns := r.transactions
		if txns == nil {
			txns = []domain.Transaction{}
		}
		payload[id] = txns
		total += len(txns)
	}

	if err := p.forwarder.Forward(ctx, payload); err != nil {
		return fmt.Errorf("failed to forward %d transactions: %w", total, err)
	}
	if p.metrics != nil {
		p.metrics.TransactionsForwarded.Add(float64(total))
	}

	var errs []error
	for _, id := range p.ledgers {
		r := results[id]
		if r.knowledge == "" {
			continue
		}
		if err := p.cursors.Set(ctx, id, r.knowledge); err != nil {
			errs = append(errs, err)
			continue
		}
		if p.metrics != nil {
			p.metrics.CursorCommits.WithLabelValues(id).Inc()
		}
	}

	log.Info().Int("ledgers", len(p.ledgers)).Int("transactions", total).Msg("Poll cycle complete")
	return errors.Join(errs...)
}
