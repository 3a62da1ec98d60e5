package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/taskbridge/internal/config"
	"github.com/sawpanic/taskbridge/internal/domain"
	"github.com/sawpanic/taskbridge/internal/metrics"
	"github.com/sawpanic/taskbridge/internal/persistence/memory"
)

type fakeCurrency map[string]string

func (f fakeCurrency) GetLedgerCurrency(_ context.Context, id string) (string, error) {
	return f[id], nil
}

type recordingTasks struct {
	mu      sync.Mutex
	created []domain.TaskInput
	failFor string
}

func (r *recordingTasks) CreateTask(_ context.Context, in domain.TaskInput) (domain.Task, error) {
	if r.failFor != "" && in.Content == r.failFor {
		return domain.Task{}, errors.New("task manager unavailable")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, in)
	return domain.Task{ID: "t", Content: in.Content}, nil
}

func (r *recordingTasks) contents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.created))
	for _, c := range r.created {
		out = append(out, c.Content)
	}
	sort.Strings(out)
	return out
}

func owed(id string, amount int64, payee string) domain.Transaction {
	return domain.Transaction{
		ID: id, Amount: amount, Date: "2024-01-01", PayeeName: payee,
		Approved: true, Cleared: domain.ClearedCleared, CategoryName: "Money Owed",
	}
}

func transformerConfig() TransformerConfig {
	return TransformerConfig{
		ProjectID:      "owed",
		CategoryName:   "Money Owed",
		AmountUnit:     config.AmountUnitMinor,
		MaxConcurrency: 4,
		DedupTTL:       time.Hour,
	}
}

func TestTransform_EndToEnd(t *testing.T) {
	p, err := DecodePayload([]byte(`{"b1":[{"amount":-2000,"approved":true,"cleared":"cleared","category_name":"Money Owed","date":"2024-01-01","payee_name":"Alice","memo":null,"subtransactions":[]}]}`))
	require.NoError(t, err)

	tasks := &recordingTasks{}
	m := metrics.New()
	tr := NewTransformer(transformerConfig(), fakeCurrency{}, tasks, nil, m)
	require.NoError(t, tr.Transform(context.Background(), p))

	require.Len(t, tasks.created, 1)
	assert.Equal(t, domain.TaskInput{
		ProjectID:   "owed",
		Content:     "(20) Alice",
		Description: "since 01/01/2024",
		DueDate:     "2024-01-03",
	}, tasks.created[0])
	assert.Equal(t, float64(1), metrics.CounterValue(m.TasksCreated.WithLabelValues("ledger")))
	assert.Equal(t, float64(1), metrics.CounterValue(m.TransformRuns.WithLabelValues("success")))
}

func TestTransform_FiltersAndCurrency(t *testing.T) {
	unapproved := owed("u", -100, "Nope")
	unapproved.Approved = false
	split := domain.Transaction{
		ID: "s", Date: "2024-01-01", PayeeName: "Bistro", Memo: "dinner",
		Approved: true, Cleared: domain.ClearedReconciled,
		Subtransactions: []domain.Transaction{
			{ID: "s1", Amount: -500, CategoryName: "Money Owed", Memo: "Bob"},
			{ID: "s2", Amount: -300, CategoryName: "Dining"},
		},
	}

	payload := domain.Payload{
		"gbp": {owed("a", -1050, "Alice"), unapproved, split},
		"eur": {owed("c", -1000, "Carol")},
		"nil": {unapproved},
	}

	tasks := &recordingTasks{}
	tr := NewTransformer(transformerConfig(), fakeCurrency{"gbp": "£", "eur": "€"}, tasks, nil, nil)
	require.NoError(t, tr.Transform(context.Background(), payload))

	assert.Equal(t, []string{
		"(£10.50) Alice",
		"(£5) Bob, dinner (Bistro)",
		"(€10) Carol",
	}, tasks.contents())
}

func TestTransform_CreateFailureIsReturned(t *testing.T) {
	tasks := &recordingTasks{failFor: "(10) Bob"}
	m := metrics.New()
	tr := NewTransformer(transformerConfig(), fakeCurrency{}, tasks, nil, m)

	err := tr.Transform(context.Background(), domain.Payload{"b1": {owed("b", -1000, "Bob")}})
	require.Error(t, err)
	assert.Equal(t, float64(1), metrics.CounterValue(m.TransformRuns.WithLabelValues("failed")))
}

func TestTransform_WithoutDedupDuplicatesAreCreatedTwice(t *testing.T) {
	tasks := &recordingTasks{}
	tr := NewTransformer(transformerConfig(), fakeCurrency{}, tasks, memory.New(), nil)
	p := domain.Payload{"b1": {owed("a", -2000, "Alice")}}

	require.NoError(t, tr.Transform(context.Background(), p))
	require.NoError(t, tr.Transform(context.Background(), p))
	assert.Len(t, tasks.created, 2)
}

func TestTransform_Dedup(t *testing.T) {
	cfg := transformerConfig()
	cfg.Dedup = true
	store := memory.New()
	m := metrics.New()
	p := domain.Payload{"b1": {owed("a", -2000, "Alice")}}

	t.Run("redelivery creates once", func(t *testing.T) {
		tasks := &recordingTasks{}
		tr := NewTransformer(cfg, fakeCurrency{}, tasks, store, m)

		require.NoError(t, tr.Transform(context.Background(), p))
		require.NoError(t, tr.Transform(context.Background(), p))
		assert.Len(t, tasks.created, 1)
		assert.Equal(t, float64(1), metrics.CounterValue(m.DedupSkipped))

		_, ok, err := store.Get(context.Background(), DedupKey("b1", "a"))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("failed create releases the claim", func(t *testing.T) {
		failing := &recordingTasks{failFor: "(30) Bob"}
		bob := domain.Payload{"b1": {owed("b", -3000, "Bob")}}
		require.Error(t, NewTransformer(cfg, fakeCurrency{}, failing, store, m).Transform(context.Background(), bob))

		_, ok, err := store.Get(context.Background(), DedupKey("b1", "b"))
		require.NoError(t, err)
		assert.False(t, ok)

		tasks := &recordingTasks{}
		require.NoError(t, NewTransformer(cfg, fakeCurrency{}, tasks, store, m).Transform(context.Background(), bob))
		assert.Len(t, tasks.created, 1)
	})
}
