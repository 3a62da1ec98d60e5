package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/taskbridge/internal/domain"
)

func TestRenderIssueLink(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		number int
		want   string
	}{
		{"number from payload", "https://github.com/acme/app/issues/7", 7, "[#7](https://github.com/acme/app/issues/7)"},
		{"number from url", "https://github.com/acme/app/issues/19", 0, "[#19](https://github.com/acme/app/issues/19)"},
		{"trailing slash", "https://github.com/acme/app/issues/19/", 0, "[#19](https://github.com/acme/app/issues/19/)"},
		{"whitespace trimmed", "  https://github.com/acme/app/issues/3 ", 3, "[#3](https://github.com/acme/app/issues/3)"},
		{"non-numeric tail", "https://example.com/x/abc", 0, "[abc](https://example.com/x/abc)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderIssueLink(tt.url, tt.number))
		})
	}

	assert.Equal(t, 1, IssueLinkFormatVersion)
}

func TestIsDuplicateDelivery(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	later := ts.Add(time.Second)

	tests := []struct {
		action  domain.IssueAction
		updated time.Time
		want    bool
	}{
		{domain.ActionOpened, ts, false},
		{domain.ActionAssigned, ts, true},
		{domain.ActionLabeled, ts, true},
		{domain.ActionClosed, ts, true},
		{domain.ActionAssigned, later, false},
		{domain.ActionOpened, later, false},
	}

	for _, tt := range tests {
		e := domain.IssueEvent{Action: tt.action, Issue: domain.Issue{CreatedAt: ts, UpdatedAt: tt.updated}}
		assert.Equal(t, tt.want, IsDuplicateDelivery(e), "%s updated=%s", tt.action, tt.updated)
	}

	// Same instant in another zone is still unmodified.
	e := domain.IssueEvent{Action: domain.ActionLabeled, Issue: domain.Issue{CreatedAt: ts, UpdatedAt: ts.In(time.FixedZone("X", 3600))}}
	assert.True(t, IsDuplicateDelivery(e))
}

func TestFilterLabels(t *testing.T) {
	labels := []domain.Label{{Name: "bug"}, {Name: "typo"}, {Name: "size: small"}, {Name: "bug"}}
	whitelist := []string{"bug", "enhancement", "critical", "size: small", "size: medium", "size: large"}

	assert.Equal(t, []string{"bug", "size: small"}, FilterLabels(labels, whitelist))
	assert.Equal(t, []string{}, FilterLabels(nil, whitelist))
	assert.Equal(t, []string{}, FilterLabels(labels, nil))
}
