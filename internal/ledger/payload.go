// Package ledger polls budgeting ledgers for new transactions and turns
// money-owed outflows into task-manager items.
package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sawpanic/taskbridge/internal/apperr"
	"github.com/sawpanic/taskbridge/internal/domain"
)

// DecodePayload parses a forwarded body. Every ledger entry must be an array
// whose elements are objects carrying "amount"; any violation rejects the
// whole body before a single ledger is looked at.
func DecodePayload(body []byte) (domain.Payload, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperr.Validation("ledger.decode", fmt.Errorf("payload is not an object: %w", err))
	}
	if raw == nil {
		return nil, apperr.Validation("ledger.decode", fmt.Errorf("payload is null"))
	}

	for ledgerID, value := range raw {
		var items []map[string]json.RawMessage
		if trimmed := bytes.TrimSpace(value); len(trimmed) == 0 || trimmed[0] != '[' {
			return nil, apperr.Validation("ledger.decode", fmt.Errorf("ledger %s: value is not an array", ledgerID))
		}
		if err := json.Unmarshal(value, &items); err != nil {
			return nil, apperr.Validation("ledger.decode", fmt.Errorf("ledger %s: value is not an array of objects", ledgerID))
		}
		for i, item := range items {
			if _, ok := item["amount"]; !ok {
				return nil, apperr.Validation("ledger.decode", fmt.Errorf("ledger %s: transaction %d has no amount", ledgerID, i))
			}
		}
	}

	var payload domain.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperr.Validation("ledger.decode", err)
	}
	return payload, nil
}

// Flatten replaces each split transaction by its sub-transactions. Children
// inherit the parent's date, payee, approval and clearing state and keep the
// parent's memo as ParentMemo; the parent itself is dropped.
func Flatten(txns []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txns))
	for _, t := range txns {
		if len(t.Subtransactions) == 0 {
			out = append(out, t)
			continue
		}
		for i, sub := range t.Subtransactions {
			child := sub
			child.Date = t.Date
			child.PayeeName = t.PayeeName
			child.Approved = t.Approved
			child.Cleared = t.Cleared
			child.ParentMemo = t.Memo
			child.Subtransactions = nil
			if child.ID == "" {
				child.ID = t.ID + "_" + strconv.Itoa(i)
			}
			if child.CategoryName == "" {
				child.CategoryName = t.CategoryName
			}
			out = append(out, child)
		}
	}
	return out
}

// Qualifies reports whether t is an approved, cleared outflow in category.
func Qualifies(t domain.Transaction, category string) bool {
	if !t.Approved || t.Amount >= 0 || t.CategoryName != category {
		return false
	}
	return t.Cleared == domain.ClearedCleared || t.Cleared == domain.ClearedReconciled
}
