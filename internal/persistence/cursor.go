package persistence

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
)

// CursorKeyPrefix prefixes every ledger cursor key.
const CursorKeyPrefix = "last_knowledge_"

// CursorStore persists the last server knowledge seen per ledger.
// It does no locking of its own; callers serialize writers per ledger.
type CursorStore struct {
	kv KV
}

func NewCursorStore(kv KV) *CursorStore {
	return &CursorStore{kv: kv}
}

// CursorKey returns the store key for ledgerID.
func CursorKey(ledgerID string) string {
	return CursorKeyPrefix + ledgerID
}

// Get returns the stored cursor for ledgerID. A missing or unparsable value
// reports ok=false so the next fetch starts from the full history.
func (s *CursorStore) Get(ctx context.Context, ledgerID string) (string, bool, error) {
	v, ok, err := s.kv.Get(ctx, CursorKey(ledgerID))
	if err != nil {
		return "", false, fmt.Errorf("failed to read cursor for %s: %w", ledgerID, err)
	}
	if !ok {
		return "", false, nil
	}
	if _, err := strconv.ParseInt(v, 10, 64); err != nil {
		log.Warn().Str("ledger", ledgerID).Str("value", v).Msg("Ignoring unparsable ledger cursor")
		return "", false, nil
	}
	return v, true, nil
}

// Set stores cursor for ledgerID. The cursor must be an integer string.
func (s *CursorStore) Set(ctx context.Context, ledgerID, cursor string) error {
	if _, err := strconv.ParseInt(cursor, 10, 64); err != nil {
		return fmt.Errorf("invalid cursor %q for %s: %w", cursor, ledgerID, err)
	}
	if err := s.kv.Set(ctx, CursorKey(ledgerID), cursor); err != nil {
		return fmt.Errorf("failed to write cursor for %s: %w", ledgerID, err)
	}
	return nil
}
