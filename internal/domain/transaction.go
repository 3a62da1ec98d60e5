package domain

// Clearing states a ledger transaction moves through.
const (
	ClearedUncleared  = "uncleared"
	ClearedCleared    = "cleared"
	ClearedReconciled = "reconciled"
)

// Transaction is a ledger transaction as delivered by the budgeting API.
// Amount is a signed integer in the ledger's base unit; negative is an outflow.
type Transaction struct {
	ID              string        `json:"id"`
	Date            string        `json:"date"`
	Amount          int64         `json:"amount"`
	Memo            string        `json:"memo"`
	Cleared         string        `json:"cleared"`
	Approved        bool          `json:"approved"`
	PayeeName       string        `json:"payee_name"`
	CategoryName    string        `json:"category_name"`
	Deleted         bool          `json:"deleted,omitempty"`
	Subtransactions []Transaction `json:"subtransactions"`

	// ParentMemo is set on transactions derived from a split parent.
	ParentMemo string `json:"parent_memo,omitempty"`
}

// Payload is the body exchanged between the poller and the transformer,
// keyed by ledger id.
type Payload map[string][]Transaction
