package persist

import (
	"context"
	"fmt"
)

// TransactionEntry is one entry in the agent transaction log — the
// process-visible ledger spec.md §4.3 requires to be kept separate from the
// dispatch history, covering trade/transfer/steal style resource movement
// between agents.
type TransactionEntry struct {
	TxType     string // "trade", "transfer", "steal"
	FromAgent  string
	ToAgent    string
	TokenID    string
	Resource   string
	Amount     int64
}

type TransactionRepo struct {
	db *DB
}

func NewTransactionRepo(db *DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

// Append atomically writes a batch of transaction entries in a single
// transaction, in the order given.
func (r *TransactionRepo) Append(ctx context.Context, entries []TransactionEntry) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("transaction log begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO transaction_log (tx_type, from_agent, to_agent, token_id, resource, amount)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.TxType, e.FromAgent, e.ToAgent, e.TokenID, e.Resource, e.Amount,
		); err != nil {
			return fmt.Errorf("transaction log insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// MarkProcessed marks all unprocessed entries as processed, called after a
// downstream consumer (e.g. a settlement batch) has folded them in.
func (r *TransactionRepo) MarkProcessed(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE transaction_log SET processed = TRUE WHERE processed = FALSE`,
	)
	return err
}
