package worldstate

// Transaction is a process-visible, semantically typed audit record
// produced by agent:transferResource, agent:stealResource, agent:transferToken,
// agent:stealToken and agent:trade — kept separate from the generic action
// history (spec.md §4.3).
type Transaction struct {
	ID        string `json:"id"`
	Type      string `json:"type"` // "transfer", "steal", "trade"
	From      string `json:"from"`
	To        string `json:"to"`
	Resource  string `json:"resource,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
	TokenID   string `json:"tokenId,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
