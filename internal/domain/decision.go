package domain

import "time"

// WalletDelta is an optional balance change produced by a decision.
// It is applied exactly once per decision via the ledger, never via
// read-modify-write.
type WalletDelta struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
}

// Decision is the structured output of the decision engine for one
// planning step.
type Decision struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	ContentWorthy bool          `json:"content_worthy"`
	WalletDelta   *WalletDelta  `json:"wallet_delta,omitempty"`
	Importance    int           `json:"importance"`
	RestFor       time.Duration `json:"-"`
	Ambient       bool          `json:"-"`
}

// ClampImportance normalizes model-supplied importance into the 1..5 range
// memories require.
func (d *Decision) ClampImportance() int {
	switch {
	case d.Importance < 1:
		return 1
	case d.Importance > 5:
		return 5
	}
	return d.Importance
}
