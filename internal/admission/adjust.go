package admission

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/okian/velvet/internal/domain/model"
	"github.com/okian/velvet/internal/ledger"
)

// Adjustment is a manual score mutation issued by an operator: gear brought,
// help given, aggression, or a free-form correction.
type Adjustment struct {
	UserID   string
	EventID  string // optional
	Reason   model.Reason
	Amount   float64 // used only for manual_adjustment; other reasons use the policy table
	IssuedBy string
}

// AdjustScore applies a manual adjustment through the ledger. Lifecycle
// outcomes (on_time, no_show, ...) are engine-issued only and are rejected
// here.
func (e *Engine) AdjustScore(ctx context.Context, adj Adjustment, now time.Time) (float64, error) {
	if !adj.Reason.Valid() {
		return 0, fmt.Errorf("unknown reason %q: %w", adj.Reason, ErrInvalidTransition)
	}
	if adj.Reason.Outcome() {
		return 0, fmt.Errorf("reason %s is engine-issued: %w", adj.Reason, ErrInvalidTransition)
	}
	if adj.IssuedBy == "" {
		return 0, fmt.Errorf("manual adjustment requires an issuer: %w", ErrInvalidTransition)
	}

	amount := e.policy.Delta(adj.Reason)
	if adj.Reason == model.ReasonManualAdjustment {
		amount = adj.Amount
	}

	var newScore float64
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		score, _, err := e.ledger.Apply(ctx, tx, ledger.Delta{
			UserID:   adj.UserID,
			EventID:  adj.EventID,
			Reason:   adj.Reason,
			Amount:   amount,
			IssuedBy: adj.IssuedBy,
			At:       now,
		})
		if err != nil {
			return notFound(err)
		}
		newScore = score
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newScore, nil
}
