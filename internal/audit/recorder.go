// Package audit persists authorization decisions. Denials are recorded with
// the specific missing requirement and the provenance of the rights that
// were considered; the client-facing response stays generic.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Decision is one recorded authorization outcome.
type Decision struct {
	ActorID int64
	// Guard names the check that ran: rights, admin_role, department, escalation.
	Guard string
	// Outcome is allowed or denied.
	Outcome string
	// Requirement is what the guard demanded (right names, role names, a
	// department id).
	Requirement string
	// Meta carries provenance: which source (global, department, escalation)
	// contributed the granted rights that were considered.
	Meta map[string]any
	At   time.Time
}

// Recorder persists decisions.
type Recorder interface {
	Record(ctx context.Context, decision Decision) error
}

// PGRecorder writes decisions into authz_decisions.
type PGRecorder struct {
	pool *pgxpool.Pool
}

// NewRecorder returns a new PGRecorder.
func NewRecorder(pool *pgxpool.Pool) *PGRecorder {
	return &PGRecorder{pool: pool}
}

// Record persists the decision entry.
func (r *PGRecorder) Record(ctx context.Context, decision Decision) error {
	if r == nil || r.pool == nil {
		return errors.New("audit recorder not initialised")
	}
	if decision.Guard == "" || decision.Outcome == "" {
		return errors.New("audit decision requires guard/outcome")
	}
	metaJSON, err := json.Marshal(decision.Meta)
	if err != nil {
		return fmt.Errorf("audit: marshal meta: %w", err)
	}
	at := decision.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO authz_decisions (actor_id, guard, outcome, requirement, meta, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		decision.ActorID, decision.Guard, decision.Outcome, decision.Requirement, metaJSON, at)
	if err != nil {
		return fmt.Errorf("audit: insert decision: %w", err)
	}
	return nil
}

// NopRecorder discards decisions. Used in tests and when auditing is
// disabled by configuration.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(ctx context.Context, decision Decision) error { return nil }
