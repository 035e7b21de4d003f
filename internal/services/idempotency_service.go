// Package services – IdempotencyService
//
// This file implements the idempotency ledger that gives mutating API
// requests at-most-once semantics. Each request carrying an idempotency key
// is recorded under a (scope, key) pair together with a canonical hash of
// its payload. The first arrival claims the pair and proceeds; retries of
// the same request replay the recorded response byte-for-byte; reuse of the
// key with a different payload is rejected as a conflict; and concurrent
// duplicates observe an in-progress marker. Records stuck in the processing
// state (e.g. after a crash) are reclaimed once they exceed StaleAfter.
//
// Observability: Begin and Complete are OpenTelemetry-instrumented and each
// ledger decision increments a Prometheus outcome counter.

package services

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
	"github.com/fieldline/go-fieldservice-backend/internal/repo"
	"github.com/fieldline/go-fieldservice-backend/internal/utils"
)

// Outcome classifies the ledger's decision for an arriving request.
type Outcome int

const (
	// OutcomeProceed means the (scope, key) pair is newly claimed and the
	// caller must execute the operation, then call Complete.
	OutcomeProceed Outcome = iota
	// OutcomeReplay means an identical request already completed; the caller
	// must return the recorded response without re-executing.
	OutcomeReplay
	// OutcomeConflict means the key was reused with a different payload.
	OutcomeConflict
	// OutcomeInProgress means an identical request is still executing.
	OutcomeInProgress
)

// String returns the lowercase label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeProceed:
		return "proceed"
	case OutcomeReplay:
		return "replay"
	case OutcomeConflict:
		return "conflict"
	case OutcomeInProgress:
		return "in_progress"
	default:
		return "unknown"
	}
}

// idempotencyOutcomes counts ledger decisions by scope and outcome.
var idempotencyOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "idempotency_outcomes_total",
		Help: "Idempotency ledger decisions by scope and outcome.",
	},
	[]string{"scope", "outcome"},
)

// IdempotencyService is the application-level ledger over idempotency
// records. It is safe for concurrent use; races on first insert are resolved
// through the unique (scope, key) index rather than locks.
type IdempotencyService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// TTL bounds how long a completed record remains replayable. A completed
	// record older than this is expired: the key becomes reusable and the
	// recorded response is no longer returned. Zero disables expiry.
	TTL time.Duration

	// StaleAfter is how long a processing record may sit before a retry is
	// allowed to reclaim it. Zero disables reclaim.
	StaleAfter time.Duration
}

// NewIdempotencyService constructs an IdempotencyService with the given
// replay and reclaim windows.
func NewIdempotencyService(db *gorm.DB, ttl, staleAfter time.Duration) *IdempotencyService {
	return &IdempotencyService{DB: db, TTL: ttl, StaleAfter: staleAfter}
}

// Begin records the arrival of a request under (scope, key) and classifies
// it. On OutcomeReplay the returned record carries the response to repeat;
// on the other outcomes the record reflects the current ledger row (nil for
// OutcomeProceed on a fresh claim). Storage errors fail closed: the caller
// must not execute the operation.
func (s *IdempotencyService) Begin(ctx context.Context, scope, key string, payload []byte) (Outcome, *domain.IdempotencyRecord, error) {
	tr := otel.Tracer("services/IdempotencyService")
	ctx, span := tr.Start(ctx, "Begin",
		trace.WithAttributes(attribute.String("idempotency.scope", scope)),
	)
	defer span.End()

	hash := utils.CanonicalHash(payload)

	rec, err := repo.GetIdempotency(ctx, s.DB, scope, key)
	switch {
	case err == nil:
		return s.classify(ctx, scope, key, hash, rec)
	case errors.Is(err, repo.ErrNotFound):
		// First arrival (as far as we can see): try to claim the pair.
	default:
		return OutcomeProceed, nil, err
	}

	if _, err := repo.CreateIdempotency(ctx, s.DB, scope, key, hash); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// Lost the insert race; the winner's row decides the outcome.
			rec, gerr := repo.GetIdempotency(ctx, s.DB, scope, key)
			if gerr != nil {
				return OutcomeProceed, nil, gerr
			}
			return s.classify(ctx, scope, key, hash, rec)
		}
		return OutcomeProceed, nil, err
	}

	s.count(scope, OutcomeProceed)
	span.SetAttributes(attribute.String("idempotency.outcome", OutcomeProceed.String()))
	return OutcomeProceed, nil, nil
}

// Complete finalizes the ledger row for (scope, key) with the response that
// was produced, making subsequent identical requests replays.
func (s *IdempotencyService) Complete(ctx context.Context, scope, key string, status int, body string) error {
	tr := otel.Tracer("services/IdempotencyService")
	ctx, span := tr.Start(ctx, "Complete",
		trace.WithAttributes(
			attribute.String("idempotency.scope", scope),
			attribute.Int("http.response.status_code", status),
		),
	)
	defer span.End()

	return repo.CompleteIdempotency(ctx, s.DB, scope, key, status, body)
}

// Abandon releases the claim on (scope, key) without recording a response.
// Callers use it when a claimed request was rejected before producing any
// side effect, so the key stays usable for a corrected retry.
func (s *IdempotencyService) Abandon(ctx context.Context, scope, key string) error {
	tr := otel.Tracer("services/IdempotencyService")
	ctx, span := tr.Start(ctx, "Abandon",
		trace.WithAttributes(attribute.String("idempotency.scope", scope)),
	)
	defer span.End()

	return repo.DeleteIdempotency(ctx, s.DB, scope, key)
}

// classify resolves the outcome for an existing ledger row.
func (s *IdempotencyService) classify(ctx context.Context, scope, key, hash string, rec *domain.IdempotencyRecord) (Outcome, *domain.IdempotencyRecord, error) {
	// An expired completed record neither replays nor conflicts: the key is
	// simply free again.
	if rec.Status == domain.IdemStatusCompleted && s.TTL > 0 && time.Since(rec.UpdatedAt) > s.TTL {
		return s.reclaim(ctx, scope, key, hash)
	}

	if rec.RequestHash != hash {
		s.count(scope, OutcomeConflict)
		return OutcomeConflict, rec, nil
	}

	switch rec.Status {
	case domain.IdemStatusCompleted:
		s.count(scope, OutcomeReplay)
		return OutcomeReplay, rec, nil
	case domain.IdemStatusProcessing:
		if s.StaleAfter > 0 && time.Since(rec.UpdatedAt) > s.StaleAfter {
			return s.reclaim(ctx, scope, key, hash)
		}
		s.count(scope, OutcomeInProgress)
		return OutcomeInProgress, rec, nil
	default:
		// Unknown status is treated like in-progress rather than risking a
		// double execution.
		s.count(scope, OutcomeInProgress)
		return OutcomeInProgress, rec, nil
	}
}

// reclaim replaces a stale processing row so the retry may proceed. If
// another retry wins the reinsert race, its row decides the outcome.
func (s *IdempotencyService) reclaim(ctx context.Context, scope, key, hash string) (Outcome, *domain.IdempotencyRecord, error) {
	if err := repo.DeleteIdempotency(ctx, s.DB, scope, key); err != nil {
		return OutcomeProceed, nil, err
	}
	if _, err := repo.CreateIdempotency(ctx, s.DB, scope, key, hash); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			rec, gerr := repo.GetIdempotency(ctx, s.DB, scope, key)
			if gerr != nil {
				return OutcomeProceed, nil, gerr
			}
			return s.classify(ctx, scope, key, hash, rec)
		}
		return OutcomeProceed, nil, err
	}
	s.count(scope, OutcomeProceed)
	return OutcomeProceed, nil, nil
}

func (s *IdempotencyService) count(scope string, o Outcome) {
	idempotencyOutcomes.WithLabelValues(scope, o.String()).Inc()
}
