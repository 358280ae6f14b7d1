package checker

import (
	"context"
	"time"

	"go.uber.org/zap"

	api "github.com/citecheck/citecheck/api/v1alpha1"
	"github.com/citecheck/citecheck/internal/client"
	"github.com/citecheck/citecheck/internal/events"
	"github.com/citecheck/citecheck/internal/store"
)

// State is the explicit presentation state of one submission. The tagged
// states replace the ad hoc loading/results/error boolean soup: a session is
// always in exactly one of them.
type State string

const (
	StateIdle     State = "idle"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateRevealed State = "revealed"
	StateFailed   State = "failed"
)

// View selects which presentation a ready session gets. Partial takes
// precedence over the gate: they are mutually exclusive presentations
// triggered by different server signals.
type View string

const (
	ViewFull    View = "full"
	ViewPartial View = "partial"
	ViewGated   View = "gated"
)

const defaultRevealTimeout = 5 * time.Second

// Session tracks one submission from job creation to displayed (or gated)
// results. It is not safe for concurrent use; like the UI it models, a single
// logical thread of control owns it.
type Session struct {
	jobID   string
	state   State
	payload *api.ValidationResultPayload
	err     error

	// gated is computed exactly once when the job completes and never
	// recomputed, so a mid-session feature-flag change cannot alter an
	// already gated or revealed result set.
	gated    bool
	revealed bool
	readyAt  time.Time

	store     *store.Store
	validator client.Validator
	producer  *events.EventProducer
	now       func() time.Time
}

func newSession(s *store.Store, v client.Validator, p *events.EventProducer) *Session {
	return &Session{
		state:     StateIdle,
		store:     s,
		validator: v,
		producer:  p,
		now:       time.Now,
	}
}

func (s *Session) JobID() string                         { return s.jobID }
func (s *Session) State() State                          { return s.state }
func (s *Session) Payload() *api.ValidationResultPayload { return s.payload }
func (s *Session) Err() error                            { return s.err }
func (s *Session) IsGated() bool                         { return s.gated }
func (s *Session) Revealed() bool                        { return s.revealed }

// View returns the presentation for a ready session.
func (s *Session) View() View {
	if s.payload != nil && s.payload.Partial {
		return ViewPartial
	}
	if s.gated && !s.revealed {
		return ViewGated
	}
	return ViewFull
}

func (s *Session) submitted(jobID string) {
	s.jobID = jobID
	s.state = StateLoading
	s.revealed = false
}

// complete records a completed payload and derives the gating decision. When
// the payload carries an authoritative free-tier usage count, the locally
// cached counter is overwritten.
func (s *Session) complete(payload *api.ValidationResultPayload, isFreeTier, gatingEnabled bool) {
	s.payload = payload
	s.err = nil
	s.gated = isFreeTier && gatingEnabled
	s.readyAt = s.now()
	s.state = StateReady

	if payload.FreeUsedTotal != nil {
		s.store.SetFreeUsed(*payload.FreeUsedTotal)
	}
}

func (s *Session) fail(err error) {
	s.err = err
	s.payload = nil
	s.state = StateFailed
}

// Reveal performs the one-way reveal transition. The flip is optimistic: it
// happens before any network call, and neither a telemetry defect nor a
// failed tracking POST can roll it back or block the user from their results.
// Returns the computed time-to-reveal in seconds, or -1 when the ready
// timestamp was unusable and latency tracking was skipped.
func (s *Session) Reveal(ctx context.Context, outcome string) int64 {
	if s.state != StateReady && s.state != StateRevealed {
		return -1
	}
	if s.revealed {
		return -1
	}

	s.revealed = true
	s.state = StateRevealed

	latency := int64(-1)
	if !s.readyAt.IsZero() && !s.now().Before(s.readyAt) {
		latency = int64(s.now().Sub(s.readyAt) / time.Second)
	}

	if s.producer != nil {
		s.producer.Emit(events.RevealMessageKind, events.RevealEvent{
			JobID:               s.jobID,
			Outcome:             outcome,
			TimeToRevealSeconds: latency,
		})
	}

	if s.validator != nil {
		revealCtx, cancel := context.WithTimeout(ctx, defaultRevealTimeout)
		defer cancel()
		err := s.validator.RevealResults(revealCtx, api.RevealRequest{
			JobID:   s.jobID,
			Outcome: outcome,
		})
		if err != nil {
			zap.S().Named("session").Warnf("reveal tracking for job %s dropped: %s", s.jobID, err)
		}
	}

	return latency
}
