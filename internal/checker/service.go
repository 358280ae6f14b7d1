// Package checker orchestrates the submit, poll, gate and recover flow of a
// citation validation request against the backend API.
package checker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	api "github.com/citecheck/citecheck/api/v1alpha1"
	"github.com/citecheck/citecheck/internal/client"
	"github.com/citecheck/citecheck/internal/config"
	"github.com/citecheck/citecheck/internal/events"
	"github.com/citecheck/citecheck/internal/experiment"
	"github.com/citecheck/citecheck/internal/store"
)

const defaultSubmitTimeout = 30 * time.Second

type Service struct {
	cfg       *config.Config
	store     *store.Store
	validator client.Validator
	poller    *Poller
	producer  *events.EventProducer
	assigner  *experiment.Assigner
}

func NewService(cfg *config.Config, s *store.Store, v client.Validator, producer *events.EventProducer) *Service {
	return &Service{
		cfg:       cfg,
		store:     s,
		validator: v,
		poller:    NewPoller(v, s, cfg.MaxPollAttempts, cfg.PollInterval.Duration),
		producer:  producer,
		assigner:  experiment.NewAssigner(s),
	}
}

// Identity resolves the caller identity from the client store: the persisted
// auth token when present, otherwise the anonymous free-user id (created
// lazily) with the cached usage count.
func (s *Service) Identity() client.Identity {
	identity := client.Identity{
		AuthToken: s.store.AuthToken(),
		Variant:   s.assigner.Variant(),
	}
	if identity.AuthToken == "" {
		identity.FreeUserID = s.store.FreeUserID()
		identity.FreeUsed = s.store.FreeUsed()
	}
	return identity
}

func (s *Service) IsFreeTier() bool {
	return s.store.AuthToken() == ""
}

// Submit creates an asynchronous validation job. The job id is persisted
// before Submit returns, so a reload between submission and completion is
// recoverable.
func (s *Service) Submit(ctx context.Context, citations, style string) (string, error) {
	if strings.TrimSpace(citations) == "" {
		return "", fmt.Errorf("no citations to validate")
	}
	if style == "" {
		style = config.DefaultStyle
	}

	submitCtx, cancel := context.WithTimeout(ctx, defaultSubmitTimeout)
	defer cancel()

	identity := s.Identity()
	jobID, err := s.validator.SubmitValidation(submitCtx, api.SubmitRequest{
		Citations: citations,
		Style:     style,
	}, identity)
	if err != nil {
		return "", err
	}

	s.store.SetCurrentJobID(jobID)
	zap.S().Named("checker").Debugf("created job %s", jobID)

	if s.producer != nil {
		s.producer.Emit(events.SubmissionMessageKind, events.SubmissionEvent{
			JobID:         jobID,
			Style:         style,
			CitationCount: countCitations(citations),
			FreeTier:      s.IsFreeTier(),
		})
	}
	return jobID, nil
}

// Check runs the whole flow: submit, poll until terminal, decide gating.
// The returned session is never nil; a failed flow yields a session in
// StateFailed carrying the classified error.
func (s *Service) Check(ctx context.Context, citations, style string) *Session {
	sess := newSession(s.store, s.validator, s.producer)

	jobID, err := s.Submit(ctx, citations, style)
	if err != nil {
		sess.fail(err)
		return sess
	}
	sess.submitted(jobID)

	s.await(ctx, sess, jobID)
	return sess
}

// Recover resumes polling for a persisted in-flight job id. When no job id is
// persisted it is a no-op and returns (nil, false). Recovery uses whatever
// auth token is current, which may differ from the one active at submission;
// the mismatch is deliberately not reconciled.
func (s *Service) Recover(ctx context.Context) (*Session, bool) {
	jobID := s.store.CurrentJobID()
	if jobID == "" {
		return nil, false
	}

	zap.S().Named("checker").Infof("recovering validation job %s", jobID)

	sess := newSession(s.store, s.validator, s.producer)
	sess.submitted(jobID)

	s.await(ctx, sess, jobID)
	return sess, true
}

func (s *Service) await(ctx context.Context, sess *Session, jobID string) {
	payload, err := s.poller.Poll(ctx, jobID, s.Identity())
	if err != nil {
		if s.producer != nil {
			if failed, ok := err.(*client.ErrJobFailed); ok {
				s.producer.Emit(events.JobFailedMessageKind, events.JobFailedEvent{
					JobID:   jobID,
					Message: events.TruncateFailureMessage(failed.Error()),
				})
			}
		}
		sess.fail(err)
		return
	}

	sess.complete(payload, s.IsFreeTier(), s.cfg.GatingEnabled)
}

// countCitations approximates the number of submitted citations for
// analytics: one non-empty line per citation.
func countCitations(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
