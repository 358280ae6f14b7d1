package checker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	api "github.com/citecheck/citecheck/api/v1alpha1"
	"github.com/citecheck/citecheck/internal/client"
	"github.com/citecheck/citecheck/internal/config"
	"github.com/citecheck/citecheck/internal/store"
	"github.com/citecheck/citecheck/internal/util"
)

// fakeBackend scripts the validation API: submissions return a fixed job id,
// job polls stay pending for pollsToFinish calls and then return final.
type fakeBackend struct {
	mu            sync.Mutex
	submitCalls   int
	jobCalls      int
	revealCalls   int
	lastReveal    api.RevealRequest
	lastUserToken string

	jobID         string
	pollsToFinish int
	final         api.Job
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/validate/async", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.submitCalls++
		f.lastUserToken = r.Header.Get("X-User-Token")
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(api.SubmitResponse{JobID: f.jobID})
	})
	mux.HandleFunc("GET /api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.jobCalls++
		done := f.jobCalls > f.pollsToFinish
		f.mu.Unlock()

		if !done {
			_ = json.NewEncoder(w).Encode(api.Job{ID: f.jobID, Status: api.JobStatusProcessing})
			return
		}
		_ = json.NewEncoder(w).Encode(f.final)
	})
	mux.HandleFunc("POST /api/reveal-results", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.revealCalls++
		_ = json.NewDecoder(r.Body).Decode(&f.lastReveal)
		f.mu.Unlock()
	})
	return mux
}

func (f *fakeBackend) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCalls
}

func (f *fakeBackend) revealCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revealCalls
}

var _ = Describe("Service", func() {
	var (
		backend *fakeBackend
		server  *httptest.Server
		s       *store.Store
	)

	completedJob := func(payload *api.ValidationResultPayload) api.Job {
		return api.Job{ID: "job-1", Status: api.JobStatusCompleted, Results: payload}
	}

	somePayload := func() *api.ValidationResultPayload {
		return &api.ValidationResultPayload{
			Results: []api.CitationResult{
				{CitationNumber: 1, Original: "Smith, J. (2020)."},
				{CitationNumber: 2, Original: "Doe (2021)", Errors: []api.ValidationError{
					{Component: "year", Problem: "missing parentheses"},
				}},
			},
		}
	}

	BeforeEach(func() {
		backend = &fakeBackend{jobID: "job-1", pollsToFinish: 2, final: completedJob(somePayload())}
		server = httptest.NewServer(backend.handler())

		var err error
		s, err = store.OpenInMemory()
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		server.Close()
		_ = s.Close()
	})

	newTestService := func(gatingEnabled bool) *Service {
		cfg := &config.Config{
			ServiceURL:      server.URL,
			PollInterval:    util.Duration{Duration: 5 * time.Millisecond},
			MaxPollAttempts: 20,
			GatingEnabled:   gatingEnabled,
		}
		return NewService(cfg, s, client.NewValidator(&http.Client{}, &client.Config{Service: client.Service{Server: server.URL}}), nil)
	}

	Context("check", func() {
		It("runs the full flow with gating disabled", func() {
			sess := newTestService(false).Check(context.TODO(), "Smith, J. (2020).\nDoe (2021)", "apa7")

			Expect(sess.State()).To(Equal(StateReady))
			Expect(sess.View()).To(Equal(ViewFull))
			Expect(sess.Payload().PerfectCount()).To(Equal(1))
			Expect(sess.Payload().ErrorCount()).To(Equal(1))
			Expect(backend.submitCount()).To(Equal(1))
			Expect(s.CurrentJobID()).To(BeEmpty())
		})

		It("gates a free-tier result set", func() {
			sess := newTestService(true).Check(context.TODO(), "Smith, J. (2020).", "apa7")

			Expect(sess.State()).To(Equal(StateReady))
			Expect(sess.IsGated()).To(BeTrue())
			Expect(sess.View()).To(Equal(ViewGated))
		})

		It("does not gate an authenticated user", func() {
			s.SetAuthToken("paid-user-token")

			sess := newTestService(true).Check(context.TODO(), "Smith, J. (2020).", "apa7")

			Expect(sess.View()).To(Equal(ViewFull))
			Expect(backend.lastUserToken).To(Equal("paid-user-token"))
		})

		It("lets a partial result set bypass the gate", func() {
			payload := somePayload()
			payload.Partial = true
			payload.CitationsChecked = 2
			payload.CitationsRemaining = 3
			backend.final = completedJob(payload)

			sess := newTestService(true).Check(context.TODO(), "Smith, J. (2020).", "apa7")

			Expect(sess.View()).To(Equal(ViewPartial))
			Expect(sess.Payload().TotalSubmitted()).To(Equal(5))
		})

		It("syncs the authoritative free-usage counter", func() {
			payload := somePayload()
			total := 7
			payload.FreeUsedTotal = &total
			backend.final = completedJob(payload)

			s.SetFreeUsed(2)
			newTestService(true).Check(context.TODO(), "Smith, J. (2020).", "apa7")

			Expect(s.FreeUsed()).To(Equal(7))
		})

		It("fails fast on empty input without touching the backend", func() {
			sess := newTestService(false).Check(context.TODO(), "   \n  ", "apa7")

			Expect(sess.State()).To(Equal(StateFailed))
			Expect(sess.Err().Error()).To(ContainSubstring("no citations"))
			Expect(backend.submitCount()).To(Equal(0))
		})

		It("carries the classified error of a failed job", func() {
			backend.final = api.Job{ID: "job-1", Status: api.JobStatusFailed, Error: "unsupported style"}

			sess := newTestService(false).Check(context.TODO(), "Smith, J. (2020).", "apa7")

			Expect(sess.State()).To(Equal(StateFailed))
			Expect(sess.Err()).To(BeAssignableToTypeOf(&client.ErrJobFailed{}))
			Expect(s.CurrentJobID()).To(BeEmpty())
		})
	})

	Context("reveal", func() {
		It("reveals a gated result set exactly once", func() {
			sess := newTestService(true).Check(context.TODO(), "Smith, J. (2020).", "apa7")
			Expect(sess.View()).To(Equal(ViewGated))

			latency := sess.Reveal(context.TODO(), "show_results")
			Expect(latency).To(BeNumerically(">=", 0))
			Expect(sess.State()).To(Equal(StateRevealed))
			Expect(sess.View()).To(Equal(ViewFull))

			Expect(backend.revealCount()).To(Equal(1))
			Expect(backend.lastReveal.JobID).To(Equal("job-1"))
			Expect(backend.lastReveal.Outcome).To(Equal("show_results"))

			// the transition is one way
			Expect(sess.Reveal(context.TODO(), "show_results")).To(Equal(int64(-1)))
			Expect(backend.revealCount()).To(Equal(1))
		})
	})

	Context("recover", func() {
		It("resumes a persisted in-flight job without resubmitting", func() {
			s.SetCurrentJobID("job-1")

			sess, found := newTestService(false).Recover(context.TODO())

			Expect(found).To(BeTrue())
			Expect(sess.State()).To(Equal(StateReady))
			Expect(sess.JobID()).To(Equal("job-1"))
			Expect(backend.submitCount()).To(Equal(0))
			Expect(s.CurrentJobID()).To(BeEmpty())
		})

		It("is a no-op without a persisted job id", func() {
			sess, found := newTestService(false).Recover(context.TODO())

			Expect(found).To(BeFalse())
			Expect(sess).To(BeNil())
			Expect(backend.submitCount()).To(Equal(0))
		})
	})

	Context("identity", func() {
		It("resolves the anonymous identity lazily", func() {
			identity := newTestService(false).Identity()

			Expect(identity.AuthToken).To(BeEmpty())
			Expect(identity.FreeUserID).NotTo(BeEmpty())
			Expect(identity.Variant).NotTo(BeEmpty())

			// the id sticks across calls
			Expect(newTestService(false).Identity().FreeUserID).To(Equal(identity.FreeUserID))
		})

		It("prefers the persisted auth token", func() {
			s.SetAuthToken("tok")

			identity := newTestService(false).Identity()

			Expect(identity.AuthToken).To(Equal("tok"))
			Expect(identity.FreeUserID).To(BeEmpty())
		})
	})
})

var _ = Describe("countCitations", func() {
	It("counts non-empty lines", func() {
		text := strings.Join([]string{"Smith, J. (2020).", "", "  ", "Doe (2021)"}, "\n")
		Expect(countCitations(text)).To(Equal(2))
	})
})
