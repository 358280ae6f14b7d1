package events

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("producer", Ordered, func() {
	Context("emit", func() {
		It("delivers emitted events to the writer", func() {
			w := newTestWriter()
			ep := NewEventProducer(w)

			ep.Emit(SubmissionMessageKind, SubmissionEvent{
				JobID:         "job-1",
				Style:         "apa7",
				CitationCount: 3,
				FreeTier:      true,
			})

			Eventually(w.Count, 2*time.Second).Should(Equal(1))

			e := w.Message(0)
			Expect(e.Type()).To(Equal(SubmissionMessageKind))
			Expect(e.Source()).To(Equal("citecheck.client"))
			Expect(string(e.Data())).To(ContainSubstring(`"job_id":"job-1"`))

			ep.Emit(RevealMessageKind, RevealEvent{JobID: "job-1", Outcome: "show_results", TimeToRevealSeconds: 4})
			Eventually(w.Count, 2*time.Second).Should(Equal(2))
			Expect(w.Message(1).Type()).To(Equal(RevealMessageKind))

			Expect(ep.Close()).To(BeNil())
		})

		It("delivers a burst of events", func() {
			w := newTestWriter()
			ep := NewEventProducer(w)

			for i := 0; i < 10; i++ {
				ep.Emit(RevealMessageKind, RevealEvent{JobID: fmt.Sprintf("job-%d", i), Outcome: "show_results"})
			}

			Eventually(w.Count, 2*time.Second).Should(Equal(10))
			Expect(ep.Close()).To(BeNil())
		})

		It("drops unmarshallable payloads without blocking", func() {
			w := newTestWriter()
			ep := NewEventProducer(w)

			ep.Emit(SubmissionMessageKind, func() {})

			Consistently(w.Count, 200*time.Millisecond).Should(Equal(0))
			Expect(ep.Close()).To(BeNil())
		})
	})
})

var _ = Describe("TruncateFailureMessage", func() {
	It("keeps short messages intact", func() {
		Expect(TruncateFailureMessage("boom")).To(Equal("boom"))
	})

	It("truncates long messages", func() {
		long := strings.Repeat("x", 500)
		Expect(TruncateFailureMessage(long)).To(HaveLen(120))
	})
})

type testwriter struct {
	mu       sync.Mutex
	messages []cloudevents.Event
}

func newTestWriter() *testwriter {
	return &testwriter{messages: []cloudevents.Event{}}
}

func (t *testwriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, e)
	return nil
}

func (t *testwriter) Close(_ context.Context) error {
	return nil
}

func (t *testwriter) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

func (t *testwriter) Message(i int) cloudevents.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.messages[i]
}
