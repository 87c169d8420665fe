package collector_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/telemetry"
	"github.com/papercomputeco/ragloop/pkg/telemetry/collector"
)

var _ = Describe("Sink", func() {
	var (
		server  *httptest.Server
		lastReq *http.Request
		payload map[string]any
		status  int
	)

	BeforeEach(func() {
		status = http.StatusAccepted
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastReq = r
			payload = map[string]any{}
			_ = json.NewDecoder(r.Body).Decode(&payload)
			w.WriteHeader(status)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires a target", func() {
		_, err := collector.New(collector.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("posts the record with auth and stream headers", func() {
		s, err := collector.New(collector.Config{Target: server.URL + "/", APIKey: "secret", Stream: "chatbot"})
		Expect(err).NotTo(HaveOccurred())

		rec := telemetry.NewRecord("trace-9")
		rec.Input = "what is ragloop?"
		rec.Output = "a RAG service"
		Expect(s.Record(context.Background(), rec)).To(Succeed())

		Expect(lastReq.Method).To(Equal(http.MethodPost))
		Expect(lastReq.URL.Path).To(Equal(collector.RecordsPath))
		Expect(lastReq.Header.Get("Authorization")).To(Equal("Bearer secret"))
		Expect(lastReq.Header.Get(collector.StreamHeader)).To(Equal("chatbot"))
		Expect(payload).To(HaveKeyWithValue("trace_id", "trace-9"))
		Expect(payload).To(HaveKeyWithValue("event_type", telemetry.EventTypeExchange))
		Expect(payload).To(HaveKeyWithValue("input", "what is ragloop?"))
	})

	It("omits the authorization header without an api key", func() {
		s, _ := collector.New(collector.Config{Target: server.URL})
		Expect(s.Record(context.Background(), telemetry.NewRecord(""))).To(Succeed())
		Expect(lastReq.Header.Get("Authorization")).To(BeEmpty())
		Expect(lastReq.Header.Get(collector.StreamHeader)).To(Equal(collector.DefaultStream))
	})

	It("wraps non-2xx responses as telemetry errors", func() {
		status = http.StatusUnauthorized
		s, _ := collector.New(collector.Config{Target: server.URL})

		err := s.Record(context.Background(), telemetry.NewRecord(""))
		Expect(errors.Is(err, telemetry.ErrTelemetry)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("401")))
	})
})
