package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/llm"
	"github.com/papercomputeco/ragloop/pkg/llm/provider/anthropic"
)

var _ = Describe("Anthropic Completer", func() {
	var (
		server   *httptest.Server
		lastReq  *http.Request
		lastBody map[string]any
		status   int
		reply    string
	)

	BeforeEach(func() {
		status = http.StatusOK
		reply = `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-haiku-4-5-20251001",
			"content": [{"type": "text", "text": "Dogs "}, {"type": "text", "text": "fetch."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 20, "output_tokens": 4}
		}`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastReq = r
			lastBody = map[string]any{}
			_ = json.NewDecoder(r.Body).Decode(&lastBody)
			w.WriteHeader(status)
			w.Write([]byte(reply))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("implements llm.Completer", func() {
		var _ llm.Completer = (*anthropic.Completer)(nil)
	})

	It("moves system turns to the system field", func() {
		c := anthropic.New(anthropic.Config{APIKey: "key", BaseURL: server.URL})
		completion, err := c.Complete(context.Background(), []llm.ConversationTurn{
			llm.NewTurn(llm.RoleSystem, "Context: dogs fetch."),
			llm.NewTurn(llm.RoleUser, "What do dogs do?"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(completion.Text).To(Equal("Dogs fetch."))
		Expect(completion.StopReason).To(Equal("end_turn"))
		Expect(completion.Usage.TotalTokens).To(Equal(24))

		Expect(lastReq.URL.Path).To(Equal("/v1/messages"))
		Expect(lastReq.Header.Get("x-api-key")).To(Equal("key"))
		Expect(lastReq.Header.Get("anthropic-version")).NotTo(BeEmpty())
		Expect(lastBody["system"]).To(Equal("Context: dogs fetch."))
		Expect(lastBody["max_tokens"]).To(BeNumerically("==", anthropic.DefaultMaxTokens))
		Expect(lastBody["messages"].([]any)).To(HaveLen(1))
	})

	It("marks overloaded responses as retryable", func() {
		status = 529
		reply = `{"type": "error", "error": {"type": "overloaded_error"}}`

		c := anthropic.New(anthropic.Config{BaseURL: server.URL})
		_, err := c.Complete(context.Background(), []llm.ConversationTurn{llm.NewTurn(llm.RoleUser, "hi")})

		var pe *llm.ProviderError
		Expect(errors.As(err, &pe)).To(BeTrue())
		Expect(pe.StatusCode).To(Equal(529))
		Expect(pe.Retryable).To(BeTrue())
	})

	It("fails when the response has no text", func() {
		reply = `{"content": []}`
		c := anthropic.New(anthropic.Config{BaseURL: server.URL})
		_, err := c.Complete(context.Background(), []llm.ConversationTurn{llm.NewTurn(llm.RoleUser, "hi")})
		Expect(err).To(MatchError(llm.ErrProvider))
	})
})
