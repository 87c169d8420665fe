package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/llm"
	"github.com/papercomputeco/ragloop/pkg/llm/provider/ollama"
)

var _ = Describe("Ollama Completer", func() {
	var (
		server   *httptest.Server
		lastBody map[string]any
		reply    string
	)

	BeforeEach(func() {
		reply = `{
			"model": "llama3.2",
			"created_at": "2026-01-02T03:04:05Z",
			"message": {"role": "assistant", "content": "Birds sing."},
			"done": true,
			"done_reason": "stop",
			"prompt_eval_count": 30,
			"eval_count": 5,
			"total_duration": 1500000000
		}`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/chat"))
			lastBody = map[string]any{}
			_ = json.NewDecoder(r.Body).Decode(&lastBody)
			w.Write([]byte(reply))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("implements llm.Completer", func() {
		var _ llm.Completer = (*ollama.Completer)(nil)
	})

	It("sends a non-streaming chat request", func() {
		c := ollama.New(ollama.Config{BaseURL: server.URL})
		Expect(c.Model()).To(Equal(ollama.DefaultModel))

		completion, err := c.Complete(context.Background(), []llm.ConversationTurn{
			llm.NewTurn(llm.RoleSystem, "ctx"),
			llm.NewTurn(llm.RoleUser, "What do birds do?"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(completion.Text).To(Equal("Birds sing."))
		Expect(completion.Usage.TotalTokens).To(Equal(35))
		Expect(completion.Usage.TotalDurationNs).To(Equal(int64(1500000000)))

		Expect(lastBody["stream"]).To(BeFalse())
		Expect(lastBody["messages"].([]any)).To(HaveLen(2))
		Expect(lastBody).NotTo(HaveKey("options"))
	})

	It("surfaces in-body errors as provider errors", func() {
		reply = `{"error": "model \"nope\" not found"}`
		c := ollama.New(ollama.Config{BaseURL: server.URL, Model: "nope"})
		_, err := c.Complete(context.Background(), []llm.ConversationTurn{llm.NewTurn(llm.RoleUser, "hi")})
		Expect(err).To(MatchError(llm.ErrProvider))
		Expect(err.Error()).To(ContainSubstring("not found"))
	})

	It("reports an unreachable server as retryable", func() {
		server.Close()
		c := ollama.New(ollama.Config{BaseURL: server.URL})
		_, err := c.Complete(context.Background(), []llm.ConversationTurn{llm.NewTurn(llm.RoleUser, "hi")})
		Expect(llm.IsRetryable(err)).To(BeTrue())
	})
})
