package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/llm"
	"github.com/papercomputeco/ragloop/pkg/llm/provider/openai"
)

var _ = Describe("OpenAI Completer", func() {
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
			"id": "chatcmpl-1",
			"model": "gpt-4o-mini-2024-07-18",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Cats purr."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
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

	turns := []llm.ConversationTurn{
		llm.NewTurn(llm.RoleSystem, "Answer from context."),
		llm.NewTurn(llm.RoleUser, "What do cats do?"),
	}

	It("implements llm.Completer", func() {
		var _ llm.Completer = (*openai.Completer)(nil)
	})

	It("posts chat completions and maps the response", func() {
		c, err := openai.New(openai.Config{APIKey: "sk-test", BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Name()).To(Equal("openai"))
		Expect(c.Model()).To(Equal(openai.DefaultModel))

		completion, err := c.Complete(context.Background(), turns)
		Expect(err).NotTo(HaveOccurred())
		Expect(completion.Text).To(Equal("Cats purr."))
		Expect(completion.Model).To(Equal("gpt-4o-mini-2024-07-18"))
		Expect(completion.StopReason).To(Equal("stop"))
		Expect(completion.Usage.TotalTokens).To(Equal(15))

		Expect(lastReq.URL.Path).To(Equal("/v1/chat/completions"))
		Expect(lastReq.Header.Get("Authorization")).To(Equal("Bearer sk-test"))
		Expect(lastBody["model"]).To(Equal(openai.DefaultModel))
		Expect(lastBody["stream"]).To(BeFalse())
		messages := lastBody["messages"].([]any)
		Expect(messages).To(HaveLen(2))
		Expect(messages[0]).To(HaveKeyWithValue("role", "system"))
	})

	It("uses mistral defaults for the mistral flavor", func() {
		c, err := openai.New(openai.Config{Flavor: openai.FlavorMistral, BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Name()).To(Equal("mistral"))
		Expect(c.Model()).To(Equal(openai.DefaultMistralModel))
	})

	It("routes azure requests by deployment with an api-key header", func() {
		c, err := openai.New(openai.Config{
			Flavor:          openai.FlavorAzure,
			APIKey:          "az-key",
			BaseURL:         server.URL,
			AzureDeployment: "gpt4o",
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Complete(context.Background(), turns)
		Expect(err).NotTo(HaveOccurred())
		Expect(lastReq.URL.Path).To(Equal("/openai/deployments/gpt4o/chat/completions"))
		Expect(lastReq.URL.Query().Get("api-version")).To(Equal(openai.DefaultAzureAPIVersion))
		Expect(lastReq.Header.Get("api-key")).To(Equal("az-key"))
		Expect(lastBody).NotTo(HaveKey("model"))
	})

	It("requires a deployment for azure", func() {
		_, err := openai.New(openai.Config{Flavor: openai.FlavorAzure, BaseURL: server.URL})
		Expect(err).To(HaveOccurred())
	})

	It("returns a non-retryable ProviderError for an invalid key", func() {
		status = http.StatusUnauthorized
		reply = `{"error": {"message": "Incorrect API key provided"}}`

		c, err := openai.New(openai.Config{APIKey: "bad", BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Complete(context.Background(), turns)
		var pe *llm.ProviderError
		Expect(errors.As(err, &pe)).To(BeTrue())
		Expect(pe.Provider).To(Equal("openai"))
		Expect(pe.Op).To(Equal("complete"))
		Expect(pe.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(pe.Retryable).To(BeFalse())
	})

	It("fails when no choices are returned", func() {
		reply = `{"choices": []}`
		c, _ := openai.New(openai.Config{BaseURL: server.URL})
		_, err := c.Complete(context.Background(), turns)
		Expect(err).To(MatchError(llm.ErrProvider))
	})
})
