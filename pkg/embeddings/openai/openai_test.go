package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/embeddings/openai"
	"github.com/papercomputeco/ragloop/pkg/llm"
)

var _ = Describe("Embedder", func() {
	var (
		server  *httptest.Server
		lastReq *http.Request
		body    map[string]any
		status  int
	)

	BeforeEach(func() {
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastReq = r
			body = map[string]any{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(status)
			w.Write([]byte(`{"data": [{"index": 0, "embedding": [1, 0, 0.5]}], "model": "m"}`))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("calls /v1/embeddings with a bearer token", func() {
		e, err := openai.NewEmbedder(openai.Config{APIKey: "sk", BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		emb, err := e.Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(emb).To(Equal([]float32{1, 0, 0.5}))

		Expect(lastReq.URL.Path).To(Equal("/v1/embeddings"))
		Expect(lastReq.Header.Get("Authorization")).To(Equal("Bearer sk"))
		Expect(body["model"]).To(Equal(openai.DefaultModel))
		Expect(body["input"]).To(Equal([]any{"hello"}))
	})

	It("passes dimensions only to text-embedding-3 models", func() {
		e, _ := openai.NewEmbedder(openai.Config{BaseURL: server.URL, Dimensions: 256})
		_, err := e.Embed(context.Background(), "x")
		Expect(err).NotTo(HaveOccurred())
		Expect(body["dimensions"]).To(BeNumerically("==", 256))

		e, _ = openai.NewEmbedder(openai.Config{Flavor: openai.FlavorMistral, BaseURL: server.URL, Dimensions: 256})
		_, err = e.Embed(context.Background(), "x")
		Expect(err).NotTo(HaveOccurred())
		Expect(body).NotTo(HaveKey("dimensions"))
		Expect(body["model"]).To(Equal(openai.DefaultMistralModel))
	})

	It("uses azure deployment routing", func() {
		e, err := openai.NewEmbedder(openai.Config{
			Flavor:          openai.FlavorAzure,
			APIKey:          "az",
			BaseURL:         server.URL,
			AzureDeployment: "embed-large",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Name()).To(Equal("azure"))

		_, err = e.Embed(context.Background(), "x")
		Expect(err).NotTo(HaveOccurred())
		Expect(lastReq.URL.Path).To(Equal("/openai/deployments/embed-large/embeddings"))
		Expect(lastReq.Header.Get("api-key")).To(Equal("az"))
	})

	It("reports known model dimensions", func() {
		Expect(openai.ModelDimensions("mistral-embed")).To(Equal(1024))
		Expect(openai.ModelDimensions("unknown")).To(BeZero())
	})

	It("returns retryable errors for rate limits", func() {
		status = http.StatusTooManyRequests
		e, _ := openai.NewEmbedder(openai.Config{Flavor: openai.FlavorMistral, BaseURL: server.URL})
		_, err := e.Embed(context.Background(), "x")
		Expect(llm.IsRetryable(err)).To(BeTrue())
	})
})
