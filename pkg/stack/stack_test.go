package stack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/config"
	"github.com/papercomputeco/ragloop/pkg/embeddings/fallback"
	"github.com/papercomputeco/ragloop/pkg/logger"
	"github.com/papercomputeco/ragloop/pkg/stack"
)

var _ = Describe("Stack", func() {
	var (
		ctx context.Context
		cfg *config.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = config.NewDefaultConfig()
	})

	It("builds every component from the defaults", func() {
		s, err := stack.New(ctx, cfg, logger.Nop(), stack.Options{})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(s.Close)

		Expect(s.Embedder).NotTo(BeNil())
		Expect(s.Index).NotTo(BeNil())
		Expect(s.Completer).NotTo(BeNil())
		Expect(s.Completer.Name()).To(Equal("ollama"))
		Expect(s.Loop).NotTo(BeNil())
		Expect(s.Loop.TopK()).To(Equal(3))
		Expect(s.Ingester).NotTo(BeNil())
		Expect(s.Ingester.Chunker().Size()).To(Equal(1000))
		Expect(s.Sink).To(BeNil())
	})

	It("builds only retrieval components when generation is skipped", func() {
		s, err := stack.New(ctx, cfg, nil, stack.Options{SkipGeneration: true})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(s.Close)

		Expect(s.Index).NotTo(BeNil())
		Expect(s.Ingester).NotTo(BeNil())
		Expect(s.Retriever).NotTo(BeNil())
		Expect(s.Completer).To(BeNil())
		Expect(s.Loop).To(BeNil())
	})

	It("wires a trace store sink when configured", func() {
		cfg.Telemetry.TraceStore = filepath.Join(GinkgoT().TempDir(), "traces.db")

		s, err := stack.New(ctx, cfg, logger.Nop(), stack.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Sink).NotTo(BeNil())
		Expect(s.Close()).To(Succeed())
	})

	It("wraps the embedder in a fallback chain when a fallback is set", func() {
		cfg.Embedding.Fallback = config.FallbackConfig{Provider: "ollama", Target: "http://localhost:11435"}

		e, err := stack.NewEmbedder(cfg, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&fallback.Chain{}))
	})

	It("falls back from mistral to an azure deployment on a rate limit", func() {
		mistral := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"rate limited"}`))
		}))
		DeferCleanup(mistral.Close)

		var azurePath, azureKey string
		azure := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			azurePath = r.URL.Path + "?" + r.URL.RawQuery
			azureKey = r.Header.Get("api-key")
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{"index": 0, "embedding": []float32{0.5, 0.5}}},
			})
		}))
		DeferCleanup(azure.Close)

		GinkgoT().Setenv("MISTRAL_API_KEY", "m-key")
		GinkgoT().Setenv("AZURE_OPENAI_API_KEY", "a-key")

		cfg.Embedding.Provider = "mistral"
		cfg.Embedding.Target = mistral.URL
		cfg.Embedding.Model = "mistral-embed"
		cfg.Embedding.Fallback = config.FallbackConfig{
			Provider:        "azure",
			Target:          azure.URL,
			AzureDeployment: "embed-small",
			AzureAPIVersion: "2024-02-01",
		}

		e, err := stack.NewEmbedder(cfg, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(e.Close)

		emb, err := e.Embed(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(emb).To(Equal([]float32{0.5, 0.5}))
		Expect(azurePath).To(Equal("/openai/deployments/embed-small/embeddings?api-version=2024-02-01"))
		Expect(azureKey).To(Equal("a-key"))
	})

	It("fails on an unsupported vector store", func() {
		cfg.VectorStore.Provider = "faiss"

		_, err := stack.New(ctx, cfg, logger.Nop(), stack.Options{})
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider")))
	})

	It("fails on an unsupported completion provider", func() {
		cfg.Completion.Provider = "palm"

		_, err := stack.New(ctx, cfg, logger.Nop(), stack.Options{})
		Expect(err).To(MatchError(ContainSubstring("creating completer")))
	})

	It("rejects a negative top_k", func() {
		cfg.Retrieval.TopK = -2

		_, err := stack.New(ctx, cfg, logger.Nop(), stack.Options{})
		Expect(err).To(HaveOccurred())
	})
})
