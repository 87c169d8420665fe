package chatcmder

import (
	"bytes"
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/dotdir"
	"github.com/papercomputeco/ragloop/pkg/llm"
	"github.com/papercomputeco/ragloop/pkg/logger"
	"github.com/papercomputeco/ragloop/pkg/rag"
	testutils "github.com/papercomputeco/ragloop/pkg/utils/test"
	"github.com/papercomputeco/ragloop/pkg/vector"
	"github.com/papercomputeco/ragloop/pkg/vector/inmemory"
)

var _ = Describe("chat REPL", func() {
	var (
		ctx       context.Context
		configDir string
		completer *testutils.MockCompleter
		loop      *rag.Loop
		cmder     *chatCommander
		out       *bytes.Buffer
	)

	BeforeEach(func() {
		ctx = context.Background()
		configDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}

		index := inmemory.NewIndex(inmemory.Config{}, logger.Nop())
		Expect(index.Add(ctx, []vector.Document{
			{ID: "doc-1", Text: "The office is closed on Fridays.", Embedding: []float32{0.1, 0.2, 0.3}},
		})).To(Succeed())

		completer = testutils.NewMockCompleter("We are closed on Fridays.")

		var err error
		loop, err = rag.NewLoop(rag.Config{
			Embedder:  testutils.NewMockEmbedder(),
			Index:     index,
			Completer: completer,
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		cmder = &chatCommander{
			configDir: configDir,
			dotdir:    dotdir.NewManager(),
			logger:    logger.Nop(),
		}
	})

	It("answers each message and exits on /exit", func() {
		state := newState()
		in := strings.NewReader("when are you closed?\n/exit\nnot read\n")

		Expect(cmder.repl(ctx, in, out, loop, state)).To(Succeed())

		Expect(out.String()).To(ContainSubstring("We are closed on Fridays."))
		Expect(completer.CallCount()).To(Equal(1))
	})

	It("carries the transcript into the next exchange", func() {
		state := newState()
		in := strings.NewReader("first question\nsecond question\n")

		Expect(cmder.repl(ctx, in, out, loop, state)).To(Succeed())

		Expect(completer.CallCount()).To(Equal(2))
		last := completer.LastRequest()
		// system + two prior turns + new user turn
		Expect(last).To(HaveLen(4))
		Expect(last[1].Content).To(Equal("first question"))
		Expect(last[2].Role).To(Equal(llm.RoleAssistant))
		Expect(state.Messages).To(HaveLen(4))
	})

	It("persists the transcript under the session ID", func() {
		state := newState()
		Expect(cmder.repl(ctx, strings.NewReader("hello\n"), out, loop, state)).To(Succeed())

		saved, err := cmder.dotdir.LoadChatState(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved).NotTo(BeNil())
		Expect(saved.SessionID).To(Equal(state.SessionID))
		Expect(saved.Messages).To(Equal([]dotdir.ChatMessage{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "We are closed on Fridays."},
		}))
	})

	It("resumes a saved transcript", func() {
		state := &dotdir.ChatState{
			SessionID: "session-abc",
			Messages: []dotdir.ChatMessage{
				{Role: "user", Content: "earlier"},
				{Role: "assistant", Content: "reply"},
			},
		}
		Expect(cmder.repl(ctx, strings.NewReader("again\n"), out, loop, state)).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Resuming session"))
		Expect(completer.LastRequest()).To(HaveLen(4))
	})

	It("clears the transcript on /reset", func() {
		state := newState()
		firstID := state.SessionID
		in := strings.NewReader("hello\n/reset\nafter reset\n")

		Expect(cmder.repl(ctx, in, out, loop, state)).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Conversation reset"))
		Expect(state.SessionID).NotTo(Equal(firstID))
		// system + new user turn only
		Expect(completer.LastRequest()).To(HaveLen(2))
		Expect(state.Messages).To(HaveLen(2))
	})

	It("keeps the transcript unchanged when an exchange fails", func() {
		completer.Err = errors.New("upstream unavailable")
		state := newState()

		Expect(cmder.repl(ctx, strings.NewReader("hello\n"), out, loop, state)).To(Succeed())

		Expect(out.String()).To(ContainSubstring("upstream unavailable"))
		Expect(state.Messages).To(BeEmpty())
	})

	It("skips blank lines", func() {
		state := newState()
		Expect(cmder.repl(ctx, strings.NewReader("\n   \n"), out, loop, state)).To(Succeed())
		Expect(completer.CallCount()).To(Equal(0))
	})

	It("prints retrieved documents with --show-context", func() {
		cmder.showContext = true
		state := newState()
		Expect(cmder.repl(ctx, strings.NewReader("hours?\n"), out, loop, state)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("doc-1"))
	})
})

var _ = Describe("loadState", func() {
	It("starts a new session when nothing is saved", func() {
		cmder := &chatCommander{configDir: GinkgoT().TempDir(), dotdir: dotdir.NewManager()}
		state, err := cmder.loadState()
		Expect(err).NotTo(HaveOccurred())
		Expect(state.SessionID).NotTo(BeEmpty())
		Expect(state.Messages).To(BeEmpty())
	})

	It("discards the saved session with --new", func() {
		dir := GinkgoT().TempDir()
		m := dotdir.NewManager()
		Expect(m.SaveChatState(&dotdir.ChatState{SessionID: "old"}, dir)).To(Succeed())

		cmder := &chatCommander{configDir: dir, dotdir: m, fresh: true}
		state, err := cmder.loadState()
		Expect(err).NotTo(HaveOccurred())
		Expect(state.SessionID).NotTo(Equal("old"))
	})

	It("returns the saved session", func() {
		dir := GinkgoT().TempDir()
		m := dotdir.NewManager()
		Expect(m.SaveChatState(&dotdir.ChatState{SessionID: "old"}, dir)).To(Succeed())

		cmder := &chatCommander{configDir: dir, dotdir: m}
		state, err := cmder.loadState()
		Expect(err).NotTo(HaveOccurred())
		Expect(state.SessionID).To(Equal("old"))
	})
})
