package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/dotdir"
)

var _ = Describe("dotdir.Manager chat state", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		m = dotdir.NewManager()
	})

	It("returns nil when no chat file exists", func() {
		state, err := m.LoadChatState(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("round-trips a saved state", func() {
		in := &dotdir.ChatState{
			SessionID: "sess-1",
			Messages: []dotdir.ChatMessage{
				{Role: "user", Content: "hello"},
				{Role: "assistant", Content: "hi there"},
			},
		}
		Expect(m.SaveChatState(in, tmpDir)).To(Succeed())

		out, err := m.LoadChatState(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(in))
	})

	It("rejects a nil state", func() {
		Expect(m.SaveChatState(nil, tmpDir)).To(MatchError(ContainSubstring("nil chat state")))
	})

	It("reports malformed JSON", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "chat.json"), []byte("{nope"), 0o600)).To(Succeed())
		_, err := m.LoadChatState(tmpDir)
		Expect(err).To(MatchError(ContainSubstring("parsing chat state")))
	})

	It("clears the state and tolerates a missing file", func() {
		Expect(m.SaveChatState(&dotdir.ChatState{SessionID: "x"}, tmpDir)).To(Succeed())
		Expect(m.ClearChatState(tmpDir)).To(Succeed())
		Expect(filepath.Join(tmpDir, "chat.json")).NotTo(BeAnExistingFile())
		Expect(m.ClearChatState(tmpDir)).To(Succeed())
	})
})
