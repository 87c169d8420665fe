package session_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/llm"
	"github.com/papercomputeco/ragloop/pkg/logger"
	"github.com/papercomputeco/ragloop/pkg/session"
)

var _ = Describe("Store", func() {
	var store *session.Store

	BeforeEach(func() {
		store = session.NewStore(session.Config{}, logger.Nop())
	})

	It("starts sessions with unique IDs and empty history", func() {
		a := store.Start()
		b := store.Start()
		Expect(a.ID).NotTo(Equal(b.ID))
		Expect(a.History).To(BeEmpty())
		Expect(store.Len()).To(Equal(2))
	})

	It("appends history in order", func() {
		sess := store.Start()
		Expect(store.Append(sess.ID,
			llm.NewTurn(llm.RoleUser, "hi"),
			llm.NewTurn(llm.RoleAssistant, "hello"),
		)).To(Succeed())
		Expect(store.Append(sess.ID, llm.NewTurn(llm.RoleUser, "bye"))).To(Succeed())

		got, err := store.Get(sess.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.History).To(Equal([]llm.ConversationTurn{
			llm.NewTurn(llm.RoleUser, "hi"),
			llm.NewTurn(llm.RoleAssistant, "hello"),
			llm.NewTurn(llm.RoleUser, "bye"),
		}))
	})

	It("returns snapshots that do not alias stored history", func() {
		sess := store.Start()
		Expect(store.Append(sess.ID, llm.NewTurn(llm.RoleUser, "hi"))).To(Succeed())

		snap, _ := store.Get(sess.ID)
		snap.History[0].Content = "changed"

		again, _ := store.Get(sess.ID)
		Expect(again.History[0].Content).To(Equal("hi"))
	})

	It("reports unknown sessions", func() {
		_, err := store.Get("nope")
		Expect(err).To(MatchError(session.ErrNotFound))
		Expect(store.Append("nope")).To(MatchError(session.ErrNotFound))
		Expect(store.Close("nope")).To(MatchError(session.ErrNotFound))
	})

	It("closes sessions", func() {
		sess := store.Start()
		Expect(store.Close(sess.ID)).To(Succeed())
		_, err := store.Get(sess.ID)
		Expect(err).To(MatchError(session.ErrNotFound))
	})

	It("expires idle sessions", func() {
		short := session.NewStore(session.Config{TTL: 20 * time.Millisecond}, logger.Nop())
		sess := short.Start()
		Eventually(func() error {
			_, err := short.Get(sess.ID)
			return err
		}).WithTimeout(time.Second).Should(MatchError(session.ErrNotFound))
	})

	It("recognizes the end phrase regardless of case and padding", func() {
		Expect(store.IsEndPhrase("im finished")).To(BeTrue())
		Expect(store.IsEndPhrase("  IM Finished \n")).To(BeTrue())
		Expect(store.IsEndPhrase("im finished now")).To(BeFalse())
	})

	It("accepts a custom end phrase", func() {
		custom := session.NewStore(session.Config{EndPhrase: "Goodbye"}, logger.Nop())
		Expect(custom.IsEndPhrase("goodbye")).To(BeTrue())
		Expect(custom.IsEndPhrase("im finished")).To(BeFalse())
	})
})
