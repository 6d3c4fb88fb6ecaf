package chatview_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/2207231/chatbot/internal/chatview"
	"github.com/2207231/chatbot/internal/localstore"
	"github.com/2207231/chatbot/internal/model/chat"
)

type fakeCompleter struct {
	mu     sync.Mutex
	reply  string
	err    error
	gate   chan struct{}
	calls  [][]chat.Turn
	models []string
}

func (f *fakeCompleter) Complete(ctx context.Context, turns []chat.Turn, model string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, turns)
	f.models = append(f.models, model)
	gate, reply, err := f.gate, f.reply, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return reply, err
}

func (f *fakeCompleter) Calls() [][]chat.Turn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]chat.Turn(nil), f.calls...)
}

func storedSessions(store localstore.Storage) []chat.Session {
	raw, ok, err := store.GetItem(chatview.HistoryKey)
	Expect(err).NotTo(HaveOccurred())
	if !ok {
		return nil
	}
	var sessions []chat.Session
	Expect(json.Unmarshal([]byte(raw), &sessions)).To(Succeed())
	return sessions
}

func seedSessions(store localstore.Storage, sessions ...chat.Session) {
	data, err := json.Marshal(sessions)
	Expect(err).NotTo(HaveOccurred())
	Expect(store.SetItem(chatview.HistoryKey, string(data))).To(Succeed())
}

func savedSession(id, first string) chat.Session {
	msgs := []chat.Message{
		chat.NewMessage(chat.RoleUser, first),
		chat.NewMessage(chat.RoleAssistant, "reply to "+first),
	}
	return chat.Session{ID: id, Title: chat.Title(msgs), Messages: msgs, LastUpdated: time.Unix(1700000000, 0).UTC()}
}

func state(view *chatview.View) func() chatview.State {
	return func() chatview.State { return view.Snapshot().State }
}

var _ = Describe("View", func() {
	var (
		completer *fakeCompleter
		store     *localstore.MemoryStore
		view      *chatview.View
		interval  time.Duration
		fixedNow  time.Time
	)

	newView := func() *chatview.View {
		return chatview.New(chatview.Options{
			Completer:      completer,
			Storage:        store,
			Model:          "claude-3-5-sonnet-20241022",
			RevealInterval: interval,
			Now:            func() time.Time { return fixedNow },
		})
	}

	BeforeEach(func() {
		completer = &fakeCompleter{reply: "Hi there"}
		store = localstore.NewMemoryStore()
		interval = time.Millisecond
		fixedNow = time.Date(2024, 10, 22, 8, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		if view != nil {
			Expect(view.Close()).To(Succeed())
			view = nil
		}
	})

	Describe("Submit", func() {
		It("rejects blank input without calling the proxy", func() {
			view = newView()
			Expect(view.Submit("   \n")).To(MatchError(chatview.ErrEmptyInput))
			Expect(view.Snapshot().Messages).To(BeEmpty())
			Expect(completer.Calls()).To(BeEmpty())
		})

		It("appends the trimmed user message immediately and rejects a second submit", func() {
			completer.gate = make(chan struct{})
			view = newView()

			Expect(view.Submit("  Hello  ")).To(Succeed())

			snap := view.Snapshot()
			Expect(snap.State).To(Equal(chatview.StateAwaitingResponse))
			Expect(snap.Messages).To(HaveLen(1))
			Expect(snap.Messages[0].Role).To(Equal(chat.RoleUser))
			Expect(snap.Messages[0].Content).To(Equal("Hello"))

			Expect(view.Submit("again")).To(MatchError(chatview.ErrBusy))
			Expect(view.Snapshot().Messages).To(HaveLen(1))

			close(completer.gate)
			Eventually(state(view)).Should(Equal(chatview.StateIdle))
		})

		It("reveals the reply and saves the session", func() {
			view = newView()
			Expect(view.Submit("Hello")).To(Succeed())

			Eventually(state(view)).Should(Equal(chatview.StateIdle))

			snap := view.Snapshot()
			Expect(snap.Messages).To(HaveLen(2))
			Expect(snap.Messages[1].Role).To(Equal(chat.RoleAssistant))
			Expect(snap.Messages[1].Content).To(Equal("Hi there"))
			Expect(snap.RevealingID).To(BeEmpty())

			Expect(snap.Sessions).To(HaveLen(1))
			Expect(snap.CurrentSessionID).To(Equal(snap.Sessions[0].ID))
			Expect(snap.Sessions[0].Title).To(Equal("Hello..."))
			Expect(snap.Sessions[0].LastUpdated).To(BeTemporally("==", fixedNow))

			saved := storedSessions(store)
			Expect(saved).To(HaveLen(1))
			Expect(saved[0].Messages).To(Equal(snap.Messages))

			calls := completer.Calls()
			Expect(calls).To(HaveLen(1))
			Expect(calls[0]).To(Equal([]chat.Turn{{Role: chat.RoleUser, Content: "Hello"}}))
		})

		It("only ever shows a prefix of the reply while revealing", func() {
			completer.reply = "你好，世界! hello"
			view = newView()

			updates, cancel := view.Subscribe()
			defer cancel()

			Expect(view.Submit("Hello")).To(Succeed())

			lastLen := 0
			Eventually(func(g Gomega) {
				snap := <-updates
				if snap.RevealingID != "" {
					msg := snap.Messages[len(snap.Messages)-1]
					g.Expect(msg.ID).To(Equal(snap.RevealingID))
					Expect(strings.HasPrefix(completer.reply, msg.Content)).To(BeTrue(), msg.Content)
					Expect(len(msg.Content)).To(BeNumerically(">=", lastLen))
					lastLen = len(msg.Content)
				}
				g.Expect(snap.State).To(Equal(chatview.StateIdle))
				g.Expect(snap.Messages).To(HaveLen(2))
			}).Should(Succeed())

			Expect(view.Snapshot().Messages[1].Content).To(Equal(completer.reply))
		})

		It("appends an error note when the proxy fails and keeps the user message", func() {
			completer.err = errors.New("chat completion failed: quota exceeded")
			view = newView()

			Expect(view.Submit("Hello")).To(Succeed())
			Eventually(state(view)).Should(Equal(chatview.StateIdle))

			snap := view.Snapshot()
			Expect(snap.Messages).To(HaveLen(2))
			Expect(snap.Messages[0].Content).To(Equal("Hello"))
			Expect(snap.Messages[1].IsError()).To(BeTrue())
			Expect(snap.Messages[1].Role).To(Equal(chat.RoleAssistant))
			Expect(snap.Messages[1].Content).To(Equal(chatview.ErrorPrefix + "chat completion failed: quota exceeded"))
			Expect(snap.Sessions).To(BeEmpty())
		})

		It("never sends error notes upstream", func() {
			completer.err = errors.New("boom")
			view = newView()

			Expect(view.Submit("Hello")).To(Succeed())
			Eventually(state(view)).Should(Equal(chatview.StateIdle))

			completer.mu.Lock()
			completer.err = nil
			completer.mu.Unlock()

			Expect(view.Submit("Again")).To(Succeed())
			Eventually(state(view)).Should(Equal(chatview.StateIdle))

			calls := completer.Calls()
			Expect(calls).To(HaveLen(2))
			Expect(calls[1]).To(Equal([]chat.Turn{
				{Role: chat.RoleUser, Content: "Hello"},
				{Role: chat.RoleUser, Content: "Again"},
			}))
		})

		It("sends the selected model", func() {
			view = newView()
			view.SetModel("deepseek-chat")
			Expect(view.Submit("Hello")).To(Succeed())
			Eventually(state(view)).Should(Equal(chatview.StateIdle))

			completer.mu.Lock()
			defer completer.mu.Unlock()
			Expect(completer.models).To(Equal([]string{"deepseek-chat"}))
		})
	})

	Describe("cancelling a reveal", func() {
		BeforeEach(func() {
			interval = time.Hour
		})

		It("completes and saves the previous reply when a new turn starts", func() {
			view = newView()
			Expect(view.Submit("Hello")).To(Succeed())
			Eventually(state(view)).Should(Equal(chatview.StateRevealing))
			Expect(view.Snapshot().Messages[1].Content).To(BeEmpty())

			completer.mu.Lock()
			completer.gate = make(chan struct{})
			completer.mu.Unlock()

			Expect(view.Submit("Next")).To(Succeed())

			snap := view.Snapshot()
			Expect(snap.State).To(Equal(chatview.StateAwaitingResponse))
			Expect(snap.RevealingID).To(BeEmpty())
			Expect(snap.Messages).To(HaveLen(3))
			Expect(snap.Messages[1].Content).To(Equal("Hi there"))

			saved := storedSessions(store)
			Expect(saved).To(HaveLen(1))
			Expect(saved[0].Messages).To(HaveLen(2))
			Expect(saved[0].Messages[1].Content).To(Equal("Hi there"))

			close(completer.gate)
		})

		It("discards the reveal on NewChat", func() {
			view = newView()
			Expect(view.Submit("Hello")).To(Succeed())
			Eventually(state(view)).Should(Equal(chatview.StateRevealing))

			view.NewChat()

			snap := view.Snapshot()
			Expect(snap.State).To(Equal(chatview.StateIdle))
			Expect(snap.Messages).To(BeEmpty())
			Expect(snap.RevealingID).To(BeEmpty())
			Expect(snap.CurrentSessionID).To(BeEmpty())
			Expect(storedSessions(store)).To(BeEmpty())
		})

		It("discards the reveal on LoadSession", func() {
			seedSessions(store, savedSession("s1", "older chat"))
			view = newView()
			Expect(view.Submit("Hello")).To(Succeed())
			Eventually(state(view)).Should(Equal(chatview.StateRevealing))

			Expect(view.LoadSession("s1")).To(Succeed())

			snap := view.Snapshot()
			Expect(snap.State).To(Equal(chatview.StateIdle))
			Expect(snap.RevealingID).To(BeEmpty())
			Expect(snap.Messages[0].Content).To(Equal("older chat"))
			Expect(storedSessions(store)).To(HaveLen(1))
		})
	})

	It("drops the reply of a turn abandoned by NewChat", func() {
		completer.gate = make(chan struct{})
		view = newView()

		Expect(view.Submit("Hello")).To(Succeed())
		view.NewChat()
		Expect(view.Snapshot().State).To(Equal(chatview.StateIdle))

		close(completer.gate)
		Consistently(func() []chat.Message { return view.Snapshot().Messages }, 50*time.Millisecond).Should(BeEmpty())
	})

	Describe("history", func() {
		It("loads saved sessions at construction", func() {
			seedSessions(store, savedSession("a", "first"), savedSession("b", "second"))
			view = newView()

			sessions := view.Snapshot().Sessions
			Expect(sessions).To(HaveLen(2))
			Expect(sessions[0].ID).To(Equal("a"))
			Expect(sessions[1].ID).To(Equal("b"))
		})

		It("starts empty when the history is unreadable", func() {
			Expect(store.SetItem(chatview.HistoryKey, "{broken")).To(Succeed())
			view = newView()
			Expect(view.Snapshot().Sessions).To(BeEmpty())
		})

		It("replaces the messages wholesale on LoadSession", func() {
			seedSessions(store, savedSession("a", "first"), savedSession("b", "second"))
			view = newView()

			Expect(view.LoadSession("b")).To(Succeed())
			snap := view.Snapshot()
			Expect(snap.CurrentSessionID).To(Equal("b"))
			Expect(snap.Messages).To(Equal(snap.Sessions[1].Messages))

			Expect(view.LoadSession("missing")).To(MatchError(chatview.ErrSessionNotFound))
		})

		It("moves an updated session to the front without duplicating it", func() {
			seedSessions(store, savedSession("a", "first"), savedSession("b", "second"))
			view = newView()

			Expect(view.LoadSession("b")).To(Succeed())
			Expect(view.Submit("follow up")).To(Succeed())
			Eventually(state(view)).Should(Equal(chatview.StateIdle))

			saved := storedSessions(store)
			Expect(saved).To(HaveLen(2))
			Expect(saved[0].ID).To(Equal("b"))
			Expect(saved[0].Messages).To(HaveLen(4))
			Expect(saved[0].Title).To(Equal("second..."))
			Expect(saved[1].ID).To(Equal("a"))
		})

		It("prepends a new session", func() {
			seedSessions(store, savedSession("a", "first"))
			view = newView()

			Expect(view.Submit("brand new")).To(Succeed())
			Eventually(state(view)).Should(Equal(chatview.StateIdle))

			saved := storedSessions(store)
			Expect(saved).To(HaveLen(2))
			Expect(saved[0].Title).To(Equal("brand new..."))
			Expect(saved[1].ID).To(Equal("a"))
		})

		It("deletes a session and keeps the order of the rest", func() {
			seedSessions(store, savedSession("a", "first"), savedSession("b", "second"), savedSession("c", "third"))
			view = newView()

			Expect(view.DeleteSession("b")).To(Succeed())

			ids := func(sessions []chat.Session) []string {
				out := make([]string, 0, len(sessions))
				for _, s := range sessions {
					out = append(out, s.ID)
				}
				return out
			}
			Expect(ids(view.Snapshot().Sessions)).To(Equal([]string{"a", "c"}))
			Expect(ids(storedSessions(store))).To(Equal([]string{"a", "c"}))
			Expect(view.DeleteSession("b")).To(MatchError(chatview.ErrSessionNotFound))
		})

		It("detaches the open conversation when its session is deleted", func() {
			seedSessions(store, savedSession("a", "first"))
			view = newView()

			Expect(view.LoadSession("a")).To(Succeed())
			Expect(view.DeleteSession("a")).To(Succeed())

			snap := view.Snapshot()
			Expect(snap.CurrentSessionID).To(BeEmpty())
			Expect(snap.Messages).To(HaveLen(2))
			Expect(snap.Sessions).To(BeEmpty())
		})
	})

	Describe("Close", func() {
		It("rejects further input and ends subscriptions", func() {
			completer.gate = make(chan struct{})
			view = newView()
			updates, _ := view.Subscribe()

			Expect(view.Submit("Hello")).To(Succeed())
			Expect(view.Close()).To(Succeed())

			Expect(view.Submit("again")).To(MatchError(chatview.ErrClosed))
			Eventually(updates).Should(BeClosed())
			view = nil
		})
	})
})
