// Package chatview holds the client-side conversation state: the message
// list, the request/reveal lifecycle and the saved session history.
package chatview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/2207231/chatbot/internal/localstore"
	"github.com/2207231/chatbot/internal/model/catalog"
	"github.com/2207231/chatbot/internal/model/chat"
)

// DefaultRevealInterval is the delay between two revealed characters.
const DefaultRevealInterval = 30 * time.Millisecond

// ErrorPrefix starts the assistant note appended when a turn fails.
const ErrorPrefix = "Sorry, something went wrong: "

var (
	ErrEmptyInput      = errors.New("input is empty")
	ErrBusy            = errors.New("a response is still pending")
	ErrClosed          = errors.New("chat view is closed")
	ErrSessionNotFound = errors.New("session not found")
)

// State is the lifecycle phase of the current turn.
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
	StateRevealing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateRevealing:
		return "revealing"
	default:
		return "unknown"
	}
}

// Completer sends a conversation to the completion proxy.
type Completer interface {
	Complete(ctx context.Context, turns []chat.Turn, model string) (string, error)
}

// Options configures a View.
type Options struct {
	Completer      Completer
	Storage        localstore.Storage
	Model          string
	RevealInterval time.Duration
	Logger         *zap.Logger
	// Now stamps saved sessions; defaults to time.Now.
	Now func() time.Time
}

// Snapshot is an immutable copy of the view state.
type Snapshot struct {
	State            State
	Messages         []chat.Message
	Sessions         []chat.Session
	CurrentSessionID string
	Model            string
	// RevealingID is the id of the assistant message being revealed, if any.
	RevealingID string
	// Err is the last storage failure, cleared by the next successful save.
	Err error
}

// View is the chat state machine. All methods are safe for concurrent use.
type View struct {
	completer Completer
	storage   localstore.Storage
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	state     State
	messages  []chat.Message
	sessions  []chat.Session
	sessionID string
	model     string
	reveal    *revealTask
	turn      *pendingTurn
	storeErr  error
	closed    bool

	subs   map[int]chan Snapshot
	nextID int

	wg sync.WaitGroup
}

type pendingTurn struct {
	cancel context.CancelFunc
}

// New builds a view and reads the saved history once.
func New(opts Options) *View {
	v := &View{
		completer: opts.Completer,
		storage:   opts.Storage,
		interval:  opts.RevealInterval,
		logger:    opts.Logger,
		now:       opts.Now,
		model:     strings.TrimSpace(opts.Model),
		subs:      make(map[int]chan Snapshot),
	}
	if v.interval <= 0 {
		v.interval = DefaultRevealInterval
	}
	if v.logger == nil {
		v.logger = zap.NewNop()
	}
	if v.now == nil {
		v.now = time.Now
	}
	if v.storage == nil {
		v.storage = localstore.NewMemoryStore()
	}
	if v.model == "" {
		v.model = catalog.DefaultModelID
	}

	v.sessions = v.loadHistory()
	return v
}

// Snapshot returns the current state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Subscribe returns a channel that always holds the most recent snapshot
// after a change, and a function that ends the subscription.
func (v *View) Subscribe() (<-chan Snapshot, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if v.closed {
		close(ch)
		return ch, func() {}
	}

	id := v.nextID
	v.nextID++
	v.subs[id] = ch
	ch <- v.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			if _, ok := v.subs[id]; ok {
				delete(v.subs, id)
				close(ch)
			}
		})
	}
}

// SetModel selects the model used by the next submitted turn.
func (v *View) SetModel(model string) {
	model = strings.TrimSpace(model)
	if model == "" {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.model == model {
		return
	}
	v.model = model
	v.publishLocked()
}

// Submit appends a user message and asks the proxy for a reply in the
// background. A reveal still in progress is completed first.
func (v *View) Submit(text string) error {
	content := strings.TrimSpace(text)

	v.mu.Lock()
	defer v.mu.Unlock()

	switch {
	case v.closed:
		return ErrClosed
	case content == "":
		return ErrEmptyInput
	case v.state == StateAwaitingResponse:
		return ErrBusy
	case v.state == StateRevealing:
		v.finishRevealLocked(true)
	}

	v.messages = append(v.messages, chat.NewMessage(chat.RoleUser, content))
	v.state = StateAwaitingResponse

	ctx, cancel := context.WithCancel(context.Background())
	turn := &pendingTurn{cancel: cancel}
	v.turn = turn

	turns := chat.Turns(v.messages)
	model := v.model
	v.publishLocked()

	v.wg.Add(1)
	go v.await(ctx, turn, turns, model)
	return nil
}

// await runs one proxy round trip and moves the turn into revealing or back
// to idle. Results of abandoned turns are dropped.
func (v *View) await(ctx context.Context, turn *pendingTurn, turns []chat.Turn, model string) {
	defer v.wg.Done()
	defer turn.cancel()

	reply, err := v.completer.Complete(ctx, turns, model)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.turn != turn {
		return
	}
	v.turn = nil

	if err != nil {
		v.logger.Warn("chat turn failed", zap.String("model", model), zap.Error(err))
		v.messages = append(v.messages, chat.NewErrorMessage(ErrorPrefix+err.Error()))
		v.state = StateIdle
		v.publishLocked()
		return
	}

	msg := chat.NewMessage(chat.RoleAssistant, "")
	v.messages = append(v.messages, msg)
	v.state = StateRevealing
	v.startRevealLocked(msg.ID, reply)
	v.publishLocked()
}

// NewChat abandons the current turn and starts an empty, unsaved conversation.
func (v *View) NewChat() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}

	v.abandonLocked()
	v.messages = nil
	v.sessionID = ""
	v.publishLocked()
}

// LoadSession replaces the current conversation with a saved one.
func (v *View) LoadSession(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}

	idx := v.indexLocked(id)
	if idx < 0 {
		return ErrSessionNotFound
	}

	v.abandonLocked()
	v.messages = chat.CloneMessages(v.sessions[idx].Messages)
	v.sessionID = id
	v.publishLocked()
	return nil
}

// DeleteSession removes a saved session and persists the remaining list in
// its existing order. Deleting the open session detaches the conversation
// on screen, so a later save creates a new entry.
func (v *View) DeleteSession(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}

	if v.indexLocked(id) < 0 {
		return ErrSessionNotFound
	}

	kept := make([]chat.Session, 0, len(v.sessions)-1)
	for _, s := range v.sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	v.sessions = kept
	if v.sessionID == id {
		v.sessionID = ""
	}

	err := v.persistLocked()
	v.publishLocked()
	return err
}

// Close cancels pending work, waits for background goroutines and ends all
// subscriptions.
func (v *View) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.abandonLocked()
	v.closed = true
	for id, ch := range v.subs {
		delete(v.subs, id)
		close(ch)
	}
	v.mu.Unlock()

	v.wg.Wait()
	return nil
}

// abandonLocked drops the in-flight request and any reveal without saving.
func (v *View) abandonLocked() {
	if v.turn != nil {
		v.turn.cancel()
		v.turn = nil
	}
	if v.reveal != nil {
		v.finishRevealLocked(false)
	}
	v.state = StateIdle
}

func (v *View) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:            v.state,
		Messages:         chat.CloneMessages(v.messages),
		Sessions:         cloneSessions(v.sessions),
		CurrentSessionID: v.sessionID,
		Model:            v.model,
		Err:              v.storeErr,
	}
	if v.reveal != nil {
		snap.RevealingID = v.reveal.messageID
	}
	return snap
}

// publishLocked hands the latest snapshot to every subscriber, replacing a
// snapshot the subscriber has not read yet.
func (v *View) publishLocked() {
	if len(v.subs) == 0 {
		return
	}
	snap := v.snapshotLocked()
	for _, ch := range v.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (v *View) indexLocked(id string) int {
	for i, s := range v.sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}
