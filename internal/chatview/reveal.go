package chatview

import (
	"context"
	"time"
)

// revealTask uncovers one reply a character at a time into the assistant
// message it is bound to.
type revealTask struct {
	messageID string
	text      []rune
	index     int
	cancel    context.CancelFunc
}

func (v *View) startRevealLocked(messageID, text string) {
	ctx, cancel := context.WithCancel(context.Background())
	task := &revealTask{
		messageID: messageID,
		text:      []rune(text),
		cancel:    cancel,
	}
	v.reveal = task

	v.wg.Add(1)
	go v.runReveal(ctx, task)
}

func (v *View) runReveal(ctx context.Context, task *revealTask) {
	defer v.wg.Done()

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := v.advance(task); done {
				return
			}
		}
	}
}

// advance reveals one more character. It reports true once the task is
// finished or has been superseded.
func (v *View) advance(task *revealTask) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.reveal != task {
		return true
	}

	if task.index < len(task.text) {
		task.index++
		v.setContentLocked(task.messageID, string(task.text[:task.index]))
	}

	done := task.index >= len(task.text)
	if done {
		v.finishRevealLocked(true)
	}
	v.publishLocked()
	return done
}

// finishRevealLocked stops the current reveal. With complete set the bound
// message receives the full text and the session is saved.
func (v *View) finishRevealLocked(complete bool) {
	task := v.reveal
	if task == nil {
		return
	}
	task.cancel()
	v.reveal = nil

	if !complete {
		return
	}
	task.index = len(task.text)
	v.setContentLocked(task.messageID, string(task.text))
	v.state = StateIdle
	v.saveAndReportLocked()
}

func (v *View) setContentLocked(messageID, content string) {
	for i := len(v.messages) - 1; i >= 0; i-- {
		if v.messages[i].ID == messageID {
			v.messages[i].Content = content
			return
		}
	}
}
