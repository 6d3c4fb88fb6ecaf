// Package aitest provides a stub chat model for exercising the completion
// service without a network.
package aitest

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// FakeChatModel answers every Generate call with Reply, or fails with Err.
type FakeChatModel struct {
	Reply string
	Err   error

	mu        sync.Mutex
	calls     int
	lastInput []*schema.Message
	lastModel string
}

// Generate records the request and returns the canned reply.
func (f *FakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{}, opts...)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.lastInput = input
	if options.Model != nil {
		f.lastModel = *options.Model
	}

	if f.Err != nil {
		return nil, f.Err
	}
	return schema.AssistantMessage(f.Reply, nil), nil
}

// Stream is not used by the completion proxy.
func (f *FakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported by fake")
}

// BindTools is a no-op.
func (f *FakeChatModel) BindTools([]*schema.ToolInfo) error {
	return nil
}

// Calls returns how many times Generate ran.
func (f *FakeChatModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LastInput returns the messages of the latest Generate call.
func (f *FakeChatModel) LastInput() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastInput
}

// LastModel returns the model option of the latest Generate call.
func (f *FakeChatModel) LastModel() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastModel
}
