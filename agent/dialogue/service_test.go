package dialogue

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/BrianMwas/vocare/agent/contract"
)

type fakeToolCallingModel struct {
	responses  []*schema.Message
	err        error
	idx        int
	boundTools []*schema.ToolInfo
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	f.boundTools = tools
	return f, nil
}

func TestTurnPlainUtterance(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{Content: "  Hello! How can I help you today?  "},
		},
	}
	svc, err := New(fake)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := svc.Turn(context.Background(), contractx.TurnRequest{
		Instructions: "answer the phone",
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if resp.Utterance != "Hello! How can I help you today?" {
		t.Fatalf("unexpected utterance: %q", resp.Utterance)
	}
	if len(resp.Actions) != 0 {
		t.Fatalf("expected no actions, got %#v", resp.Actions)
	}
}

func TestTurnActionCallMapping(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{
						ID:   "call_1",
						Type: "function",
						Function: schema.FunctionCall{
							Name:      "add_item",
							Arguments: `{"item_id":"margherita-pizza","quantity":2}`,
						},
					},
				},
			},
		},
	}
	svc, err := New(fake)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := svc.Turn(context.Background(), contractx.TurnRequest{
		Instructions: "take the order",
		Actions: []contractx.ActionSpec{
			{
				Name: "add_item",
				Desc: "Add a menu item to the order.",
				Params: map[string]contractx.Param{
					"item_id":  {Type: "string", Required: true},
					"quantity": {Type: "integer", Required: true},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if len(resp.Actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(resp.Actions))
	}
	if resp.Actions[0].Name != "add_item" {
		t.Fatalf("unexpected action name: %s", resp.Actions[0].Name)
	}
	if resp.Actions[0].Args["item_id"] != "margherita-pizza" {
		t.Fatalf("unexpected args: %#v", resp.Actions[0].Args)
	}
	if len(fake.boundTools) != 1 || fake.boundTools[0].Name != "add_item" {
		t.Fatalf("expected the action set bound as tools, got %#v", fake.boundTools)
	}
}

func TestTurnInvalidActionArgs(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{
						Function: schema.FunctionCall{
							Name:      "add_item",
							Arguments: `{"item_id":`,
						},
					},
				},
			},
		},
	}
	svc, err := New(fake)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = svc.Turn(context.Background(), contractx.TurnRequest{Instructions: "take the order"})
	if !errors.Is(err, contractx.ErrDialogueInvoke) {
		t.Fatalf("expected ErrDialogueInvoke, got %v", err)
	}
}

func TestTurnModelFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{err: errors.New("upstream timeout")}
	svc, err := New(fake)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = svc.Turn(context.Background(), contractx.TurnRequest{Instructions: "take the order"})
	if !errors.Is(err, contractx.ErrDialogueInvoke) {
		t.Fatalf("expected ErrDialogueInvoke, got %v", err)
	}
}

func TestTurnRequiresInstructions(t *testing.T) {
	t.Parallel()

	svc, err := New(&fakeToolCallingModel{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = svc.Turn(context.Background(), contractx.TurnRequest{})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
