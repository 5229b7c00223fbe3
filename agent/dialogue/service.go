// Package dialogue adapts an eino chat model to the dialogue-service
// round trip the call loop consumes: rendered instructions plus history plus
// an action set in, next utterance plus invoked actions out.
package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/BrianMwas/vocare/agent/contract"
)

type Service struct {
	chatModel einomodel.ToolCallingChatModel
}

var _ contractx.DialogueService = (*Service)(nil)

func New(chatModel einomodel.ToolCallingChatModel) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	return &Service{chatModel: chatModel}, nil
}

// Turn runs one recognition/generation round trip. Action calls are mapped
// as-is; it is the persona's job to reject names outside its set.
func (s *Service) Turn(ctx context.Context, req contractx.TurnRequest) (contractx.TurnResponse, error) {
	if strings.TrimSpace(req.Instructions) == "" {
		return contractx.TurnResponse{}, fmt.Errorf("%w: instructions are required", contractx.ErrValidation)
	}

	chatModel := s.chatModel
	if len(req.Actions) > 0 {
		bound, err := chatModel.WithTools(toToolInfos(req.Actions))
		if err != nil {
			return contractx.TurnResponse{}, fmt.Errorf("%w: bind actions: %v", contractx.ErrDialogueInvoke, err)
		}
		chatModel = bound
	}

	msg, err := chatModel.Generate(ctx, toMessages(req))
	if err != nil {
		return contractx.TurnResponse{}, fmt.Errorf("%w: %v", contractx.ErrDialogueInvoke, err)
	}
	if msg == nil {
		return contractx.TurnResponse{}, fmt.Errorf("%w: empty model response", contractx.ErrDialogueInvoke)
	}

	actions, err := toActionCalls(msg.ToolCalls)
	if err != nil {
		return contractx.TurnResponse{}, err
	}

	return contractx.TurnResponse{
		Utterance: strings.TrimSpace(msg.Content),
		Actions:   actions,
	}, nil
}

func toMessages(req contractx.TurnRequest) []*schema.Message {
	messages := make([]*schema.Message, 0, len(req.History)+1)
	messages = append(messages, schema.SystemMessage(req.Instructions))
	for _, m := range req.History {
		switch m.Role {
		case "assistant":
			messages = append(messages, schema.AssistantMessage(m.Content, nil))
		case "system":
			messages = append(messages, schema.SystemMessage(m.Content))
		default:
			messages = append(messages, schema.UserMessage(m.Content))
		}
	}
	return messages
}

func toToolInfos(actions []contractx.ActionSpec) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(actions))
	for _, action := range actions {
		params := make(map[string]*schema.ParameterInfo, len(action.Params))
		for name, p := range action.Params {
			params[name] = &schema.ParameterInfo{
				Type:     toDataType(p.Type),
				Desc:     p.Desc,
				Required: p.Required,
			}
		}
		info := &schema.ToolInfo{
			Name: action.Name,
			Desc: action.Desc,
		}
		if len(params) > 0 {
			info.ParamsOneOf = schema.NewParamsOneOfByParams(params)
		}
		infos = append(infos, info)
	}
	return infos
}

func toDataType(t string) schema.DataType {
	switch t {
	case "integer":
		return schema.Integer
	case "number":
		return schema.Number
	case "boolean":
		return schema.Boolean
	default:
		return schema.String
	}
}

func toActionCalls(calls []schema.ToolCall) ([]contractx.ActionCall, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	out := make([]contractx.ActionCall, 0, len(calls))
	for _, call := range calls {
		name := strings.TrimSpace(call.Function.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: action call name is empty", contractx.ErrDialogueInvoke)
		}

		args := map[string]any{}
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid args for action=%s: %v", contractx.ErrDialogueInvoke, name, err)
			}
		}

		out = append(out, contractx.ActionCall{Name: name, Args: args})
	}
	return out, nil
}
