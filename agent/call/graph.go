package call

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/BrianMwas/vocare/agent/contract"
)

// turnInput carries everything one turn needs. The graph itself is compiled
// once per process and stays stateless; per-call objects travel in the input.
type turnInput struct {
	Active    contractx.PersonaAgent
	Service   contractx.DialogueService
	History   []contractx.Message
	Utterance string
}

type turnOutput struct {
	Reply   string
	Results []contractx.ActionResult
}

type turnState struct {
	In       turnInput
	Request  contractx.TurnRequest
	Response contractx.TurnResponse
	Results  []contractx.ActionResult
}

// compileTurnGraph builds the per-turn pipeline:
// render_instructions -> dialogue_turn -> execute_actions -> finalize_reply.
func compileTurnGraph(ctx context.Context) (compose.Runnable[turnInput, turnOutput], error) {
	graph := compose.NewGraph[turnInput, turnOutput]()

	if err := graph.AddLambdaNode("render_instructions",
		compose.InvokableLambda(func(ctx context.Context, in turnInput) (*turnState, error) {
			if in.Active == nil {
				return nil, fmt.Errorf("%w: no active persona", contractx.ErrValidation)
			}
			if in.Service == nil {
				return nil, fmt.Errorf("%w: no dialogue service", contractx.ErrValidation)
			}

			history := append([]contractx.Message(nil), in.History...)
			if strings.TrimSpace(in.Utterance) != "" {
				history = append(history, contractx.Message{Role: "user", Content: in.Utterance})
			}

			return &turnState{
				In: in,
				Request: contractx.TurnRequest{
					Instructions: in.Active.RenderInstructions(),
					History:      history,
					Actions:      in.Active.Actions(),
				},
			}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node render_instructions: %w", err)
	}

	if err := graph.AddLambdaNode("dialogue_turn",
		compose.InvokableLambda(func(ctx context.Context, st *turnState) (*turnState, error) {
			resp, err := st.In.Service.Turn(ctx, st.Request)
			if err != nil {
				return nil, err
			}
			st.Response = resp
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dialogue_turn: %w", err)
	}

	if err := graph.AddLambdaNode("execute_actions",
		compose.InvokableLambda(func(ctx context.Context, st *turnState) (*turnState, error) {
			for _, action := range st.Response.Actions {
				st.Results = append(st.Results, st.In.Active.Execute(ctx, action))
			}
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node execute_actions: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, st *turnState) (turnOutput, error) {
			return turnOutput{
				Reply:   finalizeReply(st.Response, st.Results),
				Results: st.Results,
			}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "render_instructions"},
		{"render_instructions", "dialogue_turn"},
		{"dialogue_turn", "execute_actions"},
		{"execute_actions", "finalize_reply"},
		{"finalize_reply", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("call.turn"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}

// finalizeReply prefers the model's utterance; when the model only invoked
// actions, action errors become the caller-facing clarification.
func finalizeReply(resp contractx.TurnResponse, results []contractx.ActionResult) string {
	if reply := strings.TrimSpace(resp.Utterance); reply != "" {
		return reply
	}
	for _, res := range results {
		if res.Error != "" {
			return res.Error
		}
	}
	return "Sorry, could you say that again?"
}
