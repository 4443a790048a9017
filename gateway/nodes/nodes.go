// Package nodes holds the orchestration graph's node functions. Each node
// advances the request through one stage: received, classified, dispatched,
// composed. No stage is revisited.
package nodes

import (
	"context"
	"fmt"
	"strings"

	composex "github.com/loanbotlabs/loanbot-gateway/gateway/compose"
	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
)

// CapabilityDispatcher is the routing step's contract, satisfied by
// dispatch.Dispatcher.
type CapabilityDispatcher interface {
	Dispatch(ctx context.Context, intent contractx.Intent, req contractx.ChatRequest) (contractx.CapabilityResult, error)
}

type GraphInput struct {
	TraceID string
	Request contractx.ChatRequest
}

type GraphState struct {
	TraceID string
	Request contractx.ChatRequest
	Intent  contractx.Intent
	Result  contractx.CapabilityResult
}

type GraphOutput struct {
	Response contractx.ChatResponse
}

// ValidateRequest rejects malformed input before it reaches the classifier:
// empty messages and unrecognized intent literals.
func ValidateRequest(in GraphInput) (*GraphState, error) {
	if strings.TrimSpace(in.TraceID) == "" {
		return nil, fmt.Errorf("trace id must be minted before the graph runs")
	}
	if strings.TrimSpace(in.Request.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", contractx.ErrInvalidRequest)
	}
	if raw := strings.TrimSpace(in.Request.Intent); raw != "" {
		if _, ok := contractx.ParseIntent(raw); !ok {
			return nil, fmt.Errorf("%w: unrecognized intent %q", contractx.ErrInvalidRequest, raw)
		}
	}
	return &GraphState{
		TraceID: in.TraceID,
		Request: in.Request,
	}, nil
}

func ClassifyIntent(st *GraphState, classifier contractx.Classifier) (*GraphState, error) {
	intent, err := classifier.Classify(st.Request)
	if err != nil {
		return nil, err
	}
	st.Intent = intent
	return st, nil
}

func DispatchCapability(ctx context.Context, st *GraphState, dispatcher CapabilityDispatcher) (*GraphState, error) {
	result, err := dispatcher.Dispatch(ctx, st.Intent, st.Request)
	if err != nil {
		return nil, err
	}
	st.Result = result
	return st, nil
}

func ComposeResponse(st *GraphState, composer *composex.Composer) (GraphOutput, error) {
	resp, err := composer.Compose(st.Intent, st.Result, st.TraceID)
	if err != nil {
		return GraphOutput{}, err
	}
	return GraphOutput{Response: resp}, nil
}
