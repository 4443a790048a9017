// Package orchestrator composes the chat handling cycle: validate, classify,
// dispatch, compose. Each request is one synchronous unit of work; it either
// produces a full envelope or fails explicitly with its trace id attached.
package orchestrator

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	composex "github.com/loanbotlabs/loanbot-gateway/gateway/compose"
	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
	nodex "github.com/loanbotlabs/loanbot-gateway/gateway/nodes"
)

type Orchestrator struct {
	classifier contractx.Classifier
	dispatcher nodex.CapabilityDispatcher
	composer   *composex.Composer

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	newTraceID func() string
}

// New wires the orchestrator with explicit dependencies. Backends are chosen
// by the caller at process start; nothing here resolves ambient state.
func New(
	classifier contractx.Classifier,
	dispatcher nodex.CapabilityDispatcher,
	composer *composex.Composer,
) (*Orchestrator, error) {
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if composer == nil {
		composer = composex.New()
	}

	o := &Orchestrator{
		classifier: classifier,
		dispatcher: dispatcher,
		composer:   composer,
		newTraceID: uuid.NewString,
	}

	graphRunner, err := o.compileHandleChatGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Handle processes one chat request end to end. The trace id is minted here,
// before any backend call, so failures at every later stage stay
// correlatable.
func (o *Orchestrator) Handle(ctx context.Context, req contractx.ChatRequest) (contractx.ChatResponse, error) {
	traceID := o.newTraceID()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		TraceID: traceID,
		Request: req,
	})
	if err != nil {
		return contractx.ChatResponse{}, &contractx.RequestError{TraceID: traceID, Err: err}
	}
	return out.Response, nil
}
