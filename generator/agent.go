package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Agent assembles prompts within the context budget and runs them through the invoker.
type Agent struct {
	invoker *Invoker
	budget  Budget
	logger  *zap.Logger
}

func NewAgent(invoker *Invoker, budget Budget, logger *zap.Logger) (*Agent, error) {
	if invoker == nil {
		return nil, errors.New("invoker is required")
	}
	if budget.Capacity <= 0 {
		return nil, fmt.Errorf("context capacity must be positive, got %d", budget.Capacity)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{invoker: invoker, budget: budget, logger: logger}, nil
}

func (a *Agent) Budget() Budget {
	return a.budget
}

// Plan assembles the call without sending it.
func (a *Agent) Plan(call Call) (Assembly, error) {
	return Assemble(call.Instruction, call.Prior, call.Task, a.budget)
}

// Generate assembles and sends the call.
func (a *Agent) Generate(ctx context.Context, call Call) (Result, error) {
	asm, err := a.Plan(call)
	if err != nil {
		return Result{}, err
	}
	fp := asm.Prompt.Fingerprint()
	if len(asm.Omitted) > 0 {
		a.logger.Info("prior material dropped to fit context window",
			zap.String("fingerprint", fp),
			zap.Strings("omitted", asm.Omitted),
			zap.Strings("included", asm.Included))
	}
	a.logger.Debug("sending prompt",
		zap.String("fingerprint", fp),
		zap.Int("cost", asm.Cost),
		zap.Int("capacity", a.budget.Capacity))

	post := call.Post
	if post == nil {
		post = trimNonEmpty
	}
	text, attempts, err := a.invoker.Invoke(ctx, asm.Prompt, post)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Text:        text,
		Fingerprint: fp,
		Attempts:    attempts,
		Included:    asm.Included,
		Omitted:     asm.Omitted,
	}, nil
}

func trimNonEmpty(raw string) (string, error) {
	out := strings.TrimSpace(raw)
	if out == "" {
		return "", fmt.Errorf("%w: empty completion", ErrMalformedOutput)
	}
	return out, nil
}
