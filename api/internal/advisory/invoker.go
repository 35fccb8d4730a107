package advisory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"agrimind/api/internal/llm"
	"agrimind/api/internal/util"
)

const DefaultTimeout = 60 * time.Second

const (
	OutcomeOK               = "ok"
	OutcomeInvalidRequest   = "invalid_request"
	OutcomeInferenceFailure = "inference_failure"
)

// Recorder observes one finished invocation.
type Recorder interface {
	Observe(flow, outcome string, elapsed time.Duration)
}

// Invoker runs the advisory flows against one provider. It holds no
// per-call state and is safe for concurrent use.
type Invoker struct {
	provider llm.Provider
	log      *zap.Logger
	timeout  time.Duration
	rec      Recorder
}

type Option func(*Invoker)

func WithLogger(l *zap.Logger) Option {
	return func(inv *Invoker) {
		if l != nil {
			inv.log = l
		}
	}
}

// WithTimeout bounds each provider call; zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(inv *Invoker) { inv.timeout = d }
}

func WithRecorder(r Recorder) Option {
	return func(inv *Invoker) { inv.rec = r }
}

func NewInvoker(p llm.Provider, opts ...Option) *Invoker {
	inv := &Invoker{
		provider: p,
		log:      zap.NewNop(),
		timeout:  DefaultTimeout,
	}
	for _, o := range opts {
		o(inv)
	}
	return inv
}

// Fertilizer returns a fertilizer recommendation for req.
func (inv *Invoker) Fertilizer(ctx context.Context, req FertilizerRequest) (FertilizerResponse, error) {
	return invoke(ctx, inv, FlowFertilizer, req.Validate,
		func() string { return FertilizerPrompt(req) },
		FertilizerSchema, decodeFertilizer)
}

// Irrigation returns an irrigation decision for req.
func (inv *Invoker) Irrigation(ctx context.Context, req IrrigationRequest) (IrrigationResponse, error) {
	return invoke(ctx, inv, FlowIrrigation, req.Validate,
		func() string { return IrrigationPrompt(req) },
		IrrigationSchema, decodeIrrigation)
}

func invoke[T any](
	ctx context.Context,
	inv *Invoker,
	flow string,
	validate func() error,
	render func() string,
	schema func() *llm.Schema,
	decode func([]byte) (T, error),
) (T, error) {
	var zero T
	start := time.Now()
	log := inv.log.With(
		zap.String("flow", flow),
		zap.String("invocation_id", uuid.NewString()),
	)

	if err := validate(); err != nil {
		log.Info("advisory request rejected", zap.Error(err))
		inv.observe(flow, OutcomeInvalidRequest, start)
		return zero, &Error{Flow: flow, Kind: ErrInvalidRequest, Err: err}
	}
	if inv.provider == nil {
		inv.observe(flow, OutcomeInferenceFailure, start)
		return zero, &Error{Flow: flow, Kind: ErrInferenceFailure, Err: errors.New("no provider configured")}
	}
	log = log.With(zap.String("engine", inv.provider.Name()), zap.String("model", inv.provider.Model()))

	callCtx := ctx
	if inv.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
	}

	raw, err := inv.provider.Generate(callCtx, llm.Request{
		Name:   flow,
		Prompt: render(),
		Schema: schema(),
	})
	if err == nil {
		var out T
		if out, err = decode(raw); err == nil {
			log.Info("advisory completed", zap.Duration("elapsed", time.Since(start)))
			inv.observe(flow, OutcomeOK, start)
			return out, nil
		}
		log.Debug("reply rejected", zap.ByteString("reply", raw))
	}

	log.Warn("advisory failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
	inv.observe(flow, OutcomeInferenceFailure, start)
	return zero, &Error{Flow: flow, Kind: ErrInferenceFailure, Err: err}
}

func (inv *Invoker) observe(flow, outcome string, start time.Time) {
	if inv.rec != nil {
		inv.rec.Observe(flow, outcome, time.Since(start))
	}
}

// Wire shapes use pointers so that a missing or null property is told apart
// from a zero value.
type fertilizerReply struct {
	Recommendation  *string  `json:"recommendation"`
	Explanation     *string  `json:"explanation"`
	ConfidenceScore *float64 `json:"confidenceScore"`
}

type irrigationReply struct {
	IrrigationNeeded          *bool    `json:"irrigationNeeded"`
	IrrigationDurationMinutes *float64 `json:"irrigationDurationMinutes"`
	Reason                    *string  `json:"reason"`
}

func decodeFertilizer(raw []byte) (FertilizerResponse, error) {
	var w fertilizerReply
	if err := util.DecodeObject(raw, &w); err != nil {
		return FertilizerResponse{}, err
	}
	var missing ValidationErrors
	if w.Recommendation == nil {
		missing = append(missing, FieldError{"recommendation", "is missing"})
	}
	if w.Explanation == nil {
		missing = append(missing, FieldError{"explanation", "is missing"})
	}
	if w.ConfidenceScore == nil {
		missing = append(missing, FieldError{"confidenceScore", "is missing"})
	}
	if len(missing) > 0 {
		return FertilizerResponse{}, fmt.Errorf("reply does not match schema: %w", missing)
	}
	out := FertilizerResponse{
		Recommendation:  *w.Recommendation,
		Explanation:     *w.Explanation,
		ConfidenceScore: *w.ConfidenceScore,
	}
	if err := out.Validate(); err != nil {
		return FertilizerResponse{}, fmt.Errorf("reply violates constraints: %w", err)
	}
	return out, nil
}

func decodeIrrigation(raw []byte) (IrrigationResponse, error) {
	var w irrigationReply
	if err := util.DecodeObject(raw, &w); err != nil {
		return IrrigationResponse{}, err
	}
	var missing ValidationErrors
	if w.IrrigationNeeded == nil {
		missing = append(missing, FieldError{"irrigationNeeded", "is missing"})
	}
	if w.IrrigationDurationMinutes == nil {
		missing = append(missing, FieldError{"irrigationDurationMinutes", "is missing"})
	}
	if w.Reason == nil {
		missing = append(missing, FieldError{"reason", "is missing"})
	}
	if len(missing) > 0 {
		return IrrigationResponse{}, fmt.Errorf("reply does not match schema: %w", missing)
	}
	out := IrrigationResponse{
		IrrigationNeeded:          *w.IrrigationNeeded,
		IrrigationDurationMinutes: *w.IrrigationDurationMinutes,
		Reason:                    *w.Reason,
	}
	if err := out.Validate(); err != nil {
		return IrrigationResponse{}, fmt.Errorf("reply violates constraints: %w", err)
	}
	return out, nil
}
