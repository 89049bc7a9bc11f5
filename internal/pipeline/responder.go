// Package pipeline runs one user message through fact lookup, history,
// prompt assembly, completion and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/tojibot/internal/llm"
	"github.com/ent0n29/tojibot/internal/logging"
	"github.com/ent0n29/tojibot/internal/memory"
	"github.com/ent0n29/tojibot/internal/observability"
	"github.com/ent0n29/tojibot/internal/policy"
	"github.com/ent0n29/tojibot/internal/prompt"
)

const DefaultFallbackReply = "Something's interfering with my work. I'll be back."

// FactSource returns background facts for a message. It must not fail.
type FactSource interface {
	Relevant(ctx context.Context, input string) []string
}

// History owns per-user transcripts.
type History interface {
	GetOrCreate(ctx context.Context, userID string) *memory.Transcript
	Persist(ctx context.Context, userID string, t *memory.Transcript) error
}

type Options struct {
	Facts     FactSource
	History   History
	Assembler prompt.Assembler
	Client    llm.Client
	// FallbackReply is returned whenever a reply could not be generated.
	FallbackReply string
	Logger        *zap.Logger
	Metrics       *observability.Metrics
}

// Responder turns a user message into the persona's reply. Runs for the same
// user are serialized; different users proceed concurrently.
type Responder struct {
	facts     FactSource
	history   History
	assembler prompt.Assembler
	client    llm.Client
	fallback  string
	logger    *zap.Logger
	metrics   *observability.Metrics
	locks     *UserLocks
}

func NewResponder(opts Options) (*Responder, error) {
	if opts.Facts == nil || opts.History == nil || opts.Client == nil {
		return nil, fmt.Errorf("pipeline: facts, history and client are required")
	}
	fallback := opts.FallbackReply
	if fallback == "" {
		fallback = DefaultFallbackReply
	}
	return &Responder{
		facts:     opts.Facts,
		history:   opts.History,
		assembler: opts.Assembler,
		client:    opts.Client,
		fallback:  fallback,
		logger:    logging.OrNop(opts.Logger),
		metrics:   opts.Metrics,
		locks:     NewUserLocks(),
	}, nil
}

// Respond never fails: a completion error or a panic inside the run yields the
// fallback reply and leaves the transcript untouched. A failed save is logged
// and the reply is still returned.
func (r *Responder) Respond(ctx context.Context, userID, message string) (reply string) {
	unlock := r.locks.Lock(userID)
	defer unlock()

	start := time.Now()
	log := r.logger.With(zap.String("op", "pipeline.respond"), zap.String("user_id", userID))
	defer func() {
		if p := recover(); p != nil {
			log.Error("pipeline panic", zap.Any("panic", p))
			r.metrics.ObservePipeline("panic")
			r.metrics.ObserveIndicator("fallback_reply")
			reply = r.fallback
		}
		r.metrics.ObserveStage(observability.StageTotal, time.Since(start))
	}()
	log.Debug("respond", zap.String("message", policy.Preview(message, 80)))

	stageStart := time.Now()
	facts := r.facts.Relevant(ctx, message)
	r.metrics.ObserveStage(observability.StageFacts, time.Since(stageStart))

	stageStart = time.Now()
	transcript := r.history.GetOrCreate(ctx, userID)
	r.metrics.ObserveStage(observability.StageHistory, time.Since(stageStart))

	text := r.assembler.Build(facts, transcript.Turns(), message)

	stageStart = time.Now()
	out, err := r.client.Complete(ctx, text)
	r.metrics.ObserveStage(observability.StageCompletion, time.Since(stageStart))
	if err != nil {
		log.Error("completion failed", zap.Int("facts", len(facts)), zap.Error(err))
		r.metrics.ObserveProviderError(providerOf(r.client), errorCode(err))
		r.metrics.ObservePipeline("completion_error")
		r.metrics.ObserveIndicator("fallback_reply")
		return r.fallback
	}

	transcript.Append(
		memory.Turn{Role: memory.RoleHuman, Content: message},
		memory.Turn{Role: memory.RoleAI, Content: out},
	)

	stageStart = time.Now()
	err = r.history.Persist(ctx, userID, transcript)
	r.metrics.ObserveStage(observability.StagePersist, time.Since(stageStart))
	if err != nil {
		// Already logged by the cache; the reply stands.
		r.metrics.ObservePipeline("persist_error")
		return out
	}
	r.metrics.ObservePipeline("ok")
	return out
}

func providerOf(c llm.Client) string {
	if n, ok := c.(llm.Named); ok {
		return n.Provider()
	}
	return "unknown"
}

func errorCode(err error) string {
	var se *llm.StatusError
	switch {
	case errors.As(err, &se):
		return strconv.Itoa(se.Code)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, llm.ErrEmptyOutput):
		return "empty"
	default:
		return "error"
	}
}
