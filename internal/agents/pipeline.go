package agents

import (
	"context"
	"time"

	apperrors "bess-trader/internal/errors"
	"bess-trader/internal/logging"
	"bess-trader/internal/models"
	"bess-trader/internal/stream"
)

// FailureAction tells the pipeline what to do when a stage errors.
type FailureAction int

const (
	// Halt stops the run and surfaces the stage error.
	Halt FailureAction = iota
	// Absorb records the policy fallback text and keeps going.
	Absorb
)

// StagePolicy binds a failure action and its fallback text to a stage.
type StagePolicy struct {
	OnError  FailureAction
	Fallback string
}

type boundStage struct {
	stage  Stage
	policy StagePolicy
}

// Pipeline runs the stages in order against a single session record.
// Each stage sees the record as read-only input and returns one field
// value, which the pipeline merges before the next stage starts.
type Pipeline struct {
	stages []boundStage
	hub    *stream.Hub
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHub attaches a progress event hub. Every stage transition is
// published there, keyed by session ID.
func WithHub(hub *stream.Hub) Option {
	return func(p *Pipeline) {
		p.hub = hub
	}
}

// NewPipeline wires the three desk stages in their fixed order. A market
// data failure degrades to the unavailable-data text so the news and
// decision stages still run; their own failures halt the run.
func NewPipeline(market *MarketDataStage, news *NewsStage, decision *DecisionStage, opts ...Option) *Pipeline {
	p := &Pipeline{
		stages: []boundStage{
			{stage: market, policy: StagePolicy{OnError: Absorb, Fallback: PriceUnavailable}},
			{stage: news, policy: StagePolicy{OnError: Halt}},
			{stage: decision, policy: StagePolicy{OnError: Halt}},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run creates a fresh session record for the symbol and executes it.
func (p *Pipeline) Run(ctx context.Context, symbol, company string) (*models.SessionRecord, error) {
	return p.Execute(ctx, models.NewSessionRecord(symbol, company))
}

// Execute drives the record through every stage. All stage credentials
// are checked before the first stage runs, so a missing key aborts the
// session before any network call goes out.
func (p *Pipeline) Execute(ctx context.Context, rec models.SessionRecord) (*models.SessionRecord, error) {
	log := logging.WithSession(logging.FromContext(ctx), rec.ID)
	ctx = logging.WithLogger(ctx, log)

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	for _, bound := range p.stages {
		if err := bound.stage.Check(); err != nil {
			log.Error().Err(err).Str("stage", bound.stage.Name()).Msg("Preflight check failed")
			p.publish(rec.ID, models.StagePipeline, models.StageFailed, err.Error())
			return nil, apperrors.Wrapf(err, "stage %s preflight", bound.stage.Name())
		}
	}

	started := time.Now()
	p.publish(rec.ID, models.StagePipeline, models.StageStarted, rec.Symbol)

	for _, bound := range p.stages {
		name := bound.stage.Name()
		stageStart := time.Now()
		p.publish(rec.ID, name, models.StageStarted, "")

		status := models.StageCompleted
		message := ""
		value, err := bound.stage.Run(ctx, rec)
		if err != nil {
			if bound.policy.OnError != Absorb {
				log.Error().Err(err).Str("stage", name).Msg("Stage failed")
				p.publish(rec.ID, name, models.StageFailed, err.Error())
				p.publish(rec.ID, models.StagePipeline, models.StageFailed, err.Error())
				return nil, err
			}
			log.Warn().Err(err).Str("stage", name).Msg("Stage degraded, continuing with fallback")
			status = models.StageDegraded
			message = err.Error()
			value = bound.policy.Fallback
		}

		p.publish(rec.ID, name, status, message)
		rec = rec.With(bound.stage.Field(), value)
		logging.LogStage(log, name, string(status), time.Since(stageStart))
	}

	rec.CompletedAt = time.Now()
	log.Info().
		Str("symbol", rec.Symbol).
		Dur("duration", time.Since(started)).
		Msg("Session completed")
	p.publish(rec.ID, models.StagePipeline, models.StageCompleted, "")

	return &rec, nil
}

func (p *Pipeline) publish(sessionID, stage string, status models.StageStatus, message string) {
	if p.hub == nil {
		return
	}
	p.hub.Publish(models.ProgressEvent{
		SessionID: sessionID,
		Stage:     stage,
		Status:    status,
		Message:   message,
		At:        time.Now(),
	})
}
