// Package analyze orchestrates one scenario analysis end to end: retrieve
// regulatory context, ask the model for a populated template, validate and
// classify the answer, and record the audit trail.
package analyze

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fenchurch-labs/corep-assistant/internal/audit"
	"github.com/fenchurch-labs/corep-assistant/internal/cost"
	"github.com/fenchurch-labs/corep-assistant/internal/extract"
	"github.com/fenchurch-labs/corep-assistant/internal/model"
	"github.com/fenchurch-labs/corep-assistant/internal/resilience"
	"github.com/fenchurch-labs/corep-assistant/internal/validate"
	"github.com/fenchurch-labs/corep-assistant/pkg/anthropic"
)

// ErrInvalidRequest marks requests rejected before any work happens.
var ErrInvalidRequest = eris.New("analyze: invalid request")

const (
	minQuestionLen = 5
	minScenarioLen = 10
	maxTopK        = 10
)

// Request is one scenario analysis ask.
type Request struct {
	Question string `json:"question"`
	Scenario string `json:"scenario"`
	Template string `json:"template"`
	TopK     int    `json:"top_k"`
}

// Normalize trims the inputs, fills defaults and checks bounds. TopK zero is
// left for the searcher to default.
func (r *Request) Normalize() error {
	r.Question = strings.TrimSpace(r.Question)
	r.Scenario = strings.TrimSpace(r.Scenario)
	if r.Template == "" {
		r.Template = model.TemplateC0100
	}
	if len(r.Question) < minQuestionLen {
		return eris.Wrapf(ErrInvalidRequest, "question must be at least %d characters", minQuestionLen)
	}
	if len(r.Scenario) < minScenarioLen {
		return eris.Wrapf(ErrInvalidRequest, "scenario must be at least %d characters", minScenarioLen)
	}
	if r.TopK < 0 || r.TopK > maxTopK {
		return eris.Wrapf(ErrInvalidRequest, "top_k must be between 1 and %d", maxTopK)
	}
	return nil
}

// Searcher retrieves regulatory context for a query.
type Searcher interface {
	Search(ctx context.Context, query, template string, topK int) ([]model.RetrievedParagraph, error)
}

// Config tunes the analyzer's LLM call and audit attribution.
type Config struct {
	Model          string
	MaxTokens      int64
	Temperature    float64
	EmbeddingModel string
	Environment    string
	Retry          resilience.RetryConfig
	Breaker        resilience.CircuitBreakerConfig
}

// DefaultConfig returns the production defaults: Sonnet at near-deterministic
// temperature.
func DefaultConfig() Config {
	return Config{
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   4096,
		Temperature: 0.1,
		Environment: "development",
		Retry:       resilience.DefaultRetryConfig(),
		Breaker:     resilience.DefaultCircuitBreakerConfig(),
	}
}

// Analyzer runs the analysis pipeline.
type Analyzer struct {
	registry *model.TemplateRegistry
	searcher Searcher
	llm      anthropic.Client
	engine   *validate.Engine
	recorder *audit.Recorder
	cfg      Config
	breaker  *resilience.CircuitBreaker
	costCalc *cost.Calculator
}

// New creates an Analyzer with all dependencies.
func New(
	registry *model.TemplateRegistry,
	searcher Searcher,
	llm anthropic.Client,
	engine *validate.Engine,
	recorder *audit.Recorder,
	cfg Config,
) *Analyzer {
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = resilience.DefaultRetryConfig()
	}
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("anthropic", "create_message")
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker = resilience.DefaultCircuitBreakerConfig()
	}
	if cfg.Breaker.OnStateChange == nil {
		cfg.Breaker.OnStateChange = resilience.BreakerLogger("anthropic")
	}
	return &Analyzer{
		registry: registry,
		searcher: searcher,
		llm:      llm,
		engine:   engine,
		recorder: recorder,
		cfg:      cfg,
		breaker:  resilience.NewCircuitBreaker(cfg.Breaker),
		costCalc: cost.NewCalculator(cost.DefaultRates()),
	}
}

// Run executes one analysis. The returned Analysis carries the populated
// template under Response plus the full audit context. The engine stages are
// pure; given the same model answer the same result comes back.
func (a *Analyzer) Run(ctx context.Context, req Request) (*model.Analysis, error) {
	start := time.Now()
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	tmpl := a.registry.ByID(req.Template)
	if tmpl == nil {
		return nil, eris.Wrapf(ErrInvalidRequest, "unknown template %s", req.Template)
	}

	log := zap.L().With(zap.String("template", tmpl.ID))
	log.Info("analyzing scenario", zap.String("question", req.Question))

	// Question plus scenario retrieves better than either alone.
	paragraphs, err := a.searcher.Search(ctx, req.Question+" "+req.Scenario, tmpl.ID, req.TopK)
	if err != nil {
		return nil, eris.Wrap(err, "analyze: retrieve context")
	}
	log.Info("retrieved regulatory context", zap.Int("paragraphs", len(paragraphs)))

	temperature := a.cfg.Temperature
	resp, err := a.createMessage(ctx, anthropic.MessageRequest{
		Model:     a.cfg.Model,
		MaxTokens: a.cfg.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(buildSystemPrompt(tmpl)),
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: buildUserPrompt(tmpl, req.Question, req.Scenario, formatContext(paragraphs))},
		},
		Temperature: &temperature,
	})
	if err != nil {
		return nil, eris.Wrap(err, "analyze: llm call")
	}
	resp.Usage.LogCost(a.cfg.Model, "analyze")

	out, err := extract.Parse(resp.Text(), tmpl)
	if err != nil {
		return nil, err
	}

	fields, warnings := a.engine.Process(tmpl, out.Fields)
	result := model.AnalysisResult{
		TemplateID: tmpl.ID,
		Fields:     fields,
		Warnings:   warnings,
	}

	analysis, err := a.recorder.Record(ctx, audit.Entry{
		Query: model.AnalysisQuery{
			Question: req.Question,
			Scenario: req.Scenario,
			Template: tmpl.ID,
		},
		Result:        result,
		ModelWarnings: out.ModelWarnings,
		Paragraphs:    paragraphs,
		System: model.SystemInfo{
			LLMModel:       a.cfg.Model,
			EmbeddingModel: a.cfg.EmbeddingModel,
			Environment:    a.cfg.Environment,
		},
		Metadata: model.AnalysisMetadata{
			DurationMS:       time.Since(start).Milliseconds(),
			InputTokens:      int(resp.Usage.InputTokens),
			OutputTokens:     int(resp.Usage.OutputTokens),
			EstimatedCostUSD: a.costCalc.Claude(a.cfg.Model, resp.Usage),
		},
	})
	if err != nil {
		// Audit write failure does not fail the analysis.
		log.Error("audit record failed", zap.Error(err))
	}

	log.Info("analysis complete",
		zap.String("log_id", analysis.ID),
		zap.Int("fields", len(result.Fields)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Int64("duration_ms", analysis.Metadata.DurationMS),
	)
	return analysis, nil
}

// createMessage calls the LLM behind the circuit breaker, retrying transient
// failures inside a single breaker attempt.
func (a *Analyzer) createMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return resilience.Execute(ctx, a.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.Do(ctx, a.cfg.Retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return a.llm.CreateMessage(ctx, req)
		})
	})
}

// BreakerState reports the LLM circuit breaker's current state.
func (a *Analyzer) BreakerState() resilience.CircuitState {
	return a.breaker.State()
}
