package classifier

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/PabloGalante/guardian-agent/internal/adapters/llm"
	"github.com/PabloGalante/guardian-agent/internal/domain"
	"github.com/PabloGalante/guardian-agent/internal/observability"
)

const DefaultTimeout = 15 * time.Second

// Generation settings per call kind.
const (
	analysisTemperature     = 0.1
	analysisMaxTokens       = 1024
	instructionsTemperature = 0.2
	instructionsMaxTokens   = 2048
	voiceTemperature        = 0.7
	voiceMaxTokens          = 256
	probeMaxTokens          = 10
)

var errEmptyStructure = errors.New("model reply contained no usable JSON")

type Options struct {
	// Timeout bounds every model call. DefaultTimeout when zero.
	Timeout time.Duration
}

// Classifier turns model replies into analyses, instructions and spoken
// answers. Every method recovers from model failures with a safe default.
type Classifier struct {
	gen       domain.Generator
	timeout   time.Duration
	connected atomic.Bool
}

// New wires a classifier around gen. A nil gen is allowed and makes every
// call return its fallback.
func New(gen domain.Generator, opts Options) *Classifier {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Classifier{gen: gen, timeout: timeout}
	c.connected.Store(gen != nil)
	return c
}

// Connected reports whether a generator is wired and the last probe, if
// any, succeeded.
func (c *Classifier) Connected() bool {
	return c.connected.Load()
}

func (c *Classifier) generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	if c.gen == nil {
		return "", errors.New("no generator configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.gen.Generate(ctx, req)
}

// AnalyzeFrame classifies a single image.
func (c *Classifier) AnalyzeFrame(ctx context.Context, image []byte, mime, userContext string) domain.Analysis {
	log := observability.LoggerFromContext(ctx).With(zap.Int("image_bytes", len(image)))
	start := time.Now()

	text, err := c.generate(ctx, domain.GenerateRequest{
		Prompt:      llm.BuildAnalysisPrompt(userContext),
		Image:       image,
		ImageMIME:   mime,
		Temperature: analysisTemperature,
		MaxTokens:   analysisMaxTokens,
	})
	if err != nil {
		log.Error("frame analysis failed, using fallback", zap.Error(err))
		return FallbackAnalysis(err.Error())
	}

	obj := llm.ExtractJSON(text).AsObject()
	if obj == nil {
		log.Warn("frame analysis unparseable, using fallback", zap.String("reply_snippet", snippet(text)))
		return FallbackAnalysis(errEmptyStructure.Error())
	}

	a := MapAnalysis(obj)
	log.Info("frame analyzed",
		zap.String("emergency_type", string(a.EmergencyType)),
		zap.Int("severity", a.Severity),
		zap.Float64("confidence", a.ConfidenceScore),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return a
}

// GenerateInstructions asks for a step list, falling back to curated
// defaults for the type.
func (c *Classifier) GenerateInstructions(ctx context.Context, t domain.EmergencyType, severity int, observations []string) []domain.Instruction {
	log := observability.LoggerFromContext(ctx).With(zap.String("emergency_type", string(t)))

	text, err := c.generate(ctx, domain.GenerateRequest{
		Prompt:      llm.BuildInstructionsPrompt(string(t), severity, observations),
		Temperature: instructionsTemperature,
		MaxTokens:   instructionsMaxTokens,
	})
	if err != nil {
		log.Error("instruction generation failed, using defaults", zap.Error(err))
		return DefaultInstructions(t)
	}

	steps := MapInstructions(llm.ExtractJSON(text).AsArray())
	if len(steps) == 0 {
		log.Warn("instruction reply had no steps, using defaults", zap.String("reply_snippet", snippet(text)))
		return DefaultInstructions(t)
	}

	log.Info("instructions generated", zap.Int("steps", len(steps)))
	return steps
}

// ProcessVoiceQuery answers a spoken question in a few sentences.
func (c *Classifier) ProcessVoiceQuery(ctx context.Context, question, situation string) string {
	log := observability.LoggerFromContext(ctx)

	text, err := c.generate(ctx, domain.GenerateRequest{
		Prompt:      llm.BuildVoicePrompt(question, situation),
		Temperature: voiceTemperature,
		MaxTokens:   voiceMaxTokens,
	})
	if err != nil {
		log.Error("voice query failed, using fallback", zap.Error(err))
		return VoiceFallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		log.Warn("voice query returned empty text, using fallback")
		return VoiceFallback
	}
	return text
}

// CheckConnectivity sends a tiny probe and records the result.
func (c *Classifier) CheckConnectivity(ctx context.Context) bool {
	text, err := c.generate(ctx, domain.GenerateRequest{
		Prompt:    llm.ConnectivityProbe,
		MaxTokens: probeMaxTokens,
	})
	ok := err == nil && strings.TrimSpace(text) != ""
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("connectivity probe failed", zap.Error(err))
	}
	if c.gen != nil {
		c.connected.Store(ok)
	}
	return ok
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return domain.Truncate(s, 160)
}
