package scoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const embeddingBatchSize = 256

var (
	scoringDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "proposal",
		Subsystem: "scoring",
		Name:      "duration_seconds",
		Help:      "Duration of similarity scoring requests",
	}, []string{"model"})

	scoringFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proposal",
		Subsystem: "scoring",
		Name:      "failures_total",
		Help:      "Number of similarity scoring failures",
	}, []string{"model"})
)

// EmbeddingClient is the subset of the OpenAI client used for scoring.
type EmbeddingClient interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIConfig defines configuration options for the embedding scorer.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  zerolog.Logger
}

// OpenAIScorer compares proposals using OpenAI embeddings and cosine similarity.
type OpenAIScorer struct {
	client EmbeddingClient
	model  openai.EmbeddingModel
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIScorer builds a scorer backed by the OpenAI embeddings API.
func NewOpenAIScorer(cfg OpenAIConfig) (*OpenAIScorer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return NewOpenAIScorerWithClient(openai.NewClientWithConfig(config), cfg.Model, cfg.Logger), nil
}

// NewOpenAIScorerWithClient wires an existing embedding client.
func NewOpenAIScorerWithClient(client EmbeddingClient, model string, logger zerolog.Logger) *OpenAIScorer {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &OpenAIScorer{
		client: client,
		model:  openai.EmbeddingModel(model),
		tracer: otel.Tracer("github.com/noah-isme/proposal-review-api/pkg/scoring/openai"),
		logger: logger.With().Str("component", "openai_scorer").Logger(),
	}
}

// Score embeds the text and corpus and returns the best cosine match as a percentage.
func (s *OpenAIScorer) Score(parent context.Context, req Request) (float64, error) {
	ctx, span := s.tracer.Start(parent, "scoring.openai", trace.WithAttributes(
		attribute.String("model", string(s.model)),
		attribute.String("proposal.type", req.ProposalType),
		attribute.String("similarity.mode", req.Mode),
		attribute.Int("corpus.size", len(req.Corpus)),
	))
	defer span.End()

	text := strings.TrimSpace(req.Text)
	corpus := make([]string, 0, len(req.Corpus))
	for _, entry := range req.Corpus {
		if trimmed := strings.TrimSpace(entry); trimmed != "" {
			corpus = append(corpus, trimmed)
		}
	}
	if text == "" || len(corpus) == 0 {
		return 0, nil
	}

	start := time.Now()
	vectors, err := s.embed(ctx, append([]string{text}, corpus...))
	scoringDuration.WithLabelValues(string(s.model)).Observe(time.Since(start).Seconds())
	if err != nil {
		scoringFailures.WithLabelValues(string(s.model)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("openai score: %w", err)
	}

	score := MaxCosinePercent(vectors[0], vectors[1:])
	span.SetAttributes(attribute.Float64("similarity.score", score))
	s.logger.Debug().Float64("score", score).Int("corpus", len(corpus)).Msg("similarity scored")

	return score, nil
}

func (s *OpenAIScorer) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	vectors := make([][]float32, len(inputs))
	for offset := 0; offset < len(inputs); offset += embeddingBatchSize {
		end := offset + embeddingBatchSize
		if end > len(inputs) {
			end = len(inputs)
		}

		resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: inputs[offset:end],
			Model: s.model,
		})
		if err != nil {
			return nil, err
		}

		for _, item := range resp.Data {
			index := offset + item.Index
			if item.Index < 0 || index >= end {
				return nil, fmt.Errorf("embedding index %d out of range", item.Index)
			}
			vectors[index] = item.Embedding
		}
	}

	for i, vector := range vectors {
		if vector == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return vectors, nil
}
