package scoring

import (
	"ai-salesops-be/internal/pkg/logger"
	"ai-salesops-be/pkg/crm"
	"ai-salesops-be/pkg/llm"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const DefaultCallTimeout = 60 * time.Second

// Scorer turns a batch of records into a Ranking. One instance serves every Kind.
type Scorer struct {
	provider    llm.LLMProvider
	logger      logger.ILogger
	cache       ScoreCache
	timeout     time.Duration
	concurrency int
	templates   map[string]string
	tracer      trace.Tracer
}

type ScorerOption func(*Scorer)

func WithCache(c ScoreCache) ScorerOption {
	return func(s *Scorer) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithCallTimeout(d time.Duration) ScorerOption {
	return func(s *Scorer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithConcurrency bounds parallel provider calls. 1 keeps scoring sequential.
func WithConcurrency(n int) ScorerOption {
	return func(s *Scorer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithPromptOverrides(o *PromptOverrides) ScorerOption {
	return func(s *Scorer) {
		if o == nil {
			return
		}
		s.templates[Lead.Name] = o.Lead
		s.templates[Opportunity.Name] = o.Opportunity
	}
}

func NewScorer(provider llm.LLMProvider, log logger.ILogger, opts ...ScorerOption) *Scorer {
	s := &Scorer{
		provider:    provider,
		logger:      log,
		cache:       NopCache{},
		timeout:     DefaultCallTimeout,
		concurrency: 1,
		templates:   map[string]string{},
		tracer:      otel.Tracer("ai-salesops-be/pkg/scoring"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreBatch scores every record and returns them sorted by descending score.
// It never fails: provider errors score DefaultScore.
func (s *Scorer) ScoreBatch(ctx context.Context, records []crm.Record, kind Kind) Ranking {
	ctx, span := s.tracer.Start(ctx, "scoring.ScoreBatch", trace.WithAttributes(
		attribute.String("kind", kind.Name),
		attribute.Int("records", len(records)),
	))
	defer span.End()

	kind = kind.WithTemplate(s.templates[kind.Name])
	ranking := make(Ranking, len(records))

	if s.concurrency <= 1 {
		for i, record := range records {
			ranking[i] = s.scoreOne(ctx, record, kind)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for i, record := range records {
			i, record := i, record
			g.Go(func() error {
				ranking[i] = s.scoreOne(ctx, record, kind)
				return nil
			})
		}
		_ = g.Wait()
	}

	sort.SliceStable(ranking, func(a, b int) bool {
		return ranking[a].Score > ranking[b].Score
	})

	s.logger.Info("SCORING", "Batch scored", map[string]interface{}{
		"kind":    kind.Name,
		"records": len(ranking),
		"average": ranking.AverageScore(),
	})
	return ranking
}

// Rank loads the kind's records from the store and scores them.
func (s *Scorer) Rank(ctx context.Context, store crm.RecordStore, kind Kind) (Ranking, error) {
	records, err := kind.Load(ctx, store)
	if err != nil {
		return nil, err
	}
	return s.ScoreBatch(ctx, records, kind), nil
}

func (s *Scorer) scoreOne(ctx context.Context, record crm.Record, kind Kind) ScoredRecord {
	key := CacheKey{Kind: kind.Name, RecordID: record.ID()}
	if key.RecordID != "" {
		if score, ok := s.cache.Get(ctx, key); ok {
			return ScoredRecord{Record: record, Score: score, Kind: kind}
		}
	}

	canonical, err := Canonical(record)
	if err != nil {
		s.logger.Warn("SCORING", "Record could not be serialized, using default score", map[string]interface{}{
			"kind":  kind.Name,
			"id":    key.RecordID,
			"error": err.Error(),
		})
		return ScoredRecord{Record: record, Score: DefaultScore, Kind: kind}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	response, err := s.provider.Generate(callCtx, kind.Prompt(canonical), llm.WithTemperature(0))
	if err != nil {
		s.logger.Warn("SCORING", "Provider call failed, using default score", map[string]interface{}{
			"kind":  kind.Name,
			"id":    key.RecordID,
			"error": err.Error(),
		})
		return ScoredRecord{Record: record, Score: DefaultScore, Kind: kind}
	}

	score := ParseScore(response)
	if key.RecordID != "" {
		s.cache.Set(ctx, key, score)
	}
	return ScoredRecord{Record: record, Score: score, Kind: kind}
}

// Canonical is the record's JSON form with keys sorted.
func Canonical(record crm.Record) (string, error) {
	b, err := json.Marshal(map[string]any(record))
	if err != nil {
		return "", fmt.Errorf("canonical form: %w", err)
	}
	return string(b), nil
}
