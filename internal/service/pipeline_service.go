package service

import (
	"context"
	"fmt"
	"time"

	"ai-salesops-be/internal/dto"
	"ai-salesops-be/internal/pkg/logger"
	"ai-salesops-be/pkg/crm"
	"ai-salesops-be/pkg/events"
	"ai-salesops-be/pkg/scoring"
	"ai-salesops-be/pkg/tools"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultRankingLimit  = 20
	DefaultDashboardTop  = 10
	histogramBuckets     = 10
	hotScoreThreshold    = 80
	warmScoreThreshold   = 60
	unknownStageName     = "Unknown"
	opportunityAmountKey = "Amount"
	opportunityStageKey  = "StageName"
)

type IPipelineService interface {
	Rank(ctx context.Context, kindName string, limit int) (*dto.RankingResponse, error)
	GetRecord(ctx context.Context, kindName string, id string) (*dto.RecordDetailResponse, error)
	FollowUp(ctx context.Context, req *dto.FollowUpRequest) (*dto.FollowUpResponse, error)
	Dashboard(ctx context.Context, top int) (*dto.DashboardResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.RefreshResponse, error)
}

type pipelineService struct {
	store     crm.RecordStore
	ranker    tools.Ranker
	followUp  tools.FollowUpWriter
	publisher IPublisherService
	events    IEventService
	logger    logger.ILogger
}

func NewPipelineService(
	store crm.RecordStore,
	ranker tools.Ranker,
	followUp tools.FollowUpWriter,
	publisher IPublisherService,
	eventService IEventService,
	log logger.ILogger,
) IPipelineService {
	return &pipelineService{
		store:     store,
		ranker:    ranker,
		followUp:  followUp,
		publisher: publisher,
		events:    eventService,
		logger:    log,
	}
}

func (s *pipelineService) rank(ctx context.Context, kind scoring.Kind) (scoring.Ranking, error) {
	ranking, err := s.ranker.Rank(ctx, s.store, kind)
	if err != nil {
		s.logger.Error("PIPELINE", "Ranking failed", map[string]interface{}{
			"kind":  kind.Name,
			"error": err.Error(),
		})
		return nil, fmt.Errorf("ranking %s: %w", kind.Plural, err)
	}
	return ranking, nil
}

func (s *pipelineService) Rank(ctx context.Context, kindName string, limit int) (*dto.RankingResponse, error) {
	kind, err := scoring.KindByName(kindName)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRankingLimit
	}

	ranking, err := s.rank(ctx, kind)
	if err != nil {
		return nil, err
	}

	if len(ranking) > 0 {
		s.events.Emit(ctx, events.PipelineRanked(kind.Name, len(ranking), ranking.AverageScore(), ranking[0].Name()))
	}

	return &dto.RankingResponse{
		Kind:         kind.Name,
		Total:        len(ranking),
		AverageScore: ranking.AverageScore(),
		Records:      toScoredDTOs(ranking.Top(limit)),
	}, nil
}

func (s *pipelineService) GetRecord(ctx context.Context, kindName string, id string) (*dto.RecordDetailResponse, error) {
	kind, err := scoring.KindByName(kindName)
	if err != nil {
		return nil, err
	}

	ranking, err := s.rank(ctx, kind)
	if err != nil {
		return nil, err
	}

	scored, idx, ok := ranking.FindByID(id)
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", kind.Name, id, crm.ErrRecordNotFound)
	}

	return &dto.RecordDetailResponse{
		Kind: kind.Name,
		ScoredRecordDTO: dto.ScoredRecordDTO{
			Rank:   idx + 1,
			Score:  scored.Score,
			Record: scored.Fields(),
		},
		Delta: scored.Score - scoring.DefaultScore,
		Of:    len(ranking),
	}, nil
}

func (s *pipelineService) FollowUp(ctx context.Context, req *dto.FollowUpRequest) (*dto.FollowUpResponse, error) {
	kind, err := scoring.KindByName(req.Kind)
	if err != nil {
		return nil, err
	}

	records, err := kind.Load(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", kind.Plural, err)
	}

	record, err := crm.FindByID(records, req.RecordId)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", kind.Name, req.RecordId, err)
	}

	steps, err := s.followUp.Generate(ctx, record, kind)
	if err != nil {
		return nil, err
	}

	return &dto.FollowUpResponse{
		Kind:     kind.Name,
		RecordId: req.RecordId,
		Name:     record.Name(),
		Steps:    steps,
	}, nil
}

// Dashboard ranks both kinds in parallel and aggregates the metric cards.
func (s *pipelineService) Dashboard(ctx context.Context, top int) (*dto.DashboardResponse, error) {
	if top <= 0 {
		top = DefaultDashboardTop
	}

	var leads, opps scoring.Ranking
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leads, err = s.rank(gctx, scoring.Lead)
		return err
	})
	g.Go(func() error {
		var err error
		opps, err = s.rank(gctx, scoring.Opportunity)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stages := make(map[string]int)
	for _, o := range opps {
		stages[o.Record.StringOr(opportunityStageKey, unknownStageName)]++
	}

	return &dto.DashboardResponse{
		TotalLeads:              len(leads),
		AverageLeadScore:        leads.AverageScore(),
		TotalOpportunities:      len(opps),
		AverageOpportunityScore: opps.AverageScore(),
		PipelineValue:           opps.TotalOf(opportunityAmountKey),
		StageBreakdown:          stages,
		LeadScoreHistogram:      histogram(leads.Scores()),
		LeadBands:               bands(leads.Scores()),
		OpportunityBands:        bands(opps.Scores()),
		TopLeads:                toScoredDTOs(leads.Top(top)),
		TopOpportunities:        toScoredDTOs(opps.Top(top)),
	}, nil
}

func (s *pipelineService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.RefreshResponse, error) {
	kinds := req.Kinds
	if len(kinds) == 0 {
		kinds = []string{scoring.Lead.Name, scoring.Opportunity.Name}
	}
	for _, k := range kinds {
		if _, err := scoring.KindByName(k); err != nil {
			return nil, err
		}
	}

	job := dto.RefreshScoresMessage{
		JobId:      uuid.NewString(),
		Kinds:      kinds,
		FlushCache: req.FlushCache,
	}
	if err := s.publisher.Publish(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue refresh: %w", err)
	}

	s.logger.Info("PIPELINE", "Refresh enqueued", map[string]interface{}{
		"job_id":      job.JobId,
		"kinds":       kinds,
		"flush_cache": req.FlushCache,
	})

	return &dto.RefreshResponse{
		JobId:      job.JobId,
		Kinds:      kinds,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

func toScoredDTOs(ranking scoring.Ranking) []dto.ScoredRecordDTO {
	out := make([]dto.ScoredRecordDTO, len(ranking))
	for i, r := range ranking {
		out[i] = dto.ScoredRecordDTO{Rank: i + 1, Score: r.Score, Record: r.Fields()}
	}
	return out
}

// histogram splits 0-100 into ten buckets; 100 falls in the last one.
func histogram(scores []int) []dto.HistogramBucket {
	width := (scoring.MaxScore - scoring.MinScore) / histogramBuckets
	buckets := make([]dto.HistogramBucket, histogramBuckets)
	for i := range buckets {
		buckets[i].From = scoring.MinScore + i*width
		buckets[i].To = buckets[i].From + width - 1
	}
	buckets[histogramBuckets-1].To = scoring.MaxScore

	for _, score := range scores {
		idx := (score - scoring.MinScore) / width
		if idx >= histogramBuckets {
			idx = histogramBuckets - 1
		}
		if idx < 0 {
			idx = 0
		}
		buckets[idx].Count++
	}
	return buckets
}

func bands(scores []int) dto.ScoreBands {
	var b dto.ScoreBands
	for _, score := range scores {
		switch {
		case score >= hotScoreThreshold:
			b.Hot++
		case score >= warmScoreThreshold:
			b.Warm++
		default:
			b.Cold++
		}
	}
	return b
}
