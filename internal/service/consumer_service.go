package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-salesops-be/internal/dto"
	"ai-salesops-be/internal/pkg/logger"
	"ai-salesops-be/pkg/crm"
	"ai-salesops-be/pkg/events"
	"ai-salesops-be/pkg/scoring"
	"ai-salesops-be/pkg/tools"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// snapshotInvalidator is implemented by *crm.CachedStore.
type snapshotInvalidator interface {
	Invalidate()
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	store      crm.RecordStore
	ranker     tools.Ranker
	cache      scoring.ScoreCache
	events     IEventService
	logger     logger.ILogger
}

// NewConsumerService builds the worker for background re-scoring jobs.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	store crm.RecordStore,
	ranker tools.Ranker,
	cache scoring.ScoreCache,
	eventService IEventService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		store:      store,
		ranker:     ranker,
		cache:      cache,
		events:     eventService,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks: the in-process bus redelivers a nacked
// message immediately, which would spin while the CRM is unreachable.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var job dto.RefreshScoresMessage
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		cs.logger.Error("PIPELINE", "Dropping malformed refresh job", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	start := time.Now()
	cs.logger.Info("PIPELINE", "Refresh started", map[string]interface{}{
		"job_id":      job.JobId,
		"kinds":       job.Kinds,
		"flush_cache": job.FlushCache,
	})

	if job.FlushCache {
		if err := cs.cache.Flush(ctx); err != nil {
			cs.logger.Warn("PIPELINE", "Score cache flush failed", map[string]interface{}{
				"job_id": job.JobId,
				"error":  err.Error(),
			})
		}
		if inv, ok := cs.store.(snapshotInvalidator); ok {
			inv.Invalidate()
		}
	}

	counts := make(map[string]int, len(job.Kinds))
	for _, name := range job.Kinds {
		kind, err := scoring.KindByName(name)
		if err != nil {
			cs.logger.Warn("PIPELINE", "Skipping unknown kind", map[string]interface{}{"job_id": job.JobId, "kind": name})
			continue
		}

		ranking, err := cs.ranker.Rank(ctx, cs.store, kind)
		if err != nil {
			cs.logger.Error("PIPELINE", "Refresh ranking failed", map[string]interface{}{
				"job_id": job.JobId,
				"kind":   kind.Name,
				"error":  err.Error(),
			})
			continue
		}

		counts[kind.Name] = len(ranking)
		if len(ranking) > 0 {
			cs.events.Emit(ctx, events.PipelineRanked(kind.Name, len(ranking), ranking.AverageScore(), ranking[0].Name()))
		}
	}

	cs.events.Emit(ctx, events.ScoresRefreshed(job.JobId, counts[scoring.Lead.Name], counts[scoring.Opportunity.Name]))
	cs.logger.Info("PIPELINE", "Refresh finished", map[string]interface{}{
		"job_id":      job.JobId,
		"counts":      counts,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}
