package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/tutorstack/essay-tutor/internal/observability"
	"github.com/tutorstack/essay-tutor/internal/domain"
)

// TaskHandler processes one decoded evaluation task.
type TaskHandler interface {
	Handle(ctx context.Context, payload domain.EvaluateTaskPayload) error
}

// Consumer reads evaluation tasks from the queue and dispatches them to a
// bounded pool of workers. Offsets are committed after processing, so a
// crashed worker replays its in-flight records; the handler tolerates
// replays because report storage is an upsert keyed by job id.
type Consumer struct {
	client  *kgo.Client
	handler TaskHandler
	// Bounds concurrent Handle calls.
	sem chan struct{}
	wg  sync.WaitGroup
}

// NewConsumer constructs a consumer-group consumer for the evaluate topic.
func NewConsumer(brokers []string, group string, handler TaskHandler, maxConcurrency int) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	tracer := kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))
	hooks := kotel.NewKotel(kotel.WithTracer(tracer))

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(TopicEvaluate),
		// Skip uncommitted records from aborted producer transactions.
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.DisableAutoCommit(),
		kgo.WithHooks(hooks.Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda consumer client: %w", err)
	}

	if err := createTopicIfNotExists(context.Background(), client, TopicEvaluate, 8, 1); err != nil {
		slog.Warn("topic create failed", slog.String("topic", TopicEvaluate), slog.Any("error", err))
	}

	slog.Info("redpanda consumer ready",
		slog.Any("brokers", brokers),
		slog.String("group", group),
		slog.Int("max_concurrency", maxConcurrency))
	return &Consumer{
		client:  client,
		handler: handler,
		sem:     make(chan struct{}, maxConcurrency),
	}, nil
}

// Run polls and processes records until ctx is cancelled. It blocks.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.wg.Wait()
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			slog.Error("fetch error",
				slog.String("topic", topic),
				slog.Int("partition", int(partition)),
				slog.Any("error", err))
		})

		var batch []*kgo.Record
		fetches.EachRecord(func(rec *kgo.Record) {
			batch = append(batch, rec)
		})
		if len(batch) == 0 {
			continue
		}

		var batchWG sync.WaitGroup
		for _, rec := range batch {
			select {
			case c.sem <- struct{}{}:
			case <-ctx.Done():
				batchWG.Wait()
				return ctx.Err()
			}
			batchWG.Add(1)
			c.wg.Add(1)
			go func(rec *kgo.Record) {
				defer func() {
					<-c.sem
					batchWG.Done()
					c.wg.Done()
				}()
				c.processRecord(ctx, rec)
			}(rec)
		}
		// Commit only after the whole poll is processed.
		batchWG.Wait()
		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			slog.Error("commit offsets", slog.Any("error", err))
		}
	}
}

func (c *Consumer) processRecord(ctx context.Context, rec *kgo.Record) {
	var payload domain.EvaluateTaskPayload
	if err := json.Unmarshal(rec.Value, &payload); err != nil {
		// Malformed records cannot be retried; log and move on.
		slog.Error("malformed task record",
			slog.String("topic", rec.Topic),
			slog.Int64("offset", rec.Offset),
			slog.Any("error", err))
		return
	}

	lg := slog.Default().With(
		slog.String("job_id", payload.JobID),
		slog.String("essay_id", payload.EssayID))
	ctx = observability.ContextWithLogger(ctx, lg)

	lg.Info("task received",
		slog.String("topic", rec.Topic),
		slog.Int64("offset", rec.Offset))
	if err := c.handler.Handle(ctx, payload); err != nil {
		// The handler already recorded the failure on the job.
		lg.Error("task handling failed", slog.Any("error", err))
	}
}

// Close shuts down the consumer after in-flight tasks complete.
func (c *Consumer) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	c.wg.Wait()
	return nil
}
