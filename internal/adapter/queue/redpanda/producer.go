// Package redpanda provides Redpanda/Kafka queue integration.
//
// It carries evaluation jobs from the API server to worker processes with
// transactional (exactly-once) produces and read-committed consumes.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/tutorstack/essay-tutor/internal/adapter/observability"
	"github.com/tutorstack/essay-tutor/internal/domain"
)

// TopicEvaluate is the Kafka topic for evaluation jobs.
const TopicEvaluate = "evaluate-jobs"

// Producer wraps a transactional Kafka producer and implements domain.Queue.
type Producer struct {
	client *kgo.Client
	// Serializes transactions; kgo allows one open transaction per client.
	txLock chan struct{}
}

// NewProducer constructs a Producer with exactly-once semantics.
func NewProducer(brokers []string) (*Producer, error) {
	return NewProducerWithTransactionalID(brokers, "essay-tutor-producer")
}

// NewProducerWithTransactionalID constructs a Producer with a custom
// transactional ID, useful for test isolation.
func NewProducerWithTransactionalID(brokers []string, transactionalID string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1_000_000),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}

	if err := createTopicIfNotExists(context.Background(), client, TopicEvaluate, 8, 1); err != nil {
		// The topic usually exists already; the consumer also ensures it.
		slog.Warn("topic create failed", slog.String("topic", TopicEvaluate), slog.Any("error", err))
	}

	slog.Info("redpanda producer ready", slog.Any("brokers", brokers), slog.String("transactional_id", transactionalID))
	return &Producer{client: client, txLock: make(chan struct{}, 1)}, nil
}

// EnqueueEvaluate enqueues an evaluation task and returns its task id.
func (p *Producer) EnqueueEvaluate(ctx domain.Context, payload domain.EvaluateTaskPayload) (string, error) {
	return p.enqueueToTopic(ctx, payload, TopicEvaluate)
}

func (p *Producer) enqueueToTopic(ctx domain.Context, payload domain.EvaluateTaskPayload, topic string) (string, error) {
	select {
	case p.txLock <- struct{}{}:
		defer func() { <-p.txLock }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	if err := p.client.BeginTransaction(); err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}

	record := &kgo.Record{
		Topic: topic,
		// Keyed by job id so retries of one job stay ordered.
		Key:   []byte(payload.JobID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "job_id", Value: []byte(payload.JobID)},
			{Key: "essay_id", Value: []byte(payload.EssayID)},
		},
	}
	e := kgo.AbortingFirstErrPromise(p.client)
	p.client.Produce(ctx, record, e.Promise())
	if err := e.Err(); err != nil {
		if abortErr := p.client.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
			slog.Error("failed to abort transaction", slog.Any("error", abortErr))
		}
		return "", fmt.Errorf("produce: %w", err)
	}
	if err := p.client.EndTransaction(ctx, kgo.TryCommit); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	observability.EnqueueJob("evaluate")
	slog.Info("evaluation task enqueued",
		slog.String("topic", topic),
		slog.String("job_id", payload.JobID),
		slog.String("essay_id", payload.EssayID))
	return payload.JobID, nil
}

// Ping checks broker connectivity for readiness probes.
func (p *Producer) Ping(ctx domain.Context) error {
	return p.client.Ping(ctx)
}

// Close closes the producer.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
