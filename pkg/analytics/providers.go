package analytics

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/agentstation/metalayer/pkg/errors"
)

// LogProvider writes each event as a structured log line.
type LogProvider struct {
	logger *zerolog.Logger
}

// NewLogProvider logs events to logger.
func NewLogProvider(logger *zerolog.Logger) *LogProvider {
	return &LogProvider{logger: logger}
}

func (p *LogProvider) CollectEvent(_ context.Context, e Event) error {
	p.logger.Info().
		Str("event", e.Type).
		Str("library_id", e.LibraryID).
		Str("license_pool_id", e.PoolID).
		Str("data_source", e.DataSource).
		Str("identifier_id", e.IdentifierID).
		Int("old_value", e.OldValue).
		Int("new_value", e.NewValue).
		Time("at", e.Time.Time).
		Msg("circulation event")
	return nil
}

// MemoryProvider keeps events in memory.
type MemoryProvider struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryProvider creates an empty MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

func (p *MemoryProvider) CollectEvent(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

// Events returns a copy of everything collected so far.
func (p *MemoryProvider) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// Count returns how many events of eventType were collected.
func (p *MemoryProvider) Count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// TaskTypeCirculationEvent is the asynq task type for forwarded events.
const TaskTypeCirculationEvent = "analytics:circulation_event"

// DefaultQueue is the asynq queue events are enqueued on.
const DefaultQueue = "analytics"

// enqueuer is the part of *asynq.Client the provider uses.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// AsynqProvider forwards events to a Redis-backed asynq queue for a
// downstream worker.
type AsynqProvider struct {
	client enqueuer
	queue  string
}

// NewAsynqProvider connects to redisAddr. An empty queue uses DefaultQueue.
func NewAsynqProvider(redisAddr, queue string) *AsynqProvider {
	if queue == "" {
		queue = DefaultQueue
	}
	return &AsynqProvider{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
		queue:  queue,
	}
}

func (p *AsynqProvider) CollectEvent(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return errors.WrapParse("json", "", err)
	}
	task := asynq.NewTask(TaskTypeCirculationEvent, payload)
	if _, err := p.client.EnqueueContext(ctx, task,
		asynq.Queue(p.queue),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	); err != nil {
		return errors.WrapResource("enqueue", "analytics event", e.Type, err)
	}
	return nil
}

// Close releases the Redis connection.
func (p *AsynqProvider) Close() error {
	return p.client.Close()
}
