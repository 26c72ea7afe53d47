package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/foresturquhart/indexhook/tasks"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// UpdateIndexTask is the task path the worker registers itself under
const UpdateIndexTask = "search.tasks.UpdateIndex"

// Options configures the queue
type Options struct {
	Queue       string
	MaxRetries  int
	RetryDelay  time.Duration
	Countdown   time.Duration
	Concurrency int
}

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Worker represents the background job processor
type Worker struct {
	server *asynq.Server
	client taskEnqueuer

	processor *Processor
	options   Options
}

// Ensure Worker implements tasks.Handle
var _ tasks.Handle = (*Worker)(nil)

// NewWorker creates a worker sharing the given redis client between the
// producer and the consumer
func NewWorker(client *redis.Client, processor *Processor, options Options) *Worker {
	if options.Queue == "" {
		options.Queue = tasks.QueueSearch
	}
	if options.Concurrency <= 0 {
		options.Concurrency = 1
	}

	retryDelay := options.RetryDelay

	server := asynq.NewServerFromRedisClient(
		client,
		asynq.Config{
			Queues: map[string]int{
				options.Queue: 10,
			},
			Concurrency: options.Concurrency,
			Logger:      newLogger(),
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				if retryDelay > 0 {
					return retryDelay
				}
				return asynq.DefaultRetryDelayFunc(n, err, task)
			},
		},
	)

	return &Worker{
		server:    server,
		client:    asynq.NewClientFromRedisClient(client),
		processor: processor,
		options:   options,
	}
}

// RegisterTasks makes the worker resolvable under UpdateIndexTask
func (w *Worker) RegisterTasks(registry *tasks.Registry) {
	registry.Register(UpdateIndexTask, func() tasks.Handle { return w })
}

func (w *Worker) Start() error {
	mux := asynq.NewServeMux()

	mux.HandleFunc(string(tasks.TypeUpdateIndex), w.handleUpdateIndex)

	return w.server.Start(mux)
}

func (w *Worker) Stop() error {
	w.server.Shutdown()
	return w.client.Close()
}

// SubmitAsync enqueues an index update and returns once it is stored in redis
func (w *Worker) SubmitAsync(ctx context.Context, action tasks.Action, identifier string) error {
	task, opts, err := w.newTask(tasks.Request{Action: action, Identifier: identifier})
	if err != nil {
		return err
	}

	info, err := w.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("error enqueueing task: %w", err)
	}

	log.Debug().Str("task", info.ID).Str("action", string(action)).Str("identifier", identifier).Msg("Successfully enqueued index task")

	return nil
}

func (w *Worker) newTask(req tasks.Request) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, nil, fmt.Errorf("error encoding task payload: %w", err)
	}

	opts := []asynq.Option{
		asynq.MaxRetry(w.options.MaxRetries),
		asynq.Timeout(3 * time.Minute),
		asynq.Queue(w.options.Queue),
	}
	if w.options.Countdown > 0 {
		opts = append(opts, asynq.ProcessIn(w.options.Countdown))
	}

	return asynq.NewTask(string(tasks.TypeUpdateIndex), payload), opts, nil
}

func (w *Worker) handleUpdateIndex(ctx context.Context, task *asynq.Task) error {
	var req tasks.Request
	if err := json.Unmarshal(task.Payload(), &req); err != nil {
		return fmt.Errorf("error decoding task payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Info().Str("action", string(req.Action)).Str("identifier", req.Identifier).Msg("Executing index job")

	return w.processor.Process(ctx, req)
}
