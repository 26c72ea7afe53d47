package container

import (
	"fmt"

	"github.com/foresturquhart/indexhook/config"
	"github.com/foresturquhart/indexhook/elastic"
	"github.com/foresturquhart/indexhook/enqueuer"
	"github.com/foresturquhart/indexhook/search"
	"github.com/foresturquhart/indexhook/storage"
	"github.com/foresturquhart/indexhook/tasks"
	"github.com/foresturquhart/indexhook/worker"
)

type Container struct {
	Config   *config.Config
	Postgres *storage.Postgres
	Redis    *storage.Redis
	Elastic  *elastic.Elastic

	Tasks    *tasks.Registry
	Indexes  *search.Registry
	Worker   *worker.Worker
	Enqueuer *enqueuer.Enqueuer
}

func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	postgres, err := storage.NewPostgres(cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	c.Postgres = postgres

	redis, err := storage.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDatabase)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	c.Redis = redis

	elasticClient, err := elastic.NewElastic(cfg.ElasticsearchURL)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize elastic: %w", err)
	}
	c.Elastic = elasticClient

	c.Indexes = search.NewRegistry()
	c.Worker = worker.NewWorker(
		redis.Client,
		worker.NewProcessor(c.Indexes, search.NewWriter(elasticClient.Client)),
		worker.Options{
			Queue:       cfg.Queue,
			MaxRetries:  cfg.MaxRetries,
			RetryDelay:  cfg.RetryDelay,
			Countdown:   cfg.Countdown,
			Concurrency: cfg.WorkerConcurrency,
		},
	)

	c.Tasks = tasks.NewRegistry()
	c.Worker.RegisterTasks(c.Tasks)

	// Fail at startup rather than on the first commit
	if _, err := c.Tasks.Resolve(cfg.DefaultTask); err != nil {
		c.Close()
		return nil, fmt.Errorf("invalid DEFAULT_TASK: %w", err)
	}

	c.Enqueuer = enqueuer.NewEnqueuer(c.Tasks, cfg.DefaultTask)

	return c, nil
}

// Close gracefully shuts down all container resources
func (c *Container) Close() {
	if c.Redis != nil {
		c.Redis.Close()
	}

	if c.Postgres != nil {
		c.Postgres.Close()
	}
}
