package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis holds the client shared by the task queue producer and consumer
type Redis struct {
	Client *redis.Client
}

func NewRedis(addr, password string, database int) (*Redis, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       database,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis at %s: %w", addr, err)
	}

	return &Redis{
		Client: client,
	}, nil
}

func (s *Redis) Close() error {
	return s.Client.Close()
}
