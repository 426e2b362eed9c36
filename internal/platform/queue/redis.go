package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// Connect opens the Redis client and verifies it with a ping.
func Connect(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	return rdb, nil
}

func Close(rdb *redis.Client) {
	if rdb != nil {
		rdb.Close()
		log.Println("Redis connection closed.")
	}
}

// CleanupJob tombstones a deleted submission: its blobs and similarity-index
// entries are removed asynchronously by the cleanup worker. Blob IDs travel
// in the payload because the DB rows are already gone by the time the worker
// picks the job up.
type CleanupJob struct {
	SubmissionID string   `json:"submission_id"`
	BlobIDs      []string `json:"blob_ids"`
}

// TombstoneQueue is the enqueue side of the cleanup pipeline. Services depend
// on this interface; the Redis implementation below is the production one.
type TombstoneQueue interface {
	Enqueue(ctx context.Context, job CleanupJob) error
}

type RedisTombstoneQueue struct {
	rdb       *redis.Client
	queueName string
}

func NewRedisTombstoneQueue(rdb *redis.Client, queueName string) *RedisTombstoneQueue {
	return &RedisTombstoneQueue{rdb: rdb, queueName: queueName}
}

func (q *RedisTombstoneQueue) Enqueue(ctx context.Context, job CleanupJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal cleanup job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.queueName, payload).Err(); err != nil {
		return fmt.Errorf("failed to push cleanup job to Redis queue: %w", err)
	}
	return nil
}
