package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"proctorhub/internal/platform/blob"
	"proctorhub/internal/platform/queue"
	"proctorhub/internal/vector"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if this worker still holds it.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// CleanupWorker drains tombstone jobs left behind by submission deletes:
// blob files and similarity-index entries. Jobs are idempotent, so a crash
// between the pop and the final delete at worst re-runs no-op deletes.
type CleanupWorker struct {
	rdb       *redis.Client
	blobs     *blob.Store
	index     *vector.Index
	queueName string
	lockKey   string
	lockTTL   time.Duration
}

func NewCleanupWorker(rdb *redis.Client, blobs *blob.Store, index *vector.Index, queueName, lockKey string, lockTTL time.Duration) *CleanupWorker {
	return &CleanupWorker{
		rdb:       rdb,
		blobs:     blobs,
		index:     index,
		queueName: queueName,
		lockKey:   lockKey,
		lockTTL:   lockTTL,
	}
}

// Start blocks until ctx is canceled.
func (w *CleanupWorker) Start(ctx context.Context) {
	log.Println("Cleanup worker started.")
	for {
		select {
		case <-ctx.Done():
			log.Println("Cleanup worker stopped.")
			return
		default:
		}

		res, err := w.rdb.BRPop(ctx, 5*time.Second, w.queueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			log.Printf("ERROR: cleanup worker BRPop: %v", err)
			time.Sleep(time.Second)
			continue
		}

		// res[0] is the queue name, res[1] the payload.
		var job queue.CleanupJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			log.Printf("ERROR: cleanup worker dropping malformed job %q: %v", res[1], err)
			continue
		}
		w.handle(ctx, res[1], job)
	}
}

// handle takes a per-submission lock so concurrent workers never race on the
// same submission's index entries. A busy lock means another worker has the
// job; this copy is requeued for later.
func (w *CleanupWorker) handle(ctx context.Context, raw string, job queue.CleanupJob) {
	lockKey := w.lockKey + ":" + job.SubmissionID
	lockVal := uuid.NewString()

	ok, err := w.rdb.SetNX(ctx, lockKey, lockVal, w.lockTTL).Result()
	if err != nil {
		log.Printf("ERROR: cleanup worker lock %s: %v", lockKey, err)
		w.requeue(ctx, raw)
		return
	}
	if !ok {
		w.requeue(ctx, raw)
		return
	}
	defer func() {
		if err := w.rdb.Eval(ctx, releaseScript, []string{lockKey}, lockVal).Err(); err != nil {
			log.Printf("ERROR: cleanup worker unlock %s: %v", lockKey, err)
		}
	}()

	for _, blobID := range job.BlobIDs {
		if err := w.blobs.Delete(blobID); err != nil {
			log.Printf("ERROR: cleanup worker blob %s: %v", blobID, err)
		}
	}

	removed, err := w.index.RemoveSubmission(job.SubmissionID)
	if err != nil {
		log.Printf("ERROR: cleanup worker index entries for %s: %v", job.SubmissionID, err)
		return
	}
	log.Printf("Cleaned up submission %s: %d blobs, %d index entries.", job.SubmissionID, len(job.BlobIDs), removed)
}

func (w *CleanupWorker) requeue(ctx context.Context, raw string) {
	if err := w.rdb.LPush(ctx, w.queueName, raw).Err(); err != nil {
		log.Printf("ERROR: cleanup worker requeue: %v", err)
	}
}
