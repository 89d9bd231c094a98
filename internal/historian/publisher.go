// Package historian ships accepted game actions to a Redis list and drains
// that list into the results database.
package historian

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/duelhub/duel/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list that carries action records.
const DefaultQueueName = "duel_actions"

// Recorder accepts action records for later persistence.
type Recorder interface {
	Record(ctx context.Context, rec models.ActionRecord) error
	// Forget drops per-game bookkeeping once a room is gone.
	Forget(gameID string)
}

// pusher is the slice of the Redis client the publisher needs.
type pusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Publisher pushes JSON records onto a Redis list, numbering actions per game.
type Publisher struct {
	rdb   pusher
	queue string

	mu      sync.Mutex
	indices map[string]int
}

// NewPublisher wraps an existing client.
func NewPublisher(rdb pusher, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{rdb: rdb, queue: queue, indices: make(map[string]int)}
}

// Connect dials Redis, pings it and returns a publisher on queue.
func Connect(ctx context.Context, addr string, db int, queue string) (*Publisher, *redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return NewPublisher(rdb, queue), rdb, nil
}

// Record assigns the next action index for the game when none is set,
// stamps the time and pushes the record.
func (p *Publisher) Record(ctx context.Context, rec models.ActionRecord) error {
	if rec.ActionIndex == 0 {
		p.mu.Lock()
		p.indices[rec.GameID]++
		rec.ActionIndex = p.indices[rec.GameID]
		p.mu.Unlock()
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

func (p *Publisher) Forget(gameID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.indices, gameID)
}

// Nop discards records. Used when Redis is not configured.
type Nop struct{}

func (Nop) Record(context.Context, models.ActionRecord) error { return nil }
func (Nop) Forget(string)                                     {}

// Async wraps a Recorder so callers never wait on the network. Failures are
// logged at warn level.
type Async struct {
	rec     Recorder
	log     logrus.FieldLogger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsync(rec Recorder, logger logrus.FieldLogger) *Async {
	return &Async{rec: rec, log: logger, timeout: 3 * time.Second}
}

// Publish records in the background.
func (a *Async) Publish(rec models.ActionRecord) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.rec.Record(ctx, rec); err != nil {
			a.log.WithFields(logrus.Fields{"room": rec.GameID, "action": rec.ActionType}).Warnf("historian: %v", err)
		}
	}()
}

func (a *Async) Forget(gameID string) { a.rec.Forget(gameID) }

// Wait blocks until in-flight records are done. Used on shutdown.
func (a *Async) Wait() { a.wg.Wait() }
