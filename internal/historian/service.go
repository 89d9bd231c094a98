package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/duelhub/duel/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Sink persists drained records.
type Sink interface {
	InsertActions(ctx context.Context, recs []models.ActionRecord) error
	MarkAbandoned(ctx context.Context, gameID string) error
}

type popper interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

type Options struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	// Inactivity is how long a game may go quiet before it is marked
	// abandoned.
	Inactivity time.Duration
}

// Service pops action records off the Redis list, batches them into the
// sink, and marks games that stop producing actions as abandoned.
type Service struct {
	rdb  popper
	sink Sink
	opts Options
	log  logrus.FieldLogger

	lastActivity sync.Map // game id -> time.Time

	batchMu sync.Mutex
	batch   []models.ActionRecord
}

func NewService(rdb popper, sink Sink, opts Options, logger logrus.FieldLogger) *Service {
	if opts.Queue == "" {
		opts.Queue = DefaultQueueName
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = 10 * time.Minute
	}
	return &Service{
		rdb:   rdb,
		sink:  sink,
		opts:  opts,
		log:   logger,
		batch: make([]models.ActionRecord, 0, opts.BatchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.readLoop(ctx) }()
	go func() { defer wg.Done(); s.inactivityLoop(ctx) }()

	s.log.Infof("historian started on queue %s", s.opts.Queue)
	<-ctx.Done()
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.flush(flushCtx)
	s.log.Info("historian shut down")
}

func (s *Service) readLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flush(ctx)
		default:
			// Short BLPop timeout so cancellation is noticed.
			res, err := s.rdb.BLPop(ctx, 3*time.Second, s.opts.Queue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					s.log.Errorf("BLPop: %v", err)
					time.Sleep(time.Second)
				}
				continue
			}
			if len(res) < 2 {
				continue
			}
			s.handlePayload(ctx, res[1])
		}
	}
}

// handlePayload decodes one queued record and adds it to the batch.
func (s *Service) handlePayload(ctx context.Context, payload string) {
	var rec models.ActionRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		s.log.Warnf("invalid action record: %v", err)
		return
	}
	if rec.ActionType == models.ActionGameOver {
		s.lastActivity.Delete(rec.GameID)
	} else {
		s.lastActivity.Store(rec.GameID, time.Now())
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()

	if full {
		s.flush(ctx)
	}
}

// flush writes the pending batch in one call. A failed batch is logged and
// dropped.
func (s *Service) flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := make([]models.ActionRecord, len(s.batch))
	copy(pending, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.sink.InsertActions(ctx, pending); err != nil {
		s.log.Errorf("flush of %d actions failed: %v", len(pending), err)
		return
	}
	s.log.Debugf("Flushed %d actions to DB.", len(pending))
}

func (s *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweepInactive(ctx, now)
		}
	}
}

// sweepInactive marks every game idle for longer than Inactivity as
// abandoned.
func (s *Service) sweepInactive(ctx context.Context, now time.Time) {
	s.lastActivity.Range(func(key, val any) bool {
		gameID, ok1 := key.(string)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.opts.Inactivity {
			return true
		}
		if err := s.sink.MarkAbandoned(ctx, gameID); err != nil {
			s.log.Warnf("failed to mark game %s abandoned: %v", gameID, err)
			return true
		}
		s.lastActivity.Delete(gameID)
		s.log.Infof("Marked game %s as abandoned due to inactivity.", gameID)
		return true
	})
}
