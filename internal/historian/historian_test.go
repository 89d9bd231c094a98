package historian

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/duelhub/duel/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePusher struct {
	mu     sync.Mutex
	pushed map[string][]string
	err    error
}

func (f *fakePusher) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	if f.pushed == nil {
		f.pushed = map[string][]string{}
	}
	for _, v := range values {
		f.pushed[key] = append(f.pushed[key], string(v.([]byte)))
	}
	cmd.SetVal(int64(len(f.pushed[key])))
	return cmd
}

type fakeSink struct {
	mu        sync.Mutex
	inserted  []models.ActionRecord
	batches   int
	abandoned []string
	err       error
}

func (f *fakeSink) InsertActions(_ context.Context, recs []models.ActionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches++
	f.inserted = append(f.inserted, recs...)
	return nil
}

func (f *fakeSink) MarkAbandoned(_ context.Context, gameID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandoned = append(f.abandoned, gameID)
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestPublisherNumbersActionsPerGame(t *testing.T) {
	fp := &fakePusher{}
	p := NewPublisher(fp, "")
	ctx := context.Background()

	require.NoError(t, p.Record(ctx, models.ActionRecord{GameType: "goose", GameID: "AAA111", ActorID: "alice", ActionType: "goosePlayMovement"}))
	require.NoError(t, p.Record(ctx, models.ActionRecord{GameType: "goose", GameID: "AAA111", ActorID: "bob", ActionType: "gooseEndTurn"}))
	require.NoError(t, p.Record(ctx, models.ActionRecord{GameType: "numberline", GameID: "BBB222", ActorID: "carol", ActionType: "draftCard"}))

	queued := fp.pushed[DefaultQueueName]
	require.Len(t, queued, 3)

	var recs []models.ActionRecord
	for _, raw := range queued {
		var r models.ActionRecord
		require.NoError(t, json.Unmarshal([]byte(raw), &r))
		recs = append(recs, r)
	}
	assert.Equal(t, 1, recs[0].ActionIndex)
	assert.Equal(t, 2, recs[1].ActionIndex)
	assert.Equal(t, 1, recs[2].ActionIndex)
	assert.NotZero(t, recs[0].Timestamp)

	p.Forget("AAA111")
	require.NoError(t, p.Record(ctx, models.ActionRecord{GameID: "AAA111", ActionType: "again"}))
	var r models.ActionRecord
	require.NoError(t, json.Unmarshal([]byte(fp.pushed[DefaultQueueName][3]), &r))
	assert.Equal(t, 1, r.ActionIndex)
}

func TestPublisherWrapsRedisError(t *testing.T) {
	boom := errors.New("connection refused")
	p := NewPublisher(&fakePusher{err: boom}, "q")

	err := p.Record(context.Background(), models.ActionRecord{GameID: "X"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "'q'")
}

func TestAsyncPublishesInBackground(t *testing.T) {
	fp := &fakePusher{}
	a := NewAsync(NewPublisher(fp, "q"), quietLogger())
	for i := 0; i < 10; i++ {
		a.Publish(models.ActionRecord{GameID: "G", ActionType: "fire"})
	}
	a.Wait()

	fp.mu.Lock()
	defer fp.mu.Unlock()
	assert.Len(t, fp.pushed["q"], 10)
}

func TestAsyncSwallowsErrors(t *testing.T) {
	a := NewAsync(NewPublisher(&fakePusher{err: errors.New("down")}, "q"), quietLogger())
	a.Publish(models.ActionRecord{GameID: "G"})
	a.Wait()
}

func encode(t *testing.T, rec models.ActionRecord) string {
	t.Helper()
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	return string(b)
}

func TestServiceBatchesAndFlushes(t *testing.T) {
	sink := &fakeSink{}
	s := NewService(nil, sink, Options{BatchSize: 3}, quietLogger())
	ctx := context.Background()

	s.handlePayload(ctx, encode(t, models.ActionRecord{GameID: "G1", ActionIndex: 1, ActionType: "draftCard"}))
	s.handlePayload(ctx, encode(t, models.ActionRecord{GameID: "G1", ActionIndex: 2, ActionType: "playCard"}))
	assert.Empty(t, sink.inserted, "batch not full yet")

	s.handlePayload(ctx, encode(t, models.ActionRecord{GameID: "G1", ActionIndex: 3, ActionType: "playCard"}))
	assert.Len(t, sink.inserted, 3)
	assert.Equal(t, 1, sink.batches)

	s.handlePayload(ctx, "{not json")
	s.handlePayload(ctx, encode(t, models.ActionRecord{GameID: "G1", ActionIndex: 4, ActionType: "draftCard"}))
	s.flush(ctx)
	assert.Len(t, sink.inserted, 4)
	assert.Equal(t, 2, sink.batches)

	s.flush(ctx)
	assert.Equal(t, 2, sink.batches, "empty flush is a no-op")
}

func TestServiceDropsFailedBatch(t *testing.T) {
	sink := &fakeSink{err: errors.New("db down")}
	s := NewService(nil, sink, Options{BatchSize: 100}, quietLogger())
	ctx := context.Background()

	s.handlePayload(ctx, encode(t, models.ActionRecord{GameID: "G1", ActionType: "fire"}))
	s.flush(ctx)
	sink.err = nil
	s.flush(ctx)
	assert.Empty(t, sink.inserted)
}

func TestServiceMarksInactiveGamesAbandoned(t *testing.T) {
	sink := &fakeSink{}
	s := NewService(nil, sink, Options{Inactivity: time.Minute}, quietLogger())
	ctx := context.Background()

	s.handlePayload(ctx, encode(t, models.ActionRecord{GameID: "IDLE01", ActionType: "fire"}))
	s.handlePayload(ctx, encode(t, models.ActionRecord{GameID: "DONE01", ActionType: "fire"}))
	s.handlePayload(ctx, encode(t, models.ActionRecord{GameID: "DONE01", ActionType: models.ActionGameOver}))

	s.sweepInactive(ctx, time.Now())
	assert.Empty(t, sink.abandoned, "nothing is idle yet")

	s.sweepInactive(ctx, time.Now().Add(2*time.Minute))
	assert.Equal(t, []string{"IDLE01"}, sink.abandoned)

	s.sweepInactive(ctx, time.Now().Add(4*time.Minute))
	assert.Len(t, sink.abandoned, 1, "a game is abandoned once")
}
