package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/statusd/internal/domain"
	"github.com/vedran77/statusd/internal/logger"
	"github.com/vedran77/statusd/internal/transport/ws"
)

type chanBroadcaster chan []byte

func (c chanBroadcaster) Broadcast(data []byte) { c <- data }

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func startRelay(t *testing.T, mr *miniredis.Miniredis, rdb *redis.Client, out Broadcaster) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewRelay(rdb, Channel, out, logger.NewNop()).Run(ctx) }()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(Channel)[Channel] == 1
	}, time.Second, 10*time.Millisecond)
	return cancel, done
}

func receive(t *testing.T, out chanBroadcaster) ws.Event {
	t.Helper()
	select {
	case data := <-out:
		var evt ws.Event
		require.NoError(t, json.Unmarshal(data, &evt))
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("no event relayed")
		return ws.Event{}
	}
}

func TestRelay_ForwardsPublishedEvents(t *testing.T) {
	mr, rdb := setup(t)
	out := make(chanBroadcaster, 4)
	cancel, done := startRelay(t, mr, rdb, out)
	defer cancel()

	n := NewRedisNotifier(rdb, Channel, logger.NewNop())
	ctx, stopNotifier := context.WithCancel(context.Background())
	defer stopNotifier()
	go n.Run(ctx)

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	st := &domain.StatusPublic{ID: "s1", Body: "hello", Created: at, Modified: at}

	n.NotifyCreated(st)
	evt := receive(t, out)
	assert.Equal(t, ws.EventTypeStatusCreated, evt.Type)
	var payload domain.StatusPublic
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	assert.Equal(t, "s1", payload.ID)
	assert.Equal(t, "hello", payload.Body)

	n.NotifyUpdated(st)
	assert.Equal(t, ws.EventTypeStatusUpdated, receive(t, out).Type)

	n.NotifyDeleted("s1")
	evt = receive(t, out)
	assert.Equal(t, ws.EventTypeStatusDeleted, evt.Type)
	assert.JSONEq(t, `{"id":"s1"}`, string(evt.Payload))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestRedisNotifier_PublishFailureIsSwallowed(t *testing.T) {
	mr, rdb := setup(t)
	mr.Close()

	n := NewRedisNotifier(rdb, Channel, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	assert.NotPanics(t, func() { n.NotifyDeleted("s1") })
	assert.Eventually(t, func() bool { return len(n.queue) == 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("notifier did not stop")
	}
}

func TestRedisNotifier_NeverBlocksTheCaller(t *testing.T) {
	_, rdb := setup(t)
	// No Run loop: nothing drains the queue, so it fills and then drops.
	n := NewRedisNotifier(rdb, Channel, logger.NewNop())

	start := time.Now()
	for i := 0; i < publishQueueSize+100; i++ {
		n.NotifyDeleted("s1")
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, n.queue, publishQueueSize)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), "redis://"+mr.Addr(), logger.NewNop())
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestConnect_GivesUpWhenContextExpires(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := Connect(ctx, "redis://127.0.0.1:1", logger.NewNop())
	assert.Error(t, err)
}

func TestConnect_RejectsBadURL(t *testing.T) {
	_, err := Connect(context.Background(), "http://nope", logger.NewNop())
	assert.Error(t, err)
}
