package events

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vedran77/statusd/internal/domain"
	"github.com/vedran77/statusd/internal/logger"
	"github.com/vedran77/statusd/internal/transport/ws"
)

const (
	publishTimeout   = 500 * time.Millisecond
	publishQueueSize = 1024
)

type outgoing struct {
	eventType string
	statusID  string
	data      []byte
}

// RedisNotifier implements service.Notifier by publishing wire-encoded feed
// events. Every instance's Relay delivers them to its own clients, this one
// included.
//
// Notify* only enqueue; Run does the publishing, so a slow Redis never delays
// the request that committed the write. Events are dropped when the queue is
// full.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  logger.Logger
	queue   chan outgoing
}

func NewRedisNotifier(client *redis.Client, channel string, log logger.Logger) *RedisNotifier {
	return &RedisNotifier{
		client:  client,
		channel: channel,
		logger:  log,
		queue:   make(chan outgoing, publishQueueSize),
	}
}

func (n *RedisNotifier) NotifyCreated(st *domain.StatusPublic) {
	data, err := ws.MarshalStatusEvent(ws.EventTypeStatusCreated, st)
	n.enqueue(ws.EventTypeStatusCreated, st.ID, data, err)
}

func (n *RedisNotifier) NotifyUpdated(st *domain.StatusPublic) {
	data, err := ws.MarshalStatusEvent(ws.EventTypeStatusUpdated, st)
	n.enqueue(ws.EventTypeStatusUpdated, st.ID, data, err)
}

func (n *RedisNotifier) NotifyDeleted(id string) {
	data, err := ws.MarshalDeletedEvent(id)
	n.enqueue(ws.EventTypeStatusDeleted, id, data, err)
}

// Run publishes queued events in order until ctx is canceled.
func (n *RedisNotifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-n.queue:
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			err := n.client.Publish(pctx, n.channel, evt.data).Err()
			cancel()
			if err != nil {
				n.warn("event publish failed", evt.eventType, evt.statusID, err)
			}
		}
	}
}

func (n *RedisNotifier) enqueue(eventType, id string, data []byte, err error) {
	if err != nil {
		n.warn("event encode failed", eventType, id, err)
		return
	}
	select {
	case n.queue <- outgoing{eventType: eventType, statusID: id, data: data}:
	default:
		n.warn("event queue full, event dropped", eventType, id, nil)
	}
}

func (n *RedisNotifier) warn(msg, eventType, id string, err error) {
	fields := []logger.Field{
		logger.String("type", eventType),
		logger.String("status_id", id),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	n.logger.Warn(msg, fields...)
}
