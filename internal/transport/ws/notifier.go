package ws

import (
	"github.com/vedran77/statusd/internal/domain"
	"github.com/vedran77/statusd/internal/logger"
)

// HubNotifier implements service.Notifier using the local WebSocket Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyCreated(st *domain.StatusPublic) {
	n.send(MarshalStatusEvent(EventTypeStatusCreated, st))
}

func (n *HubNotifier) NotifyUpdated(st *domain.StatusPublic) {
	n.send(MarshalStatusEvent(EventTypeStatusUpdated, st))
}

func (n *HubNotifier) NotifyDeleted(id string) {
	n.send(MarshalDeletedEvent(id))
}

func (n *HubNotifier) send(data []byte, err error) {
	if err != nil {
		n.hub.logger.Warn("ws notifier: marshal error", logger.Error(err))
		return
	}
	n.hub.Broadcast(data)
}
