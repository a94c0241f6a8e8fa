package ws

import (
	"net/http"
	"time"

	"chat-core/internal/observability"
)

type ConnInfo struct {
	ConnID      string
	Username    string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnInfo(r *http.Request, username, traceID string) ConnInfo {
	meta := observability.RequestMetaFrom(r)
	return ConnInfo{
		ConnID:      newConnID(),
		Username:    username,
		DeviceID:    meta.DeviceID,
		IP:          meta.IP,
		RequestID:   meta.RequestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
}
