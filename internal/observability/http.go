package observability

import (
	"net"
	"net/http"
	"strings"
)

// RequestMeta is the client metadata attached to websocket events.
type RequestMeta struct {
	RequestID string
	DeviceID  string
	IP        string
}

// RequestMetaFrom reads request metadata. Headers win over query parameters, which
// browsers use for websocket handshakes.
func RequestMetaFrom(r *http.Request) RequestMeta {
	return RequestMeta{
		RequestID: firstNonEmpty(r.Header.Get("X-Request-Id"), r.URL.Query().Get("request_id")),
		DeviceID:  firstNonEmpty(r.Header.Get("X-Device-Id"), r.URL.Query().Get("device_id")),
		IP:        clientIP(r),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
