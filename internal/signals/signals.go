package signals

import (
	"net"
	"net/http"
	"strings"
)

// Extractor pulls the request-level signals out of an inbound request.
// Proxy headers are only consulted when TrustProxy is set.
type Extractor struct {
	TrustProxy bool
}

// Signals are unvalidated: either field may be empty or malformed.
type Signals struct {
	IPAddress string
	UserAgent string
}

func (e Extractor) Extract(r *http.Request) Signals {
	return Signals{
		IPAddress: e.clientIP(r),
		UserAgent: strings.TrimSpace(r.Header.Get("User-Agent")),
	}
}

func (e Extractor) clientIP(r *http.Request) string {
	if e.TrustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}

		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
