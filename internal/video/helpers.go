package video

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

func viewerHash(ip, ua string) string {
	h := sha256.Sum256([]byte(ip + "|" + ua))
	return fmt.Sprintf("%x", h[:8])
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, ok := strings.Cut(forwarded, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}
	return r.RemoteAddr
}

func parseBrowser(uaString string) string {
	if uaString == "" {
		return "unknown"
	}
	ua := useragent.New(uaString)
	name, _ := ua.Browser()
	if name == "" {
		return "unknown"
	}
	return name
}

func parseDevice(uaString string) string {
	if uaString == "" {
		return "unknown"
	}
	ua := useragent.New(uaString)
	switch {
	case ua.Bot():
		return "bot"
	case ua.Mobile():
		return "mobile"
	default:
		return "desktop"
	}
}
