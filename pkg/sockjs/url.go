package sockjs

import (
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// toWebSocketURL maps http(s) endpoints onto ws(s); ws(s) URLs pass through.
func toWebSocketURL(endpoint string) (*url.URL, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("endpoint %q has no host", endpoint)
	}
	return u, nil
}

// sessionURL builds <endpoint>/<server>/<session>/websocket, where server is
// a three digit routing id and session a random token.
func sessionURL(endpoint string) (string, error) {
	u, err := toWebSocketURL(endpoint)
	if err != nil {
		return "", err
	}
	server := fmt.Sprintf("%03d", rand.Intn(1000))
	session := strings.ReplaceAll(uuid.NewString(), "-", "")
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + server + "/" + session + "/websocket"
	return u.String(), nil
}

// infoURL builds <endpoint>/info over http(s) with a cache-busting parameter.
func infoURL(endpoint string, now time.Time) (string, error) {
	u, err := toWebSocketURL(endpoint)
	if err != nil {
		return "", err
	}
	if u.Scheme == "wss" {
		u.Scheme = "https"
	} else {
		u.Scheme = "http"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/info"
	u.RawQuery = "t=" + strconv.FormatInt(now.UnixMilli(), 10)
	return u.String(), nil
}
