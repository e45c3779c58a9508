package bitbucket

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Credentials authenticate API calls. Token wins over Username/AppPassword;
// with neither set, requests are anonymous.
type Credentials struct {
	Username    string
	AppPassword string
	Token       string
}

// Anonymous reports whether no credentials are set
func (c Credentials) Anonymous() bool {
	return c.Token == "" && c.AppPassword == ""
}

func (c Credentials) header() string {
	switch {
	case c.Token != "":
		return "Bearer " + c.Token
	case c.AppPassword != "":
		raw := c.Username + ":" + c.AppPassword
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
	}
	return ""
}

// transport is the innermost round tripper under go-gh's client.
// go-gh adds a GitHub "token" Authorization header; it is replaced here,
// and only requests to the API host carry credentials so redirects to
// other hosts (diff storage, CDNs) never see them.
type transport struct {
	base        http.RoundTripper
	host        string
	credentials Credentials
	log         *zap.SugaredLogger
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Del("Authorization")
	if h := t.credentials.header(); h != "" && strings.EqualFold(req.URL.Hostname(), t.host) {
		req.Header.Set("Authorization", h)
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start)
	if err != nil {
		t.log.Debugw("bitbucket request failed",
			"method", req.Method,
			"url", req.URL.String(),
			"duration_ms", float64(dur.Microseconds())/1000.0,
			"error", err,
		)
		return nil, err
	}

	t.log.Debugw("bitbucket request",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration_ms", float64(dur.Microseconds())/1000.0,
	)
	return resp, nil
}
