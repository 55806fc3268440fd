package httputil

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

// NewClientFromConfig builds a client with the authorization scheme the
// config asks for.
func NewClientFromConfig(cfg HTTPClientConfig, disableKeepAlives bool) (*http.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var rt http.RoundTripper = &http.Transport{
		MaxIdleConns:          20000,
		MaxIdleConnsPerHost:   1000,
		DisableKeepAlives:     disableKeepAlives,
		DisableCompression:    true,
		IdleConnTimeout:       5 * time.Minute,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}
	if header := cfg.authHeader(); header != "" {
		rt = &authRoundTripper{authorization: header, rt: rt}
	}
	return &http.Client{Transport: rt}, nil
}

// authHeader renders the Authorization value for the configured
// credentials, empty when the config carries none.
func (c *HTTPClientConfig) authHeader() string {
	if len(c.BearerToken) > 0 {
		return "Bearer " + string(c.BearerToken)
	}
	if c.BasicAuth != nil {
		plain := c.BasicAuth.Username + ":" + strings.TrimSpace(string(c.BasicAuth.Password))
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(plain))
	}
	return ""
}

// authRoundTripper sets the Authorization header on each request unless
// the caller already set one.
type authRoundTripper struct {
	authorization string
	rt            http.RoundTripper
}

func (rt *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(req.Header.Get("Authorization")) == 0 {
		req.Header.Set("Authorization", rt.authorization)
	}
	return rt.rt.RoundTrip(req)
}
