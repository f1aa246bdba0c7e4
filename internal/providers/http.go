package providers

import (
	"net"
	"net/http"
	"time"
)

// ConnectionConfig sizes the pooled HTTP transport shared by every request of a run.
type ConnectionConfig struct {
	PoolSize       int           // Max connections per host (default: 10)
	MaxIdlePerHost int           // Max idle keepalive connections per host (default: PoolSize)
	ConnectTimeout time.Duration // Dial timeout (default: 10s)
	KeepAlive      time.Duration // TCP keepalive period (default: 30s)
	IdleTimeout    time.Duration // Idle connection lifetime (default: 90s)
}

func (c ConnectionConfig) withDefaults() ConnectionConfig {
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MaxIdlePerHost <= 0 {
		c.MaxIdlePerHost = c.PoolSize
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 90 * time.Second
	}
	return c
}

// newPooledHTTPClient builds an http.Client over a dedicated transport.
// HTTP/2 is negotiated when the server offers it so concurrent requests
// multiplex over a single connection.
func newPooledHTTPClient(cfg ConnectionConfig) *http.Client {
	cfg = cfg.withDefaults()

	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.PoolSize,
		MaxIdleConnsPerHost:   cfg.MaxIdlePerHost,
		MaxConnsPerHost:       cfg.PoolSize,
		IdleConnTimeout:       cfg.IdleTimeout,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ExpectContinueTimeout: time.Second,
	}

	// Request deadlines come from the caller's context, not Client.Timeout.
	return &http.Client{Transport: transport}
}

// closeHTTPClient drops every pooled connection held by client.
func closeHTTPClient(client *http.Client) {
	if client == nil {
		return
	}
	client.CloseIdleConnections()
}
