package utils

import (
	"net/http"
	"time"
)

// NewHTTPClient builds an HTTP client with a fixed overall timeout and sane
// connection pooling for repeated calls against one host.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
