package client

import (
	"net/http"
	"time"
)

// requestTimeout bounds connect+read for every outbound call.
const requestTimeout = 30 * time.Second

// HTTPClient is an interface for making HTTP requests, satisfied by
// *http.Client and by test doubles.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient creates the default HTTP client with the bounded timeout.
func NewHTTPClient() HTTPClient {
	return &http.Client{
		Timeout: requestTimeout,
	}
}
