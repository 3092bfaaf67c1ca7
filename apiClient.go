package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	log "github.com/Financial-Times/go-logger"
	"github.com/google/uuid"
	"k8s.io/client-go/transport"
)

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type apiClient struct {
	httpClient httpClient
}

func newAPIClient(accessKey, secretKey string, timeout time.Duration) *apiClient {
	base := &http.Transport{
		MaxIdleConnsPerHost: 100,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &apiClient{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport.NewBasicAuthRoundTripper(accessKey, secretKey, base),
		},
	}
}

// fetchJSON performs a GET against url and decodes the JSON body into v.
// A non-2xx status is only logged: the body is decoded regardless and fails as a DecodeError if it is not JSON.
func (c *apiClient) fetchJSON(ctx context.Context, url string, v interface{}) error {
	requestID := uuid.NewString()
	log.WithTransactionID(requestID).Debugf("Sending request to %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("cannot construct request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithTransactionID(requestID).WithError(err).Debugf("Request to %s failed", url)
		return &TransportError{URL: url, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.WithError(err).Error("Cannot close response body reader.")
		}
	}()

	log.WithTransactionID(requestID).Debugf("Got response from %s with code %d", url, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}

	if err := json.Unmarshal(body, v); err != nil {
		log.WithTransactionID(requestID).Debugf("Failed to decode JSON response from %s", url)
		return &DecodeError{URL: url, StatusCode: resp.StatusCode, Body: body, Err: err}
	}

	return nil
}
