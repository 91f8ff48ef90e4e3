package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPChannel talks to the broker's REST API. It is the production
// implementation of Channel; tests and the simulation use an in-process
// adapter instead.
type HTTPChannel struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPChannel(baseURL, installToken string) *HTTPChannel {
	return &HTTPChannel{
		baseURL: baseURL,
		token:   installToken,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPChannel) Request(ctx context.Context, req *Request) (*Response, error) {
	payloadJson, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		"POST",
		c.baseURL+"/api/enrich/v1",
		bytes.NewBuffer(payloadJson),
	)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("broker unreachable: %w", err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	// The broker answers 200 for both success and application-level
	// denials; anything else is a transport-class failure.
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"status error, got status %d. with response body %s",
			res.StatusCode,
			string(resBody),
		)
	}

	var out Response
	if err := json.Unmarshal(resBody, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
