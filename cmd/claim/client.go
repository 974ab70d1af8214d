package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const correlationHeader = "X-Correlation-ID"

var httpClient = &http.Client{Timeout: 90 * time.Second}

// APIError is a non-2xx answer from the airdrop endpoint.
type APIError struct {
	StatusCode    int
	Message       string
	CorrelationID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http error %d: %s (correlation id %s)", e.StatusCode, e.Message, e.CorrelationID)
}

type errorBody struct {
	Error string `json:"error"`
}

func doPost[T any](url string, body any) (*T, error) {
	rawReq, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(rawReq))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return do[T](req)
}

func doGet[T any](url string) (*T, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return do[T](req)
}

func do[T any](req *http.Request) (*T, error) {
	req.Header.Set(correlationHeader, newOperationID())

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	rawResp, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{
			StatusCode:    resp.StatusCode,
			Message:       string(rawResp),
			CorrelationID: resp.Header.Get(correlationHeader),
		}
		var eb errorBody
		if json.Unmarshal(rawResp, &eb) == nil && eb.Error != "" {
			apiErr.Message = eb.Error
		}
		return nil, apiErr
	}

	var result T
	if err := json.Unmarshal(rawResp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func newOperationID() string {
	return uuid.NewString()
}
