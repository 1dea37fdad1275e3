// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/caarlos0/env/v11"

	"github.com/anchorsync/anchorsync/internal/info"
	"github.com/anchorsync/anchorsync/internal/record"
	"github.com/anchorsync/anchorsync/internal/sink"
)

var _ sink.Sink = &remoteSink{}

// RemoteError wraps every failure returned by the remote sink endpoint.
type RemoteError struct {
	err error
}

func (e *RemoteError) Error() string {
	return "remote sink: " + e.err.Error()
}

func (e *RemoteError) Unwrap() error {
	return e.err
}

// payload is the JSON envelope shipped to the remote endpoint. The operation
// is derived from the HTTP method on the receiving side as well, but is
// labelled explicitly to keep the body self-describing.
type payload struct {
	Operation string         `json:"operation"`
	ID        string         `json:"id"`
	Type      record.Type    `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// remoteSink delivers records to an HTTP endpoint. Its configuration is read
// from environment variables.
type remoteSink struct {
	Endpoint string `env:"SINK_ENDPOINT,required"`
	Token    string `env:"SINK_TOKEN"`
}

// NewSink returns a sink.Sink configured from the environment.
func NewSink() (sink.Sink, error) {
	remote := new(remoteSink)
	if err := env.Parse(remote); err != nil {
		return nil, handleError(err)
	}

	return remote, nil
}

// Add implements sink.Sink.
func (s *remoteSink) Add(ctx context.Context, rec record.Record) error {
	return s.handleRequest(ctx, http.MethodPost, payload{
		Operation: "add",
		ID:        rec.ID,
		Type:      rec.Type,
		Payload:   rec.Payload,
	})
}

// Remove implements sink.Sink.
func (s *remoteSink) Remove(ctx context.Context, rec record.Record) error {
	return s.handleRequest(ctx, http.MethodDelete, payload{
		Operation: "remove",
		ID:        rec.ID,
		Type:      rec.Type,
	})
}

// handleRequest marshals the payload and ships it to the configured endpoint.
func (s *remoteSink) handleRequest(ctx context.Context, method string, data payload) error {
	body, err := json.Marshal(data)
	if err != nil {
		return handleError(err)
	}

	request, err := http.NewRequestWithContext(ctx, method, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return handleError(err)
	}

	request.Header.Set("User-Agent", userAgentString())
	request.Header.Set("Content-Type", "application/json")
	if s.Token != "" {
		request.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := http.DefaultClient.Do(request)
	if err != nil {
		return handleError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		decoder := json.NewDecoder(resp.Body)
		var respBody map[string]any
		if err := decoder.Decode(&respBody); err == nil {
			if message, ok := respBody["message"].(string); ok {
				return handleError(errors.New(message))
			}
		}

		return handleError(errors.New("unexpected status " + resp.Status))
	}

	return nil
}

// userAgentString returns the User-Agent string to be used in HTTP requests.
func userAgentString() string {
	return info.AppName + "/" + info.Version
}

func handleError(err error) error {
	var parseErr env.AggregateError
	if errors.As(err, &parseErr) {
		err = parseErr.Errors[0]
	}

	return &RemoteError{err: err}
}
