// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package logger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	forwardedHostHeaderKey = "x-forwarded-host"
	forwardedForHeaderKey  = "x-forwarded-for"
	requestIDHeaderName    = "x-request-id"

	incomingRequestMessage  = "incoming request"
	requestCompletedMessage = "request completed"
)

// http is the struct of the log formatter.
type http struct {
	Request  *request  `json:"request,omitempty"`
	Response *response `json:"response,omitempty"`
}

type userAgent struct {
	Original string `json:"original,omitempty"`
}

// request contains the items of request info log.
type request struct {
	Method    string    `json:"method,omitempty"`
	UserAgent userAgent `json:"userAgent"`
}

type responseBody struct {
	Bytes int `json:"bytes,omitempty"`
}

// response contains the items of response info log.
type response struct {
	StatusCode int          `json:"statusCode,omitempty"`
	Body       responseBody `json:"body"`
}

// host has the host information.
type host struct {
	Hostname      string `json:"hostname,omitempty"`
	ForwardedHost string `json:"forwardedHost,omitempty"`
	IP            string `json:"ip,omitempty"`
}

// url info
type url struct {
	Path string `json:"path,omitempty"`
}

func removePort(host string) string {
	return strings.Split(host, ":")[0]
}

// requestID returns the inbound request id, generating a random one when the
// header is absent.
func requestID(c *fiber.Ctx) string {
	if id := c.Get(requestIDHeaderName); id != "" {
		return id
	}
	id, err := uuid.NewRandom()
	if err != nil {
		panic(fmt.Errorf("error generating request id: %w", err))
	}
	return id.String()
}

// requestLogArgs builds the key/value pairs shared by the incoming and
// completed log lines. resp is nil for the incoming line.
func requestLogArgs(c *fiber.Ctx, resp *response) []any {
	return []any{
		"http", http{
			Request: &request{
				Method: c.Method(),
				UserAgent: userAgent{
					Original: c.Get(fiber.HeaderUserAgent),
				},
			},
			Response: resp,
		},
		"url", url{Path: string(c.Request().URI().RequestURI())},
		"host", host{
			ForwardedHost: c.Get(forwardedHostHeaderKey),
			Hostname:      removePort(string(c.Request().Host())),
			IP:            c.Get(forwardedForHeaderKey),
		},
	}
}

// responseStatus reports the status code the client will see. A fiber error
// returned by the handler has not reached the response yet when the middleware
// observes it, so its code wins over the recorded one.
func responseStatus(c *fiber.Ctx, handlerErr error) int {
	var fiberErr *fiber.Error
	if errors.As(handlerErr, &fiberErr) {
		return fiberErr.Code
	}
	return c.Response().StatusCode()
}

func responseBytes(c *fiber.Ctx, handlerErr error) int {
	var fiberErr *fiber.Error
	if errors.As(handlerErr, &fiberErr) {
		return len(fiberErr.Error())
	}

	if content := c.GetRespHeader(fiber.HeaderContentLength); content != "" {
		if length, err := strconv.Atoi(content); err == nil {
			return length
		}
	}
	return len(c.Response().Body())
}

// RequestMiddlewareLogger is a fiber middleware to log all requests.
// It logs the incoming request and when the request is completed, adding the
// latency of the request. A request-scoped logger is stored in the user
// context for the downstream handlers.
func RequestMiddlewareLogger(logger Logger, excludedPrefix []string) func(*fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		path := string(c.Request().URI().RequestURI())
		for _, prefix := range excludedPrefix {
			if strings.HasPrefix(path, prefix) {
				return c.Next()
			}
		}

		start := time.Now()
		log := logger.WithName("request").WithName(requestID(c))
		c.SetUserContext(WithContext(c.UserContext(), log))

		log.WithName("incoming_request").Trace(incomingRequestMessage, requestLogArgs(c, nil)...)

		err := c.Next()

		completedArgs := append(requestLogArgs(c, &response{
			StatusCode: responseStatus(c, err),
			Body:       responseBody{Bytes: responseBytes(c, err)},
		}), "responseTime", float64(time.Since(start).Milliseconds()))
		log.WithName("request_completed").Info(requestCompletedMessage, completedArgs...)

		return err
	}
}
