// Package handler adapts Lambda events to the use cases and shapes the
// responses returned to the runtime.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lambda-functions/internal/warmup"
)

// Response is the envelope returned by the non-HTTP functions. Body is a JSON
// document encoded as a string.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Invoke returns a raw-payload handler for lambda.Start. Warmup pings are
// answered by w; every other payload is decoded into E and passed to handle.
// A nil w disables warmup detection.
func Invoke[E, R any](w *warmup.Warmer, handle func(context.Context, E) (R, error)) func(context.Context, json.RawMessage) (any, error) {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		if w != nil {
			if ev, ok := warmup.Detect(raw); ok {
				return w.Handle(ctx, ev), nil
			}
		}
		var event E
		if err := json.Unmarshal(raw, &event); err != nil {
			return nil, fmt.Errorf("handler: decode event: %w", err)
		}
		return handle(ctx, event)
	}
}

func jsonResponse(status int, body any) Response {
	b, err := json.Marshal(body)
	if err != nil {
		return Response{StatusCode: 500, Body: `{"message":"Internal error"}`}
	}
	return Response{StatusCode: status, Body: string(b)}
}

func timestamp(now time.Time) string {
	return now.Format(time.RFC3339Nano)
}
