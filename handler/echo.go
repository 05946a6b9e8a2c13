package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"lambda-functions/internal/logging"
)

const (
	correlationHeader = "X-Correlation-Id"
	echoMessage       = "Hello from Lambda!"
)

type echoResponse struct {
	Message             string            `json:"message"`
	Timestamp           string            `json:"timestamp"`
	Environment         string            `json:"environment"`
	ReceivedQueryParams map[string]string `json:"receivedQueryParams"`
	ReceivedPathParams  map[string]string `json:"receivedPathParams"`
	ReceivedBody        any               `json:"receivedBody"`
	LambdaRequestID     string            `json:"lambdaRequestId"`
}

// EchoHandler answers API Gateway proxy requests with a description of what
// it received.
type EchoHandler struct {
	environment string
	log         logrus.FieldLogger
	now         func() time.Time
	newID       func() string
}

func NewEchoHandler(environment string, log logrus.FieldLogger) (*EchoHandler, error) {
	if log == nil {
		return nil, errors.New("handler: logger must not be nil")
	}
	return &EchoHandler{
		environment: environment,
		log:         log,
		now:         time.Now,
		newID:       uuid.NewString,
	}, nil
}

func (h *EchoHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = h.newID()
	}
	log := logging.ForInvocation(ctx, h.log).WithField("correlation_id", correlationID)
	log.WithFields(logrus.Fields{
		"method": req.HTTPMethod,
		"path":   req.Path,
	}).Info("received request")
	log.WithField("event", req).Info("event payload")

	body, err := decodeBody(req)
	if err != nil {
		log.WithError(err).Error("error processing request")
		return apiResponse(http.StatusInternalServerError, correlationID, errorBody{
			Message: "Error processing request",
			Error:   err.Error(),
		}), nil
	}

	return apiResponse(http.StatusOK, correlationID, echoResponse{
		Message:             echoMessage,
		Timestamp:           timestamp(h.now()),
		Environment:         h.environment,
		ReceivedQueryParams: orEmpty(req.QueryStringParameters),
		ReceivedPathParams:  orEmpty(req.PathParameters),
		ReceivedBody:        body,
		LambdaRequestID:     logging.RequestID(ctx),
	}), nil
}

// decodeBody returns the request body as a JSON value. Only an empty string
// is an empty object; whitespace alone is not valid JSON.
func decodeBody(req events.APIGatewayProxyRequest) (any, error) {
	raw := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return nil, fmt.Errorf("decode base64 body: %w", err)
		}
		raw = decoded
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return nil, errors.New("decode body: unexpected data after JSON value")
	}
	return v, nil
}

func apiResponse(status int, correlationID string, body any) events.APIGatewayProxyResponse {
	resp := jsonResponse(status, body)
	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: resp.Body,
	}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
