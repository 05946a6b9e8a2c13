// Package warmup answers the periodic keep-warm pings sent by an EventBridge
// rule and can fan out asynchronous self-invocations so several execution
// environments stay warm at once.
package warmup

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	// Source is the value of the "source" field that marks a warmup ping.
	Source = "warmup"

	// DefaultDelay keeps this instance busy long enough for the children to
	// land on other execution environments.
	DefaultDelay = 75 * time.Millisecond
)

// Event is the warmup ping payload.
type Event struct {
	Source      string `json:"source"`
	Concurrency int    `json:"concurrency"`
}

// Response is the body of the warmup reply.
type Response struct {
	Status          string `json:"status"`
	InstancesWarmed int    `json:"instancesWarmed"`
}

// Envelope is the reply returned to the runtime.
type Envelope struct {
	StatusCode int      `json:"statusCode"`
	Body       Response `json:"body"`
}

type invokeAPI interface {
	Invoke(ctx context.Context, params *lambdasdk.InvokeInput, optFns ...func(*lambdasdk.Options)) (*lambdasdk.InvokeOutput, error)
}

var _ invokeAPI = (*lambdasdk.Client)(nil)

type Warmer struct {
	api          invokeAPI
	functionName string
	delay        time.Duration
	log          logrus.FieldLogger
}

func New(api invokeAPI, functionName string, log logrus.FieldLogger) (*Warmer, error) {
	if api == nil {
		return nil, errors.New("warmup: lambda client must not be nil")
	}
	if functionName == "" {
		return nil, errors.New("warmup: function name must not be empty")
	}
	if log == nil {
		return nil, errors.New("warmup: logger must not be nil")
	}
	return &Warmer{api: api, functionName: functionName, delay: DefaultDelay, log: log}, nil
}

// Detect reports whether payload is a warmup ping. Concurrency defaults to 0
// and negative values are clamped.
func Detect(payload json.RawMessage) (Event, bool) {
	var peek struct {
		Source      *string  `json:"source"`
		Concurrency *float64 `json:"concurrency"`
	}
	if err := json.Unmarshal(payload, &peek); err != nil {
		return Event{}, false
	}
	if peek.Source == nil || *peek.Source != Source {
		return Event{}, false
	}
	ev := Event{Source: Source}
	if peek.Concurrency != nil && *peek.Concurrency > 0 {
		ev.Concurrency = int(*peek.Concurrency)
	}
	return ev, true
}

// Handle answers a ping. Self-invocation failures only reduce the reported
// instance count.
func (w *Warmer) Handle(ctx context.Context, ev Event) Envelope {
	warmed := 1
	if ev.Concurrency > 0 {
		n, err := w.selfInvoke(ctx, ev.Concurrency)
		if err != nil {
			w.log.WithError(err).WithField("requested", ev.Concurrency).Warn("warmup self-invoke failed")
		}
		warmed += n
	}

	if w.delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(w.delay):
		}
	}

	w.log.WithField("instances_warmed", warmed).Info("warmup complete")
	return Envelope{
		StatusCode: 200,
		Body:       Response{Status: "warm", InstancesWarmed: warmed},
	}
}

// selfInvoke fires count asynchronous invocations of this function. Children
// always get concurrency 0 so the fan-out cannot recurse.
func (w *Warmer) selfInvoke(ctx context.Context, count int) (int, error) {
	payload, err := json.Marshal(Event{Source: Source})
	if err != nil {
		return 0, err
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		ok     int
		errAll error
	)
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.api.Invoke(ctx, &lambdasdk.InvokeInput{
				FunctionName:   aws.String(w.functionName),
				InvocationType: types.InvocationTypeEvent,
				Payload:        payload,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errAll = multierr.Append(errAll, err)
				return
			}
			ok++
		}()
	}
	wg.Wait()
	return ok, errAll
}
