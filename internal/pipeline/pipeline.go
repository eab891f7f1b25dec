// Package pipeline turns a request draft into a sent request, a normalized
// response and a history record.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/requst/internal/core"
	"github.com/artpar/requst/internal/headers"
	httpclient "github.com/artpar/requst/internal/protocol/http"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Common errors
var (
	ErrInvalidRequestBody = errors.New("invalid JSON in body")
)

// InvalidBodyStatusText is the status text of a send rejected before the
// transport because its body was not JSON.
const InvalidBodyStatusText = "Invalid JSON in body"

// State is the phase of a single send.
type State int

const (
	Idle State = iota
	Sending
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Success:
		return "success"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Sender performs the network call.
type Sender interface {
	Send(ctx context.Context, req httpclient.Request) (*core.Response, error)
}

// HistoryWriter records sent requests.
type HistoryWriter interface {
	Upsert(ctx context.Context, candidate core.HistoryItem) (core.HistoryItem, error)
}

// Result is the outcome of one run.
type Result struct {
	RunID    string
	State    State
	Response core.Response
	// Err is the transport failure, if any. The response is still populated.
	Err      error
	Warnings []string
	History  *core.HistoryItem
}

// Pipeline executes drafts.
type Pipeline struct {
	sender  Sender
	history HistoryWriter
	policy  headers.Policy
	logger  hclog.Logger
	now     func() time.Time
	onState func(runID string, s State)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPolicy sets the header policy applied to every send.
func WithPolicy(policy headers.Policy) Option {
	return func(p *Pipeline) {
		p.policy = policy
	}
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock sets the clock used for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithStateHook registers a callback invoked on every state transition.
func WithStateHook(fn func(runID string, s State)) Option {
	return func(p *Pipeline) {
		p.onState = fn
	}
}

// New creates a pipeline. history may be nil to skip recording.
func New(sender Sender, history HistoryWriter, opts ...Option) *Pipeline {
	p := &Pipeline{
		sender:  sender,
		history: history,
		policy:  headers.DefaultPolicy(),
		logger:  hclog.NewNullLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run sends draft with global headers applied. A transport failure is not an
// error: it is reported through Result.Err and a Failed state. The returned
// error is ErrInvalidRequestBody, when nothing was sent, or a history write
// failure; the result is non-nil in both cases.
func (p *Pipeline) Run(ctx context.Context, draft core.Draft, global []core.HeaderEntry) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), State: Idle}
	p.transition(res, Sending)

	effective := headers.Wire(p.policy.Assemble(global, draft.Headers, draft.BearerToken))
	url := headers.AppendQuery(draft.URL, headers.BuildQueryString(draft.QueryParams))
	method := core.NormalizeMethod(draft.Method)

	req := httpclient.Request{
		Method:      method,
		URL:         url,
		Headers:     effective,
		Credentials: true,
	}

	if core.MethodCarriesBody(method) {
		if draft.Body != "" {
			var body any
			if err := json.Unmarshal([]byte(draft.Body), &body); err != nil {
				res.Response = core.Response{
					Status:     core.StatusError,
					StatusText: InvalidBodyStatusText,
					Body:       core.ErrorBody(err.Error()),
				}
				p.transition(res, Failed)
				p.logger.Warn("request body is not JSON", "run", res.RunID, "error", err)
				return res, fmt.Errorf("%w: %w", ErrInvalidRequestBody, err)
			}
			req.Body = body
		}
	} else if strings.TrimSpace(draft.Body) != "" {
		warning := fmt.Sprintf("body ignored for %s requests", method)
		res.Warnings = append(res.Warnings, warning)
		p.logger.Warn(warning, "run", res.RunID)
	}

	start := time.Now()
	resp, err := p.sender.Send(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		res.Err = err
		res.Response = failureResponse(err)
		res.Response.Elapsed = elapsed
		p.transition(res, Failed)
	} else {
		res.Response = *resp
		res.Response.Elapsed = elapsed
		p.transition(res, Success)
	}

	p.logger.Info("request sent",
		"run", res.RunID,
		"method", method,
		"url", url,
		"status", res.Response.Status.String(),
		"elapsed", elapsed)

	if p.history == nil {
		return res, nil
	}

	record, herr := p.history.Upsert(ctx, draft.ToHistory(p.now()))
	if herr != nil {
		p.logger.Error("failed to record history", "run", res.RunID, "error", herr)
		return res, fmt.Errorf("failed to record history: %w", herr)
	}
	res.History = &record
	return res, nil
}

func (p *Pipeline) transition(res *Result, s State) {
	res.State = s
	if p.onState != nil {
		p.onState(res.RunID, s)
	}
}

// failureResponse normalizes a failed send. A carried server response wins
// over the error itself.
func failureResponse(err error) core.Response {
	var terr *httpclient.TransportError
	if errors.As(err, &terr) && terr.Response != nil {
		return core.Response{
			Status:     terr.Response.Status,
			StatusText: terr.Response.StatusText,
			Headers:    terr.Response.Headers,
			Body:       terr.Response.Body,
		}
	}
	return core.Response{
		Status:     core.StatusError,
		StatusText: err.Error(),
		Body:       core.ErrorBody(err.Error()),
	}
}
