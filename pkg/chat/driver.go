// Package chat drives a single chat conversation against a lincode server:
// it posts a message, decodes the streamed reply and presents each update as
// rendered markup.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/lincode/pkg/accumulator"
	"github.com/papercomputeco/lincode/pkg/llm"
	"github.com/papercomputeco/lincode/pkg/markdown"
	"github.com/papercomputeco/lincode/pkg/sse"
	"github.com/papercomputeco/lincode/pkg/utils"
)

// ErrStalled fails a stream when no data arrives within Config.StallTimeout.
var ErrStalled = errors.New("stream stalled: no data received")

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 * 1024

// Config configures a Driver.
type Config struct {
	// Target is the base URL of the chat server, e.g. "http://localhost:8000".
	Target string

	// SessionID identifies the conversation. A random one is generated when
	// empty.
	SessionID string

	// StallTimeout fails the stream if the server sends nothing for this long.
	// Zero disables it.
	StallTimeout time.Duration

	// HTTPClient defaults to a client without a timeout.
	HTTPClient *http.Client

	// Sink receives every update. Required.
	Sink Sink

	// Renderer turns reply text into markup. Defaults to markdown.Render.
	Renderer func(string) string

	// Dump, when set, receives the raw response stream verbatim.
	Dump io.Writer

	// OnStateChange is called after every state transition.
	OnStateChange func(State)

	Logger *zap.Logger
}

// Outcome is the result of a Submit call.
type Outcome struct {
	// Rejected is set when the message was empty or another message was in
	// flight. Nothing else happened in that case.
	Rejected bool

	// State is StateCompleted or StateFailed for accepted messages.
	State State

	// Text is the complete reply on success.
	Text string

	// Err describes the failure.
	Err error
}

// Driver runs one message at a time through the request, stream, and
// render pipeline. It is safe for concurrent use; concurrent Submit calls
// beyond the first are rejected.
type Driver struct {
	target        string
	client        *http.Client
	sink          Sink
	render        func(string) string
	dump          io.Writer
	stallTimeout  time.Duration
	onStateChange func(State)
	logger        *zap.Logger

	mu        sync.Mutex
	state     State
	sessionID string
}

// NewDriver validates cfg and returns an idle Driver.
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.Target == "" {
		return nil, errors.New("chat target is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("chat sink is required")
	}
	if cfg.StallTimeout < 0 {
		return nil, fmt.Errorf("invalid stall timeout %s", cfg.StallTimeout)
	}

	d := &Driver{
		target:        strings.TrimRight(cfg.Target, "/"),
		client:        cfg.HTTPClient,
		sink:          cfg.Sink,
		render:        cfg.Renderer,
		dump:          cfg.Dump,
		stallTimeout:  cfg.StallTimeout,
		onStateChange: cfg.OnStateChange,
		logger:        cfg.Logger,
		sessionID:     cfg.SessionID,
	}

	if d.client == nil {
		d.client = &http.Client{}
	}
	if d.render == nil {
		d.render = markdown.Render
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.sessionID == "" {
		d.sessionID = uuid.NewString()
	}

	return d, nil
}

// State returns the current lifecycle state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// SessionID returns the current session identifier.
func (d *Driver) SessionID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessionID
}

// Submit sends message and streams the reply to the sink. It blocks until
// the stream ends, ctx is cancelled, or the stall timeout fires, and always
// leaves the Driver idle. Failures are reported in the Outcome and through
// the sink, never as a panic or a separate error.
func (d *Driver) Submit(ctx context.Context, message string) Outcome {
	message = strings.TrimSpace(message)
	if message == "" {
		return Outcome{Rejected: true}
	}

	d.mu.Lock()
	if d.state != StateIdle {
		d.mu.Unlock()
		d.logger.Debug("rejecting message while another is in flight")
		return Outcome{Rejected: true}
	}
	d.state = StateSending
	sessionID := d.sessionID
	d.mu.Unlock()

	d.notify(StateSending)
	defer d.transition(StateIdle)

	return d.run(ctx, message, sessionID)
}

func (d *Driver) run(ctx context.Context, message, sessionID string) Outcome {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var stall *time.Timer
	if d.stallTimeout > 0 {
		stall = time.AfterFunc(d.stallTimeout, func() { cancel(ErrStalled) })
		defer stall.Stop()
	}

	body, err := json.Marshal(Request{Message: message, SessionID: sessionID})
	if err != nil {
		return d.fail(fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.target+ChatPath, bytes.NewReader(body))
	if err != nil {
		return d.fail(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", utils.UserAgent())

	d.logger.Debug("sending chat request",
		zap.String("target", d.target),
		zap.String("session_id", sessionID),
		zap.Int("message_len", len(message)),
	)

	resp, err := d.client.Do(req)
	if err != nil {
		return d.fail(causeOf(ctx, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return d.fail(errors.New(statusMessage(resp)))
	}

	d.transition(StateStreaming)

	acc := accumulator.New()
	reader := sse.NewTeeReader(resp.Body, d.dump)

	for {
		frames, err := reader.Next()
		if stall != nil {
			stall.Reset(d.stallTimeout)
		}

		for _, frame := range frames {
			update := acc.Apply(frame)
			switch update.Kind {
			case accumulator.KindPartial:
				d.sink.Present(View{Text: update.Text, Markup: d.render(update.Text)})
			case accumulator.KindError:
				return d.fail(errors.New(update.Message))
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			acc.Terminate()
			return d.fail(causeOf(ctx, err))
		}
	}

	if partial := reader.Partial(); partial != "" {
		d.logger.Debug("dropped unterminated line at end of stream",
			zap.String("line", partial),
		)
	}

	text := acc.Text()
	d.sink.Present(View{Text: text, Markup: d.render(text), Final: true})
	d.transition(StateCompleted)

	return Outcome{State: StateCompleted, Text: text}
}

// fail replaces the reply in view with the error indicator.
func (d *Driver) fail(err error) Outcome {
	d.logger.Debug("chat stream failed", zap.Error(err))

	msg := err.Error()
	d.sink.Present(View{Markup: ErrorMarkup(msg), Err: msg, Final: true})
	d.transition(StateFailed)

	return Outcome{State: StateFailed, Err: err}
}

// Clear asks the server to forget the current session and switches to a new
// session identifier, which it returns. The server call is best effort: its
// failure is logged and the new identifier is issued regardless.
func (d *Driver) Clear(ctx context.Context) string {
	old := d.SessionID()

	if err := d.deleteSession(ctx, old); err != nil {
		d.logger.Debug("clearing session failed",
			zap.String("session_id", old),
			zap.Error(err),
		)
	}

	id := uuid.NewString()

	d.mu.Lock()
	d.sessionID = id
	d.mu.Unlock()

	return id
}

func (d *Driver) deleteSession(ctx context.Context, sessionID string) error {
	body, err := json.Marshal(SessionRequest{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, d.target+SessionPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", utils.UserAgent())

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

func (d *Driver) transition(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()

	d.notify(s)
}

func (d *Driver) notify(s State) {
	if d.onStateChange != nil {
		d.onStateChange(s)
	}
}

// causeOf prefers the cancellation cause of ctx, such as ErrStalled, over the
// transport error it produced.
func causeOf(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return err
}

// statusMessage extracts the "error" field of a failed response, falling
// back to the status text.
func statusMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil {
		var body llm.ErrorResponse
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			return body.Error
		}
	}

	if text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); text != "" && text != resp.Status {
		return text
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
