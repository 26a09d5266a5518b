package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/lincode/pkg/llm"
	"github.com/papercomputeco/lincode/pkg/sse"
)

const (
	// DefaultUpstream is the public Anthropic API.
	DefaultUpstream = "https://api.anthropic.com"

	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096
)

// Stream event names used by the Messages API.
const (
	eventMessageStart      = "message_start"
	eventContentBlockDelta = "content_block_delta"
	eventMessageDelta      = "message_delta"
	eventMessageStop       = "message_stop"
	eventError             = "error"
)

// Completer implements llm.Completer against the Messages API. The streamed
// response is decoded with the same frame decoder the chat client uses.
type Completer struct {
	upstream string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

// New returns an Anthropic Completer. Empty or nil arguments other than
// apiKey take defaults.
func New(upstream, apiKey string, client *http.Client, logger *zap.Logger) *Completer {
	if upstream == "" {
		upstream = DefaultUpstream
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Completer{
		upstream: strings.TrimRight(upstream, "/"),
		apiKey:   apiKey,
		client:   client,
		logger:   logger,
	}
}

func (c *Completer) Name() string {
	return "anthropic"
}

func (c *Completer) Stream(ctx context.Context, req *llm.ChatRequest, onToken llm.TokenFunc) (*llm.ChatResponse, error) {
	body, err := json.Marshal(toAnthropicRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	c.logger.Debug("sending anthropic request",
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.upstream+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request to anthropic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var apiErr errorEnvelope
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	result := &llm.ChatResponse{Model: req.Model}
	usage := &llm.Usage{}
	var content strings.Builder

	reader := sse.NewReader(resp.Body)
	for {
		frames, readErr := reader.Next()

		for _, frame := range frames {
			switch frame.Event {
			case eventMessageStart:
				var start messageStart
				if json.Unmarshal([]byte(frame.Data), &start) != nil {
					continue
				}
				if start.Message.Model != "" {
					result.Model = start.Message.Model
				}
				if start.Message.Usage != nil {
					usage.PromptTokens = start.Message.Usage.InputTokens
				}

			case eventContentBlockDelta:
				var delta contentBlockDelta
				if err := json.Unmarshal([]byte(frame.Data), &delta); err != nil {
					c.logger.Debug("failed to parse content delta",
						zap.Error(err),
						zap.String("data", frame.Data),
					)
					continue
				}
				if delta.Delta.Type != "text_delta" || delta.Delta.Text == "" {
					continue
				}
				content.WriteString(delta.Delta.Text)
				if err := onToken(delta.Delta.Text); err != nil {
					return nil, err
				}

			case eventMessageDelta:
				var delta messageDelta
				if json.Unmarshal([]byte(frame.Data), &delta) != nil {
					continue
				}
				result.StopReason = delta.Delta.StopReason
				if delta.Usage != nil {
					usage.CompletionTokens = delta.Usage.OutputTokens
				}

			case eventMessageStop:
				usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
				result.Usage = usage
				result.Message = llm.NewTextMessage(llm.RoleAssistant, content.String())
				return result, nil

			case eventError:
				var apiErr errorEnvelope
				if json.Unmarshal([]byte(frame.Data), &apiErr) == nil && apiErr.Error.Message != "" {
					return nil, fmt.Errorf("anthropic: %s", apiErr.Error.Message)
				}
				return nil, errors.New("anthropic: stream error")
			}
		}

		if errors.Is(readErr, io.EOF) {
			return nil, fmt.Errorf("reading stream: %w", io.ErrUnexpectedEOF)
		}
		if readErr != nil {
			return nil, fmt.Errorf("reading stream: %w", readErr)
		}
	}
}

func toAnthropicRequest(req *llm.ChatRequest) anthropicRequest {
	messages := make([]anthropicMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Role == llm.RoleSystem {
			continue
		}
		messages = append(messages, anthropicMessage{Role: msg.Role, Content: msg.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return anthropicRequest{
		Model:       req.Model,
		Messages:    messages,
		System:      req.System,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Stream:      true,
	}
}
