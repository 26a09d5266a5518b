package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/lincode/pkg/llm"
)

// DefaultUpstream is the address of a local Ollama server.
const DefaultUpstream = "http://localhost:11434"

// Completer implements llm.Completer against Ollama's /api/chat endpoint,
// which streams newline-delimited JSON.
type Completer struct {
	upstream string
	client   *http.Client
	logger   *zap.Logger
}

// New returns an Ollama Completer. Empty or nil arguments take defaults.
func New(upstream string, client *http.Client, logger *zap.Logger) *Completer {
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
		client:   client,
		logger:   logger,
	}
}

func (c *Completer) Name() string {
	return "ollama"
}

func (c *Completer) Stream(ctx context.Context, req *llm.ChatRequest, onToken llm.TokenFunc) (*llm.ChatResponse, error) {
	body, err := json.Marshal(toOllamaRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	c.logger.Debug("sending ollama request",
		zap.String("upstream", c.upstream),
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.upstream+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request to ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var apiErr llm.ErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var content strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk ollamaResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			c.logger.Debug("failed to parse stream chunk",
				zap.Error(err),
				zap.String("line", string(line)),
			)
			continue
		}

		if chunk.Error != "" {
			return nil, fmt.Errorf("ollama: %s", chunk.Error)
		}

		if chunk.Message.Content != "" {
			content.WriteString(chunk.Message.Content)
			if err := onToken(chunk.Message.Content); err != nil {
				return nil, err
			}
		}

		if chunk.Done {
			return &llm.ChatResponse{
				Model:      chunk.Model,
				CreatedAt:  chunk.CreatedAt,
				Message:    llm.NewTextMessage(llm.RoleAssistant, content.String()),
				StopReason: chunk.DoneReason,
				Usage: &llm.Usage{
					PromptTokens:     chunk.PromptEvalCount,
					CompletionTokens: chunk.EvalCount,
					TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
				},
			}, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stream: %w", err)
	}

	return nil, fmt.Errorf("reading stream: %w", io.ErrUnexpectedEOF)
}

func toOllamaRequest(req *llm.ChatRequest) ollamaRequest {
	messages := make([]ollamaMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, ollamaMessage{Role: llm.RoleSystem, Content: req.System})
	}
	for _, msg := range req.Messages {
		messages = append(messages, ollamaMessage{Role: msg.Role, Content: msg.Content})
	}

	out := ollamaRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
	}

	if req.MaxTokens > 0 || req.Temperature != nil {
		out.Options = &ollamaOptions{Temperature: req.Temperature}
		if req.MaxTokens > 0 {
			maxTokens := req.MaxTokens
			out.Options.NumPredict = &maxTokens
		}
	}

	return out
}
