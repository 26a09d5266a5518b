package api

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/lincode/api/worker"
	"github.com/papercomputeco/lincode/pkg/chat"
	"github.com/papercomputeco/lincode/pkg/eventstream"
	"github.com/papercomputeco/lincode/pkg/llm"
	"github.com/papercomputeco/lincode/pkg/sse"
	"github.com/papercomputeco/lincode/pkg/utils"
)

// handleHealth reports that the server is up.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(llm.OKResponse{OK: true})
}

// handleClearSession forgets a session's history. Unknown or missing
// session ids are not an error.
func (s *Server) handleClearSession(c *fiber.Ctx) error {
	var req chat.SessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
		}
	}

	if req.SessionID != "" {
		if err := s.storer.Delete(c.Context(), req.SessionID); err != nil {
			s.logger.Error("failed to clear session",
				zap.String("session_id", req.SessionID),
				zap.Error(err),
			)
			return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to clear session"})
		}
		s.logger.Debug("session cleared", zap.String("session_id", req.SessionID))
	}

	return c.JSON(llm.OKResponse{OK: true})
}

// handleChat records the user's message and streams the model's reply as
// server-sent events.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chat.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "message required"})
	}
	if req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "session_id required"})
	}

	ctx := c.Context()
	if err := s.storer.Append(ctx, req.SessionID, llm.NewTextMessage(llm.RoleUser, message)); err != nil {
		s.logger.Error("failed to record user turn",
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to record message"})
	}

	history, err := s.storer.History(ctx, req.SessionID)
	if err != nil {
		s.logger.Error("failed to load session history",
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		s.dropUserTurn(context.Background(), req.SessionID)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to load history"})
	}

	chatReq := &llm.ChatRequest{
		Model:     s.config.Model,
		Messages:  history,
		MaxTokens: s.config.MaxTokens,
	}
	if s.config.Prompt != nil {
		chatReq.System = s.config.Prompt.Prompt()
	}

	s.logger.Debug("streaming reply",
		zap.String("session_id", req.SessionID),
		zap.Int("history_len", len(history)),
		zap.String("message", utils.Truncate(message, 80)),
	)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// Frames go through an io.Pipe so that fasthttp writes each one to the
	// socket as soon as it is produced.
	pr, pw := io.Pipe()
	go s.streamReply(req.SessionID, chatReq, pw)
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// streamReply runs the completion and writes its events to pw. It runs after
// the handler has returned, so it must not touch the fiber context.
func (s *Server) streamReply(sessionID string, chatReq *llm.ChatRequest, pw *io.PipeWriter) {
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := sse.NewWriter(pw)
	startedAt := time.Now()

	var (
		reply  strings.Builder
		tokens int
	)
	resp, err := s.completer.Stream(ctx, chatReq, func(token string) error {
		tokens++
		reply.WriteString(token)
		return w.WriteEvent(sse.EventToken, sse.TokenPayload{Token: token})
	})

	if err != nil {
		s.logger.Error("reply stream failed",
			zap.String("session_id", sessionID),
			zap.String("provider", s.completer.Name()),
			zap.Int("tokens", tokens),
			zap.Error(err),
		)
		s.dropUserTurn(ctx, sessionID)
		if werr := w.WriteEvent(sse.EventError, sse.ErrorPayload{Error: err.Error()}); werr != nil {
			s.logger.Debug("client gone before error event", zap.Error(werr))
		}
		s.publishTurn(sessionID, chatReq, nil, startedAt, tokens, err)
		return
	}

	if resp == nil {
		resp = &llm.ChatResponse{Model: chatReq.Model}
	}
	if resp.Message.Content == "" {
		resp.Message = llm.NewTextMessage(llm.RoleAssistant, reply.String())
	}

	if err := s.storer.Append(ctx, sessionID, llm.NewTextMessage(llm.RoleAssistant, resp.Message.Content)); err != nil {
		s.logger.Error("failed to record assistant turn",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	if err := w.WriteEvent(sse.EventDone, sse.DonePayload{OK: true}); err != nil {
		s.logger.Debug("client gone before done event", zap.Error(err))
	}

	s.logger.Info("reply streamed",
		zap.String("session_id", sessionID),
		zap.Int("tokens", tokens),
		zap.Duration("elapsed", time.Since(startedAt)),
	)

	s.publishTurn(sessionID, chatReq, resp, startedAt, tokens, nil)
}

// dropUserTurn removes the unanswered user message so that a retry does not
// send it twice.
func (s *Server) dropUserTurn(ctx context.Context, sessionID string) {
	if _, err := s.storer.PopLast(ctx, sessionID, llm.RoleUser); err != nil {
		s.logger.Error("failed to drop unanswered user turn",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}

// publishTurn hands the finished turn to the worker pool.
func (s *Server) publishTurn(sessionID string, chatReq *llm.ChatRequest, resp *llm.ChatResponse, startedAt time.Time, tokens int, streamErr error) {
	meta := eventstream.TurnRequestMeta{
		SessionID:   sessionID,
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
		TokenCount:  tokens,
		Outcome:     eventstream.OutcomeCompleted,
	}
	if streamErr != nil {
		meta.Outcome = eventstream.OutcomeFailed
		meta.Error = streamErr.Error()
	}

	source := eventstream.EventSource{
		Host:     s.host,
		Provider: s.completer.Name(),
		Model:    chatReq.Model,
	}

	turn := llm.ConversationTurn{
		Provider:  s.completer.Name(),
		SessionID: sessionID,
		Request:   chatReq,
		Response:  resp,
	}

	s.pool.Enqueue(worker.Job{Event: eventstream.NewTurnCompletedEvent(source, meta, turn)})
}
