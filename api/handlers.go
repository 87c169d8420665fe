package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apisearch "github.com/papercomputeco/ragloop/api/search"
	"github.com/papercomputeco/ragloop/pkg/llm"
	"github.com/papercomputeco/ragloop/pkg/rag"
	"github.com/papercomputeco/ragloop/pkg/session"
)

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Message string `json:"message"`

	// History is used when no session is given.
	History []llm.ConversationTurn `json:"history,omitempty"`

	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the reply to POST /v1/chat.
type ChatResponse struct {
	Response  string                   `json:"response"`
	SessionID string                   `json:"session_id,omitempty"`
	TraceID   string                   `json:"trace_id,omitempty"`
	Context   []apisearch.SearchResult `json:"context"`
}

// SessionResponse identifies a session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleChat runs one exchange. With a session ID the session's history is
// used and extended; the end phrase closes the session without calling any
// provider.
func (s *Server) handleChat(c *fiber.Ctx) error {
	if s.config.Loop == nil {
		return unavailable(c, "chat is not configured: embedder, vector store and completer are required")
	}

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return badRequest(c, "message is required")
	}

	sessions := s.config.Sessions
	if req.SessionID != "" && sessions == nil {
		return badRequest(c, "sessions are not enabled")
	}

	if sessions != nil && sessions.IsEndPhrase(req.Message) {
		if req.SessionID != "" {
			if err := sessions.Close(req.SessionID); err != nil {
				return s.fail(c, err)
			}
		}
		return c.JSON(ChatResponse{
			Response:  session.EndedMessage,
			SessionID: req.SessionID,
			Context:   []apisearch.SearchResult{},
		})
	}

	history := req.History
	var opts []rag.RespondOption
	if req.SessionID != "" {
		sess, err := sessions.Get(req.SessionID)
		if err != nil {
			return s.fail(c, err)
		}
		history = sess.History
		opts = append(opts, rag.WithSessionID(sess.ID))
	}

	reply, err := s.config.Loop.Respond(c.UserContext(), req.Message, history, opts...)
	if err != nil {
		return s.fail(c, err)
	}

	if req.SessionID != "" {
		err := sessions.Append(req.SessionID,
			llm.NewTurn(llm.RoleUser, req.Message),
			llm.NewTurn(llm.RoleAssistant, reply.Text),
		)
		if err != nil {
			s.logger.Warn("session expired during exchange",
				"session_id", req.SessionID,
				"error", err,
			)
		}
	}

	return c.JSON(ChatResponse{
		Response:  reply.Text,
		SessionID: req.SessionID,
		TraceID:   reply.TraceID,
		Context:   apisearch.Results(reply.Matches),
	})
}

// handleStartSession creates a session.
func (s *Server) handleStartSession(c *fiber.Ctx) error {
	if s.config.Sessions == nil {
		return unavailable(c, "sessions are not enabled")
	}
	sess := s.config.Sessions.Start()
	return c.Status(fiber.StatusCreated).JSON(SessionResponse{SessionID: sess.ID})
}

// handleGetSession returns a session's history.
func (s *Server) handleGetSession(c *fiber.Ctx) error {
	if s.config.Sessions == nil {
		return unavailable(c, "sessions are not enabled")
	}
	sess, err := s.config.Sessions.Get(c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(sess)
}

// handleEndSession closes a session.
func (s *Server) handleEndSession(c *fiber.Ctx) error {
	if s.config.Sessions == nil {
		return unavailable(c, "sessions are not enabled")
	}
	if err := s.config.Sessions.Close(c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
