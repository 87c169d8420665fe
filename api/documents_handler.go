package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AddDocumentRequest is the body of POST /v1/documents.
type AddDocumentRequest struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// AddDocumentResponse lists the IDs of the stored chunks.
type AddDocumentResponse struct {
	IDs []string `json:"ids"`
}

// CountResponse reports the number of stored documents.
type CountResponse struct {
	Count int `json:"count"`
}

// handleAddDocument chunks, embeds, and stores text.
func (s *Server) handleAddDocument(c *fiber.Ctx) error {
	if s.config.Ingester == nil {
		return unavailable(c, "ingestion is not configured")
	}

	var req AddDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return badRequest(c, "text is required")
	}

	ids, err := s.config.Ingester.IngestText(c.UserContext(), req.Source, req.Text)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(AddDocumentResponse{IDs: ids})
}

// handleCountDocuments returns the index size.
func (s *Server) handleCountDocuments(c *fiber.Ctx) error {
	if s.config.Index == nil {
		return unavailable(c, "vector store is not configured")
	}
	n, err := s.config.Index.Size(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(CountResponse{Count: n})
}

// handleClearDocuments empties the index.
func (s *Server) handleClearDocuments(c *fiber.Ctx) error {
	if s.config.Index == nil {
		return unavailable(c, "vector store is not configured")
	}
	if err := s.config.Index.Clear(c.UserContext()); err != nil {
		return s.fail(c, err)
	}
	s.logger.Info("cleared vector store")
	return c.SendStatus(fiber.StatusNoContent)
}
