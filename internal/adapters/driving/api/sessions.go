package api

import (
	"github.com/gofiber/fiber/v2"
)

func (s *Server) createSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	session, err := s.svc.Sessions.CreateSession(c.UserContext(), principalOf(c).UserID, req.BookID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(sessionResponse{
		ID:        session.ID,
		BookID:    session.BookID,
		CreatedAt: session.CreatedAt,
	})
}

func (s *Server) listSessions(c *fiber.Ctx) error {
	sessions, err := s.svc.Sessions.ListSessions(c.UserContext(), principalOf(c).UserID)
	if err != nil {
		return err
	}
	out := make([]sessionResponse, len(sessions))
	for i, session := range sessions {
		out[i] = sessionResponse{ID: session.ID, BookID: session.BookID, CreatedAt: session.CreatedAt}
	}
	return c.JSON(out)
}

func (s *Server) listMessages(c *fiber.Ctx) error {
	sessionID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := s.authorize(c, sessionID); err != nil {
		return err
	}
	messages, err := s.svc.Sessions.ListMessages(c.UserContext(), sessionID)
	if err != nil {
		return err
	}
	out := make([]messageResponse, len(messages))
	for i, m := range messages {
		out[i] = messageResponse{ID: m.ID, Sender: string(m.Sender), Content: m.Content, CreatedAt: m.CreatedAt}
	}
	return c.JSON(out)
}

// authorize checks the caller may use sessionID.
func (s *Server) authorize(c *fiber.Ctx, sessionID int64) error {
	access, err := s.svc.Sessions.Authorize(c.UserContext(), principalOf(c).UserID, sessionID)
	if err != nil {
		return err
	}
	return access.Err()
}
