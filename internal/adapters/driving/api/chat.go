package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/logger"
)

type fragmentFrame struct {
	Data string `json:"data"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// chat streams the answer to a question as server-sent events:
//
//	data: {"data":"<fragment>"}    one per fragment, in order
//	data: [DONE]                   after the exchange is recorded
//	event: error                   on failure, with {"error":"..."}; no [DONE] follows
//
// Authorization is checked before the stream opens so denials keep their
// HTTP status.
func (s *Server) chat(c *fiber.Ctx) error {
	sessionID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req chatRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if err := s.authorize(c, sessionID); err != nil {
		return err
	}

	userID := principalOf(c).UserID
	chat := s.svc.Chat

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// The fiber context is recycled once the handler returns; the writer
	// only uses values captured above.
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		_, err := chat.Ask(ctx, userID, sessionID, question, func(fragment string) error {
			if err := writeFrame(w, "", fragmentFrame{Data: fragment}); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil {
			logger.Warn("chat on session %d: %v", sessionID, err)
			_ = writeFrame(w, "error", errorFrame{Error: publicMessage(err)})
			_ = w.Flush()
			return
		}
		_, _ = w.WriteString("data: [DONE]\n\n")
		_ = w.Flush()
	})
	return nil
}

// writeFrame writes one SSE frame with a JSON payload.
func writeFrame(w *bufio.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// publicMessage hides internal error detail from clients.
func publicMessage(err error) string {
	if statusFor(err) == fiber.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
