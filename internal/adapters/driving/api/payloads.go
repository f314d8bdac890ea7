package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/bookchat/internal/core/domain"
)

type createBookRequest struct {
	Author      string  `json:"author" validate:"required,max=255"`
	Title       string  `json:"title" validate:"required,max=255"`
	Rating      float64 `json:"rating" validate:"gt=0,lt=5"`
	Description string  `json:"description" validate:"max=4000"`
	ContentURL  string  `json:"content_url" validate:"required,max=2048"`
}

type updateBookRequest struct {
	Author      *string  `json:"author" validate:"omitempty,min=1,max=255"`
	Title       *string  `json:"title" validate:"omitempty,min=1,max=255"`
	Rating      *float64 `json:"rating" validate:"omitempty,gt=0,lt=5"`
	Description *string  `json:"description" validate:"omitempty,max=4000"`
}

type createSessionRequest struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
}

type chatRequest struct {
	Question string `json:"question" validate:"required,max=4000"`
}

type bookResponse struct {
	ID          int64     `json:"id"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Rating      float64   `json:"rating"`
	Description string    `json:"description,omitempty"`
	ContentURL  string    `json:"content_url"`
	Slug        string    `json:"slug"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toBookResponse(b *domain.Book) bookResponse {
	return bookResponse{
		ID:          b.ID,
		Author:      b.Author,
		Title:       b.Title,
		Rating:      b.Rating,
		Description: b.Description,
		ContentURL:  b.ContentURL,
		Slug:        b.Slug,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

type sessionResponse struct {
	ID        int64     `json:"id"`
	BookID    int64     `json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

type messageResponse struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// bind decodes the JSON body into dst and validates it.
func (s *Server) bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fmt.Errorf("%w: malformed body: %w", domain.ErrInvalidInput, err)
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

// pathID parses a positive integer path parameter.
func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidInput, name)
	}
	return id, nil
}
