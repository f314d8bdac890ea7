package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driving"
	"github.com/custodia-labs/bookchat/internal/logger"
)

func (s *Server) listBooks(c *fiber.Ctx) error {
	var (
		books []domain.Book
		err   error
	)
	if title := c.Query("title"); title != "" {
		books, err = s.svc.Books.FindByTitle(c.UserContext(), title)
	} else {
		books, err = s.svc.Books.List(c.UserContext())
	}
	if err != nil {
		return err
	}
	out := make([]bookResponse, len(books))
	for i := range books {
		out[i] = toBookResponse(&books[i])
	}
	return c.JSON(out)
}

func (s *Server) getBook(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	book, err := s.svc.Books.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(toBookResponse(book))
}

func (s *Server) createBook(c *fiber.Ctx) error {
	var req createBookRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	book, jobID, err := s.svc.Books.Create(c.UserContext(), domain.Book{
		Author:      req.Author,
		Title:       req.Title,
		Rating:      req.Rating,
		Description: req.Description,
		ContentURL:  req.ContentURL,
	})
	if err != nil && book != nil && errors.Is(err, domain.ErrQueueUnavailable) {
		// The record exists; tell the client so it can retry ingestion later.
		logger.Warn("Book %d created without an ingestion job: %v", book.ID, err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
			"book":  toBookResponse(book),
		})
	}
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"book":   toBookResponse(book),
		"job_id": jobID,
	})
}

func (s *Server) updateBook(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateBookRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	book, err := s.svc.Books.Update(c.UserContext(), id, driving.BookUpdate{
		Author:      req.Author,
		Title:       req.Title,
		Rating:      req.Rating,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(toBookResponse(book))
}

func (s *Server) deleteBook(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := s.svc.Books.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) jobStatus(c *fiber.Ctx) error {
	status, err := s.svc.Jobs.Status(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(status)
}
