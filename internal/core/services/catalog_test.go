package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bookchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driving"
)

func newCatalog(queueErr error) (*CatalogService, *recordingQueue, *memory.BookStore) {
	queue := &recordingQueue{err: queueErr}
	books := memory.NewBookStore()
	return NewCatalogService(books, NewJobDispatcher(queue)), queue, books
}

func mobyDick() domain.Book {
	return domain.Book{
		Author:     "Herman Melville",
		Title:      "Moby Dick",
		Rating:     4.2,
		ContentURL: "file:///books/moby.txt",
	}
}

func TestCatalog_CreateAssignsSlugAndQueues(t *testing.T) {
	catalog, queue, books := newCatalog(nil)
	ctx := context.Background()

	book, jobID, err := catalog.Create(ctx, mobyDick())
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)
	assert.Equal(t, domain.BookSlug("Moby Dick", book.ID), book.Slug)

	stored, err := books.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Slug, stored.Slug)

	jobs := queue.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobIngest, jobs[0].Kind)
	assert.Equal(t, book.Slug, jobs[0].Slug)
	assert.Equal(t, "file:///books/moby.txt", jobs[0].ContentURL)
}

func TestCatalog_CreateValidates(t *testing.T) {
	catalog, queue, _ := newCatalog(nil)
	bad := mobyDick()
	bad.Rating = 5

	_, _, err := catalog.Create(context.Background(), bad)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, queue.Jobs())
}

func TestCatalog_CreateKeepsBookWhenQueueDown(t *testing.T) {
	catalog, _, books := newCatalog(errors.New("redis down"))
	ctx := context.Background()

	book, jobID, err := catalog.Create(ctx, mobyDick())
	require.ErrorIs(t, err, domain.ErrQueueUnavailable)
	require.NotNil(t, book)
	assert.Empty(t, jobID)

	_, err = books.GetBook(ctx, book.ID)
	require.NoError(t, err)
}

func TestCatalog_UpdateKeepsSlug(t *testing.T) {
	catalog, _, _ := newCatalog(nil)
	ctx := context.Background()

	book, _, err := catalog.Create(ctx, mobyDick())
	require.NoError(t, err)

	title := "Moby-Dick; or, The Whale"
	rating := 4.8
	updated, err := catalog.Update(ctx, book.ID, driving.BookUpdate{Title: &title, Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, 4.8, updated.Rating)
	assert.Equal(t, book.Slug, updated.Slug)

	got, err := catalog.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Slug, got.Slug)

	_, err = catalog.Update(ctx, 999, driving.BookUpdate{Title: &title})
	require.ErrorIs(t, err, domain.ErrBookNotFound)
}

func TestCatalog_DeleteQueuesRemoval(t *testing.T) {
	catalog, queue, _ := newCatalog(nil)
	ctx := context.Background()

	book, _, err := catalog.Create(ctx, mobyDick())
	require.NoError(t, err)
	require.NoError(t, catalog.Delete(ctx, book.ID))

	_, err = catalog.Get(ctx, book.ID)
	require.ErrorIs(t, err, domain.ErrBookNotFound)

	jobs := queue.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, domain.JobRemove, jobs[1].Kind)
	assert.Equal(t, book.Slug, jobs[1].Slug)

	require.ErrorIs(t, catalog.Delete(ctx, book.ID), domain.ErrBookNotFound)
}

func TestCatalog_ListAndFind(t *testing.T) {
	catalog, _, _ := newCatalog(nil)
	ctx := context.Background()

	_, _, err := catalog.Create(ctx, mobyDick())
	require.NoError(t, err)
	other := mobyDick()
	other.Title = "Bartleby, the Scrivener"
	_, _, err = catalog.Create(ctx, other)
	require.NoError(t, err)

	all, err := catalog.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := catalog.FindByTitle(ctx, "moby")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Moby Dick", found[0].Title)

	_, err = catalog.FindByTitle(ctx, " ")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
