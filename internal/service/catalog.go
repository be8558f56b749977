package service

import (
	"context"
	"strings"

	"github.com/mkrishnan/libraryops/internal/domain"
	"github.com/mkrishnan/libraryops/internal/store"
)

// Catalog manages catalog entries. Availability is owned by the loan
// service; Catalog never flips it.
type Catalog struct {
	store store.Store
}

func NewCatalog(s store.Store) *Catalog {
	return &Catalog{store: s}
}

// AddItem registers a new book or movie. Title and author are mandatory
// after trimming; an empty kind defaults to book. New items start available.
func (c *Catalog) AddItem(ctx context.Context, kind domain.ItemKind, title, author string) (int64, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" {
		return 0, domain.Validationf("title is mandatory")
	}
	if author == "" {
		return 0, domain.Validationf("author is mandatory")
	}

	switch kind {
	case "":
		kind = domain.KindBook
	case domain.KindBook, domain.KindMovie:
	default:
		return 0, domain.Validationf("kind must be book or movie")
	}

	return c.store.CreateItem(ctx, &domain.Item{
		Kind:   kind,
		Title:  title,
		Author: author,
	})
}

// FindAvailable returns available items whose title contains the query,
// case-insensitively. No match is an empty slice, not an error.
func (c *Catalog) FindAvailable(ctx context.Context, title string) ([]domain.Item, error) {
	return c.store.SearchAvailableItems(ctx, strings.TrimSpace(title))
}
