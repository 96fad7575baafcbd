package importer

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/openshelf/shelfsync/internal/entities"
)

const shelfCacheSize = 256

// shelfResolver translates remote shelf names into local shelf rows through
// a per-run LRU cache, so a page full of books on the same shelves costs one
// database lookup per shelf instead of one per book.
type shelfResolver struct {
	books BookRepository
	cache *lru.Cache[string, entities.Shelf]
}

func newShelfResolver(books BookRepository) *shelfResolver {
	cache, _ := lru.New[string, entities.Shelf](shelfCacheSize)
	return &shelfResolver{books: books, cache: cache}
}

// reset clears the cache and warms it from the known local shelves.
func (s *shelfResolver) reset() {
	s.cache.Purge()
	shelves, err := s.books.ListShelves()
	if err != nil {
		return
	}
	for _, shelf := range shelves {
		s.cache.Add(shelf.Name, shelf)
	}
}

// resolve maps remote shelf names to local shelf rows, creating shelves the
// catalogue has not seen before. Unknown names pass through under their
// canonical form.
func (s *shelfResolver) resolve(names []string) ([]entities.Shelf, error) {
	shelves := make([]entities.Shelf, 0, len(names))
	for _, name := range names {
		canonical := canonicalShelfName(name)
		if canonical == "" {
			continue
		}
		if shelf, ok := s.cache.Get(canonical); ok {
			shelves = append(shelves, shelf)
			continue
		}
		shelf, err := s.books.EnsureShelf(canonical)
		if err != nil {
			return nil, err
		}
		s.cache.Add(canonical, *shelf)
		shelves = append(shelves, *shelf)
	}
	return shelves, nil
}

// canonicalShelfName lowercases a shelf name and collapses whitespace runs
// into single hyphens: "Science Fiction" -> "science-fiction".
func canonicalShelfName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, "-")
}
