package library

import (
	"fmt"
	"strings"
)

// BookStore owns the book table. It is not safe for concurrent use.
type BookStore struct {
	backend Backend
	records *collection[Book]
	settings
}

// NewBookStore loads every book from backend. Malformed rows are logged and skipped.
func NewBookStore(backend Backend, opts ...Option) (*BookStore, error) {
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	records, err := loadCollection(backend, bookCodec, s.logger)
	if err != nil {
		return nil, err
	}
	return &BookStore{backend: backend, records: records, settings: s}, nil
}

// Add stores book, assigning the next id when book.ID is zero.
func (s *BookStore) Add(book Book) (Book, error) {
	book, staged := s.records.prepareAdd(book)
	if err := s.save(staged); err != nil {
		return Book{}, err
	}
	s.logger.Info(logMsgRecordAdded, logAttrTable, booksTable.Name, logAttrID, book.ID)
	s.publish(EventBookAdded, book.ID)
	return book, nil
}

// Update replaces the first book with the same id.
func (s *BookStore) Update(book Book) error {
	staged, ok := s.records.prepareReplace(book)
	if !ok {
		s.logger.Debug(logMsgRecordMissing, logAttrTable, booksTable.Name, logAttrID, book.ID)
		return fmt.Errorf("%w: %d", ErrBookNotFound, book.ID)
	}
	if err := s.save(staged); err != nil {
		return err
	}
	s.logger.Info(logMsgRecordUpdated, logAttrTable, booksTable.Name, logAttrID, book.ID)
	s.publish(EventBookUpdated, book.ID)
	return nil
}

// Delete removes every book with id.
func (s *BookStore) Delete(id int64) error {
	staged, ok := s.records.prepareRemove(id)
	if !ok {
		s.logger.Debug(logMsgRecordMissing, logAttrTable, booksTable.Name, logAttrID, id)
		return fmt.Errorf("%w: %d", ErrBookNotFound, id)
	}
	if err := s.save(staged); err != nil {
		return err
	}
	s.logger.Info(logMsgRecordDeleted, logAttrTable, booksTable.Name, logAttrID, id)
	s.publish(EventBookDeleted, id)
	return nil
}

// List returns a copy of all books in insertion order.
func (s *BookStore) List() []Book { return s.records.list() }

func (s *BookStore) FindByID(id int64) (Book, bool) { return s.records.findByID(id) }

// FindByISBN matches the whole ISBN, ignoring case.
func (s *BookStore) FindByISBN(isbn string) (Book, bool) {
	return s.records.find(func(b Book) bool { return strings.EqualFold(b.ISBN, isbn) })
}

func (s *BookStore) SearchByTitle(substr string) []Book {
	return s.records.filter(func(b Book) bool { return containsFold(b.Title, substr) })
}

func (s *BookStore) SearchByAuthor(substr string) []Book {
	return s.records.filter(func(b Book) bool { return containsFold(b.Author, substr) })
}

// Search returns title matches, then author matches, then the ISBN match if it
// is not already in the result. A book matching both title and author is
// listed twice. An empty query lists every book.
func (s *BookStore) Search(query string) []Book {
	if strings.TrimSpace(query) == "" {
		return s.List()
	}
	results := append(s.SearchByTitle(query), s.SearchByAuthor(query)...)
	if hit, ok := s.FindByISBN(query); ok {
		for _, b := range results {
			if b.ID == hit.ID {
				return results
			}
		}
		results = append(results, hit)
	}
	return results
}

func (s *BookStore) save(staged []Book) error {
	if err := s.backend.Save(s.records.snapshot(staged)); err != nil {
		s.logger.Error(logMsgPersistFailed, logAttrTable, booksTable.Name, logAttrError, err.Error())
		return fmt.Errorf("save %s: %w: %w", booksTable.Name, ErrPersistence, err)
	}
	s.records.commit(staged)
	return nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
