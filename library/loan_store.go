package library

import (
	"fmt"
)

// LoanStore owns the loan table and keeps book quantities in step with loan
// state. It must share its Backend with the BookStore it is given, because
// loan and quantity changes are saved together in one Backend.Save call.
type LoanStore struct {
	backend Backend
	books   *BookStore
	records *collection[Loan]
	settings
}

func NewLoanStore(backend Backend, books *BookStore, opts ...Option) (*LoanStore, error) {
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	records, err := loadCollection(backend, loanCodec, s.logger)
	if err != nil {
		return nil, err
	}
	return &LoanStore{backend: backend, books: books, records: records, settings: s}, nil
}

// Add lends one copy of loan.BookID. It fails with ErrBookNotFound or
// ErrInsufficientQuantity without touching either table. Zero dates default
// to today and today plus the loan period; the loan always starts active.
func (s *LoanStore) Add(loan Loan) (Loan, error) {
	book, ok := s.books.FindByID(loan.BookID)
	if !ok {
		s.logger.Warn(logMsgLoanRejected, logAttrBookID, loan.BookID, logAttrError, ErrBookNotFound.Error())
		return Loan{}, fmt.Errorf("%w: %d", ErrBookNotFound, loan.BookID)
	}
	if book.Quantity <= 0 {
		s.logger.Warn(logMsgLoanRejected, logAttrBookID, book.ID, logAttrQuantity, book.Quantity, logAttrError, ErrInsufficientQuantity.Error())
		return Loan{}, fmt.Errorf("%w: book %d", ErrInsufficientQuantity, book.ID)
	}

	if loan.LoanDate.IsZero() {
		loan.LoanDate = s.today()
	}
	if loan.DueDate.IsZero() {
		loan.DueDate = loan.LoanDate.AddDays(s.loanPeriodDays)
	}
	loan.ReturnDate = nil

	book.Quantity--
	stagedBooks, _ := s.books.records.prepareReplace(book)
	loan, stagedLoans := s.records.prepareAdd(loan)

	if err := s.saveWithBooks(stagedLoans, stagedBooks); err != nil {
		return Loan{}, err
	}
	s.logger.Info(logMsgRecordAdded, logAttrTable, loansTable.Name, logAttrID, loan.ID,
		logAttrBookID, loan.BookID, logAttrUserID, loan.UserID, logAttrQuantity, book.Quantity)
	s.publish(EventBookUpdated, book.ID)
	s.publish(EventLoanAdded, loan.ID)
	return loan, nil
}

// Update replaces the loan with the same id. Book quantities are not adjusted.
func (s *LoanStore) Update(loan Loan) error {
	staged, ok := s.records.prepareReplace(loan)
	if !ok {
		s.logger.Debug(logMsgRecordMissing, logAttrTable, loansTable.Name, logAttrID, loan.ID)
		return fmt.Errorf("%w: %d", ErrLoanNotFound, loan.ID)
	}
	if err := s.saveWithBooks(staged, nil); err != nil {
		return err
	}
	s.logger.Info(logMsgRecordUpdated, logAttrTable, loansTable.Name, logAttrID, loan.ID)
	s.publish(EventLoanUpdated, loan.ID)
	return nil
}

// Delete removes the loan. Deleting an active loan does not give the copy back;
// only RecordReturn does.
func (s *LoanStore) Delete(id int64) error {
	staged, ok := s.records.prepareRemove(id)
	if !ok {
		s.logger.Debug(logMsgRecordMissing, logAttrTable, loansTable.Name, logAttrID, id)
		return fmt.Errorf("%w: %d", ErrLoanNotFound, id)
	}
	if err := s.saveWithBooks(staged, nil); err != nil {
		return err
	}
	s.logger.Info(logMsgRecordDeleted, logAttrTable, loansTable.Name, logAttrID, id)
	s.publish(EventLoanDeleted, id)
	return nil
}

func (s *LoanStore) List() []Loan { return s.records.list() }

func (s *LoanStore) FindByID(id int64) (Loan, bool) { return s.records.findByID(id) }

func (s *LoanStore) SearchByUser(userID int64) []Loan {
	return s.records.filter(func(l Loan) bool { return l.UserID == userID })
}

func (s *LoanStore) SearchByBook(bookID int64) []Loan {
	return s.records.filter(func(l Loan) bool { return l.BookID == bookID })
}

// Active lists the loans that have not been returned.
func (s *LoanStore) Active() []Loan {
	return s.records.filter(func(l Loan) bool { return !l.Returned() })
}

// Overdue lists active loans whose due date is before today.
func (s *LoanStore) Overdue(today Date) []Loan {
	return s.records.filter(func(l Loan) bool { return l.Overdue(today) })
}

// RecordReturn closes loan id on date (today when zero) and gives the copy
// back to its book. A loan that is already returned is left alone and the
// result says so. If the book was deleted meanwhile only the loan changes.
func (s *LoanStore) RecordReturn(id int64, date Date) (ReturnResult, error) {
	loan, ok := s.records.findByID(id)
	if !ok {
		s.logger.Warn(logMsgRecordMissing, logAttrTable, loansTable.Name, logAttrID, id)
		return ReturnResult{}, fmt.Errorf("%w: %d", ErrLoanNotFound, id)
	}
	if loan.Returned() {
		s.logger.Info(logMsgAlreadyReturned, logAttrID, id)
		return ReturnResult{Loan: loan, AlreadyReturned: true}, nil
	}

	if date.IsZero() {
		date = s.today()
	}
	loan.ReturnDate = &date
	stagedLoans, _ := s.records.prepareReplace(loan)

	var stagedBooks []Book
	book, found := s.books.FindByID(loan.BookID)
	if found {
		book.Quantity++
		stagedBooks, _ = s.books.records.prepareReplace(book)
	} else {
		s.logger.Warn(logMsgBookGone, logAttrID, id, logAttrBookID, loan.BookID)
	}

	if err := s.saveWithBooks(stagedLoans, stagedBooks); err != nil {
		return ReturnResult{}, err
	}
	s.logger.Info(logMsgLoanReturned, logAttrID, id, logAttrBookID, loan.BookID)
	if found {
		s.publish(EventBookUpdated, book.ID)
	}
	s.publish(EventLoanReturned, id)
	return ReturnResult{Loan: loan, BookRestored: found}, nil
}

// saveWithBooks persists loans, and books when non-nil, in one Save call and
// commits both in memory only after it succeeded.
func (s *LoanStore) saveWithBooks(loans []Loan, books []Book) error {
	snapshots := []Snapshot{s.records.snapshot(loans)}
	if books != nil {
		snapshots = append([]Snapshot{s.books.records.snapshot(books)}, snapshots...)
	}
	if err := s.backend.Save(snapshots...); err != nil {
		s.logger.Error(logMsgPersistFailed, logAttrTable, loansTable.Name, logAttrError, err.Error())
		return fmt.Errorf("save %s: %w: %w", loansTable.Name, ErrPersistence, err)
	}
	if books != nil {
		s.books.records.commit(books)
	}
	s.records.commit(loans)
	return nil
}
