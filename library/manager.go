package library

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// LibraryManager is a thin façade over the three stores, keeping CLI and HTTP
// code simple. Like the stores it is not safe for concurrent use.
type LibraryManager struct {
	backend Backend
	books   *BookStore
	users   *UserStore
	loans   *LoanStore
	settings
}

// NewLibraryManager loads every store from backend. The manager owns backend
// from here on and closes it in Close.
func NewLibraryManager(backend Backend, opts ...Option) (*LibraryManager, error) {
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	if s.notifier == nil {
		if s.notifier, err = NewNotifier(WithLogger(s.logger), WithClock(s.now)); err != nil {
			return nil, err
		}
		opts = append(opts[:len(opts):len(opts)], WithNotifier(s.notifier))
	}
	if len(s.passwordHash) == 0 {
		if s.username, s.passwordHash, err = defaultCredentials(); err != nil {
			return nil, err
		}
	}

	books, err := NewBookStore(backend, opts...)
	if err != nil {
		return nil, err
	}
	users, err := NewUserStore(backend, opts...)
	if err != nil {
		return nil, err
	}
	loans, err := NewLoanStore(backend, books, opts...)
	if err != nil {
		return nil, err
	}

	return &LibraryManager{
		backend:  backend,
		books:    books,
		users:    users,
		loans:    loans,
		settings: s,
	}, nil
}

// OpenLibraryManager opens the backend called kind (see OpenBackend) and loads the stores from it.
func OpenLibraryManager(kind, dataDir, dbPath string, opts ...Option) (*LibraryManager, error) {
	backend, err := OpenBackend(kind, dataDir, dbPath, opts...)
	if err != nil {
		return nil, err
	}
	lm, err := NewLibraryManager(backend, opts...)
	if err != nil {
		return nil, errors.Join(err, backend.Close())
	}
	return lm, nil
}

// Close closes the underlying backend.
func (lm *LibraryManager) Close() error { return lm.backend.Close() }

// Events returns the hub every store publishes to.
func (lm *LibraryManager) Events() *Notifier { return lm.notifier }

func (lm *LibraryManager) Books() *BookStore { return lm.books }
func (lm *LibraryManager) Users() *UserStore { return lm.users }
func (lm *LibraryManager) Loans() *LoanStore { return lm.loans }

// ------------------ Book helpers ------------------

func (lm *LibraryManager) AddBook(b Book) (Book, error) {
	b = normalizeBook(b)
	if err := lm.validate(validateBook(b)); err != nil {
		return Book{}, err
	}
	b.ID = 0
	return lm.books.Add(b)
}

func (lm *LibraryManager) UpdateBook(b Book) error {
	b = normalizeBook(b)
	if err := lm.validate(validateBook(b)); err != nil {
		return err
	}
	return lm.books.Update(b)
}

func (lm *LibraryManager) DeleteBook(id int64) error { return lm.books.Delete(id) }

func (lm *LibraryManager) GetBook(id int64) (Book, error) {
	b, ok := lm.books.FindByID(id)
	if !ok {
		return Book{}, fmt.Errorf("%w: %d", ErrBookNotFound, id)
	}
	return b, nil
}

func (lm *LibraryManager) GetAllBooks() []Book { return lm.books.List() }

// SearchBooks looks the query up in titles, authors and ISBNs.
func (lm *LibraryManager) SearchBooks(q string) []Book { return lm.books.Search(strings.TrimSpace(q)) }

// ------------------ User helpers ------------------

// RegisterUser adds a borrower after checking the name, the email format and
// that no other user has the same email.
func (lm *LibraryManager) RegisterUser(name, email string) (User, error) {
	u := User{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}
	if err := lm.validate(validateUser(u)); err != nil {
		return User{}, err
	}
	if err := lm.validate(lm.checkEmailFree(u)); err != nil {
		return User{}, err
	}
	return lm.users.Add(u)
}

func (lm *LibraryManager) UpdateUser(u User) error {
	u.Name, u.Email = strings.TrimSpace(u.Name), strings.TrimSpace(u.Email)
	if err := lm.validate(validateUser(u)); err != nil {
		return err
	}
	if err := lm.validate(lm.checkEmailFree(u)); err != nil {
		return err
	}
	return lm.users.Update(u)
}

func (lm *LibraryManager) DeleteUser(id int64) error { return lm.users.Delete(id) }

func (lm *LibraryManager) GetUser(id int64) (User, error) {
	u, ok := lm.users.FindByID(id)
	if !ok {
		return User{}, fmt.Errorf("%w: %d", ErrUserNotFound, id)
	}
	return u, nil
}

func (lm *LibraryManager) GetAllUsers() []User { return lm.users.List() }

func (lm *LibraryManager) SearchUsers(q string) []User { return lm.users.Search(strings.TrimSpace(q)) }

func (lm *LibraryManager) checkEmailFree(u User) error {
	if other, ok := lm.users.FindByEmail(u.Email); ok && other.ID != u.ID {
		return fmt.Errorf("%w: email %s is already used by user %d", ErrInvalidInput, u.Email, other.ID)
	}
	return nil
}

// ------------------ Circulation ------------------

// CheckoutBook lends a copy of bookID to userID, dated today and due after the loan period.
func (lm *LibraryManager) CheckoutBook(bookID, userID int64) (Loan, error) {
	if _, ok := lm.users.FindByID(userID); !ok {
		lm.logger.Warn(logMsgLoanRejected, logAttrBookID, bookID, logAttrUserID, userID, logAttrError, ErrUserNotFound.Error())
		return Loan{}, fmt.Errorf("%w: %d", ErrUserNotFound, userID)
	}
	return lm.loans.Add(Loan{BookID: bookID, UserID: userID})
}

// ReturnLoan records the return of loanID on date, or today when date is zero.
func (lm *LibraryManager) ReturnLoan(loanID int64, date Date) (ReturnResult, error) {
	return lm.loans.RecordReturn(loanID, date)
}

func (lm *LibraryManager) UpdateLoan(l Loan) error { return lm.loans.Update(l) }
func (lm *LibraryManager) DeleteLoan(id int64) error { return lm.loans.Delete(id) }

func (lm *LibraryManager) GetLoan(id int64) (Loan, error) {
	l, ok := lm.loans.FindByID(id)
	if !ok {
		return Loan{}, fmt.Errorf("%w: %d", ErrLoanNotFound, id)
	}
	return l, nil
}

func (lm *LibraryManager) GetAllLoans() []Loan { return lm.loans.List() }
func (lm *LibraryManager) ActiveLoans() []Loan { return lm.loans.Active() }

// OverdueLoans lists active loans that were due before today.
func (lm *LibraryManager) OverdueLoans() []Loan { return lm.loans.Overdue(lm.today()) }

// Today is the current day according to the configured clock.
func (lm *LibraryManager) Today() Date { return lm.today() }

// SearchLoans treats a numeric query as an id: loans of that user come first,
// then loans of that book. Any other query lists every loan.
func (lm *LibraryManager) SearchLoans(q string) []Loan {
	id, err := strconv.ParseInt(strings.TrimSpace(q), 10, 64)
	if err != nil {
		return lm.loans.List()
	}
	return append(lm.loans.SearchByUser(id), lm.loans.SearchByBook(id)...)
}

// ------------------ Utilities ------------------

// Truncate shortens s to at most maxLength characters, ending in "..." when
// it had to cut. It never splits a multi-byte character.
func Truncate(s string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	runes := []rune(s)
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}

// PrettyBook formats a book for lists.
func PrettyBook(b Book) string {
	return fmt.Sprintf("%-5d %-15s %-30s %-25s %-6d %-15s %-4d", b.ID, b.ISBN, b.Title, b.Author, b.PublicationYear, b.Genre, b.Quantity)
}

// PrettyLoan formats a loan for lists.
func PrettyLoan(l Loan) string {
	returned := "-"
	if l.ReturnDate != nil {
		returned = l.ReturnDate.String()
	}
	return fmt.Sprintf("%-5d %-7d %-7d %-12s %-12s %-12s", l.ID, l.BookID, l.UserID, l.LoanDate, l.DueDate, returned)
}

func (lm *LibraryManager) validate(err error) error {
	if err != nil {
		lm.logger.Warn(logMsgValidationFailed, logAttrError, err.Error())
	}
	return err
}
