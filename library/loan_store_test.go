package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type circulation struct {
	books *BookStore
	loans *LoanStore
}

func newCirculation(t *testing.T, backend Backend, opts ...Option) circulation {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	books, err := NewBookStore(backend, opts...)
	require.NoError(t, err)
	loans, err := NewLoanStore(backend, books, opts...)
	require.NoError(t, err)
	return circulation{books: books, loans: loans}
}

func (c circulation) quantity(t *testing.T, bookID int64) int {
	t.Helper()
	b, ok := c.books.FindByID(bookID)
	require.True(t, ok)
	return b.Quantity
}

func TestLoanLifecycle(t *testing.T) {
	eachBackend(t, func(t *testing.T, backend Backend) {
		c := newCirculation(t, backend)
		dune, err := c.books.Add(Book{ISBN: "978-0441013593", Title: "Dune", Author: "Frank Herbert", Quantity: 1})
		require.NoError(t, err)

		loan, err := c.loans.Add(Loan{BookID: dune.ID, UserID: 7})
		require.NoError(t, err)
		assert.Equal(t, int64(1), loan.ID)
		assert.Equal(t, NewDate(2024, 3, 1), loan.LoanDate)
		assert.Equal(t, NewDate(2024, 3, 15), loan.DueDate)
		assert.Nil(t, loan.ReturnDate)
		assert.Equal(t, 0, c.quantity(t, dune.ID))

		_, err = c.loans.Add(Loan{BookID: dune.ID, UserID: 8})
		require.ErrorIs(t, err, ErrInsufficientQuantity)
		assert.Equal(t, 0, c.quantity(t, dune.ID))
		assert.Len(t, c.loans.List(), 1)

		returnedOn := NewDate(2024, 3, 10)
		res, err := c.loans.RecordReturn(loan.ID, returnedOn)
		require.NoError(t, err)
		assert.False(t, res.AlreadyReturned)
		assert.True(t, res.BookRestored)
		require.NotNil(t, res.Loan.ReturnDate)
		assert.Equal(t, returnedOn, *res.Loan.ReturnDate)
		assert.Equal(t, 1, c.quantity(t, dune.ID))
		assert.Empty(t, c.loans.Active())

		res, err = c.loans.RecordReturn(loan.ID, NewDate(2024, 4, 1))
		require.NoError(t, err)
		assert.True(t, res.AlreadyReturned)
		assert.Equal(t, returnedOn, *res.Loan.ReturnDate)
		assert.Equal(t, 1, c.quantity(t, dune.ID))

		reloaded := newCirculation(t, backend)
		assert.Equal(t, c.books.List(), reloaded.books.List())
		assert.Equal(t, c.loans.List(), reloaded.loans.List())
	})
}

func TestLoanAddUnknownBook(t *testing.T) {
	c := newCirculation(t, tempCSV(t))
	_, err := c.loans.Add(Loan{BookID: 404, UserID: 1})
	require.ErrorIs(t, err, ErrBookNotFound)
	assert.Empty(t, c.loans.List())
}

func TestLoanAddForcesActiveState(t *testing.T) {
	c := newCirculation(t, tempCSV(t), WithLoanPeriod(7))
	book, err := c.books.Add(Book{Title: "Emma", Quantity: 2})
	require.NoError(t, err)

	returned := NewDate(2024, 1, 1)
	loan, err := c.loans.Add(Loan{ID: 50, BookID: book.ID, UserID: 1, LoanDate: NewDate(2024, 2, 1), ReturnDate: &returned})
	require.NoError(t, err)
	assert.Nil(t, loan.ReturnDate)
	assert.Equal(t, NewDate(2024, 2, 8), loan.DueDate)
	assert.Equal(t, int64(50), loan.ID)
	assert.Len(t, c.loans.Active(), 1)
}

func TestLoanDeleteDoesNotRestoreQuantity(t *testing.T) {
	c := newCirculation(t, tempCSV(t))
	book, err := c.books.Add(Book{Title: "Dune", Quantity: 1})
	require.NoError(t, err)
	loan, err := c.loans.Add(Loan{BookID: book.ID, UserID: 1})
	require.NoError(t, err)

	require.NoError(t, c.loans.Delete(loan.ID))
	assert.Equal(t, 0, c.quantity(t, book.ID))
	require.ErrorIs(t, c.loans.Delete(loan.ID), ErrLoanNotFound)
}

func TestLoanUpdateDoesNotAdjustQuantity(t *testing.T) {
	c := newCirculation(t, tempCSV(t))
	book, err := c.books.Add(Book{Title: "Dune", Quantity: 1})
	require.NoError(t, err)
	loan, err := c.loans.Add(Loan{BookID: book.ID, UserID: 1})
	require.NoError(t, err)

	loan.DueDate = NewDate(2024, 6, 1)
	require.NoError(t, c.loans.Update(loan))
	got, ok := c.loans.FindByID(loan.ID)
	require.True(t, ok)
	assert.Equal(t, NewDate(2024, 6, 1), got.DueDate)
	assert.Equal(t, 0, c.quantity(t, book.ID))

	require.ErrorIs(t, c.loans.Update(Loan{ID: 99}), ErrLoanNotFound)
}

func TestLoanReturnAfterBookDeleted(t *testing.T) {
	c := newCirculation(t, tempCSV(t))
	book, err := c.books.Add(Book{Title: "Dune", Quantity: 1})
	require.NoError(t, err)
	loan, err := c.loans.Add(Loan{BookID: book.ID, UserID: 1})
	require.NoError(t, err)
	require.NoError(t, c.books.Delete(book.ID))

	res, err := c.loans.RecordReturn(loan.ID, Date{})
	require.NoError(t, err)
	assert.False(t, res.BookRestored)
	require.NotNil(t, res.Loan.ReturnDate)
	assert.Equal(t, NewDate(2024, 3, 1), *res.Loan.ReturnDate)
	assert.Empty(t, c.books.List())
}

func TestLoanReturnUnknown(t *testing.T) {
	c := newCirculation(t, tempCSV(t))
	_, err := c.loans.RecordReturn(3, Date{})
	require.ErrorIs(t, err, ErrLoanNotFound)
}

func TestLoanSearches(t *testing.T) {
	c := newCirculation(t, tempCSV(t))
	a, err := c.books.Add(Book{Title: "A", Quantity: 5})
	require.NoError(t, err)
	b, err := c.books.Add(Book{Title: "B", Quantity: 5})
	require.NoError(t, err)
	for _, l := range []Loan{{BookID: a.ID, UserID: 1}, {BookID: b.ID, UserID: 1}, {BookID: a.ID, UserID: 2}} {
		_, err := c.loans.Add(l)
		require.NoError(t, err)
	}

	assert.Len(t, c.loans.SearchByUser(1), 2)
	assert.Len(t, c.loans.SearchByBook(a.ID), 2)
	assert.Empty(t, c.loans.SearchByUser(3))
	assert.Equal(t, 3, c.quantity(t, a.ID))
}

func TestLoanPersistenceFailureLeavesStateUnchanged(t *testing.T) {
	backend := &failingBackend{Backend: tempCSV(t)}
	c := newCirculation(t, backend)
	book, err := c.books.Add(Book{Title: "Dune", Quantity: 1})
	require.NoError(t, err)

	backend.fail = true
	_, err = c.loans.Add(Loan{BookID: book.ID, UserID: 1})
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 1, c.quantity(t, book.ID))
	assert.Empty(t, c.loans.List())

	backend.fail = false
	loan, err := c.loans.Add(Loan{BookID: book.ID, UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), loan.ID, "a failed add does not consume an id")

	backend.fail = true
	_, err = c.loans.RecordReturn(loan.ID, Date{})
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 0, c.quantity(t, book.ID))
	assert.Len(t, c.loans.Active(), 1)

	reloaded := newCirculation(t, backend.Backend)
	assert.Equal(t, c.books.List(), reloaded.books.List())
	assert.Equal(t, c.loans.List(), reloaded.loans.List())
}

func TestLoanOverdue(t *testing.T) {
	c := newCirculation(t, tempCSV(t))
	book, err := c.books.Add(Book{Title: "Dune", Quantity: 5})
	require.NoError(t, err)

	today := DateOf(testNow)
	yesterday := today.AddDays(-1)
	add := func(due Date) Loan {
		t.Helper()
		l, err := c.loans.Add(Loan{BookID: book.ID, UserID: 1, LoanDate: due.AddDays(-14), DueDate: due})
		require.NoError(t, err)
		return l
	}
	late := add(yesterday)
	dueToday := add(today)
	lateButBack := add(yesterday)
	_, err = c.loans.RecordReturn(lateButBack.ID, today)
	require.NoError(t, err)

	assert.True(t, late.Overdue(today))
	assert.False(t, dueToday.Overdue(today))

	overdue := c.loans.Overdue(today)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)
	assert.Len(t, c.loans.Active(), 2)
}

func TestLoanCopiesDoNotShareReturnDate(t *testing.T) {
	c := newCirculation(t, tempCSV(t))
	book, err := c.books.Add(Book{Title: "Dune", Quantity: 1})
	require.NoError(t, err)
	loan, err := c.loans.Add(Loan{BookID: book.ID, UserID: 1})
	require.NoError(t, err)
	res, err := c.loans.RecordReturn(loan.ID, NewDate(2024, 3, 10))
	require.NoError(t, err)

	*res.Loan.ReturnDate = NewDate(1999, 1, 1)
	listed := c.loans.List()
	*listed[0].ReturnDate = NewDate(1999, 1, 2)
	found, ok := c.loans.FindByID(loan.ID)
	require.True(t, ok)
	*found.ReturnDate = NewDate(1999, 1, 3)

	got, ok := c.loans.FindByID(loan.ID)
	require.True(t, ok)
	assert.Equal(t, NewDate(2024, 3, 10), *got.ReturnDate)

	mine := NewDate(2024, 4, 1)
	got.ReturnDate = &mine
	require.NoError(t, c.loans.Update(got))
	mine = NewDate(1999, 1, 4)
	got, _ = c.loans.FindByID(loan.ID)
	assert.Equal(t, NewDate(2024, 4, 1), *got.ReturnDate)
}
