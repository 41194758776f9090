package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMalformedRowsAreSkipped(t *testing.T) {
	b := tempCSV(t)
	writeFile(t, b.Path(loansTable), "id,bookId,userId,loanDate,dueDate,returnDate\n"+
		"1,1,7,2024-03-01,2024-03-15,null\n"+
		"2,1,9,2024-03-02,2024-03-16\n"+
		"3,2,7,2024-03-03,2024-03-17,2024-03-10\n"+
		"4,x,7,2024-03-03,2024-03-17,null\n"+
		"5,2,7,03/03/2024,2024-03-17,null\n")
	books, err := NewBookStore(b)
	require.NoError(t, err)

	loans, err := NewLoanStore(b, books)
	require.NoError(t, err)

	got := loans.List()
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Nil(t, got[0].ReturnDate)
	assert.Equal(t, int64(3), got[1].ID)
	require.NotNil(t, got[1].ReturnDate)
	assert.Equal(t, NewDate(2024, 3, 10), *got[1].ReturnDate)

	_, found := loans.FindByID(2)
	assert.False(t, found)
}

func TestLoanRoundTrip(t *testing.T) {
	eachBackend(t, func(t *testing.T, backend Backend) {
		books, err := NewBookStore(backend)
		require.NoError(t, err)
		loans, err := NewLoanStore(backend, books)
		require.NoError(t, err)

		returned := NewDate(2024, 3, 9)
		want := []Loan{
			{ID: 1, BookID: 1, UserID: 7, LoanDate: NewDate(2024, 3, 1), DueDate: NewDate(2024, 3, 15)},
			{ID: 2, BookID: 2, UserID: 9, LoanDate: NewDate(2024, 3, 2), DueDate: NewDate(2024, 3, 16), ReturnDate: &returned},
			{ID: 3, BookID: 1, UserID: 9, LoanDate: NewDate(2024, 3, 3), DueDate: NewDate(2024, 3, 17)},
		}
		// Written through the codec directly: Add would apply the quantity rules.
		require.NoError(t, backend.Save(loans.records.snapshot(want)))

		reloaded, err := NewLoanStore(backend, books)
		require.NoError(t, err)
		assert.Equal(t, want, reloaded.List())
	})
}

func TestBookAndUserRoundTrip(t *testing.T) {
	eachBackend(t, func(t *testing.T, backend Backend) {
		books, err := NewBookStore(backend)
		require.NoError(t, err)
		users, err := NewUserStore(backend)
		require.NoError(t, err)

		_, err = books.Add(Book{ISBN: "111", Title: "Dune", Author: "Frank Herbert", PublicationYear: 1965, Genre: "SF", Quantity: 2})
		require.NoError(t, err)
		_, err = books.Add(Book{ISBN: "222", Title: "Emma, a novel", Author: "Jane Austen", Quantity: 0})
		require.NoError(t, err)
		_, err = users.Add(User{Name: "Ada", Email: "ada@example.com"})
		require.NoError(t, err)

		reloadedBooks, err := NewBookStore(backend)
		require.NoError(t, err)
		reloadedUsers, err := NewUserStore(backend)
		require.NoError(t, err)
		assert.Equal(t, books.List(), reloadedBooks.List())
		assert.Equal(t, users.List(), reloadedUsers.List())
	})
}

func TestIDsAreNotReusedAfterDelete(t *testing.T) {
	books, err := NewBookStore(tempCSV(t))
	require.NoError(t, err)

	first, err := books.Add(Book{Title: "A"})
	require.NoError(t, err)
	second, err := books.Add(Book{Title: "B"})
	require.NoError(t, err)
	require.NoError(t, books.Delete(second.ID))

	third, err := books.Add(Book{Title: "C"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(3), third.ID)
}

func TestCounterStartsAfterLoadedIDs(t *testing.T) {
	b := tempCSV(t)
	writeFile(t, b.Path(usersTable), "id,name,email\n4,Ada,ada@example.com\n2,Bob,bob@example.com\n")
	users, err := NewUserStore(b)
	require.NoError(t, err)

	u, err := users.Add(User{Name: "Cy", Email: "cy@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), u.ID)
}
