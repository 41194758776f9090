package handlers

import (
	"bufio"
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"library-ledger/library"
)

const (
	testUser     = "librarian"
	testPassword = "s3cret"
)

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	engine, _ := newEngineWithManager(t)
	return engine
}

func newEngineWithManager(t *testing.T) (*gin.Engine, *library.LibraryManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	clock := func() time.Time { return time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC) }
	mgr, err := library.OpenLibraryManager(library.BackendCSV, t.TempDir(), "",
		library.WithClock(clock), library.WithCredentials(testUser, hash))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return SetupRoutes(New(mgr)), mgr
}

func do(t *testing.T, engine http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, jsoniter.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.SetBasicAuth(testUser, testPassword)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRequiresBasicAuth(t *testing.T) {
	engine := newEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req = httptest.NewRequest(http.MethodGet, "/books", nil)
	req.SetBasicAuth(testUser, "wrong")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookEndpoints(t *testing.T) {
	engine := newEngine(t)

	rec := do(t, engine, http.MethodPost, "/books", library.Book{ISBN: "978-1", Title: "Dune", Author: "Frank Herbert", Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[library.Book](t, rec)
	assert.Equal(t, int64(1), created.ID)

	rec = do(t, engine, http.MethodPost, "/books", library.Book{Title: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, engine, http.MethodGet, "/books/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decode[library.Book](t, rec))

	rec = do(t, engine, http.MethodGet, "/books/search?q=herb", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]library.Book](t, rec), 1)

	created.Quantity = 4
	rec = do(t, engine, http.MethodPut, "/books/1", created)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, engine, http.MethodGet, "/books/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, engine, http.MethodDelete, "/books/9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, engine, http.MethodDelete, "/books/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, engine, http.MethodGet, "/books", nil)
	assert.Empty(t, decode[[]library.Book](t, rec))
}

func TestLoanEndpoints(t *testing.T) {
	engine := newEngine(t)
	require.Equal(t, http.StatusCreated, do(t, engine, http.MethodPost, "/books", library.Book{Title: "Dune", Quantity: 1}).Code)
	require.Equal(t, http.StatusCreated, do(t, engine, http.MethodPost, "/users", userRequest{Name: "Ada", Email: "ada@example.com"}).Code)

	rec := do(t, engine, http.MethodPost, "/users", userRequest{Name: "Ada", Email: "ada@example"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, engine, http.MethodPost, "/loans", loanRequest{BookID: 1, UserID: 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loan := decode[library.Loan](t, rec)
	assert.Equal(t, library.NewDate(2024, 3, 15), loan.DueDate)

	rec = do(t, engine, http.MethodPost, "/loans", loanRequest{BookID: 1, UserID: 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, engine, http.MethodGet, "/loans/active", nil)
	assert.Len(t, decode[[]library.Loan](t, rec), 1)

	rec = do(t, engine, http.MethodPost, "/loans/1/return", map[string]string{"return_date": "2024-03-10"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[library.ReturnResult](t, rec)
	assert.True(t, res.BookRestored)
	require.NotNil(t, res.Loan.ReturnDate)
	assert.Equal(t, library.NewDate(2024, 3, 10), *res.Loan.ReturnDate)

	rec = do(t, engine, http.MethodPost, "/loans/1/return", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[library.ReturnResult](t, rec).AlreadyReturned)

	rec = do(t, engine, http.MethodPost, "/loans/7/return", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, engine, http.MethodGet, "/loans/search?q=1", nil)
	assert.Len(t, decode[[]library.Loan](t, rec), 2)

	rec = do(t, engine, http.MethodGet, "/reports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[map[string][]library.CountEntry](t, rec)
	assert.Equal(t, []library.CountEntry{{Name: "Dune", Count: 1}}, report["most_borrowed_books"])
	assert.Equal(t, []library.CountEntry{{Name: "Ada", Count: 1}}, report["most_active_users"])
}

func TestEventsStream(t *testing.T) {
	engine := newEngine(t)
	srv := httptest.NewServer(engine)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	req.SetBasicAuth(testUser, testPassword)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rec := do(t, engine, http.MethodPost, "/books", library.Book{Title: "Dune", Quantity: 1})
	require.Equal(t, http.StatusCreated, rec.Code)

	lines := make(chan string, 64)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed before the event arrived")
			if strings.HasPrefix(line, "event:") {
				assert.Equal(t, string(library.EventBookAdded), strings.TrimSpace(strings.TrimPrefix(line, "event:")))
				return
			}
		case <-timeout:
			t.Fatal("no event received")
		}
	}
}

func TestOverdueLoans(t *testing.T) {
	engine, mgr := newEngineWithManager(t)
	require.Equal(t, http.StatusCreated, do(t, engine, http.MethodPost, "/books", library.Book{Title: "Dune", Quantity: 2}).Code)
	require.Equal(t, http.StatusCreated, do(t, engine, http.MethodPost, "/users", userRequest{Name: "Ada", Email: "ada@example.com"}).Code)
	require.Equal(t, http.StatusCreated, do(t, engine, http.MethodPost, "/loans", loanRequest{BookID: 1, UserID: 1}).Code)
	late, err := mgr.Loans().Add(library.Loan{BookID: 1, UserID: 1, LoanDate: library.NewDate(2024, 2, 1), DueDate: library.NewDate(2024, 2, 29)})
	require.NoError(t, err)

	rec := do(t, engine, http.MethodGet, "/loans/overdue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overdue := decode[[]library.Loan](t, rec)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)
}
