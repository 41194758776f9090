package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"library-ledger/library"
)

const eventBuffer = 32

// Handlers serves the library over HTTP. Requests reach the manager one at a time.
type Handlers struct {
	mu  sync.Mutex
	mgr *library.LibraryManager
}

func New(mgr *library.LibraryManager) *Handlers {
	return &Handlers{mgr: mgr}
}

type loanRequest struct {
	BookID int64 `json:"book_id" binding:"required"`
	UserID int64 `json:"user_id" binding:"required"`
}

type returnRequest struct {
	ReturnDate library.Date `json:"return_date"`
}

type userRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// BasicAuth rejects requests whose credentials do not match the configured operator.
func (h *Handlers) BasicAuth(c *gin.Context) {
	username, password, ok := c.Request.BasicAuth()
	if !ok || h.mgr.Authenticate(username, password) != nil {
		c.Header("WWW-Authenticate", `Basic realm="library"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": library.ErrInvalidCredentials.Error()})
		return
	}
	c.Next()
}

// ------------------ Books ------------------

func (h *Handlers) ListBooks(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.JSON(http.StatusOK, h.mgr.GetAllBooks())
}

func (h *Handlers) SearchBooks(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.JSON(http.StatusOK, h.mgr.SearchBooks(c.Query("q")))
}

func (h *Handlers) GetBook(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	book, err := h.mgr.GetBook(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *Handlers) CreateBook(c *gin.Context) {
	var book library.Book
	if err := c.ShouldBindJSON(&book); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	created, err := h.mgr.AddBook(book)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handlers) UpdateBook(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var book library.Book
	if err := c.ShouldBindJSON(&book); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	book.ID = id
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.mgr.UpdateBook(book); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *Handlers) DeleteBook(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.mgr.DeleteBook(id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}

// ------------------ Users ------------------

func (h *Handlers) ListUsers(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.JSON(http.StatusOK, h.mgr.GetAllUsers())
}

func (h *Handlers) SearchUsers(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.JSON(http.StatusOK, h.mgr.SearchUsers(c.Query("q")))
}

func (h *Handlers) CreateUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	user, err := h.mgr.RegisterUser(req.Name, req.Email)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handlers) UpdateUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	user := library.User{ID: id, Name: req.Name, Email: req.Email}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.mgr.UpdateUser(user); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handlers) DeleteUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.mgr.DeleteUser(id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}

// ------------------ Loans ------------------

func (h *Handlers) ListLoans(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.JSON(http.StatusOK, h.mgr.GetAllLoans())
}

func (h *Handlers) ActiveLoans(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.JSON(http.StatusOK, h.mgr.ActiveLoans())
}

func (h *Handlers) OverdueLoans(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.JSON(http.StatusOK, h.mgr.OverdueLoans())
}

func (h *Handlers) SearchLoans(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.JSON(http.StatusOK, h.mgr.SearchLoans(c.Query("q")))
}

func (h *Handlers) CreateLoan(c *gin.Context) {
	var req loanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	loan, err := h.mgr.CheckoutBook(req.BookID, req.UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

// ReturnLoan records a return. The body is optional; without a return_date today is used.
func (h *Handlers) ReturnLoan(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	res, err := h.mgr.ReturnLoan(id, req.ReturnDate)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) DeleteLoan(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.mgr.DeleteLoan(id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}

// ------------------ Reports & events ------------------

func (h *Handlers) Reports(c *gin.Context) {
	topBooks := queryInt(c, "books", library.DefaultTopBooks)
	topUsers := queryInt(c, "users", library.DefaultTopUsers)
	h.mu.Lock()
	defer h.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"most_borrowed_books": h.mgr.MostBorrowedBooks(topBooks),
		"most_active_users":   h.mgr.MostActiveUsers(topUsers),
	})
}

// Events streams every store mutation as a server-sent event until the client goes away.
func (h *Handlers) Events(c *gin.Context) {
	events, cancel := h.mgr.Events().Subscribe(eventBuffer)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case e, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(e.Kind), e)
			return true
		}
	})
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "id must be an integer"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	if n, err := strconv.Atoi(c.Query(key)); err == nil {
		return n
	}
	return def
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"message": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrInsufficientQuantity):
		return http.StatusConflict
	case errors.Is(err, library.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
