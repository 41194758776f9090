package library

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

var (
	ErrBookNotFound = fmt.Errorf("book %w", ErrNotFound)
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	ErrLoanNotFound = fmt.Errorf("loan %w", ErrNotFound)
)

var ErrInsufficientQuantity = errors.New("no copies of this book are available")
var ErrMalformedRecord = errors.New("malformed record")
var ErrPersistence = errors.New("persisting records failed")
var ErrInvalidInput = errors.New("invalid input")
var ErrInvalidCredentials = errors.New("invalid username or password")
var ErrUnknownBackend = errors.New("unknown storage backend")
