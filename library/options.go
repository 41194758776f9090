package library

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

const (
	logMsgSkippedRecord     = "skipped malformed record"
	logMsgMissingTable      = "record file not found, starting with an empty table"
	logMsgRecordsLoaded     = "records loaded"
	logMsgPersistFailed     = "persisting records failed"
	logMsgRecordAdded       = "record added"
	logMsgRecordUpdated     = "record updated"
	logMsgRecordDeleted     = "record deleted"
	logMsgRecordMissing     = "no record with this id"
	logMsgLoanRejected      = "loan rejected"
	logMsgLoanReturned      = "loan returned"
	logMsgAlreadyReturned   = "return already recorded for this loan"
	logMsgBookGone          = "returned loan references a deleted book, quantity not restored"
	logMsgEventDropped      = "subscriber buffer full, event dropped"
	logMsgAuthFailed        = "authentication failed"
	logMsgValidationFailed  = "validation failed"
	logMsgRenameFailed      = "moving staged record file into place failed"
	logMsgTempCleanupFailed = "removing staged record file failed"
	logMsgRestoreFailed     = "restoring record file from backup failed"
	logAttrError            = "error"
	logAttrTable            = "table"
	logAttrRow              = "row"
	logAttrID               = "id"
	logAttrBookID           = "book_id"
	logAttrUserID           = "user_id"
	logAttrQuantity         = "quantity"
	logAttrCount            = "count"
	logAttrPath             = "path"
	logAttrEventKind        = "event_kind"
	logAttrUsername         = "username"
)

const defaultLoanPeriodDays = 14

// Logger is satisfied by *slog.Logger and by any structured logger with the same shape.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type settings struct {
	logger         Logger
	notifier       *Notifier
	now            func() time.Time
	loanPeriodDays int
	username       string
	passwordHash   []byte
}

func defaultSettings() settings {
	return settings{
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:            time.Now,
		loanPeriodDays: defaultLoanPeriodDays,
	}
}

func applyOptions(opts []Option) (settings, error) {
	s := defaultSettings()
	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return settings{}, err
		}
	}
	return s, nil
}

// Option configures a store or the LibraryManager.
type Option func(*settings) error

// WithLogger sets the logger. Malformed rows and rejected loans are logged at warn level,
// persistence failures at error level, mutations at info level.
func WithLogger(logger Logger) Option {
	return func(s *settings) error {
		if logger == nil {
			return fmt.Errorf("%w: nil logger", ErrInvalidInput)
		}
		s.logger = logger
		return nil
	}
}

// WithNotifier makes the store publish an Event after every successful mutation.
func WithNotifier(n *Notifier) Option {
	return func(s *settings) error {
		s.notifier = n
		return nil
	}
}

// WithClock replaces time.Now for loan and return dates.
func WithClock(now func() time.Time) Option {
	return func(s *settings) error {
		if now == nil {
			return fmt.Errorf("%w: nil clock", ErrInvalidInput)
		}
		s.now = now
		return nil
	}
}

// WithLoanPeriod sets the number of days between a loan and its due date.
func WithLoanPeriod(days int) Option {
	return func(s *settings) error {
		if days <= 0 {
			return fmt.Errorf("%w: loan period must be positive, got %d", ErrInvalidInput, days)
		}
		s.loanPeriodDays = days
		return nil
	}
}

// WithCredentials sets the operator account checked by LibraryManager.Authenticate.
// passwordHash is a bcrypt hash.
func WithCredentials(username string, passwordHash []byte) Option {
	return func(s *settings) error {
		if strings.TrimSpace(username) == "" || len(passwordHash) == 0 {
			return fmt.Errorf("%w: empty credentials", ErrInvalidInput)
		}
		s.username = username
		s.passwordHash = passwordHash
		return nil
	}
}

func (s settings) today() Date { return DateOf(s.now()) }

func (s settings) publish(kind EventKind, id int64) {
	if s.notifier != nil {
		s.notifier.Publish(kind, id)
	}
}
