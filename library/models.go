package library

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the text form of a Date in record files and JSON.
const DateFormat = "2006-01-02"

// Book is a catalogue entry. Quantity counts the copies currently available for loan.
type Book struct {
	ID              int64  `json:"id"`
	ISBN            string `json:"isbn"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	PublicationYear int    `json:"publication_year"`
	Genre           string `json:"genre"`
	Quantity        int    `json:"quantity"`
}

// User is a registered borrower.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Loan links a book to a user. A nil ReturnDate means the book is still out.
type Loan struct {
	ID         int64 `json:"id"`
	BookID     int64 `json:"book_id"`
	UserID     int64 `json:"user_id"`
	LoanDate   Date  `json:"loan_date"`
	DueDate    Date  `json:"due_date"`
	ReturnDate *Date `json:"return_date"`
}

// Returned reports whether the loan reached its terminal state.
func (l Loan) Returned() bool { return l.ReturnDate != nil }

// Overdue reports whether the loan is still out after its due date.
func (l Loan) Overdue(today Date) bool {
	return !l.Returned() && l.DueDate.Before(today)
}

func (l Loan) clone() Loan {
	if l.ReturnDate != nil {
		d := *l.ReturnDate
		l.ReturnDate = &d
	}
	return l
}

// Date is a calendar day without time of day, always held at UTC midnight.
type Date time.Time

// NewDate builds a Date from its calendar parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses the YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date(t), nil
}

func (d Date) Time() time.Time        { return time.Time(d) }
func (d Date) IsZero() bool           { return time.Time(d).IsZero() }
func (d Date) AddDays(n int) Date     { return Date(time.Time(d).AddDate(0, 0, n)) }
func (d Date) Equal(other Date) bool  { return time.Time(d).Equal(time.Time(other)) }
func (d Date) Before(other Date) bool { return time.Time(d).Before(time.Time(other)) }

// String returns the date in DateFormat.
func (d Date) String() string {
	return time.Time(d).Format(DateFormat)
}

// MarshalJSON writes a quoted string in DateFormat.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", d.String())), nil
}

// UnmarshalJSON parses a quoted string in DateFormat.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ReturnResult describes the outcome of recording a loan return.
type ReturnResult struct {
	Loan            Loan `json:"loan"`
	AlreadyReturned bool `json:"already_returned"`
	BookRestored    bool `json:"book_restored"`
}

// CountEntry is one line of a borrowing report.
type CountEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
