package library

import (
	"fmt"
	"strconv"
)

// nullToken marks an absent return date in the loans table.
const nullToken = "null"

var (
	booksTable = Table{Name: "books", Header: []string{"id", "isbn", "title", "author", "publicationYear", "genre", "quantity"}}
	usersTable = Table{Name: "users", Header: []string{"id", "name", "email"}}
	loansTable = Table{Name: "loans", Header: []string{"id", "bookId", "userId", "loanDate", "dueDate", "returnDate"}}
)

// codec maps one record type to and from positional rows.
type codec[T any] struct {
	table  Table
	id     func(T) int64
	setID  func(*T, int64)
	encode func(T) []string
	decode func([]string) (T, error)
	// clone deep-copies records holding pointers; nil for plain values.
	clone func(T) T
}

func (c codec[T]) decodeRow(row []string) (T, error) {
	var zero T
	if len(row) != len(c.table.Header) {
		return zero, fmt.Errorf("%w: %d fields, want %d", ErrMalformedRecord, len(row), len(c.table.Header))
	}
	item, err := c.decode(row)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	return item, nil
}

var bookCodec = codec[Book]{
	table: booksTable,
	id:    func(b Book) int64 { return b.ID },
	setID: func(b *Book, id int64) { b.ID = id },
	encode: func(b Book) []string {
		return []string{
			strconv.FormatInt(b.ID, 10),
			b.ISBN,
			b.Title,
			b.Author,
			strconv.Itoa(b.PublicationYear),
			b.Genre,
			strconv.Itoa(b.Quantity),
		}
	},
	decode: func(row []string) (Book, error) {
		var (
			b   = Book{ISBN: row[1], Title: row[2], Author: row[3], Genre: row[5]}
			err error
		)
		if b.ID, err = strconv.ParseInt(row[0], 10, 64); err != nil {
			return Book{}, fmt.Errorf("id: %w", err)
		}
		if b.PublicationYear, err = strconv.Atoi(row[4]); err != nil {
			return Book{}, fmt.Errorf("publicationYear: %w", err)
		}
		if b.Quantity, err = strconv.Atoi(row[6]); err != nil {
			return Book{}, fmt.Errorf("quantity: %w", err)
		}
		return b, nil
	},
}

var userCodec = codec[User]{
	table: usersTable,
	id:    func(u User) int64 { return u.ID },
	setID: func(u *User, id int64) { u.ID = id },
	encode: func(u User) []string {
		return []string{strconv.FormatInt(u.ID, 10), u.Name, u.Email}
	},
	decode: func(row []string) (User, error) {
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return User{}, fmt.Errorf("id: %w", err)
		}
		return User{ID: id, Name: row[1], Email: row[2]}, nil
	},
}

var loanCodec = codec[Loan]{
	table: loansTable,
	id:    func(l Loan) int64 { return l.ID },
	setID: func(l *Loan, id int64) { l.ID = id },
	clone: Loan.clone,
	encode: func(l Loan) []string {
		returned := nullToken
		if l.ReturnDate != nil {
			returned = l.ReturnDate.String()
		}
		return []string{
			strconv.FormatInt(l.ID, 10),
			strconv.FormatInt(l.BookID, 10),
			strconv.FormatInt(l.UserID, 10),
			l.LoanDate.String(),
			l.DueDate.String(),
			returned,
		}
	},
	decode: func(row []string) (Loan, error) {
		var (
			l   Loan
			err error
		)
		if l.ID, err = strconv.ParseInt(row[0], 10, 64); err != nil {
			return Loan{}, fmt.Errorf("id: %w", err)
		}
		if l.BookID, err = strconv.ParseInt(row[1], 10, 64); err != nil {
			return Loan{}, fmt.Errorf("bookId: %w", err)
		}
		if l.UserID, err = strconv.ParseInt(row[2], 10, 64); err != nil {
			return Loan{}, fmt.Errorf("userId: %w", err)
		}
		if l.LoanDate, err = ParseDate(row[3]); err != nil {
			return Loan{}, fmt.Errorf("loanDate: %w", err)
		}
		if l.DueDate, err = ParseDate(row[4]); err != nil {
			return Loan{}, fmt.Errorf("dueDate: %w", err)
		}
		if row[5] != nullToken {
			returned, err := ParseDate(row[5])
			if err != nil {
				return Loan{}, fmt.Errorf("returnDate: %w", err)
			}
			l.ReturnDate = &returned
		}
		return l, nil
	},
}

// collection is the in-memory table behind a store. Mutations are prepared on
// a copy, persisted, and only then committed.
type collection[T any] struct {
	codec  codec[T]
	items  []T
	nextID int64
}

func loadCollection[T any](backend Backend, c codec[T], logger Logger) (*collection[T], error) {
	rows, err := backend.Load(c.table)
	if err != nil {
		logger.Error(logMsgPersistFailed, logAttrTable, c.table.Name, logAttrError, err.Error())
		return nil, fmt.Errorf("load %s: %w: %w", c.table.Name, ErrPersistence, err)
	}

	col := &collection[T]{codec: c, items: make([]T, 0, len(rows)), nextID: 1}
	for i, row := range rows {
		item, err := c.decodeRow(row)
		if err != nil {
			logger.Warn(logMsgSkippedRecord, logAttrTable, c.table.Name, logAttrRow, i+1, logAttrError, err.Error())
			continue
		}
		col.items = append(col.items, item)
		col.observe(c.id(item))
	}
	logger.Debug(logMsgRecordsLoaded, logAttrTable, c.table.Name, logAttrCount, len(col.items))
	return col, nil
}

func (c *collection[T]) observe(id int64) {
	if id >= c.nextID {
		c.nextID = id + 1
	}
}

func (c *collection[T]) copyOf(item T) T {
	if c.codec.clone == nil {
		return item
	}
	return c.codec.clone(item)
}

func (c *collection[T]) list() []T {
	out := make([]T, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, c.copyOf(item))
	}
	return out
}

func (c *collection[T]) find(match func(T) bool) (T, bool) {
	for _, item := range c.items {
		if match(item) {
			return c.copyOf(item), true
		}
	}
	var zero T
	return zero, false
}

func (c *collection[T]) findByID(id int64) (T, bool) {
	return c.find(func(item T) bool { return c.codec.id(item) == id })
}

func (c *collection[T]) filter(match func(T) bool) []T {
	out := make([]T, 0)
	for _, item := range c.items {
		if match(item) {
			out = append(out, c.copyOf(item))
		}
	}
	return out
}

// prepareAdd assigns the next id when item has none and returns the staged table.
func (c *collection[T]) prepareAdd(item T) (T, []T) {
	if c.codec.id(item) <= 0 {
		c.codec.setID(&item, c.nextID)
	}
	return item, append(c.list(), c.copyOf(item))
}

// prepareReplace swaps the first item with the same id.
func (c *collection[T]) prepareReplace(item T) ([]T, bool) {
	id := c.codec.id(item)
	for i, existing := range c.items {
		if c.codec.id(existing) == id {
			staged := c.list()
			staged[i] = c.copyOf(item)
			return staged, true
		}
	}
	return nil, false
}

// prepareRemove drops every item with the id.
func (c *collection[T]) prepareRemove(id int64) ([]T, bool) {
	staged := make([]T, 0, len(c.items))
	for _, item := range c.items {
		if c.codec.id(item) != id {
			staged = append(staged, item)
		}
	}
	return staged, len(staged) != len(c.items)
}

func (c *collection[T]) snapshot(items []T) Snapshot {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, c.codec.encode(item))
	}
	return Snapshot{Table: c.codec.table, Rows: rows}
}

// commit installs a staged table. The id counter never moves backwards.
func (c *collection[T]) commit(items []T) {
	c.items = items
	for _, item := range items {
		c.observe(c.codec.id(item))
	}
}
