package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-ledger/library"
)

const maxLoginAttempts = 3

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session behind a login prompt (needs a terminal for the password)",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			sc := bufio.NewScanner(os.Stdin)
			if err := a.login(sc, readPassword); err != nil {
				return err
			}
			a.repl(sc)
			return nil
		},
	}
}

// readPassword securely reads a password with masking
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

// login asks for the operator credential until it matches or attempts run out.
func (a *app) login(sc *bufio.Scanner, password func(string) (string, error)) error {
	for attempt := 1; attempt <= maxLoginAttempts; attempt++ {
		username, ok := prompt(sc, a.out, "Username: ")
		if !ok {
			return io.ErrUnexpectedEOF
		}
		pw, err := password("Password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if err := a.mgr.Authenticate(username, pw); err == nil {
			fmt.Fprintf(a.out, "Welcome, %s.\n", username)
			return nil
		}
		fmt.Fprintln(a.out, "Invalid username or password.")
	}
	return library.ErrInvalidCredentials
}

func (a *app) repl(sc *bufio.Scanner) {
	fmt.Fprintln(a.out, "Available commands:")
	fmt.Fprintln(a.out, "  Books: add book, list books, search book, update book, delete book")
	fmt.Fprintln(a.out, "  Users: add user, list users, search user, update user, delete user")
	fmt.Fprintln(a.out, "  Loans: checkout, return, list loans, active loans, overdue loans, search loans, delete loan")
	fmt.Fprintln(a.out, "  System: report, exit")

	for {
		fmt.Fprint(a.out, "\n> ")
		if !sc.Scan() {
			return
		}
		cmd := strings.TrimSpace(sc.Text())

		var err error
		switch cmd {
		case "add book":
			err = a.shellAddBook(sc)
		case "list books":
			a.printBooks(a.mgr.GetAllBooks())
		case "search book":
			if q, ok := prompt(sc, a.out, "Query: "); ok {
				a.printBooks(a.mgr.SearchBooks(q))
			}
		case "update book":
			err = a.shellUpdateBook(sc)
		case "delete book":
			err = a.withID(sc, "Book ID: ", "book", a.mgr.DeleteBook)
		case "add user":
			err = a.shellAddUser(sc)
		case "list users":
			a.printUsers(a.mgr.GetAllUsers())
		case "search user":
			if q, ok := prompt(sc, a.out, "Query: "); ok {
				a.printUsers(a.mgr.SearchUsers(q))
			}
		case "update user":
			err = a.shellUpdateUser(sc)
		case "delete user":
			err = a.withID(sc, "User ID: ", "user", a.mgr.DeleteUser)
		case "checkout":
			err = a.shellCheckout(sc)
		case "return":
			err = a.shellReturn(sc)
		case "list loans":
			a.printLoans(a.mgr.GetAllLoans())
		case "active loans":
			a.printLoans(a.mgr.ActiveLoans())
		case "overdue loans":
			a.printLoans(a.mgr.OverdueLoans())
		case "search loans":
			if q, ok := prompt(sc, a.out, "User or book ID: "); ok {
				a.printLoans(a.mgr.SearchLoans(q))
			}
		case "delete loan":
			err = a.withID(sc, "Loan ID: ", "loan", a.mgr.DeleteLoan)
		case "report":
			a.printCounts("Most borrowed books:", a.mgr.MostBorrowedBooks(library.DefaultTopBooks))
			a.printCounts("Most active users:", a.mgr.MostActiveUsers(library.DefaultTopUsers))
		case "exit":
			fmt.Fprintln(a.out, "Goodbye!")
			return
		case "":
		default:
			fmt.Fprintln(a.out, "Unknown command. Type one of the available commands listed above.")
		}
		if err != nil {
			fmt.Fprintf(a.out, "Error: %v\n", err)
		}
	}
}

func prompt(sc *bufio.Scanner, w io.Writer, label string) (string, bool) {
	fmt.Fprint(w, label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func promptInt(sc *bufio.Scanner, w io.Writer, label string, def int) (int, error) {
	s, ok := prompt(sc, w, label)
	if !ok {
		return 0, io.ErrUnexpectedEOF
	}
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", library.ErrInvalidInput, s)
	}
	return n, nil
}

func promptID(sc *bufio.Scanner, w io.Writer, label, what string) (int64, error) {
	s, ok := prompt(sc, w, label)
	if !ok {
		return 0, io.ErrUnexpectedEOF
	}
	return parseID(s, what)
}

func (a *app) withID(sc *bufio.Scanner, label, what string, fn func(int64) error) error {
	id, err := promptID(sc, a.out, label, what)
	if err != nil {
		return err
	}
	if err := fn(id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s %d\n", what, id)
	return nil
}

func (a *app) shellAddBook(sc *bufio.Scanner) error {
	var b library.Book
	var ok bool
	for _, f := range []struct {
		label string
		dst   *string
	}{
		{"ISBN: ", &b.ISBN}, {"Title: ", &b.Title}, {"Author: ", &b.Author}, {"Genre: ", &b.Genre},
	} {
		if *f.dst, ok = prompt(sc, a.out, f.label); !ok {
			return io.ErrUnexpectedEOF
		}
	}
	var err error
	if b.PublicationYear, err = promptInt(sc, a.out, "Publication year: ", 0); err != nil {
		return err
	}
	if b.Quantity, err = promptInt(sc, a.out, "Quantity [1]: ", 1); err != nil {
		return err
	}
	created, err := a.mgr.AddBook(b)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added book '%s' with ID %d\n", created.Title, created.ID)
	return nil
}

// shellUpdateBook keeps a field unchanged when its answer is left empty.
func (a *app) shellUpdateBook(sc *bufio.Scanner) error {
	id, err := promptID(sc, a.out, "Book ID: ", "book")
	if err != nil {
		return err
	}
	b, err := a.mgr.GetBook(id)
	if err != nil {
		return err
	}
	for _, f := range []struct {
		label string
		dst   *string
	}{
		{"ISBN", &b.ISBN}, {"Title", &b.Title}, {"Author", &b.Author}, {"Genre", &b.Genre},
	} {
		v, ok := prompt(sc, a.out, fmt.Sprintf("%s [%s]: ", f.label, *f.dst))
		if !ok {
			return io.ErrUnexpectedEOF
		}
		if v != "" {
			*f.dst = v
		}
	}
	if b.PublicationYear, err = promptInt(sc, a.out, fmt.Sprintf("Publication year [%d]: ", b.PublicationYear), b.PublicationYear); err != nil {
		return err
	}
	if b.Quantity, err = promptInt(sc, a.out, fmt.Sprintf("Quantity [%d]: ", b.Quantity), b.Quantity); err != nil {
		return err
	}
	if err := a.mgr.UpdateBook(b); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated book '%s'\n", b.Title)
	return nil
}

func (a *app) shellAddUser(sc *bufio.Scanner) error {
	name, ok := prompt(sc, a.out, "Name: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	email, ok := prompt(sc, a.out, "Email: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	user, err := a.mgr.RegisterUser(name, email)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added user '%s' with ID %d\n", user.Name, user.ID)
	return nil
}

// shellUpdateUser keeps a field unchanged when its answer is left empty.
func (a *app) shellUpdateUser(sc *bufio.Scanner) error {
	id, err := promptID(sc, a.out, "User ID: ", "user")
	if err != nil {
		return err
	}
	u, err := a.mgr.GetUser(id)
	if err != nil {
		return err
	}
	for _, f := range []struct {
		label string
		dst   *string
	}{
		{"Name", &u.Name}, {"Email", &u.Email},
	} {
		v, ok := prompt(sc, a.out, fmt.Sprintf("%s [%s]: ", f.label, *f.dst))
		if !ok {
			return io.ErrUnexpectedEOF
		}
		if v != "" {
			*f.dst = v
		}
	}
	if err := a.mgr.UpdateUser(u); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated user '%s'\n", u.Name)
	return nil
}

func (a *app) shellCheckout(sc *bufio.Scanner) error {
	bookID, err := promptID(sc, a.out, "Book ID: ", "book")
	if err != nil {
		return err
	}
	userID, err := promptID(sc, a.out, "User ID: ", "user")
	if err != nil {
		return err
	}
	loan, err := a.mgr.CheckoutBook(bookID, userID)
	if errors.Is(err, library.ErrInsufficientQuantity) {
		fmt.Fprintln(a.out, "No copies of this book are left to lend.")
		return nil
	}
	if err != nil {
		return err
	}
	book, _ := a.mgr.GetBook(bookID)
	user, _ := a.mgr.GetUser(userID)
	fmt.Fprintf(a.out, "Book '%s' checked out to %s, due %s\n", book.Title, user.Name, loan.DueDate)
	return nil
}

func (a *app) shellReturn(sc *bufio.Scanner) error {
	id, err := promptID(sc, a.out, "Loan ID: ", "loan")
	if err != nil {
		return err
	}
	s, ok := prompt(sc, a.out, "Return date (YYYY-MM-DD, empty for today): ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	var date library.Date
	if s != "" {
		if date, err = library.ParseDate(s); err != nil {
			return fmt.Errorf("%w: return date: %w", library.ErrInvalidInput, err)
		}
	}
	res, err := a.mgr.ReturnLoan(id, date)
	if err != nil {
		return err
	}
	a.printReturn(res)
	return nil
}
