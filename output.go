package main

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"library-ledger/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// emit prints v as indented JSON when --json is set, otherwise calls text.
func (a *app) emit(v any, text func()) error {
	if !a.jsonOut {
		text()
		return nil
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printBooks(books []library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(a.out, "No books found.")
		return
	}
	fmt.Fprintf(a.out, "%-5s %-15s %-30s %-25s %-6s %-15s %-4s\n", "ID", "ISBN", "Title", "Author", "Year", "Genre", "Qty")
	fmt.Fprintln(a.out, strings.Repeat("-", 108))
	for _, b := range books {
		b.Title = library.Truncate(b.Title, 30)
		b.Author = library.Truncate(b.Author, 25)
		b.Genre = library.Truncate(b.Genre, 15)
		fmt.Fprintln(a.out, library.PrettyBook(b))
	}
}

func (a *app) printUsers(users []library.User) {
	if len(users) == 0 {
		fmt.Fprintln(a.out, "No users found.")
		return
	}
	fmt.Fprintf(a.out, "%-5s %-30s %s\n", "ID", "Name", "Email")
	fmt.Fprintln(a.out, strings.Repeat("-", 70))
	for _, u := range users {
		fmt.Fprintf(a.out, "%-5d %-30s %s\n", u.ID, library.Truncate(u.Name, 30), u.Email)
	}
}

func (a *app) printLoans(loans []library.Loan) {
	if len(loans) == 0 {
		fmt.Fprintln(a.out, "No loans found.")
		return
	}
	fmt.Fprintf(a.out, "%-5s %-7s %-7s %-12s %-12s %-12s\n", "ID", "Book", "User", "Loaned", "Due", "Returned")
	fmt.Fprintln(a.out, strings.Repeat("-", 60))
	today := a.mgr.Today()
	for _, l := range loans {
		line := library.PrettyLoan(l)
		if l.Overdue(today) {
			line += " OVERDUE"
		}
		fmt.Fprintln(a.out, line)
	}
}

func (a *app) printCounts(title string, entries []library.CountEntry) {
	fmt.Fprintln(a.out, title)
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "  (no loans yet)")
		return
	}
	for i, e := range entries {
		fmt.Fprintf(a.out, "  %2d. %-40s %d\n", i+1, library.Truncate(e.Name, 40), e.Count)
	}
}
