package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"library-ledger/library"
)

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "book", Short: "Manage the catalogue"}

	var b library.Book
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			created, err := a.mgr.AddBook(b)
			if err != nil {
				return err
			}
			return a.emit(created, func() { fmt.Fprintf(a.out, "Added book '%s' with ID %d\n", created.Title, created.ID) })
		},
	}
	bookFlags(add, &b)

	var changes library.Book
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the fields given as flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			book, err := a.mgr.GetBook(id)
			if err != nil {
				return err
			}
			f := c.Flags()
			if f.Changed("isbn") {
				book.ISBN = changes.ISBN
			}
			if f.Changed("title") {
				book.Title = changes.Title
			}
			if f.Changed("author") {
				book.Author = changes.Author
			}
			if f.Changed("year") {
				book.PublicationYear = changes.PublicationYear
			}
			if f.Changed("genre") {
				book.Genre = changes.Genre
			}
			if f.Changed("quantity") {
				book.Quantity = changes.Quantity
			}
			if err := a.mgr.UpdateBook(book); err != nil {
				return err
			}
			return a.emit(book, func() { fmt.Fprintf(a.out, "Updated book %d\n", book.ID) })
		},
	}
	bookFlags(update, &changes)

	cmd.AddCommand(
		add,
		update,
		&cobra.Command{
			Use:   "list",
			Short: "List every book",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				books := a.mgr.GetAllBooks()
				return a.emit(books, func() { a.printBooks(books) })
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one book",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				id, err := parseID(args[0], "book")
				if err != nil {
					return err
				}
				book, err := a.mgr.GetBook(id)
				if err != nil {
					return err
				}
				return a.emit(book, func() { a.printBooks([]library.Book{book}) })
			},
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Search titles, authors and ISBNs",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				var q string
				if len(args) == 1 {
					q = args[0]
				}
				books := a.mgr.SearchBooks(q)
				return a.emit(books, func() { a.printBooks(books) })
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a book",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				id, err := parseID(args[0], "book")
				if err != nil {
					return err
				}
				if err := a.mgr.DeleteBook(id); err != nil {
					return err
				}
				return a.emit(map[string]int64{"deleted": id}, func() { fmt.Fprintf(a.out, "Deleted book %d\n", id) })
			},
		},
	)
	return cmd
}

func bookFlags(cmd *cobra.Command, b *library.Book) {
	f := cmd.Flags()
	f.StringVar(&b.ISBN, "isbn", "", "ISBN")
	f.StringVar(&b.Title, "title", "", "title")
	f.StringVar(&b.Author, "author", "", "author")
	f.IntVar(&b.PublicationYear, "year", 0, "publication year")
	f.StringVar(&b.Genre, "genre", "", "genre")
	f.IntVar(&b.Quantity, "quantity", 1, "copies available for loan")
}
