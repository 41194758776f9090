package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"library-ledger/library"
)

func newLoanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "loan", Short: "Lend and take back books"}

	var returnDate string
	ret := &cobra.Command{
		Use:   "return <loan-id>",
		Short: "Record the return of a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseID(args[0], "loan")
			if err != nil {
				return err
			}
			var date library.Date
			if returnDate != "" {
				if date, err = library.ParseDate(returnDate); err != nil {
					return fmt.Errorf("%w: return date: %w", library.ErrInvalidInput, err)
				}
			}
			res, err := a.mgr.ReturnLoan(id, date)
			if err != nil {
				return err
			}
			return a.emit(res, func() { a.printReturn(res) })
		},
	}
	ret.Flags().StringVar(&returnDate, "date", "", "return date as YYYY-MM-DD (default today)")

	listing := func(use, short string, list func() []library.Loan) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				loans := list()
				return a.emit(loans, func() { a.printLoans(loans) })
			},
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <book-id> <user-id>",
			Short: "Lend a copy of a book to a user",
			Args:  cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				bookID, err := parseID(args[0], "book")
				if err != nil {
					return err
				}
				userID, err := parseID(args[1], "user")
				if err != nil {
					return err
				}
				loan, err := a.mgr.CheckoutBook(bookID, userID)
				if err != nil {
					return err
				}
				return a.emit(loan, func() {
					fmt.Fprintf(a.out, "Loan %d created, due back on %s\n", loan.ID, loan.DueDate)
				})
			},
		},
		ret,
		listing("list", "List every loan", func() []library.Loan { return a.mgr.GetAllLoans() }),
		listing("active", "List loans not yet returned", func() []library.Loan { return a.mgr.ActiveLoans() }),
		listing("overdue", "List loans still out after their due date", func() []library.Loan { return a.mgr.OverdueLoans() }),
		&cobra.Command{
			Use:   "search <user-or-book-id>",
			Short: "Loans of a user, then loans of a book, with that id",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				loans := a.mgr.SearchLoans(args[0])
				return a.emit(loans, func() { a.printLoans(loans) })
			},
		},
		&cobra.Command{
			Use:   "delete <loan-id>",
			Short: "Delete a loan record without returning the copy",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				id, err := parseID(args[0], "loan")
				if err != nil {
					return err
				}
				if err := a.mgr.DeleteLoan(id); err != nil {
					return err
				}
				return a.emit(map[string]int64{"deleted": id}, func() { fmt.Fprintf(a.out, "Deleted loan %d\n", id) })
			},
		},
	)
	return cmd
}

func (a *app) printReturn(res library.ReturnResult) {
	switch {
	case res.AlreadyReturned:
		fmt.Fprintf(a.out, "Loan %d was already returned on %s\n", res.Loan.ID, res.Loan.ReturnDate)
	case res.BookRestored:
		fmt.Fprintf(a.out, "Loan %d returned on %s, book %d is available again\n", res.Loan.ID, res.Loan.ReturnDate, res.Loan.BookID)
	default:
		fmt.Fprintf(a.out, "Loan %d returned on %s (book %d no longer exists)\n", res.Loan.ID, res.Loan.ReturnDate, res.Loan.BookID)
	}
}
