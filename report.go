package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"library-ledger/library"
)

type report struct {
	MostBorrowedBooks []library.CountEntry `json:"most_borrowed_books"`
	MostActiveUsers   []library.CountEntry `json:"most_active_users"`
}

func newReportCmd(a *app) *cobra.Command {
	var topBooks, topUsers int
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Most borrowed books and most active users",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			r := report{
				MostBorrowedBooks: a.mgr.MostBorrowedBooks(topBooks),
				MostActiveUsers:   a.mgr.MostActiveUsers(topUsers),
			}
			return a.emit(r, func() {
				a.printCounts(fmt.Sprintf("Top %d most borrowed books:", topBooks), r.MostBorrowedBooks)
				fmt.Fprintln(a.out)
				a.printCounts(fmt.Sprintf("Top %d most active users:", topUsers), r.MostActiveUsers)
			})
		},
	}
	cmd.Flags().IntVar(&topBooks, "books", library.DefaultTopBooks, "number of books to show")
	cmd.Flags().IntVar(&topUsers, "users", library.DefaultTopUsers, "number of users to show")
	return cmd
}
