package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage borrowers"}

	var name, email string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a borrower's name or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			user, err := a.mgr.GetUser(id)
			if err != nil {
				return err
			}
			if c.Flags().Changed("name") {
				user.Name = name
			}
			if c.Flags().Changed("email") {
				user.Email = email
			}
			if err := a.mgr.UpdateUser(user); err != nil {
				return err
			}
			return a.emit(user, func() { fmt.Fprintf(a.out, "Updated user %d\n", user.ID) })
		},
	}
	update.Flags().StringVar(&name, "name", "", "new name")
	update.Flags().StringVar(&email, "email", "", "new email")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <name> <email>",
			Short: "Register a borrower",
			Args:  cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				user, err := a.mgr.RegisterUser(args[0], args[1])
				if err != nil {
					return err
				}
				return a.emit(user, func() { fmt.Fprintf(a.out, "Added user '%s' with ID %d\n", user.Name, user.ID) })
			},
		},
		update,
		&cobra.Command{
			Use:   "list",
			Short: "List every borrower",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				users := a.mgr.GetAllUsers()
				return a.emit(users, func() { a.printUsers(users) })
			},
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Search names and emails",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				users := a.mgr.SearchUsers(args[0])
				return a.emit(users, func() { a.printUsers(users) })
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a borrower",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				id, err := parseID(args[0], "user")
				if err != nil {
					return err
				}
				if err := a.mgr.DeleteUser(id); err != nil {
					return err
				}
				return a.emit(map[string]int64{"deleted": id}, func() { fmt.Fprintf(a.out, "Deleted user %d\n", id) })
			},
		},
	)
	return cmd
}

