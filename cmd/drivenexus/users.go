package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func usersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage API users",
	}
	cmd.AddCommand(usersCreateCmd(a))
	return cmd
}

func usersCreateCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user and print its API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return errors.New("--name is required")
			}

			database, repo, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			user, err := repo.CreateUser(cmd.Context(), name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User:    %s (%s)\n", user.Name, user.ID)
			fmt.Fprintf(out, "API key: %s\n", user.APIKey)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name of the user")
	return cmd
}
