package main

import (
	"errors"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pysugar/drive-nexus/internal/db/models"
	"github.com/spf13/cobra"
)

func accountsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect linked Drive accounts",
	}
	cmd.AddCommand(accountsListCmd(a))
	return cmd
}

func accountsListCmd(a *app) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the accounts linked to a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}

			database, repo, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			if _, err := repo.FindUser(cmd.Context(), userID); err != nil {
				return err
			}
			accounts, err := repo.ListAccounts(cmd.Context(), userID)
			if err != nil {
				return err
			}
			renderAccounts(cmd.OutOrStdout(), accounts, time.Now())
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	return cmd
}

func renderAccounts(w io.Writer, accounts []models.Account, now time.Time) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Account ID", "Email", "Token Expires", "Linked"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)

	for _, acc := range accounts {
		expires := acc.ExpiresAt.Format(time.RFC3339)
		if !acc.ExpiresAt.After(now) {
			expires += " (expired)"
		}
		table.Append([]string{
			acc.ID,
			acc.Email,
			expires,
			acc.CreatedAt.Format("2006-01-02"),
		})
	}
	table.Render()
}
