package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"fieldvoice/internal/archive"
	"fieldvoice/internal/domain"

	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openArchive()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			convs, err := store.ListConversations(ctx, limit)
			if err != nil {
				return err
			}
			if len(convs) == 0 {
				fmt.Println("no archived conversations")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUPDATED\tWORK ORDER\tMODEL\tTITLE")
			for _, c := range convs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					c.ID, c.UpdatedAt.Format("2006-01-02 15:04"), c.WorkOrderID, c.Model, c.Title)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max conversations to list")

	cmd.AddCommand(&cobra.Command{
		Use:   "show [id]",
		Short: "Replay an archived conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openArchive()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			conv, err := store.GetConversation(ctx, args[0])
			if err != nil {
				return err
			}
			if conv == nil {
				return fmt.Errorf("conversation %s not found", args[0])
			}

			turns, err := store.GetTurns(ctx, conv.ID, 0)
			if err != nil {
				return err
			}
			for _, turn := range turns {
				prefix := "You"
				if turn.Role == domain.RoleAssistant {
					prefix = "Assistant"
				}
				fmt.Printf("[%s] %s> %s\n", turn.Timestamp.Format("15:04:05"), prefix, turn.Content)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an archived conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openArchive()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := store.DeleteConversation(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func openArchive() (*archive.SQLiteStore, error) {
	cfg := loadOrDefaults()
	if !cfg.Archive.Enabled {
		return nil, fmt.Errorf("archive is disabled in config")
	}
	return archive.NewSQLiteStore(cfg.Archive.DBPath, buildLogger(cfg))
}
