package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"fieldvoice/internal/assist"
	"fieldvoice/internal/domain"
	"fieldvoice/internal/workorder"

	"github.com/spf13/cobra"
)

func newOrdersClient() *workorder.Client {
	cfg := loadOrDefaults()
	base := cfg.WorkOrders.APIBase
	if base == "" {
		base = cfg.Assist.APIBase
	}
	return workorder.NewClient(workorder.Config{
		APIBase: base,
		APIKey:  cfg.WorkOrders.APIKey,
		Logger:  buildLogger(cfg),
	})
}

func ordersCmd() *cobra.Command {
	var status, date string

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List work orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			orders, err := newOrdersClient().List(ctx, workorder.ListFilter{Status: status, Date: date})
			if err != nil {
				return err
			}
			if len(orders) == 0 {
				fmt.Println("no work orders")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tSTATUS\tMODEL\tCUSTOMER\tADDRESS")
			for _, o := range orders {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					o.ID, o.ScheduledDate, o.Status, o.Model, o.CustomerName, o.Address)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (scheduled, in_progress, completed)")
	cmd.Flags().StringVar(&date, "date", "", "filter by date (YYYY-MM-DD)")

	cmd.AddCommand(&cobra.Command{
		Use:   "show [id]",
		Short: "Show one work order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			order, err := newOrdersClient().Get(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("ID:        %s\n", order.ID)
			fmt.Printf("Customer:  %s", order.CustomerName)
			if order.CustomerPhone != "" {
				fmt.Printf(" (%s)", order.CustomerPhone)
			}
			fmt.Println()
			fmt.Printf("Address:   %s\n", order.Address)
			if order.BuildingType != "" {
				fmt.Printf("Building:  %s\n", order.BuildingType)
			}
			fmt.Printf("Model:     %s x%d\n", order.Model, order.Quantity)
			fmt.Printf("Date:      %s\n", order.ScheduledDate)
			fmt.Printf("Status:    %s\n", order.Status)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status [id] [status]",
		Short: "Update a work order's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			order, err := newOrdersClient().Update(ctx, args[0], map[string]any{"status": args[1]})
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", order.ID, order.Status)
			return nil
		},
	})

	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Manage work reports",
	}

	var notes string
	create := &cobra.Command{
		Use:   "create [work-order-id]",
		Short: "Open a draft report for a work order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			report, err := newOrdersClient().CreateReport(ctx, domain.WorkReport{
				WorkOrderID: args[0],
				Notes:       notes,
			})
			if err != nil {
				return err
			}
			fmt.Printf("report %s created for work order %s\n", report.ID, report.WorkOrderID)
			return nil
		},
	}
	create.Flags().StringVar(&notes, "notes", "", "report notes")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "submit [report-id]",
		Short: "Submit a draft report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			report, err := newOrdersClient().SubmitReport(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("report %s: %s\n", report.ID, report.Status)
			return nil
		},
	})

	var photoType, caption string
	photo := &cobra.Command{
		Use:   "photo [report-id] [file]",
		Short: "Attach a construction photo to a report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read photo: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			uploaded, err := newOrdersClient().UploadPhoto(ctx, args[0],
				domain.PhotoType(photoType), caption, args[1], data)
			if err != nil {
				return err
			}
			fmt.Printf("photo %s uploaded (%s)\n", uploaded.ID, uploaded.PhotoType)
			return nil
		},
	}
	photo.Flags().StringVar(&photoType, "type", "during", "photo type (before, during, after, trouble)")
	photo.Flags().StringVar(&caption, "caption", "", "photo caption")
	cmd.AddCommand(photo)

	var unit string
	var quantity float64
	material := &cobra.Command{
		Use:   "material [report-id] [name]",
		Short: "Record a used material against a report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			added, err := newOrdersClient().AddMaterial(ctx, domain.UsedMaterial{
				WorkReportID: args[0],
				Name:         args[1],
				Quantity:     quantity,
				Unit:         unit,
			})
			if err != nil {
				return err
			}
			fmt.Printf("material %s recorded: %s %.2f%s\n", added.ID, added.Name, added.Quantity, added.Unit)
			return nil
		},
	}
	material.Flags().Float64Var(&quantity, "qty", 1, "quantity used")
	material.Flags().StringVar(&unit, "unit", "", "unit (m, pcs, ...)")
	cmd.AddCommand(material)

	return cmd
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List equipment models known to the assist service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadOrDefaults()
			client := assist.NewClient(assist.Config{
				APIBase: cfg.Assist.APIBase,
				APIKey:  cfg.Assist.APIKey,
				Logger:  buildLogger(cfg),
			})

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			models, err := client.Models(ctx)
			if err != nil {
				return err
			}
			if len(models) == 0 {
				fmt.Println("no models")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tMANUFACTURER\tSERIES\tCAPACITY")
			for _, m := range models {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Model, m.Manufacturer, m.Series, m.Capacity)
			}
			return w.Flush()
		},
	}
}
