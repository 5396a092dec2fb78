package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"storedesk/internal/models"
	"storedesk/internal/orders"
)

func printOrders(w io.Writer, list []models.Order) {
	fmt.Fprintln(w, "ID\tSTATUS\tITEMS\tTOTAL\tPLACED\tNEXT")
	for _, o := range list {
		next := make([]string, 0, 4)
		for _, s := range orders.Next(o.Status) {
			next = append(next, string(s))
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
			o.ID, o.Status, len(o.Items), o.TotalPrice, o.CreatedAt.Local().Format("Jan 2 15:04"), strings.Join(next, ","))
	}
}

func (c *cli) ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "orders",
		Aliases: []string{"order"},
		Short:   "Follow and update your store's orders",
	}

	var tab string
	list := &cobra.Command{
		Use:   "list",
		Short: "List orders, optionally for one tab",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := orders.ParseTab(tab)
			if err != nil {
				return err
			}
			store, err := c.app.store(cmd.Context())
			if err != nil {
				return err
			}
			all, err := c.app.orders.List(cmd.Context(), store.ID)
			if err != nil {
				return err
			}
			board := orders.NewBoard()
			board.Replace(all)
			shown := board.Filter(t)

			return c.app.print(shown, func(w io.Writer) {
				counts := board.Counts()
				parts := make([]string, 0, len(orders.Tabs()))
				for _, t := range orders.Tabs() {
					parts = append(parts, fmt.Sprintf("%s %d", t, counts[t]))
				}
				fmt.Fprintln(w, strings.Join(parts, " | "))
				printOrders(w, shown)
			})
		},
	}
	list.Flags().StringVar(&tab, "tab", string(orders.TabAll), "all, active, completed or a status")

	change := func(use, short string, to models.OrderStatus) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.advance(cmd.Context(), args[0], to)
			},
		}
	}

	advance := &cobra.Command{
		Use:   "advance <id> <status>",
		Short: "Move an order to its next status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to := models.OrderStatus(args[1])
			if !orders.Known(to) {
				return fmt.Errorf("unknown status %q", args[1])
			}
			return c.advance(cmd.Context(), args[0], to)
		},
	}

	cmd.AddCommand(
		list,
		change("accept", "Accept a pending order", models.StatusAccepted),
		change("cancel", "Cancel an order", models.StatusCancelled),
		advance,
	)
	return cmd
}

func (c *cli) advance(ctx context.Context, rawID string, to models.OrderStatus) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	store, err := c.app.store(ctx)
	if err != nil {
		return err
	}
	o, err := c.app.orders.Get(ctx, store.ID, id)
	if err != nil {
		return err
	}
	updated, err := c.app.orders.Advance(ctx, store.ID, o, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.app.out, "Order %d is now %s\n", updated.ID, updated.Status)
	return nil
}
