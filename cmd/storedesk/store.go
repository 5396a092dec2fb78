package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storedesk/internal/forms"
)

func (c *cli) storeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage your store",
	}

	var in forms.StoreInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a store for the signed-in owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.app.requireSession()
			if err != nil {
				return err
			}
			in.UserID = s.User.ID
			if err := forms.Validate(in); err != nil {
				return err
			}
			store, err := c.app.api.CreateStore(cmd.Context(), in)
			if err != nil {
				return err
			}
			_ = c.app.queries.Invalidate(cmd.Context(), profileKey(s.User.ID))
			fmt.Fprintf(c.app.out, "Store %q created with id %d\n", store.Name, store.ID)
			return nil
		},
	}
	f := create.Flags()
	f.StringVar(&in.Name, "name", "", "store name")
	f.StringVar(&in.Address, "address", "", "street address")
	f.StringVar(&in.Phone, "phone", "", "contact phone")
	f.StringVar(&in.Description, "description", "", "short description")
	f.StringVar(&in.OpeningHours, "opening-hours", "", "e.g. 09:00-23:00")
	f.StringVar(&in.DeliveryTime, "delivery-time", "", "e.g. 30-45 min")
	f.StringVar(&in.Image, "image", "", "image URL")

	cmd.AddCommand(create)
	return cmd
}

func (c *cli) driverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "driver",
		Short: "Driver account actions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between available and unavailable for deliveries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := c.app.driver(cmd.Context())
			if err != nil {
				return err
			}
			updated, err := c.app.api.ToggleAvailability(cmd.Context(), d.ID)
			if err != nil {
				return err
			}
			s, _ := c.app.requireSession()
			_ = c.app.queries.Invalidate(cmd.Context(), profileKey(s.User.ID))

			state := "unavailable"
			if updated.IsAvailable {
				state = "available"
			}
			fmt.Fprintf(c.app.out, "You are now %s\n", state)
			return nil
		},
	})
	return cmd
}
