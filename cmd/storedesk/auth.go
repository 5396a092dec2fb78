package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"storedesk/internal/forms"
	"storedesk/internal/models"
)

type credentials struct {
	email, phone, password string
}

func (cr *credentials) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cr.email, "email", "", "sign in with this email")
	cmd.Flags().StringVar(&cr.phone, "phone", "", "sign in with this phone number")
	cmd.Flags().StringVar(&cr.password, "password", "", "account password")
	cmd.MarkFlagsMutuallyExclusive("email", "phone")
	cmd.MarkFlagsOneRequired("email", "phone")
}

func (cr *credentials) method() (string, string) {
	if cr.phone != "" {
		return forms.MethodPhone, cr.phone
	}
	return forms.MethodEmail, cr.email
}

func (c *cli) loginCmd() *cobra.Command {
	var cr credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			method, id := cr.method()
			s, err := c.app.session.Login(cmd.Context(), forms.LoginInput{Method: method, Identifier: id, Password: cr.password})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.app.out, "Signed in as %s (%s)\n", s.User.Name, s.User.EffectiveRole())
			return nil
		},
	}
	cr.bind(cmd)
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var (
		cr   credentials
		name string
		role string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			roleID := models.Role(role).ID()
			if roleID == 0 {
				return fmt.Errorf("unknown role %q, want store_owner or driver", role)
			}
			method, _ := cr.method()
			s, err := c.app.session.Register(cmd.Context(), forms.RegisterInput{
				Method:   method,
				Name:     name,
				Email:    cr.email,
				Phone:    cr.phone,
				Password: cr.password,
				RoleID:   roleID,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.app.out, "Welcome, %s. You are registered as %s.\n", s.User.Name, s.User.EffectiveRole())
			return nil
		},
	}
	cr.bind(cmd)
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(models.RoleStoreOwner), "store_owner or driver")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(c.app.out, "Signed out")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user with their store or driver record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := c.app.profile(cmd.Context())
			if err != nil {
				return err
			}
			return c.app.print(p, func(w io.Writer) {
				fmt.Fprintf(w, "User\t%d\t%s\t%s\n", p.ID, p.Name, p.Identifier())
				fmt.Fprintf(w, "Role\t%s\n", p.EffectiveRole())
				if p.Store != nil {
					fmt.Fprintf(w, "Store\t%d\t%s\t%s\n", p.Store.ID, p.Store.Name, p.Store.Address)
				}
				if p.Driver != nil {
					fmt.Fprintf(w, "Driver\t%d\tavailable=%t\n", p.Driver.ID, p.Driver.IsAvailable)
				}
			})
		},
	}
}

