package main

import (
	"github.com/spf13/cobra"

	"storedesk/internal/config"
)

type cli struct {
	cfg    *config.Config
	app    *app
	asJSON bool
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	return (&cli{cfg: cfg}).rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	cfg := c.cfg
	root := &cobra.Command{
		Use:           "storedesk",
		Short:         "Manage a marketplace store or driver account from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), c.cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			a.asJSON = c.asJSON
			c.app = a
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.app != nil {
				c.app.Close()
			}
		},
	}
	root.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print JSON instead of tables")
	root.PersistentFlags().StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "backend base URL")

	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.storeCmd(),
		c.driverCmd(),
		c.categoriesCmd(),
		c.productsCmd(),
		c.ordersCmd(),
		c.notificationsCmd(),
		c.watchCmd(),
	)
	return root
}
