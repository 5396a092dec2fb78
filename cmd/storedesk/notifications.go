package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"storedesk/internal/models"
	"storedesk/internal/notify"
)

// badgeFor builds the badge of the signed-in account. kind picks the target
// when the account has both a store and a driver record.
func (c *cli) badgeFor(ctx context.Context, kind string) (*notify.Badge, error) {
	p, err := c.app.profile(ctx)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		kind = string(models.NotifiableStore)
		if p.EffectiveRole() == models.RoleDriver {
			kind = string(models.NotifiableDriver)
		}
	}

	switch models.NotifiableType(kind) {
	case models.NotifiableStore:
		if p.Store == nil {
			return nil, errNoStore
		}
		return notify.NewBadge(c.app.api, p.Store.ID, models.NotifiableStore), nil
	case models.NotifiableDriver:
		if p.Driver == nil {
			return nil, errNoDriver
		}
		return notify.NewBadge(c.app.api, p.Driver.ID, models.NotifiableDriver), nil
	default:
		return nil, fmt.Errorf("unknown notification type %q, want store or driver", kind)
	}
}

func (c *cli) notificationsCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notification"},
		Short:   "Read your notifications",
	}
	cmd.PersistentFlags().StringVar(&kind, "type", "", "store or driver, defaults to your role")

	list := &cobra.Command{
		Use:   "list",
		Short: "List notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			badge, err := c.badgeFor(cmd.Context(), kind)
			if err != nil {
				return err
			}
			if err := badge.Refresh(cmd.Context()); err != nil {
				return err
			}
			items := badge.Items()
			return c.app.print(items, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tREAD\tTITLE\tMESSAGE\tWHEN")
				for _, n := range items {
					read := " "
					if n.IsRead {
						read = "x"
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", n.ID, read, n.Title, n.Message, n.CreatedAt.Local().Format("Jan 2 15:04"))
				}
			})
		},
	}

	read := &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			badge, err := c.badgeFor(cmd.Context(), kind)
			if err != nil {
				return err
			}
			if err := badge.MarkRead(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(c.app.out, "Marked %d read, %d unread left\n", id, badge.Unread())
			return nil
		},
	}

	badge := &cobra.Command{
		Use:   "badge",
		Short: "Show the bell badge count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := c.badgeFor(cmd.Context(), kind)
			if err != nil {
				return err
			}
			if err := b.Refresh(cmd.Context()); err != nil {
				return err
			}
			summary := map[string]int{"count": b.Count(), "unread": b.Unread()}
			return c.app.print(summary, func(w io.Writer) {
				fmt.Fprintf(w, "Notifications\t%d\nUnread\t%d\n", b.Count(), b.Unread())
			})
		},
	}

	cmd.AddCommand(list, read, badge)
	return cmd
}
