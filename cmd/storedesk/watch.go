package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"storedesk/internal/models"
	"storedesk/internal/notify"
	"storedesk/internal/orders"
	"storedesk/internal/realtime"
	"storedesk/internal/relay"
	"storedesk/internal/telemetry"
)

const forwardTimeout = 5 * time.Second

func (c *cli) watchCmd() *cobra.Command {
	var (
		metricsAddr  string
		amqpURL      string
		telegramChat int64
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stay connected and print new orders as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := c.app.store(ctx)
			if err != nil {
				return err
			}

			socket, err := realtime.NewSocket(c.cfg.SocketURL)
			if err != nil {
				return err
			}

			badge := notify.NewBadge(c.app.api, store.ID, models.NotifiableStore)
			socket.OnConnect(func() {
				badge.SetConnected(true)
				if err := badge.Refresh(ctx); err != nil {
					slog.Warn("Notification refresh failed", "error", err)
				}
			})
			socket.OnDisconnect(func(error) {
				badge.SetConnected(false)
				if ctx.Err() != nil {
					return
				}
				if err := badge.Refresh(ctx); err != nil {
					slog.Warn("Notification refresh failed", "error", err)
				}
			})

			board := orders.NewBoard()
			list, err := c.app.orders.List(ctx, store.ID)
			if err != nil {
				return err
			}
			board.Replace(list)

			sinks, err := c.sinks(amqpURL, telegramChat)
			if err != nil {
				return err
			}

			if metricsAddr != "" {
				srv := serveMetrics(metricsAddr)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			fmt.Fprintf(c.app.out, "Watching %s, %d active orders. Ctrl-C to stop.\n", store.Name, board.Counts()[orders.TabActive])

			onNewOrder := func(o models.Order) {
				if !board.Upsert(o) {
					return
				}
				if err := c.app.queries.Invalidate(ctx, orders.Key(store.ID)); err != nil {
					slog.Warn("Order cache invalidation failed", "error", err)
				}
				if err := badge.Refresh(ctx); err != nil {
					slog.Warn("Notification refresh failed", "error", err)
				}
				if len(sinks) > 0 {
					fctx, cancel := context.WithTimeout(ctx, forwardTimeout)
					if err := sinks.Forward(fctx, o); err != nil {
						slog.Error("Relay failed", "order_id", o.ID, "error", err)
					}
					cancel()
				}

				if c.app.asJSON {
					_ = c.app.print(o, nil)
					return
				}
				fmt.Fprintf(c.app.out, "%s  %s  (%d unread)\n", time.Now().Format("15:04:05"), relay.Card(o), badge.Unread())
			}

			err = realtime.NewOrderBridge(socket).Watch(ctx, store.ID, onNewOrder)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&metricsAddr, "metrics-addr", c.cfg.MetricsAddr, "serve Prometheus metrics on this address")
	f.StringVar(&amqpURL, "amqp", c.cfg.AMQPURL, "publish new orders to this RabbitMQ server")
	f.Int64Var(&telegramChat, "telegram-chat", c.cfg.TelegramChatID, "forward new orders to this Telegram chat")
	return cmd
}

// sinks builds the relay targets that are configured. The returned Fanout
// may be empty.
func (c *cli) sinks(amqpURL string, telegramChat int64) (relay.Fanout, error) {
	var out relay.Fanout

	if amqpURL != "" {
		s, err := relay.DialAMQP(amqpURL, c.cfg.RelayExchange)
		if err != nil {
			return nil, err
		}
		c.app.closers = append(c.app.closers, s.Close)
		out = append(out, s)
		slog.Info("Relaying orders to RabbitMQ", "exchange", c.cfg.RelayExchange)
	}

	if telegramChat != 0 {
		if c.cfg.TelegramToken == "" {
			return nil, errors.New("TELEGRAM_TOKEN is required to forward to Telegram")
		}
		endpoint := c.cfg.TelegramAPIEndpoint
		if endpoint == "" {
			endpoint = tgbotapi.APIEndpoint
		}
		bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(c.cfg.TelegramToken, endpoint)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		out = append(out, relay.NewTelegramSink(bot, telegramChat))
		slog.Info("Relaying orders to Telegram", "bot", bot.Self.UserName, "chat_id", telegramChat)
	}
	return out, nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", telemetry.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		slog.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	return srv
}
