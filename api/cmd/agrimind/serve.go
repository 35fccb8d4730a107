package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"agrimind/api/internal/advisory"
	"agrimind/api/internal/dashboard"
	"agrimind/api/internal/handle"
	"agrimind/api/internal/httpserver"
	"agrimind/api/internal/llm"
	"agrimind/api/internal/metrics"
	"agrimind/api/internal/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, metrics and (when configured) the Telegram bot",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	engs, err := newEngines(cfg, m, logger)
	if err != nil {
		return err
	}
	pump := dashboard.NewPump()
	opts := []advisory.Option{
		advisory.WithTimeout(cfg.GetRequestTimeout()),
		advisory.WithRecorder(m),
	}

	mux := http.NewServeMux()
	handle.New(engs, pump, logger.Named("http"), opts...).Register(mux)
	mux.Handle("/metrics", m.Handler())

	g, gctx := errgroup.WithContext(ctx)

	var (
		router  *telegram.Router
		webhook bool
	)
	if cfg.Telegram.Token != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return err
		}
		def, err := engs.Default()
		if err != nil {
			return err
		}
		router = &telegram.Router{
			Bot:            bot,
			Engines:        engs,
			EngManager:     llm.NewManager(def),
			Pump:           pump,
			Log:            logger.Named("telegram"),
			InvokerOptions: opts,
		}

		if cfg.Telegram.WebhookURL != "" {
			webhook = true
			path, err := telegram.SetWebhook(bot, cfg.Telegram.WebhookURL)
			if err != nil {
				return err
			}
			mux.Handle(path, router.WebhookHandler(gctx, bot.HandleUpdate))
			logger.Info("telegram webhook mode", zap.String("bot", bot.Self.UserName))
		} else {
			if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
				logger.Warn("delete webhook", zap.Error(err))
			}
			g.Go(func() error {
				return router.RunPolling(gctx, bot, telegram.PollOptions{})
			})
			logger.Info("telegram polling mode", zap.String("bot", bot.Self.UserName))
		}
	}

	srv := httpserver.New(cfg.Addr(), mux, "ok", logger.Named("http"))
	g.Go(func() error {
		err := srv.Run(gctx)
		if webhook {
			// updates still in flight; RunPolling waits for its own
			router.Wait()
		}
		return err
	})

	logger.Info("agrimind started",
		zap.String("addr", cfg.Addr()),
		zap.Strings("engines", engs.Names()),
		zap.String("default_engine", cfg.Engine))
	return g.Wait()
}
