package telegram

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Updater is the long-polling half of *tgbotapi.BotAPI.
type Updater interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

// retryDelayFromError picks the pause after a failed getUpdates call. It only
// concerns the Telegram transport; advisory calls never retry.
func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

type PollOptions struct {
	// Timeout is the long-polling timeout in seconds.
	Timeout   int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Idle is the pause after an empty batch.
	Idle time.Duration
}

func (o *PollOptions) withDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 30
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 1 * time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 15 * time.Second
	}
	if o.Idle <= 0 {
		o.Idle = 200 * time.Millisecond
	}
}

// RunPolling fetches updates until ctx is done and dispatches each one to
// the router. It returns after every dispatched update has finished.
func (r *Router) RunPolling(ctx context.Context, bot Updater, opts PollOptions) error {
	opts.withDefaults()
	log := r.logger()
	offset := 0
	defer r.Wait()

	for {
		if ctx.Err() != nil {
			log.Info("polling stopped")
			return nil
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = opts.Timeout

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := retryDelayFromError(err)
			if d < opts.BaseDelay {
				d = opts.BaseDelay
			}
			if d > opts.MaxDelay {
				d = opts.MaxDelay
			}
			log.Warn("polling error", zap.Error(err), zap.Duration("retry_in", d))
			sleep(ctx, d)
			continue
		}

		// a long poll can outlive ctx; updates left unconfirmed are redelivered
		if ctx.Err() != nil {
			log.Info("polling stopped", zap.Int("undelivered", len(updates)))
			return nil
		}
		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			r.Dispatch(ctx, upd)
		}
		if len(updates) == 0 {
			sleep(ctx, opts.Idle)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// WebhookPath is the secret path updates are posted to.
func WebhookPath(token string) string {
	h := sha256.Sum256([]byte(token))
	return "/webhook/" + hex.EncodeToString(h[:])[:16]
}

// SetWebhook registers baseURL+WebhookPath(token) with Telegram and returns
// the path to mount WebhookHandler on.
func SetWebhook(bot *tgbotapi.BotAPI, baseURL string) (string, error) {
	path := WebhookPath(bot.Token)
	wh, err := tgbotapi.NewWebhook(strings.TrimRight(baseURL, "/") + path)
	if err != nil {
		return "", err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return "", err
	}
	return path, nil
}

// WebhookHandler acknowledges each posted update at once and handles it in
// the background under ctx.
func (r *Router) WebhookHandler(ctx context.Context, parse func(*http.Request) (*tgbotapi.Update, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		upd, err := parse(req)
		if err != nil {
			r.logger().Warn("bad webhook update", zap.Error(err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		r.Dispatch(ctx, *upd)
		w.WriteHeader(http.StatusOK)
	}
}
