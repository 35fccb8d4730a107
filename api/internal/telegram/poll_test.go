package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpdater struct {
	mu      sync.Mutex
	batches [][]tgbotapi.Update
	errs    []error
	offsets []int
	cancel  context.CancelFunc
}

func (f *fakeUpdater) GetUpdates(c tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, c.Offset)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	if len(f.batches) == 0 {
		f.cancel()
		return nil, nil
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b, nil
}

func TestRunPolling(t *testing.T) {
	r, bot := newRouter(&stubProvider{name: "gpt"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	up := &fakeUpdater{
		errs: []error{errors.New("connection reset")},
		batches: [][]tgbotapi.Update{
			{withID(command(1, "/alerts"), 10), withID(command(1, "/help"), 11)},
			{withID(command(1, "/dashboard"), 12)},
		},
		cancel: cancel,
	}
	err := r.RunPolling(ctx, up, PollOptions{BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Idle: time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0, 12, 13}, up.offsets)
	assert.Len(t, bot.texts(), 3)
}

// lateUpdater returns a batch from a long poll that ends after ctx is done.
type lateUpdater struct {
	cancel context.CancelFunc
	calls  int
}

func (l *lateUpdater) GetUpdates(tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	l.calls++
	l.cancel()
	return []tgbotapi.Update{withID(command(1, "/alerts"), 40)}, nil
}

func TestRunPolling_DropsUpdatesAfterCancel(t *testing.T) {
	r, bot := newRouter(&stubProvider{name: "gpt"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	up := &lateUpdater{cancel: cancel}
	require.NoError(t, r.RunPolling(ctx, up, PollOptions{Idle: time.Millisecond}))
	assert.Equal(t, 1, up.calls)
	assert.Empty(t, bot.texts())
}

func withID(u tgbotapi.Update, id int) tgbotapi.Update {
	u.UpdateID = id
	return u
}

func TestRetryDelayFromError(t *testing.T) {
	assert.Zero(t, retryDelayFromError(nil))
	assert.Equal(t, 7*time.Second, retryDelayFromError(errors.New("Too Many Requests: retry after 7")))
	assert.Equal(t, 3*time.Second, retryDelayFromError(errors.New("too many requests")))
	assert.Equal(t, time.Second, retryDelayFromError(errors.New("EOF")))
}

func TestWebhookPath(t *testing.T) {
	p := WebhookPath("123:abc")
	assert.True(t, strings.HasPrefix(p, "/webhook/"))
	assert.Len(t, strings.TrimPrefix(p, "/webhook/"), 16)
	assert.Equal(t, p, WebhookPath("123:abc"))
	assert.NotEqual(t, p, WebhookPath("123:abd"))
}

func TestWebhookHandler(t *testing.T) {
	r, bot := newRouter(&stubProvider{name: "gpt"})
	api := &tgbotapi.BotAPI{}
	h := r.WebhookHandler(context.Background(), api.HandleUpdate)

	body := `{"update_id":5,"message":{"message_id":1,"date":0,"chat":{"id":77,"type":"private"},"text":"/alerts","entities":[{"type":"bot_command","offset":0,"length":7}]}}`
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, WebhookPath("t"), strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)

	r.Wait()
	assert.Contains(t, bot.last(), "Critical Alerts")

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, WebhookPath("t"), strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
