package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"agrimind/api/internal/advisory"
	"agrimind/api/internal/dashboard"
	"agrimind/api/internal/llm"
	"agrimind/api/internal/util"
)

// Telegram rejects texts above 4096 characters.
const maxText = 3900

// Sender is the part of *tgbotapi.BotAPI the router talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Router struct {
	Bot        Sender
	Engines    *llm.Engines
	EngManager *llm.Manager
	Pump       *dashboard.Pump
	Log        *zap.Logger
	// InvokerOptions are applied to every advisory call.
	InvokerOptions []advisory.Option
	Now            func() time.Time

	wg sync.WaitGroup
}

// Dispatch handles upd in the background; Wait blocks until every
// dispatched update is done.
func (r *Router) Dispatch(ctx context.Context, upd tgbotapi.Update) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.HandleUpdate(ctx, upd)
	}()
}

func (r *Router) Wait() { r.wg.Wait() }

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	if upd.Message.IsCommand() {
		r.HandleCommand(ctx, upd.Message)
		return
	}
	if strings.TrimSpace(upd.Message.Text) != "" {
		r.send(upd.Message.Chat.ID, "I only understand commands. Try /help.")
	}
}

func (r *Router) HandleCommand(ctx context.Context, m *tgbotapi.Message) {
	cid := m.Chat.ID
	args := strings.TrimSpace(m.CommandArguments())
	r.logger().Debug("command", zap.Int64("chat_id", cid), zap.String("command", m.Command()))

	switch m.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "dashboard":
		r.send(cid, formatStats(dashboard.Stats(), r.Pump.State()))
	case "alerts":
		r.send(cid, formatAlerts(dashboard.Alerts()))
	case "pump":
		r.handlePump(cid, args)
	case "engine":
		r.handleEngine(cid, args)
	case "fertilizer":
		r.handleFertilizer(ctx, cid, args)
	case "irrigation":
		r.handleIrrigation(ctx, cid, args)
	default:
		r.send(cid, "Unknown command. Try /help.")
	}
}

func (r *Router) handlePump(cid int64, args string) {
	switch strings.ToLower(args) {
	case "":
		msg := tgbotapi.NewMessage(cid, formatPump(r.Pump.State()))
		msg.ReplyMarkup = makePumpKeyboard()
		_, _ = r.Bot.Send(msg)
	case "on", "off":
		r.send(cid, formatToggle(r.Pump.Set(args == "on")))
	default:
		r.send(cid, "Usage: /pump [on|off]")
	}
}

// handleEngine switches the provider for this chat only.
func (r *Router) handleEngine(cid int64, args string) {
	names := strings.Join(r.Engines.Names(), " | ")
	if args == "" {
		cur := r.EngManager.Get(cid)
		if cur == nil {
			r.send(cid, "No engine configured.")
			return
		}
		r.send(cid, fmt.Sprintf("Current engine: %s (%s)\nUsage: /engine {%s}", cur.Name(), cur.Model(), names))
		return
	}
	p, err := r.Engines.Get(strings.Fields(args)[0])
	if err != nil {
		r.send(cid, "Unknown engine. Available: "+names)
		return
	}
	r.EngManager.Set(cid, p)
	r.send(cid, fmt.Sprintf("✅ Engine: %s (%s).", p.Name(), p.Model()))
}

func (r *Router) handleFertilizer(ctx context.Context, cid int64, args string) {
	req, err := fertilizerFromArgs(args)
	if err != nil {
		r.send(cid, "⚠️ "+err.Error()+"\n\n"+fertilizerUsage)
		return
	}
	inv, p := r.invoker(cid)
	r.typing(cid)
	out, err := inv.Fertilizer(ctx, req)
	if err != nil {
		r.sendFailure(cid, advisory.FlowFertilizer, err)
		return
	}
	r.sendMarkdown(cid, formatFertilizer(req, out, engineName(p)))
}

func (r *Router) handleIrrigation(ctx context.Context, cid int64, args string) {
	req, err := irrigationFromArgs(args, r.now())
	if err != nil {
		r.send(cid, "⚠️ "+err.Error()+"\n\n"+irrigationUsage)
		return
	}
	inv, p := r.invoker(cid)
	r.typing(cid)
	out, err := inv.Irrigation(ctx, req)
	if err != nil {
		r.sendFailure(cid, advisory.FlowIrrigation, err)
		return
	}
	r.sendMarkdown(cid, formatIrrigation(req, out, engineName(p)))
}

func (r *Router) invoker(cid int64) (*advisory.Invoker, llm.Provider) {
	p := r.EngManager.Get(cid)
	opts := append([]advisory.Option{advisory.WithLogger(r.logger().With(zap.Int64("chat_id", cid)))}, r.InvokerOptions...)
	return advisory.NewInvoker(p, opts...), p
}

func (r *Router) sendFailure(cid int64, flow string, err error) {
	if errors.Is(err, advisory.ErrInvalidRequest) {
		r.send(cid, formatFieldErrors(advisory.FieldErrors(err)))
		return
	}
	r.send(cid, "❌ "+advisory.UserMessage(flow))
}

func (r *Router) typing(cid int64) {
	_, _ = r.Bot.Request(tgbotapi.NewChatAction(cid, tgbotapi.ChatTyping))
}

func (r *Router) send(chatID int64, text string) {
	_, _ = r.Bot.Send(tgbotapi.NewMessage(chatID, util.Truncate(text, maxText)))
}

func (r *Router) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, util.Truncate(text, maxText))
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, _ = r.Bot.Send(msg)
}

func (r *Router) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Router) logger() *zap.Logger {
	if r.Log != nil {
		return r.Log
	}
	return zap.NewNop()
}

func engineName(p llm.Provider) string {
	if p == nil {
		return ""
	}
	return p.Name()
}
