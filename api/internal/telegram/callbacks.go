package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cbPumpOn  = "pump_on"
	cbPumpOff = "pump_off"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	cid := cb.Message.Chat.ID

	switch cb.Data {
	case cbPumpOn, cbPumpOff:
		t := r.Pump.Set(cb.Data == cbPumpOn)
		_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, t.Title))
		edit := tgbotapi.NewEditMessageTextAndMarkup(cid, cb.Message.MessageID, formatPump(t.PumpState), makePumpKeyboard())
		_, _ = r.Bot.Send(edit)
	default:
		_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, ""))
	}
}
