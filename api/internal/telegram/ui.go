package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"agrimind/api/internal/advisory"
	"agrimind/api/internal/dashboard"
)

const helpText = `AgriMind: farm overview and AI advice.

/dashboard: sensor overview
/alerts: current alerts
/pump [on|off]: manual water pump control
/engine [gpt|gemini]: choose the AI engine for this chat
/fertilizer n=12; p=8; k=10; crop=corn; ph=6.5
/irrigation moisture=45; forecast=Sunny; crop=corn; last=72h

Missing values fall back to the form defaults.`

const fertilizerUsage = "Usage: /fertilizer n=<N>; p=<P>; k=<K>; crop=<crop>; ph=<pH>; yield=<t/ha>; weather=<text>"

const irrigationUsage = "Usage: /irrigation moisture=<0-100>; forecast=<text>; crop=<crop>; last=<RFC3339 time or duration ago, e.g. 36h>"

func makePumpKeyboard() tgbotapi.InlineKeyboardMarkup {
	on := tgbotapi.NewInlineKeyboardButtonData("Turn ON", cbPumpOn)
	off := tgbotapi.NewInlineKeyboardButtonData("Turn OFF", cbPumpOff)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(on, off))
}

func formatStats(stats []dashboard.Stat, pump dashboard.PumpState) string {
	var b strings.Builder
	b.WriteString("📊 Farm overview\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "\n%s: %s\n  %s\n", s.Title, s.Value, s.Description)
	}
	b.WriteString("\n")
	b.WriteString(formatPump(pump))
	return b.String()
}

func formatAlerts(alerts []dashboard.Alert) string {
	var b strings.Builder
	b.WriteString("🚨 Critical Alerts\n")
	for _, a := range alerts {
		icon := "ℹ️"
		if a.Severity == dashboard.SeverityCritical {
			icon = "❗"
		}
		fmt.Fprintf(&b, "\n%s %s\n%s\n", icon, a.Title, a.Description)
	}
	return b.String()
}

func formatPump(s dashboard.PumpState) string {
	if s.On {
		return "Water pump: ON"
	}
	return "Water pump: OFF"
}

func formatToggle(t dashboard.Toggle) string {
	return "✅ " + t.Title + "\n" + t.Description
}

func formatFertilizer(req advisory.FertilizerRequest, out advisory.FertilizerResponse, engine string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🌱 *Fertilizer recommendation* for %s (N=%s, P=%s, K=%s, pH %s)\n\n",
		esc(req.CropType), num(req.NPK.Nitrogen), num(req.NPK.Phosphorus), num(req.NPK.Potassium), num(req.SoilPH))
	b.WriteString(esc(out.Recommendation))
	b.WriteString("\n\n*Why:* ")
	b.WriteString(esc(out.Explanation))
	fmt.Fprintf(&b, "\n\n*Confidence:* %.0f%%", out.ConfidenceScore*100)
	if engine != "" {
		fmt.Fprintf(&b, "\n_via %s_", esc(engine))
	}
	return b.String()
}

func formatIrrigation(req advisory.IrrigationRequest, out advisory.IrrigationResponse, engine string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💧 *Irrigation* for %s (moisture %s%%, last %s)\n\n",
		esc(req.CropType), num(req.SoilMoisturePercent), req.PreviousIrrigation.UTC().Format(time.RFC3339))
	if out.IrrigationNeeded {
		fmt.Fprintf(&b, "*Irrigate:* yes, %s min\n", num(out.IrrigationDurationMinutes))
	} else {
		b.WriteString("*Irrigate:* no\n")
	}
	b.WriteString("*Reason:* ")
	b.WriteString(esc(out.Reason))
	if engine != "" {
		fmt.Fprintf(&b, "\n_via %s_", esc(engine))
	}
	return b.String()
}

func formatFieldErrors(fe advisory.ValidationErrors) string {
	var b strings.Builder
	b.WriteString("⚠️ Invalid input:")
	for _, e := range fe {
		fmt.Fprintf(&b, "\n- %s %s", e.Field, e.Reason)
	}
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// light escaping for legacy Markdown
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}
