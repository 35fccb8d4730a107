// Package dashboard serves the farm overview: placeholder sensor cards,
// static alerts and the manual pump switch. There is no sensor ingestion;
// every reading here is fixed.
package dashboard

import (
	"sync"
	"time"
)

type Stat struct {
	Title       string `json:"title"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityInfo     Severity = "info"
)

type Alert struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

func Stats() []Stat {
	return []Stat{
		{Title: "Soil Moisture", Value: "45%", Description: "Optimal range: 50-70%"},
		{Title: "NPK Levels", Value: "12-8-10", Description: "Nitrogen-Phosphorus-Potassium"},
		{Title: "Temperature", Value: "26°C", Description: "Ambient air temperature"},
		{Title: "Weather", Value: "Sunny", Description: "Next 24h: chance of rain 10%"},
	}
}

func Alerts() []Alert {
	return []Alert{
		{Title: "Low Nitrogen Levels", Description: "Consider applying nitrogen-rich fertilizer.", Severity: SeverityCritical},
		{Title: "Frost Warning", Description: "Temperature expected to drop below 2°C tonight.", Severity: SeverityInfo},
		{Title: "Pump Maintenance Due", Description: "Scheduled maintenance for water pump in 3 days.", Severity: SeverityInfo},
	}
}

// PumpState is a snapshot of the pump switch.
type PumpState struct {
	On        bool      `json:"on"`
	ChangedAt time.Time `json:"changedAt"`
}

// Toggle is the acknowledgement of a manual switch.
type Toggle struct {
	PumpState
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Pump is the manual override switch. It lives in process memory only.
type Pump struct {
	mu    sync.Mutex
	state PumpState
	now   func() time.Time
}

func NewPump() *Pump {
	return &Pump{now: time.Now}
}

func (p *Pump) State() PumpState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pump) Set(on bool) Toggle {
	p.mu.Lock()
	p.state = PumpState{On: on, ChangedAt: p.now().UTC()}
	st := p.state
	p.mu.Unlock()

	word := "OFF"
	if on {
		word = "ON"
	}
	return Toggle{
		PumpState:   st,
		Title:       "Water pump turned " + word,
		Description: "Manual override activated successfully.",
	}
}

// Overview is everything the dashboard shows at once.
type Overview struct {
	Stats  []Stat    `json:"stats"`
	Alerts []Alert   `json:"alerts"`
	Pump   PumpState `json:"pump"`
}

func (p *Pump) Overview() Overview {
	return Overview{Stats: Stats(), Alerts: Alerts(), Pump: p.State()}
}
