package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Request is a single structured completion: one rendered prompt and the
// schema the reply must conform to. No history, no tools, no streaming.
type Request struct {
	Name   string
	Prompt string
	Schema *Schema
}

// Provider renders a prompt into a structured reply. The returned bytes are
// the raw JSON text produced by the model; callers decode and validate it.
type Provider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req Request) ([]byte, error)
}

type Engines struct {
	def     string
	byName  map[string]Provider
	aliases map[string]string
}

func NewEngines() *Engines {
	return &Engines{
		byName:  map[string]Provider{},
		aliases: map[string]string{},
	}
}

// Register adds p under its Name and the given aliases. The first registered
// provider becomes the default until SetDefault is called.
func (e *Engines) Register(p Provider, aliases ...string) {
	name := strings.ToLower(p.Name())
	e.byName[name] = p
	for _, a := range aliases {
		e.aliases[strings.ToLower(a)] = name
	}
	if e.def == "" {
		e.def = name
	}
}

func (e *Engines) SetDefault(name string) error {
	p, err := e.Get(name)
	if err != nil {
		return err
	}
	e.def = strings.ToLower(p.Name())
	return nil
}

// Get resolves llmName to a provider; an empty name selects the default.
func (e *Engines) Get(llmName string) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(llmName))
	if name == "" {
		name = e.def
	}
	if real, ok := e.aliases[name]; ok {
		name = real
	}
	if p, ok := e.byName[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("unknown llm_name %q; use one of: %s", llmName, strings.Join(e.Names(), ", "))
}

func (e *Engines) Default() (Provider, error) {
	return e.Get("")
}

func (e *Engines) Names() []string {
	out := make([]string, 0, len(e.byName))
	for n := range e.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Manager keeps a per-chat provider choice on top of a default.
type Manager struct {
	def Provider
	m   sync.Map // chatID -> Provider
}

func NewManager(defaultProvider Provider) *Manager {
	return &Manager{def: defaultProvider}
}

func (m *Manager) Get(chatID int64) Provider {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Provider)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, p Provider) {
	m.m.Store(chatID, p)
}
