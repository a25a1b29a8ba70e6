package server

import (
	"sync"

	"github.com/GriffinCanCode/chatstream/internal/shared/types"
)

// Model describes one routable model
type Model struct {
	ID        string
	Name      string
	Reasoning bool
	Image     bool
	MaxTokens int
}

// DefaultModels is the catalog served unless another is supplied
var DefaultModels = []Model{
	{ID: "google/gemini-2.0-flash-001", Name: "Google Gemini 2.0 Flash"},
	{ID: "openai/gpt-5", Name: "OpenAI GPT-5", Reasoning: true, MaxTokens: 32000},
	{ID: "openai/gpt-4.1-mini", Name: "GPT-4.1 Mini"},
	{ID: "google/gemini-2.5-flash-image-preview", Name: "Google Gemini 2.5 Flash Image", Image: true},
	{ID: "qwen/qwen3-coder", Name: "Qwen3 Coder"},
	{ID: "openai/gpt-4-turbo", Name: "OpenAI GPT-4 Turbo"},
}

// Catalog holds the available models and the current selection
type Catalog struct {
	mu      sync.RWMutex
	models  map[string]Model
	current string
}

// NewCatalog creates a catalog; an unknown current id falls back to the
// first model
func NewCatalog(models []Model, current string) *Catalog {
	c := &Catalog{models: make(map[string]Model, len(models))}
	for _, m := range models {
		c.models[m.ID] = m
	}
	if _, ok := c.models[current]; !ok && len(models) > 0 {
		current = models[0].ID
	}
	c.current = current
	return c
}

// Current returns the selected model
func (c *Catalog) Current() Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.models[c.current]
}

// Lookup returns a model by id
func (c *Catalog) Lookup(id string) (Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[id]
	return m, ok
}

// Select switches the current model
func (c *Catalog) Select(id string) (Model, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.models[id]
	if ok {
		c.current = id
	}
	return m, ok
}

// Snapshot returns the wire form of the catalog
func (c *Catalog) Snapshot() types.ModelCatalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := types.ModelCatalog{
		AvailableModels: make(map[string]string, len(c.models)),
		CurrentModel:    c.current,
	}
	for id, m := range c.models {
		out.AvailableModels[id] = m.Name
	}
	return out
}
