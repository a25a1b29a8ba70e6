package types

import "sort"

// ModelCatalog lists the models the backend can route to
type ModelCatalog struct {
	AvailableModels map[string]string `json:"available_models"`
	CurrentModel    string            `json:"current_model"`
}

// IDs returns the model ids in lexical order
func (c ModelCatalog) IDs() []string {
	ids := make([]string, 0, len(c.AvailableModels))
	for id := range c.AvailableModels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Name returns the display name of a model, falling back to its id
func (c ModelCatalog) Name(id string) string {
	if name, ok := c.AvailableModels[id]; ok {
		return name
	}
	return id
}

// ModelSelection is returned after switching models
type ModelSelection struct {
	Message      string `json:"message"`
	CurrentModel string `json:"current_model"`
	ModelName    string `json:"model_name"`
}
