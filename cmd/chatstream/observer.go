package main

import (
	"github.com/GriffinCanCode/chatstream/internal/domain/conversations"
	"github.com/GriffinCanCode/chatstream/internal/render"
	"github.com/GriffinCanCode/chatstream/internal/shared/types"
)

// tracker renders updates and keeps the conversation list in step with
// conversations the backend creates
type tracker struct {
	*render.Renderer
	list *conversations.List
}

func (t *tracker) OnSessionCreated(s types.SessionSummary) {
	t.list.Prepend(s)
	t.Renderer.OnSessionCreated(s)
}
