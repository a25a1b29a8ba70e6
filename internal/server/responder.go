package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/chatstream/internal/protocol"
	"github.com/GriffinCanCode/chatstream/internal/shared/types"
)

// ErrorTrigger makes the scripted responder fail a turn
const ErrorTrigger = "!error"

// samplePNG is a 1x1 PNG
const samplePNG = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// Responder produces the assistant side of a turn. Frames are passed to
// emit as they are produced; the returned message is what gets stored.
type Responder interface {
	Respond(ctx context.Context, model Model, transcript []types.TranscriptEntry, emit func(protocol.Frame) error) (types.Message, error)
}

// ScriptedResponder echoes the last user turn
type ScriptedResponder struct {
	ChunkDelay time.Duration
}

// Respond implements Responder
func (r ScriptedResponder) Respond(ctx context.Context, model Model, transcript []types.TranscriptEntry, emit func(protocol.Frame) error) (types.Message, error) {
	reply := types.Message{Role: types.RoleAssistant}

	last, ok := lastUserTurn(transcript)
	if !ok {
		return reply, errors.New("transcript has no user turn")
	}
	if strings.HasPrefix(last, ErrorTrigger) {
		return reply, fmt.Errorf("API Error or unexpected error: upstream rejected %q", model.ID)
	}

	var reasoning, content strings.Builder

	if model.Reasoning {
		for _, chunk := range words(fmt.Sprintf("The user wrote %d characters; answering plainly.", len(last))) {
			if err := r.step(ctx, emit, protocol.ReasoningDelta{Text: chunk}); err != nil {
				return reply, err
			}
			reasoning.WriteString(chunk)
		}
	}

	for _, chunk := range words(fmt.Sprintf("You said: %s", last)) {
		if err := r.step(ctx, emit, protocol.Delta{Text: chunk}); err != nil {
			return reply, err
		}
		content.WriteString(chunk)
	}

	if model.Image {
		if err := r.step(ctx, emit, protocol.Image{URL: samplePNG}); err != nil {
			return reply, err
		}
		reply.Images = []string{samplePNG}
	}

	reply.Content = content.String()
	reply.Reasoning = reasoning.String()
	return reply, nil
}

func (r ScriptedResponder) step(ctx context.Context, emit func(protocol.Frame) error, f protocol.Frame) error {
	if r.ChunkDelay > 0 {
		select {
		case <-time.After(r.ChunkDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return emit(f)
}

func lastUserTurn(transcript []types.TranscriptEntry) (string, bool) {
	if len(transcript) == 0 {
		return "", false
	}
	last := transcript[len(transcript)-1]
	if last.Role != types.RoleUser {
		return "", false
	}
	return last.Content, true
}

// words splits s into chunks that concatenate back to s
func words(s string) []string {
	var out []string
	start := 0
	for i := 1; i < len(s); i++ {
		if s[i] == ' ' {
			out = append(out, s[start:i])
			start = i
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
