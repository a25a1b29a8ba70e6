// Package render writes conversation views to a terminal.
//
// Streamed text is printed incrementally: each update prints only what was
// not printed before. HTML in model output is stripped, and inline data-URL
// images are described by their sniffed MIME type instead of being dumped.
package render

import (
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"

	"github.com/GriffinCanCode/chatstream/internal/domain/session"
	"github.com/GriffinCanCode/chatstream/internal/shared/types"
)

type printed struct {
	header    bool
	reasoning string
	content   string
	images    int
	done      bool
}

// shown is a message as it would appear on screen
type shown struct {
	role      types.Role
	reasoning string
	content   string
	images    []string
}

// Renderer is a session.Observer that streams to a writer
type Renderer struct {
	mu       sync.Mutex
	out      io.Writer
	errOut   io.Writer
	policy   *bluemonday.Policy
	active   *types.ConversationID
	messages []printed
	// section tracks the last thing written for the open assistant turn
	section string
}

// New creates a renderer writing conversation text to out and notices to errOut
func New(out, errOut io.Writer) *Renderer {
	return &Renderer{
		out:    out,
		errOut: errOut,
		policy: bluemonday.StrictPolicy(),
	}
}

var _ session.Observer = (*Renderer)(nil)

// OnUpdate implements session.Observer
func (r *Renderer) OnUpdate(v session.View) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := make([]shown, len(v.Messages))
	for i, m := range v.Messages {
		streaming := v.Loading && i == len(v.Messages)-1 && m.IsAssistant()
		msgs[i] = shown{
			role:      m.Role,
			reasoning: r.text(m.Reasoning, streaming),
			content:   r.text(m.Content, streaming),
			images:    m.Images,
		}
	}

	if r.needsRedraw(v.ActiveID, msgs) {
		r.messages = nil
		r.section = ""
		if v.ActiveID != nil {
			fmt.Fprintf(r.out, "\n── conversation %s ──\n", v.ActiveID)
		} else {
			fmt.Fprint(r.out, "\n── new conversation ──\n")
		}
	}
	if v.ActiveID != nil {
		id := *v.ActiveID
		r.active = &id
	} else {
		r.active = nil
	}

	for i, m := range msgs {
		if i == len(r.messages) {
			if i > 0 {
				r.finish(i - 1)
			}
			r.messages = append(r.messages, printed{})
		}
		r.renderMessage(i, m)
	}

	if !v.Loading && len(r.messages) > 0 {
		r.finish(len(r.messages) - 1)
	}
}

// needsRedraw reports whether msgs cannot be printed as a continuation of
// what is on screen
func (r *Renderer) needsRedraw(active *types.ConversationID, msgs []shown) bool {
	switch {
	case r.active != nil && active == nil:
		return true
	case r.active != nil && *r.active != *active:
		return true
	case r.active == nil && active != nil && len(r.messages) == 0:
		return true
	case len(msgs) < len(r.messages):
		return true
	}

	for i, p := range r.messages {
		m := msgs[i]
		if !strings.HasPrefix(m.content, p.content) || !strings.HasPrefix(m.reasoning, p.reasoning) || len(m.images) < p.images {
			return true
		}
	}
	return false
}

func (r *Renderer) renderMessage(i int, m shown) {
	p := &r.messages[i]

	if m.role != types.RoleAssistant {
		if !p.header {
			fmt.Fprintf(r.out, "%s: %s\n", m.role, m.content)
			p.header = true
			p.content = m.content
			p.done = true
		}
		return
	}

	if !p.header {
		fmt.Fprint(r.out, "assistant: ")
		p.header = true
	}

	if len(m.reasoning) > len(p.reasoning) {
		if r.section != "reasoning" {
			fmt.Fprint(r.out, "\n  (thinking) ")
			r.section = "reasoning"
		}
		fmt.Fprint(r.out, m.reasoning[len(p.reasoning):])
		p.reasoning = m.reasoning
	}

	if len(m.content) > len(p.content) {
		if r.section == "reasoning" {
			fmt.Fprint(r.out, "\n")
		}
		r.section = "content"
		fmt.Fprint(r.out, m.content[len(p.content):])
		p.content = m.content
	}

	for ; p.images < len(m.images); p.images++ {
		fmt.Fprintf(r.out, "\n[image: %s]", DescribeImage(m.images[p.images]))
		r.section = "image"
	}
}

func (r *Renderer) finish(i int) {
	p := &r.messages[i]
	if p.done {
		return
	}
	fmt.Fprint(r.out, "\n")
	p.done = true
	r.section = ""
}

const (
	// tagWindow bounds how far back an unclosed tag may start and still be
	// held as in flight
	tagWindow    = 64
	entityWindow = 12
)

// text strips markup. While the message is still streaming, a trailing tag
// or character reference that has not finished arriving is held back.
func (r *Renderer) text(s string, streaming bool) string {
	if streaming {
		s = s[:settled(s)]
	}

	// an unclosed '<' is literal text; the sanitizer would swallow it
	head, tail := s, ""
	if open := strings.LastIndexByte(s, '<'); open >= 0 && !strings.Contains(s[open:], ">") {
		head, tail = s[:open], s[open:]
	}
	if strings.ContainsAny(head, "<>&") {
		head = html.UnescapeString(r.policy.Sanitize(head))
	}
	return head + html.UnescapeString(tail)
}

// settled returns the length of the prefix of s that later text cannot change
func settled(s string) int {
	cut := len(s)
	if open := strings.LastIndexByte(s, '<'); open >= 0 && cut-open <= tagWindow &&
		!strings.Contains(s[open:], ">") && opensTag(s[open+1:]) {
		cut = open
	}
	if amp := strings.LastIndexByte(s[:cut], '&'); amp >= 0 && cut-amp <= entityWindow &&
		isReferencePrefix(s[amp+1:cut]) {
		cut = amp
	}
	return cut
}

func opensTag(rest string) bool {
	if rest == "" {
		return true
	}
	c := rest[0]
	return c == '/' || c == '!' || isLetter(c)
}

func isReferencePrefix(rest string) bool {
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if !isLetter(c) && !(c >= '0' && c <= '9') && c != '#' {
			return false
		}
	}
	return true
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// OnSessionCreated implements session.Observer
func (r *Renderer) OnSessionCreated(s types.SessionSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.errOut, "[conversation %s created]\n", s.ID)
}

// OnError implements session.Observer
func (r *Renderer) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.errOut, "error: %v\n", err)
}

// DescribeImage summarizes an image reference for terminal output
func DescribeImage(url string) string {
	if !strings.HasPrefix(url, "data:") {
		return url
	}

	comma := strings.IndexByte(url, ',')
	if comma < 0 || !strings.HasSuffix(url[:comma], ";base64") {
		return "inline image"
	}
	data, err := base64.StdEncoding.DecodeString(url[comma+1:])
	if err != nil {
		return "inline image (undecodable)"
	}
	return fmt.Sprintf("%s, %s", mimetype.Detect(data).String(), humanSize(len(data)))
}

func humanSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
