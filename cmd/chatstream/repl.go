package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/chatstream/internal/domain/conversations"
	"github.com/GriffinCanCode/chatstream/internal/render"
	"github.com/GriffinCanCode/chatstream/internal/shared/types"
)

// Controller is the part of session.Controller the prompt drives
type Controller interface {
	SelectConversation(id types.ConversationID)
	NewChat()
	Submit(text string)
}

// Backend is the part of the REST client the prompt drives
type Backend interface {
	conversations.Source
	ListModels(ctx context.Context) (*types.ModelCatalog, error)
	SelectModel(ctx context.Context, modelID string) (*types.ModelSelection, error)
}

type commandKind int

const (
	cmdSubmit commandKind = iota
	cmdNew
	cmdList
	cmdOpen
	cmdModels
	cmdModel
	cmdHelp
	cmdQuit
	cmdUnknown
)

type command struct {
	kind commandKind
	arg  string
}

func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{kind: cmdSubmit, arg: line}
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "new":
		return command{kind: cmdNew}
	case "list", "ls":
		return command{kind: cmdList}
	case "open":
		return command{kind: cmdOpen, arg: arg}
	case "models":
		return command{kind: cmdModels}
	case "model":
		return command{kind: cmdModel, arg: arg}
	case "help", "?":
		return command{kind: cmdHelp}
	case "quit", "exit", "q":
		return command{kind: cmdQuit}
	default:
		return command{kind: cmdUnknown, arg: name}
	}
}

const helpText = `/new            start a new conversation
/list           list conversations
/open <id|#n>   open a conversation by id or list position
/models         list models
/model <id>     switch the backend model
/quit           exit
`

type repl struct {
	ctrl   Controller
	client Backend
	list   *conversations.List
	out    io.Writer
	errOut io.Writer
}

// run reads commands until in is exhausted, /quit, or ctx is done
func (r *repl) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1<<20)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if !r.handle(ctx, parseCommand(line)) {
				return nil
			}
		}
	}
}

// handle executes one command and reports whether to keep going
func (r *repl) handle(ctx context.Context, cmd command) bool {
	switch cmd.kind {
	case cmdSubmit:
		if cmd.arg != "" {
			r.ctrl.Submit(cmd.arg)
		}
	case cmdNew:
		r.list.Clear()
		r.ctrl.NewChat()
	case cmdList:
		if err := r.list.Load(ctx, r.client); err != nil {
			fmt.Fprintf(r.errOut, "error: %v\n", err)
			return true
		}
		r.printSessions()
	case cmdOpen:
		id, err := r.resolve(cmd.arg)
		if err != nil {
			fmt.Fprintf(r.errOut, "error: %v\n", err)
			return true
		}
		r.list.Select(id)
		r.ctrl.SelectConversation(id)
	case cmdModels:
		catalog, err := r.client.ListModels(ctx)
		if err != nil {
			fmt.Fprintf(r.errOut, "error: %v\n", err)
			return true
		}
		render.Models(r.out, catalog)
	case cmdModel:
		if cmd.arg == "" {
			fmt.Fprintln(r.errOut, "usage: /model <id>")
			return true
		}
		sel, err := r.client.SelectModel(ctx, cmd.arg)
		if err != nil {
			fmt.Fprintf(r.errOut, "error: %v\n", err)
			return true
		}
		fmt.Fprintln(r.out, sel.Message)
	case cmdHelp:
		fmt.Fprint(r.out, helpText)
	case cmdQuit:
		return false
	default:
		fmt.Fprintf(r.errOut, "unknown command /%s (try /help)\n", cmd.arg)
	}
	return true
}

// resolve accepts a conversation id or a #position from the last listing
func (r *repl) resolve(arg string) (types.ConversationID, error) {
	if arg == "" {
		return 0, fmt.Errorf("usage: /open <id|#n>")
	}
	if pos, ok := strings.CutPrefix(arg, "#"); ok {
		n, err := strconv.Atoi(pos)
		if err != nil {
			return 0, fmt.Errorf("invalid position %q", arg)
		}
		item, ok := r.list.At(n)
		if !ok {
			return 0, fmt.Errorf("no conversation at position %d", n)
		}
		return item.ID, nil
	}
	return types.ParseConversationID(arg)
}

func (r *repl) printSessions() {
	var selected *types.ConversationID
	if id, ok := r.list.Selected(); ok {
		selected = &id
	}
	render.Sessions(r.out, r.list.Items(), selected)
}
