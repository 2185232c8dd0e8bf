// Package control reads operator commands from a terminal and dispatches them
// one at a time.
package control

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Command names.
const (
	CmdRecord   = "record"
	CmdSnapshot = "snapshot"
	CmdCheek    = "cheek"
	CmdStatus   = "status"
	CmdQuit     = "quit"
)

var aliases = map[string]string{
	"r": CmdRecord, "rec": CmdRecord, CmdRecord: CmdRecord,
	"s": CmdSnapshot, "snap": CmdSnapshot, CmdSnapshot: CmdSnapshot,
	"c": CmdCheek, CmdCheek: CmdCheek,
	"?": CmdStatus, CmdStatus: CmdStatus,
	"q": CmdQuit, "exit": CmdQuit, CmdQuit: CmdQuit,
}

// ErrUnknownCommand is returned by Parse for input that maps to no command.
var ErrUnknownCommand = errors.New("unknown command")

// Help lists the keys shown at startup.
const Help = "r = toggle recording, s = snapshot (while recording), c = toggle cheek trace, ? = status, q = quit and save"

// Command is one operator request.
type Command struct {
	Name string
	Raw  string
}

// Parse maps a line of input to a command. Case and surrounding space are ignored.
func Parse(line string) (Command, error) {
	raw := strings.TrimSpace(line)
	name, ok := aliases[strings.ToLower(raw)]
	if !ok {
		return Command{Raw: raw}, ErrUnknownCommand
	}
	return Command{Name: name, Raw: raw}, nil
}

// Callbacks are invoked serially from Handler.Run. A nil callback ignores
// the command.
type Callbacks struct {
	OnToggleRecord func() error
	OnSnapshot     func() error
	OnToggleCheek  func() error
	OnStatus       func() error
	OnQuit         func() error
}

type Handler struct {
	in        io.Reader
	callbacks Callbacks
	commands  chan Command
	done      chan struct{} // closed when Run returns
	stopped   chan struct{} // closed when the reader exits
	log       *logrus.Entry
}

func NewHandler(in io.Reader, callbacks Callbacks) *Handler {
	return &Handler{
		in:        in,
		callbacks: callbacks,
		commands:  make(chan Command, 10),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		log:       logrus.WithField("component", "control"),
	}
}

// Run dispatches commands until ctx is done or quit is handled. End of
// input stops reading but not the handler. Run may be called once.
func (h *Handler) Run(ctx context.Context) {
	defer close(h.done)
	go h.read()
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-h.commands:
			if !ok {
				<-ctx.Done()
				return
			}
			if h.dispatch(cmd) {
				return
			}
		}
	}
}

func (h *Handler) read() {
	defer close(h.stopped)
	defer close(h.commands)
	sc := bufio.NewScanner(h.in)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cmd, err := Parse(line)
		if err != nil {
			h.log.WithField("input", cmd.Raw).Warn("unknown command; " + Help)
			continue
		}
		select {
		case h.commands <- cmd:
		case <-h.done:
			return
		}
	}
	if err := sc.Err(); err != nil {
		h.log.WithError(err).Warn("console input closed")
	}
}

// dispatch runs one command and reports whether it was quit.
func (h *Handler) dispatch(cmd Command) bool {
	var fn func() error
	switch cmd.Name {
	case CmdRecord:
		fn = h.callbacks.OnToggleRecord
	case CmdSnapshot:
		fn = h.callbacks.OnSnapshot
	case CmdCheek:
		fn = h.callbacks.OnToggleCheek
	case CmdStatus:
		fn = h.callbacks.OnStatus
	case CmdQuit:
		fn = h.callbacks.OnQuit
	}
	if fn != nil {
		if err := fn(); err != nil {
			h.log.WithError(err).WithField("command", cmd.Name).Warn("command failed")
		}
	}
	return cmd.Name == CmdQuit
}
