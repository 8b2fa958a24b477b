package sampling

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProtocol is returned for any control message the worker cannot
	// accept in its current state.
	ErrProtocol = errors.New("protocol violation")
	// ErrWorkerDead is returned by the controller once the worker has exited.
	ErrWorkerDead = errors.New("sampling worker is not running")
	// ErrNoParent is returned when the platform cannot report a parent process.
	ErrNoParent = errors.New("parent process id unavailable")
)

type Command int

const (
	CommandStart Command = iota + 1
	CommandStop
	CommandExit
)

func (c Command) String() string {
	switch c {
	case CommandStart:
		return "start"
	case CommandStop:
		return "stop"
	case CommandExit:
		return "exit"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

// Message is a parsed control message.
type Message struct {
	Command Command
	Path    string
}

func (m Message) String() string {
	if m.Command == CommandStart {
		return "start " + m.Path
	}
	return m.Command.String()
}

// ParseMessage parses the textual control protocol: "start <path>",
// "stop" or "exit", fields separated by whitespace.
func ParseMessage(text string) (Message, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Message{}, fmt.Errorf("%w: empty message", ErrProtocol)
	}

	switch fields[0] {
	case "start":
		if len(fields) != 2 {
			return Message{}, fmt.Errorf("%w: start takes exactly one path, got %q", ErrProtocol, text)
		}
		return Message{Command: CommandStart, Path: fields[1]}, nil
	case "stop", "exit":
		if len(fields) != 1 {
			return Message{}, fmt.Errorf("%w: unexpected arguments in %q", ErrProtocol, text)
		}
		if fields[0] == "stop" {
			return Message{Command: CommandStop}, nil
		}
		return Message{Command: CommandExit}, nil
	}
	return Message{}, fmt.Errorf("%w: unrecognized message %q", ErrProtocol, text)
}

// Envelope carries one control message to the worker. When Ack is set, a
// stop is answered with the result of its flush. Ack must be buffered.
type Envelope struct {
	Text string
	Ack  chan<- FlushResult
}

// FlushResult reports a completed session flush.
type FlushResult struct {
	Session string
	Path    string
	Rows    int
	Err     error
}
