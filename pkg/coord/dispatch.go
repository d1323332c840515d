package coord

import (
	"errors"
	"fmt"
)

// ErrUnexpectedMessage is returned when a message arrives on the wrong side
// of the channel.
var ErrUnexpectedMessage = errors.New("unexpected message")

// ControlHandler handles every message the session can send the monitor.
// Adding a control message means adding a method here, so every handler
// stops compiling until it deals with the new kind.
type ControlHandler interface {
	HandleUpdate(Update)
	HandleDelete(Delete)
	HandleDelay(Delay)
	HandleThreads(Threads)
	HandleExit(Exit)
	HandlePing(Ping)
	HandleOnline(Online)
}

// FeedbackHandler handles every message the monitor can send the session.
type FeedbackHandler interface {
	HandleRepaired(Repaired)
	HandleDelete(Delete)
	HandleReport(Report)
}

// DispatchControl routes msg to the matching ControlHandler method.
func DispatchControl(msg Message, h ControlHandler) error {
	switch m := msg.(type) {
	case Update:
		h.HandleUpdate(m)
	case Delete:
		h.HandleDelete(m)
	case Delay:
		h.HandleDelay(m)
	case Threads:
		h.HandleThreads(m)
	case Exit:
		h.HandleExit(m)
	case Ping:
		h.HandlePing(m)
	case Online:
		h.HandleOnline(m)
	default:
		return fmt.Errorf("%w on control queue: %s", ErrUnexpectedMessage, kindOf(msg))
	}
	return nil
}

// DispatchFeedback routes msg to the matching FeedbackHandler method.
func DispatchFeedback(msg Message, h FeedbackHandler) error {
	switch m := msg.(type) {
	case Repaired:
		h.HandleRepaired(m)
	case Delete:
		h.HandleDelete(m)
	case Report:
		h.HandleReport(m)
	default:
		return fmt.Errorf("%w on feedback queue: %s", ErrUnexpectedMessage, kindOf(msg))
	}
	return nil
}

func kindOf(msg Message) Kind {
	if msg == nil {
		return "nil"
	}
	return msg.Kind()
}
