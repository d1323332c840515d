// Package coord carries messages between the interactive session and the
// redirect monitor. It is the only state the two goroutines share.
//
// Commands travel session -> monitor on the control queue and raise the
// control signal; results travel monitor -> session on the feedback queue
// and raise the feedback signal. Keeping one queue per direction means
// neither side can dequeue a message meant for the other.
package coord

import (
	"context"
	"fmt"
)

type Channel struct {
	control        *Queue
	feedback       *Queue
	controlSignal  *Signal
	feedbackSignal *Signal
}

func New() *Channel {
	return &Channel{
		control:        NewQueue(),
		feedback:       NewQueue(),
		controlSignal:  NewSignal(),
		feedbackSignal: NewSignal(),
	}
}

// Submit enqueues a control message, raises the control signal and waits
// until the monitor has acknowledged everything queued so far.
func (c *Channel) Submit(ctx context.Context, msg Message) error {
	c.Send(msg)
	if err := c.control.Join(ctx); err != nil {
		return fmt.Errorf("waiting for monitor to take %s: %w", msg.Kind(), err)
	}
	return nil
}

// Send enqueues a control message without waiting for it to be handled.
func (c *Channel) Send(msg Message) {
	c.control.Put(msg)
	c.controlSignal.Raise()
}

// ControlSignal fires when control messages are pending.
func (c *Channel) ControlSignal() <-chan struct{} {
	return c.controlSignal.C()
}

// DrainControl hands every pending control message to h and acknowledges
// each one. A rejected message does not stop the drain; the first rejection
// is returned after the queue is empty. n counts the messages h accepted.
func (c *Channel) DrainControl(h ControlHandler) (n int, err error) {
	for {
		msg, ok := c.control.TryGet()
		if !ok {
			return n, err
		}
		dispatchErr := DispatchControl(msg, h)
		if doneErr := c.control.TaskDone(); doneErr != nil {
			c.controlSignal.Raise()
			return n, doneErr
		}
		if dispatchErr != nil {
			if err == nil {
				err = dispatchErr
			}
			continue
		}
		n++
	}
}

// Publish enqueues a feedback message for the session.
func (c *Channel) Publish(msg Message) {
	c.feedback.Put(msg)
	c.feedbackSignal.Raise()
}

// FeedbackSignal fires when feedback messages are pending.
func (c *Channel) FeedbackSignal() <-chan struct{} {
	return c.feedbackSignal.C()
}

// TakeFeedback removes and acknowledges every pending feedback message.
func (c *Channel) TakeFeedback() []Message {
	var out []Message
	for {
		msg, ok := c.feedback.TryGet()
		if !ok {
			return out
		}
		_ = c.feedback.TaskDone()
		out = append(out, msg)
	}
}

// WaitFeedback blocks until at least one feedback message is available and
// returns all of them.
func (c *Channel) WaitFeedback(ctx context.Context) ([]Message, error) {
	for {
		if msgs := c.TakeFeedback(); len(msgs) > 0 {
			return msgs, nil
		}
		select {
		case <-c.feedbackSignal.C():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
