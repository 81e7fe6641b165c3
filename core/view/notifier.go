package view

import "time"

// MessageTTL is how long a transient message stays displayed.
const MessageTTL = 5 * time.Second

type (
	Timer interface {
		Stop() bool
	}

	// Clock schedules f to run once after d, on its own goroutine.
	Clock interface {
		AfterFunc(d time.Duration, f func()) Timer
	}

	realClock struct{}
)

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock is backed by time.AfterFunc.
var RealClock Clock = realClock{}

type pendingClear struct {
	timer Timer
	seq   uint64
}

// Notifier displays transient messages on a Document and clears them after MessageTTL.
// A new message in a slot replaces the current one and its pending clear; timers never stack.
type Notifier struct {
	doc   *Document
	clock Clock
	post  func(func())
	ttl   time.Duration

	seq     uint64
	pending map[Slot]pendingClear
}

// NewNotifier returns a notifier using clock for expiry; post must run its argument on the UI goroutine.
func NewNotifier(doc *Document, clock Clock, post func(func())) *Notifier {
	if clock == nil {
		clock = RealClock
	}
	return &Notifier{
		doc:     doc,
		clock:   clock,
		post:    post,
		ttl:     MessageTTL,
		pending: make(map[Slot]pendingClear),
	}
}

func (n *Notifier) Success(slot Slot, text string) { n.Show(slot, Message{Text: text, Level: LevelSuccess}) }

func (n *Notifier) Error(slot Slot, text string) { n.Show(slot, Message{Text: text, Level: LevelError}) }

func (n *Notifier) Info(slot Slot, text string) { n.Show(slot, Message{Text: text, Level: LevelInfo}) }

func (n *Notifier) Show(slot Slot, msg Message) {
	if p, ok := n.pending[slot]; ok {
		p.timer.Stop()
	}
	n.doc.setMessage(slot, msg)

	n.seq++
	seq := n.seq
	timer := n.clock.AfterFunc(n.ttl, func() {
		n.post(func() { n.expire(slot, seq) })
	})
	n.pending[slot] = pendingClear{timer: timer, seq: seq}
}

// Clear removes the message of slot right away.
func (n *Notifier) Clear(slot Slot) {
	if p, ok := n.pending[slot]; ok {
		p.timer.Stop()
		delete(n.pending, slot)
	}
	n.doc.clearMessage(slot)
}

// Pending returns the number of scheduled clears.
func (n *Notifier) Pending() int { return len(n.pending) }

// expire ignores clears of a replaced message; Stop may lose the race with a timer that already fired.
func (n *Notifier) expire(slot Slot, seq uint64) {
	p, ok := n.pending[slot]
	if !ok || p.seq != seq {
		return
	}
	delete(n.pending, slot)
	n.doc.clearMessage(slot)
}
