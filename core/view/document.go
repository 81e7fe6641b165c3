package view

import (
	"github.com/trezcool/mergington/core/activity"
	"github.com/trezcool/mergington/core/session"
)

// Level of a transient message.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type Message struct {
	Text  string
	Level Level
}

// SlotKind tells where a transient message is displayed.
type SlotKind int

const (
	SlotBanner SlotKind = iota // page level
	SlotCard                   // Key is the activity name
	SlotForm                   // Key is the form name
)

// Slot identifies a message location; at most one message is displayed per slot.
type Slot struct {
	Kind SlotKind
	Key  string
}

func BannerSlot() Slot { return Slot{Kind: SlotBanner} }
func CardSlot(name string) Slot { return Slot{Kind: SlotCard, Key: name} }
func FormSlot(form string) Slot { return Slot{Kind: SlotForm, Key: form} }
func (s Slot) IsCard() bool { return s.Kind == SlotCard }
func (s Slot) String() string {
	switch s.Kind {
	case SlotCard:
		return "card:" + s.Key
	case SlotForm:
		return "form:" + s.Key
	}
	return "banner"
}

// Card is one rendered activity.
type Card struct {
	View   CardView
	Hidden bool
	// Revision is bumped every time the card content is rebuilt.
	Revision int
}

type Placeholder struct {
	Text    string
	Visible bool
}

// Document is the display surface mutated by the Synchronizer and the Notifier.
// Like the rest of the UI state it must only be touched from the UI goroutine.
type Document struct {
	layout      Layout
	cards       []*Card
	index       map[string]*Card
	placeholder Placeholder
	messages    map[Slot]Message
	identity    *session.Identity
	filter      activity.FilterSort
	stats       activity.Stats
	// rebuilds counts full card rebuilds
	rebuilds int
}

func NewDocument(layout Layout) *Document {
	return &Document{
		layout:   layout,
		index:    make(map[string]*Card),
		messages: make(map[Slot]Message),
	}
}

func (d *Document) Layout() Layout { return d.layout }

// Cards returns copies of the rendered cards in display order.
func (d *Document) Cards() []Card {
	cards := make([]Card, 0, len(d.cards))
	for _, c := range d.cards {
		cards = append(cards, *c)
	}
	return cards
}

func (d *Document) Card(name string) (Card, bool) {
	c, ok := d.index[name]
	if !ok {
		return Card{}, false
	}
	return *c, true
}

// VisibleNames returns the names of the non hidden cards in display order.
func (d *Document) VisibleNames() []string {
	names := make([]string, 0, len(d.cards))
	for _, c := range d.cards {
		if !c.Hidden {
			names = append(names, c.View.Name)
		}
	}
	return names
}

func (d *Document) Placeholder() Placeholder { return d.placeholder }

func (d *Document) Filter() activity.FilterSort { return d.filter }

func (d *Document) Stats() activity.Stats { return d.stats }

func (d *Document) Identity() (session.Identity, bool) {
	if d.identity == nil {
		return session.Identity{}, false
	}
	return *d.identity, true
}

func (d *Document) Message(slot Slot) (Message, bool) {
	msg, ok := d.messages[slot]
	return msg, ok
}

// Rebuilds reports how many times all cards were discarded and rebuilt.
func (d *Document) Rebuilds() int { return d.rebuilds }

func (d *Document) setMessage(slot Slot, msg Message) { d.messages[slot] = msg }

func (d *Document) clearMessage(slot Slot) { delete(d.messages, slot) }

func (d *Document) setIdentity(id session.Identity, ok bool) {
	if !ok {
		d.identity = nil
		return
	}
	d.identity = &id
}

func (d *Document) clearCards() {
	d.cards = nil
	d.index = make(map[string]*Card)
	d.rebuilds++
}

func (d *Document) appendCard(v CardView, hidden bool) {
	c := &Card{View: v, Hidden: hidden, Revision: 1}
	d.cards = append(d.cards, c)
	d.index[v.Name] = c
}

// replaceCard swaps the content of a rendered card, keeping its position.
func (d *Document) replaceCard(v CardView) bool {
	c, ok := d.index[v.Name]
	if !ok {
		return false
	}
	c.View = v
	c.Revision++
	return true
}

func (d *Document) setHidden(name string, hidden bool) {
	if c, ok := d.index[name]; ok {
		c.Hidden = hidden
	}
}

// reorder moves the named cards to the front, in the given order; the others keep their relative order.
func (d *Document) reorder(names []string) {
	ordered := make([]*Card, 0, len(d.cards))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if c, ok := d.index[name]; ok && !seen[name] {
			ordered = append(ordered, c)
			seen[name] = true
		}
	}
	for _, c := range d.cards {
		if !seen[c.View.Name] {
			ordered = append(ordered, c)
		}
	}
	d.cards = ordered
}

func (d *Document) setPlaceholder(text string, visible bool) {
	d.placeholder = Placeholder{Text: text, Visible: visible}
}
