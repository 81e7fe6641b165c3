package view

import (
	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/activity"
	"github.com/trezcool/mergington/core/session"
)

// Capabilities answers identity-gated questions for the cards being rendered.
type Capabilities interface {
	Current() (session.Identity, bool)
	CanModerate(rec activity.Record) bool
}

type projection struct {
	valid   bool
	version uint64
	filter  activity.FilterSort
	focus   string
	names   []string
	visible map[string]bool
}

// Synchronizer reconciles a Document with the Store:
//   - Replace rebuilds every card,
//   - Patch rebuilds one card,
//   - ApplyFilter only toggles visibility and order,
//   - SessionChanged rebuilds every card content in place.
//
// Every card of the layout universe is rendered; the projection decides which ones are visible.
type Synchronizer struct {
	store  *activity.Store
	caps   Capabilities
	doc    *Document
	filter activity.FilterSort
	focus  string
	proj   projection
}

func NewSynchronizer(store *activity.Store, caps Capabilities, doc *Document) *Synchronizer {
	return &Synchronizer{store: store, caps: caps, doc: doc}
}

func (s *Synchronizer) Document() *Document { return s.doc }

func (s *Synchronizer) Filter() activity.FilterSort { return s.filter }

// Focus selects the activity shown by the detail layout. It takes effect on the next Replace.
func (s *Synchronizer) Focus(name string) { s.focus = name }

// Visible returns the current projection.
func (s *Synchronizer) Visible() []string {
	return append([]string(nil), s.project().names...)
}

func (s *Synchronizer) project() projection {
	p := s.proj
	if p.valid && p.version == s.store.Version() && p.filter == s.filter && p.focus == s.focus {
		return p
	}

	coll := s.store.All()
	var names []string
	switch s.doc.layout {
	case LayoutHome:
		names = intersect(activity.Project(coll, s.filter), activity.Featured(coll))
	case LayoutDetail:
		names = []string{}
		if _, ok := coll.Get(s.focus); ok {
			names = append(names, s.focus)
		}
	default:
		names = activity.Project(coll, s.filter)
	}

	p = projection{
		valid:   true,
		version: s.store.Version(),
		filter:  s.filter,
		focus:   s.focus,
		names:   names,
		visible: make(map[string]bool, len(names)),
	}
	for _, name := range names {
		p.visible[name] = true
	}
	s.proj = p
	return p
}

// universe lists the names a layout renders cards for, in store order.
func (s *Synchronizer) universe() []string {
	switch s.doc.layout {
	case LayoutHome:
		return activity.Featured(s.store.All())
	case LayoutDetail:
		if _, ok := s.store.Get(s.focus); ok {
			return []string{s.focus}
		}
		return []string{}
	}
	return s.store.All().Names()
}

func (s *Synchronizer) cardView(rec activity.Record) CardView {
	return newCardView(s.doc.layout, rec, s.caps.CanModerate(rec))
}

// Replace discards all cards and rebuilds them in projection order.
func (s *Synchronizer) Replace() {
	p := s.project()
	s.doc.clearCards()
	s.doc.setIdentity(s.caps.Current())
	s.doc.filter = s.filter
	s.doc.stats = s.store.All().Stats()

	for _, name := range p.names {
		rec, _ := s.store.Get(name)
		s.doc.appendCard(s.cardView(rec), false)
	}
	for _, name := range s.universe() {
		if p.visible[name] {
			continue
		}
		rec, _ := s.store.Get(name)
		s.doc.appendCard(s.cardView(rec), true)
	}
	s.syncPlaceholder(p)
}

// Patch rebuilds the card of name only, then re-applies the current visibility to it.
// A page that does not show name keeps its cards and only refreshes its stats.
// It falls back to Replace when the document is stale: the card is missing from a page that should show it,
// or the activity is gone while its card is still rendered.
func (s *Synchronizer) Patch(name string) {
	rec, ok := s.store.Get(name)
	if !ok {
		if _, rendered := s.doc.index[name]; rendered {
			s.Replace()
			return
		}
		s.doc.stats = s.store.All().Stats()
		return
	}
	if !s.doc.replaceCard(s.cardView(rec)) {
		if core.Contains(s.universe(), name) {
			s.Replace()
			return
		}
		s.doc.stats = s.store.All().Stats()
		return
	}
	p := s.project()
	s.doc.setHidden(name, !p.visible[name])
	s.doc.stats = s.store.All().Stats()
	s.syncPlaceholder(p)
}

// ApplyFilter changes the filter/sort configuration without re-rendering any card content.
func (s *Synchronizer) ApplyFilter(f activity.FilterSort) {
	s.filter = f
	s.doc.filter = f
	p := s.project()
	for _, name := range p.names {
		if _, ok := s.doc.index[name]; !ok {
			// the store changed under a stale document
			s.Replace()
			return
		}
	}
	for _, c := range s.doc.cards {
		c.Hidden = !p.visible[c.View.Name]
	}
	s.doc.reorder(p.names)
	s.syncPlaceholder(p)
}

// SessionChanged rebuilds every card in place, since their controls depend on the identity.
func (s *Synchronizer) SessionChanged() {
	s.doc.setIdentity(s.caps.Current())
	for _, c := range s.doc.cards {
		rec, ok := s.store.Get(c.View.Name)
		if !ok {
			s.Replace()
			return
		}
		s.doc.replaceCard(s.cardView(rec))
	}
}

// LoadFailed empties the document and shows the load failure placeholder.
func (s *Synchronizer) LoadFailed() {
	s.doc.clearCards()
	s.doc.setIdentity(s.caps.Current())
	s.doc.setPlaceholder(LoadFailureText, true)
}

// exactly one placeholder, shown iff nothing is visible
func (s *Synchronizer) syncPlaceholder(p projection) {
	s.doc.setPlaceholder(s.doc.layout.placeholder(), len(p.names) == 0)
}

func intersect(names, keep []string) []string {
	set := make(map[string]bool, len(keep))
	for _, name := range keep {
		set[name] = true
	}
	out := make([]string, 0, len(keep))
	for _, name := range names {
		if set[name] {
			out = append(out, name)
		}
	}
	return out
}
