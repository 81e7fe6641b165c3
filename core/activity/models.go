package activity

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Record is an extracurricular activity as served by the backend.
// The Name is the identity key; it is not part of the JSON record body.
type Record struct {
	Name            string   `json:"-"`
	Description     string   `json:"description"`
	FullDescription string   `json:"full_description,omitempty"`
	Schedule        string   `json:"schedule"`
	Location        string   `json:"location,omitempty"`
	Instructor      string   `json:"instructor,omitempty"`
	Instructors     []string `json:"instructors,omitempty"`
	Category        string   `json:"category,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Featured        bool     `json:"featured,omitempty"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// SpotsLeft may be negative when the server roster overflows; use RemainingSpots for display.
func (r Record) SpotsLeft() int {
	return r.MaxParticipants - len(r.Participants)
}

// RemainingSpots is SpotsLeft clamped at 0.
func (r Record) RemainingSpots() int {
	if n := r.SpotsLeft(); n > 0 {
		return n
	}
	return 0
}

func (r Record) IsFull() bool {
	return r.SpotsLeft() <= 0
}

func (r Record) HasParticipant(id string) bool {
	return indexOf(r.Participants, id) >= 0
}

func (r Record) HasInstructor(email string) bool {
	return indexOf(r.Instructors, email) >= 0
}

func (r Record) clone() Record {
	c := r
	c.Instructors = append([]string(nil), r.Instructors...)
	c.Tags = append([]string(nil), r.Tags...)
	c.Participants = append(make([]string, 0, len(r.Participants)), r.Participants...)
	return c
}

func indexOf(items []string, item string) int {
	for i, it := range items {
		if it == item {
			return i
		}
	}
	return -1
}

// Collection maps activity names to records, keeping the order in which names were added.
// The zero value is an empty collection ready to use.
// A Collection must not be copied once it holds records: copies share the record map. Use Records and
// NewCollection to derive an independent one.
type Collection struct {
	names   []string
	records map[string]Record
}

// NewCollection builds a collection from records, in the given order.
// A later record with an already seen name replaces the earlier one in place.
func NewCollection(records ...Record) Collection {
	var c Collection
	for _, rec := range records {
		c.Set(rec)
	}
	return c
}

func (c Collection) Len() int { return len(c.names) }

// Names returns the names in insertion order.
func (c Collection) Names() []string {
	return append([]string(nil), c.names...)
}

func (c Collection) Get(name string) (Record, bool) {
	rec, ok := c.records[name]
	return rec, ok
}

// Set adds or replaces a record; replacing keeps the original position.
func (c *Collection) Set(rec Record) {
	if c.records == nil {
		c.records = make(map[string]Record)
	}
	if _, ok := c.records[rec.Name]; !ok {
		c.names = append(c.names, rec.Name)
	}
	c.records[rec.Name] = rec.clone()
}

// Records returns copies of all records in insertion order.
func (c Collection) Records() []Record {
	recs := make([]Record, 0, len(c.names))
	for _, name := range c.names {
		recs = append(recs, c.records[name].clone())
	}
	return recs
}

func (c Collection) clone() Collection {
	return NewCollection(c.Records()...)
}

// UnmarshalJSON decodes the `{name: record}` object served by `GET /activities`, preserving key order.
func (c *Collection) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "reading activities object")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("activities: expected a JSON object")
	}

	var coll Collection
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return errors.Wrap(err, "reading activity name")
		}
		name, ok := tok.(string)
		if !ok {
			return errors.New("activities: expected an activity name")
		}
		var rec Record
		if err = dec.Decode(&rec); err != nil {
			return errors.Wrapf(err, "decoding activity %q", name)
		}
		if rec.MaxParticipants < 0 {
			return errors.Errorf("activity %q: negative max_participants", name)
		}
		if rec.Participants == nil {
			rec.Participants = []string{}
		}
		rec.Name = name
		coll.Set(rec)
	}
	if _, err = dec.Token(); err != nil {
		return errors.Wrap(err, "closing activities object")
	}
	*c = coll
	return nil
}

// MarshalJSON encodes the collection back to the `{name: record}` form, in insertion order.
func (c Collection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range c.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.records[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Stats summarises a collection for the home page.
type Stats struct {
	Activities   int
	Participants int
}

func (c Collection) Stats() Stats {
	st := Stats{Activities: c.Len()}
	for _, name := range c.names {
		st.Participants += len(c.records[name].Participants)
	}
	return st
}
