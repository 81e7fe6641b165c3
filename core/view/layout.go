package view

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/trezcool/mergington/core/activity"
)

// Layout selects which activities a page shows and which fields their cards display.
type Layout string

const (
	LayoutDashboard Layout = "dashboard" // full cards with rosters and actions
	LayoutList      Layout = "list"      // link cards
	LayoutHome      Layout = "home"      // featured link cards
	LayoutDetail    Layout = "detail"    // a single activity
)

const (
	LoadFailureText = "Failed to load activities. Please try again later."

	defaultLocation   = "TBD"
	defaultInstructor = "TBD"
	defaultCategory   = "General"
)

var placeholderTexts = map[Layout]string{
	LayoutDashboard: "No activities found.",
	LayoutList:      "No activities found.",
	LayoutHome:      "No featured activities at this time.",
	LayoutDetail:    "Activity not found",
}

func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case LayoutDashboard, LayoutList, LayoutHome, LayoutDetail:
		return l, nil
	case "":
		return LayoutDashboard, nil
	}
	return "", errors.Errorf("unknown layout %q", s)
}

func (l Layout) placeholder() string { return placeholderTexts[l] }

type (
	InstructorView struct {
		Email       string
		DisplayName string
	}

	ParticipantView struct {
		Email string
		// Removable is set iff the viewer can moderate the activity.
		Removable bool
	}

	// CardView holds what a layout displays of an activity.
	CardView struct {
		Name            string
		Description     string
		Schedule        string
		Location        string
		Category        string // server category, for link cards
		DerivedCategory string
		Instructor      string
		Instructors     []InstructorView
		Participants    []ParticipantView
		Tags            []string
		Enrolled        int
		MaxParticipants int
		SpotsLeft       int
		BadgeClass      string
		Full            bool
		Featured        bool
		CanModerate     bool
	}
)

func newCardView(layout Layout, rec activity.Record, canModerate bool) CardView {
	v := CardView{
		Name:            rec.Name,
		Description:     rec.Description,
		Schedule:        rec.Schedule,
		Location:        valueOr(rec.Location, defaultLocation),
		Category:        valueOr(rec.Category, defaultCategory),
		DerivedCategory: activity.DeriveCategory(rec.Name),
		Instructor:      valueOr(rec.Instructor, defaultInstructor),
		Tags:            append([]string(nil), rec.Tags...),
		Enrolled:        len(rec.Participants),
		MaxParticipants: rec.MaxParticipants,
		SpotsLeft:       rec.RemainingSpots(),
		BadgeClass:      BadgeClass(rec.RemainingSpots()),
		Full:            rec.IsFull(),
		Featured:        rec.Featured,
		CanModerate:     canModerate,
	}
	if layout == LayoutDetail && rec.FullDescription != "" {
		v.Description = rec.FullDescription
	}
	for _, email := range rec.Instructors {
		v.Instructors = append(v.Instructors, InstructorView{Email: email, DisplayName: DisplayName(email)})
	}
	for _, email := range rec.Participants {
		v.Participants = append(v.Participants, ParticipantView{Email: email, Removable: canModerate})
	}
	return v
}

// DisplayName derives a readable name from the local part of an email: "jane.doe@x.com" is "Jane Doe".
func DisplayName(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	words := strings.Fields(strings.ReplaceAll(local, ".", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// BadgeClass grades the remaining spots: success above 5, warning above 0, danger otherwise.
func BadgeClass(spotsLeft int) string {
	switch {
	case spotsLeft > 5:
		return "success"
	case spotsLeft > 0:
		return "warning"
	}
	return "danger"
}

func valueOr(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
