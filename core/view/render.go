package view

import (
	"embed"
	"fmt"
	htmltmpl "html/template"
	"io"
	texttmpl "text/template"

	"github.com/pkg/errors"

	"github.com/trezcool/mergington/core/activity"
	"github.com/trezcool/mergington/core/session"
)

//go:embed templates
var templateFS embed.FS

var (
	funcs = map[string]interface{}{
		"availability": Availability,
	}

	htmlTemplates = htmltmpl.Must(htmltmpl.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttmpl.Must(texttmpl.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.txt"))

	textLayouts = map[Layout]string{
		LayoutDashboard: "dashboard.txt",
		LayoutList:      "summary.txt",
		LayoutHome:      "summary.txt",
		LayoutDetail:    "detail.txt",
	}

	filterCategories = []string{activity.CategorySports, activity.CategoryAcademic, activity.CategoryArts, activity.CategoryOther}
)

type (
	cardData struct {
		CardView
		Hidden   bool
		Revision int
		Message  *Message
	}

	pageData struct {
		Title       string
		AppName     string
		Layout      Layout
		Identity    *session.Identity
		Banner      *Message
		Forms       map[string]*Message
		Filter      activity.FilterSort
		Categories  []string
		Stats       activity.Stats
		Cards       []cardData
		Placeholder Placeholder
	}
)

// Availability formats the remaining spots of a detail card: "3 spots available (7/10)".
func Availability(v CardView) string {
	s := fmt.Sprintf("%d spots available (%d/%d)", v.SpotsLeft, v.Enrolled, v.MaxParticipants)
	if v.SpotsLeft == 0 {
		s += " - FULL"
	}
	return s
}

func (d *Document) pageData(appName string) pageData {
	data := pageData{
		Title:       appName,
		AppName:     appName,
		Layout:      d.layout,
		Identity:    d.identity,
		Forms:       make(map[string]*Message),
		Filter:      d.filter,
		Categories:  filterCategories,
		Stats:       d.stats,
		Cards:       make([]cardData, 0, len(d.cards)),
		Placeholder: d.placeholder,
	}
	for slot, msg := range d.messages {
		msg := msg
		switch slot.Kind {
		case SlotBanner:
			data.Banner = &msg
		case SlotForm:
			data.Forms[slot.Key] = &msg
		}
	}
	for _, c := range d.cards {
		cd := cardData{CardView: c.View, Hidden: c.Hidden, Revision: c.Revision}
		if msg, ok := d.messages[CardSlot(c.View.Name)]; ok {
			cd.Message = &msg
		}
		data.Cards = append(data.Cards, cd)
	}
	if d.layout == LayoutDetail && len(d.cards) > 0 {
		data.Title = d.cards[0].View.Name + " | " + appName
	}
	return data
}

// RenderHTML writes the document as an HTML page.
func (d *Document) RenderHTML(w io.Writer, appName string) error {
	return errors.Wrap(
		htmlTemplates.ExecuteTemplate(w, string(d.layout)+".html", d.pageData(appName)),
		"rendering html",
	)
}

// RenderText writes the visible cards as plain text, for terminals.
func (d *Document) RenderText(w io.Writer) error {
	return errors.Wrap(
		textTemplates.ExecuteTemplate(w, textLayouts[d.layout], d.pageData("")),
		"rendering text",
	)
}
