package activity

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// SortKey selects the ordering of a projection.
type SortKey string

const (
	SortNone       SortKey = ""
	SortByName     SortKey = "name"
	SortBySchedule SortKey = "schedule"
)

// ParseSortKey accepts "", "none", "name" and "schedule" (case-insensitive).
func ParseSortKey(s string) (SortKey, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SortNone, true
	case "name":
		return SortByName, true
	case "schedule", "time":
		return SortBySchedule, true
	}
	return SortNone, false
}

// Derived categories.
const (
	CategorySports   = "sports"
	CategoryAcademic = "academic"
	CategoryArts     = "arts"
	CategoryOther    = "other"
)

var (
	categoryKeywords = []struct {
		category string
		keywords []string
	}{
		{CategorySports, []string{"soccer", "basketball", "football", "baseball", "volleyball", "tennis", "swim", "track", "running", "gym", "fitness", "sport"}},
		{CategoryAcademic, []string{"math", "science", "chess", "debate", "programming", "coding", "robotics", "study", "academic", "olympiad"}},
		{CategoryArts, []string{"art", "drama", "theater", "music", "choir", "band", "orchestra", "paint", "photo", "dance"}},
	}

	timeOfDayRegex = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*([AP]M)?`)
)

// FilterSort is the transient filter/sort configuration read from the UI controls.
type FilterSort struct {
	Search   string
	Day      string // empty means any day
	Category string // empty means any category
	Sort     SortKey
}

func (f FilterSort) IsEmpty() bool {
	return f.Search == "" && f.Day == "" && f.Category == "" && f.Sort == SortNone
}

// DeriveCategory classifies an activity by keywords in its lowercased name.
// It is presentational only and ignores the server provided category.
func DeriveCategory(name string) string {
	lname := strings.ToLower(name)
	for _, ck := range categoryKeywords {
		for _, kw := range ck.keywords {
			if strings.Contains(lname, kw) {
				return ck.category
			}
		}
	}
	return CategoryOther
}

// ScheduleMinutes extracts the first time of day (`H:MM`, optional AM/PM) from a schedule text
// as minutes since midnight. Unparsable schedules yield 0.
func ScheduleMinutes(schedule string) int {
	m := timeOfDayRegex.FindStringSubmatch(schedule)
	if m == nil {
		return 0
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	switch strings.ToUpper(m[3]) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	}
	return hour*60 + minute
}

// Matches reports whether rec passes the filter part of f.
func (f FilterSort) Matches(rec Record) bool {
	if term := strings.ToLower(f.Search); term != "" {
		if !strings.Contains(strings.ToLower(rec.Name), term) && !strings.Contains(strings.ToLower(rec.Description), term) {
			return false
		}
	}
	if day := strings.ToLower(strings.TrimSpace(f.Day)); day != "" {
		if !strings.Contains(strings.ToLower(rec.Schedule), day) {
			return false
		}
	}
	if cat := strings.ToLower(strings.TrimSpace(f.Category)); cat != "" {
		if DeriveCategory(rec.Name) != cat {
			return false
		}
	}
	return true
}

// Project returns the names of the visible activities, in display order.
func Project(coll Collection, f FilterSort) []string {
	names := make([]string, 0, coll.Len())
	for _, name := range coll.names {
		if f.Matches(coll.records[name]) {
			names = append(names, name)
		}
	}

	switch f.Sort {
	case SortByName:
		sort.SliceStable(names, func(i, j int) bool { return names[i] < names[j] })
	case SortBySchedule:
		mins := make(map[string]int, len(names))
		for _, name := range names {
			mins[name] = ScheduleMinutes(coll.records[name].Schedule)
		}
		sort.SliceStable(names, func(i, j int) bool { return mins[names[i]] < mins[names[j]] })
	}
	return names
}

// Featured returns the names of the featured activities, in insertion order.
func Featured(coll Collection) []string {
	names := make([]string, 0)
	for _, name := range coll.names {
		if coll.records[name].Featured {
			names = append(names, name)
		}
	}
	return names
}
