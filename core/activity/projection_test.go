package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleCollection() Collection {
	return NewCollection(
		Record{Name: "Soccer Team", Description: "Join the school soccer team", Schedule: "Tuesdays and Thursdays, 4:00 PM - 5:30 PM", MaxParticipants: 22},
		Record{Name: "Chess Club", Description: "Learn strategies and compete", Schedule: "Fridays, 3:30 PM - 5:00 PM", MaxParticipants: 12},
		Record{Name: "Art Club", Description: "Explore painting and drawing", Schedule: "Thursdays, 3:30 PM - 5:00 PM", MaxParticipants: 15},
		Record{Name: "Morning Run", Description: "Start the day with a run", Schedule: "Mondays, 7:00 AM - 7:45 AM", MaxParticipants: 20},
		Record{Name: "Book Circle", Description: "Read and discuss novels", Schedule: "Flexible", MaxParticipants: 10},
	)
}

func TestScheduleMinutes(t *testing.T) {
	tests := []struct {
		schedule string
		want     int
	}{
		{"2:30 PM", 870},
		{"9:00 AM", 540},
		{"12:00 PM", 720},
		{"12:00 AM", 0},
		{"Tuesdays, 4:00 pm - 5:30 pm", 960},
		{"Mondays 7:05", 425},
		{"Whenever", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			assert.Equal(t, tt.want, ScheduleMinutes(tt.schedule))
		})
	}
}

func TestDeriveCategory(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Soccer Team", CategorySports},
		{"Basketball Team", CategorySports},
		{"Chess Club", CategoryAcademic},
		{"Math Olympiad", CategoryAcademic},
		{"Drama Club", CategoryArts},
		{"Art Club", CategoryArts},
		{"Book Circle", CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveCategory(tt.name))
		})
	}
}

func TestProject(t *testing.T) {
	coll := sampleCollection()

	tests := []struct {
		name string
		f    FilterSort
		want []string
	}{
		{name: "no filter keeps insertion order", want: []string{"Soccer Team", "Chess Club", "Art Club", "Morning Run", "Book Circle"}},
		{name: "search on name", f: FilterSort{Search: "CLUB"}, want: []string{"Chess Club", "Art Club"}},
		{name: "search on description", f: FilterSort{Search: "novels"}, want: []string{"Book Circle"}},
		{name: "day", f: FilterSort{Day: "thursdays"}, want: []string{"Soccer Team", "Art Club"}},
		{name: "derived category", f: FilterSort{Category: "arts"}, want: []string{"Art Club"}},
		{name: "category other", f: FilterSort{Category: "other"}, want: []string{"Morning Run", "Book Circle"}},
		{name: "sort by name", f: FilterSort{Sort: SortByName}, want: []string{"Art Club", "Book Circle", "Chess Club", "Morning Run", "Soccer Team"}},
		{name: "sort by schedule, unparsable first, ties stable", f: FilterSort{Sort: SortBySchedule}, want: []string{"Book Circle", "Morning Run", "Chess Club", "Art Club", "Soccer Team"}},
		{name: "filter and sort", f: FilterSort{Search: "club", Sort: SortByName}, want: []string{"Art Club", "Chess Club"}},
		{name: "nothing matches", f: FilterSort{Search: "quidditch"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Project(coll, tt.f))
		})
	}
}

func TestProject_DeterministicSubset(t *testing.T) {
	coll := sampleCollection()
	keys := make(map[string]bool)
	for _, n := range coll.Names() {
		keys[n] = true
	}

	configs := []FilterSort{
		{},
		{Search: "a", Sort: SortBySchedule},
		{Day: "fridays", Sort: SortByName},
		{Category: "sports"},
	}
	for _, f := range configs {
		first := Project(coll, f)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Project(coll, f))
		}
		for _, n := range first {
			assert.True(t, keys[n], "%q is not a collection key", n)
		}
	}
}

func TestParseSortKey(t *testing.T) {
	for in, want := range map[string]SortKey{"": SortNone, "none": SortNone, "Name": SortByName, "schedule": SortBySchedule} {
		got, ok := ParseSortKey(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseSortKey("popularity")
	assert.False(t, ok)
}

func TestFeatured(t *testing.T) {
	coll := NewCollection(
		Record{Name: "A", Featured: true},
		Record{Name: "B"},
		Record{Name: "C", Featured: true},
	)
	assert.Equal(t, []string{"A", "C"}, Featured(coll))
	assert.Empty(t, Featured(Collection{}))
}
