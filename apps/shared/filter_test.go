package shared

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/mergington/apps"
	"github.com/trezcool/mergington/core/activity"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name                        string
		search, day, category, sort string
		want                        activity.FilterSort
		wantArg                     string
	}{
		{name: "empty", want: activity.FilterSort{}},
		{
			name:   "trimmed",
			search: "  chess ", day: " Friday", category: " Academic ", sort: "Name",
			want: activity.FilterSort{Search: "chess", Day: "Friday", Category: activity.CategoryAcademic, Sort: activity.SortByName},
		},
		{name: "time alias", sort: "time", want: activity.FilterSort{Sort: activity.SortBySchedule}},
		{name: "unknown sort", sort: "size", wantArg: "sort"},
		{name: "unknown category", category: "cooking", wantArg: "category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter(tt.search, tt.day, tt.category, tt.sort)
			if tt.wantArg != "" {
				var argErr *apps.ArgumentError
				if assert.True(t, errors.As(err, &argErr)) {
					assert.Equal(t, tt.wantArg, argErr.Arg)
				}
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
