package shared

import (
	"github.com/trezcool/mergington/apps"
	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/activity"
)

var (
	Categories = []string{activity.CategorySports, activity.CategoryAcademic, activity.CategoryArts, activity.CategoryOther}
	sortKeys   = []string{string(activity.SortByName), string(activity.SortBySchedule)}
)

// ParseFilter builds the filter/sort configuration from raw user input.
// An unknown sort key or category yields an *apps.ArgumentError.
func ParseFilter(search, day, category, sort string) (activity.FilterSort, error) {
	sortKey, ok := activity.ParseSortKey(sort)
	if !ok {
		return activity.FilterSort{}, apps.NewArgumentError("sort", sort, sortKeys...)
	}
	category = core.CleanString(category, true /* lower */)
	if category != "" && !core.Contains(Categories, category) {
		return activity.FilterSort{}, apps.NewArgumentError("category", category, Categories...)
	}
	return activity.FilterSort{
		Search:   core.CleanString(search),
		Day:      core.CleanString(day),
		Category: category,
		Sort:     sortKey,
	}, nil
}
