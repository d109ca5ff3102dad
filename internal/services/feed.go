package services

import (
	"sort"

	"go-neows/internal/domain"
)

// Filter bucket boundaries. The medium bucket includes both of its bounds.
const (
	closeLunarMax = 1.0
	farLunarMin   = 5.0

	smallKmMax = 0.1
	largeKmMin = 1.0

	slowKmsMax = 10.0
	fastKmsMin = 20.0
)

// AssembleFeed flattens, filters and paginates a feed. The feed itself is
// not modified.
func AssembleFeed(feed *domain.Feed, q domain.FeedQuery) domain.FeedPage {
	return Paginate(FilterObjects(FlattenFeed(feed), q.Filters), q.Page, q.Limit)
}

// FlattenFeed concatenates the per-date lists in the order the dates were
// decoded. Feeds built without that order fall back to ascending dates.
func FlattenFeed(feed *domain.Feed) []domain.NearEarthObject {
	if feed == nil {
		return nil
	}
	n := 0
	for _, objs := range feed.NearEarthObjects {
		n += len(objs)
	}

	out := make([]domain.NearEarthObject, 0, n)
	for _, date := range feedDates(feed) {
		out = append(out, feed.NearEarthObjects[date]...)
	}
	return out
}

func feedDates(feed *domain.Feed) []string {
	if len(feed.Dates) == len(feed.NearEarthObjects) {
		seen := make(map[string]struct{}, len(feed.Dates))
		for _, date := range feed.Dates {
			if _, ok := feed.NearEarthObjects[date]; ok {
				seen[date] = struct{}{}
			}
		}
		if len(seen) == len(feed.NearEarthObjects) {
			return feed.Dates
		}
	}
	dates := make([]string, 0, len(feed.NearEarthObjects))
	for date := range feed.NearEarthObjects {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// FilterObjects keeps the objects matching every active filter, preserving
// order. Once any filter is active, objects without close-approach data are
// dropped. With no active filter the input is returned as is.
func FilterObjects(objs []domain.NearEarthObject, f domain.FeedFilters) []domain.NearEarthObject {
	if !f.Active() {
		return objs
	}
	out := make([]domain.NearEarthObject, 0, len(objs))
	for _, o := range objs {
		if _, ok := o.FirstApproach(); !ok {
			continue
		}
		if matchHazard(o, f.Hazard) && matchDistance(o, f.Distance) &&
			matchSize(o, f.Size) && matchVelocity(o, f.Velocity) {
			out = append(out, o)
		}
	}
	return out
}

// Paginate slices page (1-based) out of objs. Pages past the end are empty.
func Paginate(objs []domain.NearEarthObject, page, limit int) domain.FeedPage {
	if limit < 1 {
		limit = 1
	}
	if page < 1 {
		page = 1
	}
	total := len(objs)
	totalPages := (total + limit - 1) / limit

	items := []domain.NearEarthObject{}
	if page <= totalPages {
		start := (page - 1) * limit
		end := min(start+limit, total)
		items = objs[start:end:end]
	}

	return domain.FeedPage{
		Objects: items,
		Pagination: domain.PaginationInfo{
			CurrentPage:    page,
			TotalPages:     totalPages,
			TotalAsteroids: total,
			HasNextPage:    page < totalPages,
			HasPrevPage:    page > 1,
			Limit:          limit,
		},
	}
}

func matchHazard(o domain.NearEarthObject, bucket string) bool {
	switch bucket {
	case domain.HazardHazardous:
		return o.IsPotentiallyHazardousAsteroid
	case domain.HazardSafe:
		return !o.IsPotentiallyHazardousAsteroid
	default:
		return true
	}
}

func matchDistance(o domain.NearEarthObject, bucket string) bool {
	if bucket == domain.FilterAll {
		return true
	}
	a, _ := o.FirstApproach()
	ld, ok := a.LunarDistance()
	if !ok {
		return false
	}
	return inBucket(bucket, ld, closeLunarMax, farLunarMin,
		domain.DistanceClose, domain.DistanceMedium, domain.DistanceFar)
}

func matchSize(o domain.NearEarthObject, bucket string) bool {
	if bucket == domain.FilterAll {
		return true
	}
	km := o.EstimatedDiameter.Kilometers.Max
	return inBucket(bucket, km, smallKmMax, largeKmMin,
		domain.SizeSmall, domain.SizeMedium, domain.SizeLarge)
}

func matchVelocity(o domain.NearEarthObject, bucket string) bool {
	if bucket == domain.FilterAll {
		return true
	}
	a, _ := o.FirstApproach()
	v, ok := a.VelocityKmPerSec()
	if !ok {
		return false
	}
	return inBucket(bucket, v, slowKmsMax, fastKmsMin,
		domain.VelocitySlow, domain.VelocityMedium, domain.VelocityFast)
}

// inBucket places v in low (< lo), mid ([lo, hi]) or high (> hi)
func inBucket(bucket string, v, lo, hi float64, low, mid, high string) bool {
	switch bucket {
	case low:
		return v < lo
	case mid:
		return v >= lo && v <= hi
	case high:
		return v > hi
	default:
		return false
	}
}
