package domain

import (
	"context"
	"time"
)

// ProductView is a page-view event in the productViews collection.
// The core only reads these; ingestion happens out of band.
type ProductView struct {
	ProductID int64     `json:"productId" bson:"productId" validate:"required,gt=0"`
	UserID    int64     `json:"userId" bson:"userId" validate:"required,gt=0"`
	ViewDate  time.Time `json:"viewDate" bson:"viewDate"`
	Duration  int       `json:"duration" bson:"duration" validate:"gte=0"`
	Source    string    `json:"source" bson:"source"`
}

// DailyReviewBucket is one day of aggregated review activity.
type DailyReviewBucket struct {
	Year          int     `bson:"year"`
	Month         int     `bson:"month"`
	Day           int     `bson:"day"`
	Count         int     `bson:"count"`
	AverageRating float64 `bson:"averageRating"`
}

// Date returns the bucket's calendar day in UTC.
func (b DailyReviewBucket) Date() time.Time {
	return time.Date(b.Year, time.Month(b.Month), b.Day, 0, 0, 0, 0, time.UTC)
}

// ViewStats summarizes page views for a product over a window.
type ViewStats struct {
	TotalViews      int               `json:"totalViews"`
	UniqueUsers     int               `json:"uniqueUsers"`
	AverageDuration float64           `json:"averageDuration"`
	Sources         []ViewSourceCount `json:"sources"`
}

// ViewSourceCount is the per-traffic-source view count breakdown.
type ViewSourceCount struct {
	Source string `json:"source" bson:"source"`
	Count  int    `json:"count" bson:"count"`
}

// ViewBucket is one time bucket of aggregated view activity. Week is only
// set for weekly grouping, Hour only for hourly.
type ViewBucket struct {
	Year            int     `bson:"year"`
	Month           int     `bson:"month"`
	Day             int     `bson:"day"`
	Hour            int     `bson:"hour"`
	Week            int     `bson:"week"`
	Count           int     `bson:"count"`
	UniqueUsers     int     `bson:"uniqueUsers"`
	AverageDuration float64 `bson:"averageDuration"`
}

// ViewedProduct is a product from a user's recent viewing history.
type ViewedProduct struct {
	ProductID  int64     `bson:"productId"`
	LastViewed time.Time `bson:"lastViewed"`
	ViewCount  int       `bson:"viewCount"`
}

// ScoredProduct is a recommendation candidate ranked by how many similar
// users viewed it and how often.
type ScoredProduct struct {
	ProductID int64 `bson:"productId"`
	UserCount int   `bson:"userCount"`
	ViewCount int   `bson:"viewCount"`
	Score     int   `bson:"score"`
}

// ViewGranularity selects the bucket size for view trend queries.
type ViewGranularity string

const (
	GroupByHour  ViewGranularity = "hour"
	GroupByDay   ViewGranularity = "day"
	GroupByWeek  ViewGranularity = "week"
	GroupByMonth ViewGranularity = "month"
)

// Valid reports whether g is a supported granularity.
func (g ViewGranularity) Valid() bool {
	switch g {
	case GroupByHour, GroupByDay, GroupByWeek, GroupByMonth:
		return true
	}
	return false
}

// ProductViewRepository defines read access to the productViews collection
type ProductViewRepository interface {
	// Insert stores an ingested view event
	Insert(ctx context.Context, view *ProductView) error

	// Stats aggregates total views, distinct users, average duration and the
	// per-source breakdown for views within [start, end]
	Stats(ctx context.Context, productID int64, start, end time.Time) (*ViewStats, error)

	// Trends aggregates views into buckets of the requested granularity
	Trends(ctx context.Context, productID int64, start, end time.Time, groupBy ViewGranularity) ([]ViewBucket, error)

	// RecentlyViewed returns the products a user viewed since the given time,
	// most recently viewed first
	RecentlyViewed(ctx context.Context, userID int64, since time.Time, limit int) ([]ViewedProduct, error)

	// SimilarUsers returns users (other than userID) who viewed at least
	// minCommon of the given products
	SimilarUsers(ctx context.Context, userID int64, productIDs []int64, minCommon, limit int) ([]int64, error)

	// ViewedBySimilarUsers returns products the given users viewed, excluding
	// excludeIDs, ranked by distinct-viewer count times view count
	ViewedBySimilarUsers(ctx context.Context, userIDs []int64, excludeIDs []int64, limit int) ([]ScoredProduct, error)

	// Popular returns the globally most viewed products since the given time
	Popular(ctx context.Context, since time.Time, limit int) ([]ScoredProduct, error)
}
