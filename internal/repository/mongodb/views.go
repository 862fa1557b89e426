package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/mongodb"
)

// ProductViewRepository implements domain.ProductViewRepository for MongoDB
type ProductViewRepository struct {
	coll *mongo.Collection
}

// NewProductViewRepository creates a new MongoDB product view repository
// and ensures the lookup indexes.
func NewProductViewRepository(ctx context.Context, db *mongo.Database) (*ProductViewRepository, error) {
	coll := db.Collection(mongodb.ProductViewsCollection)

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "viewDate", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "viewDate", Value: -1}}},
	})
	if err != nil {
		return nil, err
	}

	return &ProductViewRepository{coll: coll}, nil
}

// Insert stores an ingested view event
func (r *ProductViewRepository) Insert(ctx context.Context, view *domain.ProductView) error {
	_, err := r.coll.InsertOne(ctx, view)
	return err
}

func windowMatch(productID int64, start, end time.Time) bson.M {
	return bson.M{
		"productId": productID,
		"viewDate":  bson.M{"$gte": start, "$lte": end},
	}
}

// Stats aggregates total views, distinct users, average duration and the
// per-source breakdown for views within [start, end]
func (r *ProductViewRepository) Stats(ctx context.Context, productID int64, start, end time.Time) (*domain.ViewStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: windowMatch(productID, start, end)}},
		{{Key: "$group", Value: bson.M{
			"_id":             nil,
			"totalViews":      bson.M{"$sum": 1},
			"uniqueUsers":     bson.M{"$addToSet": "$userId"},
			"averageDuration": bson.M{"$avg": "$duration"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":             0,
			"totalViews":      1,
			"uniqueUsers":     bson.M{"$size": "$uniqueUsers"},
			"averageDuration": 1,
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var summary []struct {
		TotalViews      int     `bson:"totalViews"`
		UniqueUsers     int     `bson:"uniqueUsers"`
		AverageDuration float64 `bson:"averageDuration"`
	}
	if err := cursor.All(ctx, &summary); err != nil {
		return nil, err
	}

	stats := &domain.ViewStats{Sources: []domain.ViewSourceCount{}}
	if len(summary) > 0 {
		stats.TotalViews = summary[0].TotalViews
		stats.UniqueUsers = summary[0].UniqueUsers
		stats.AverageDuration = summary[0].AverageDuration
	}

	sourcesPipeline := mongo.Pipeline{
		{{Key: "$match", Value: windowMatch(productID, start, end)}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$source",
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":    0,
			"source": "$_id",
			"count":  1,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}

	srcCursor, err := r.coll.Aggregate(ctx, sourcesPipeline)
	if err != nil {
		return nil, err
	}
	defer srcCursor.Close(ctx)

	if err := srcCursor.All(ctx, &stats.Sources); err != nil {
		return nil, err
	}

	return stats, nil
}

// Trends aggregates views into buckets of the requested granularity
func (r *ProductViewRepository) Trends(ctx context.Context, productID int64, start, end time.Time, groupBy domain.ViewGranularity) ([]domain.ViewBucket, error) {
	var groupKey bson.M
	switch groupBy {
	case domain.GroupByHour:
		groupKey = bson.M{
			"year":  bson.M{"$year": "$viewDate"},
			"month": bson.M{"$month": "$viewDate"},
			"day":   bson.M{"$dayOfMonth": "$viewDate"},
			"hour":  bson.M{"$hour": "$viewDate"},
		}
	case domain.GroupByWeek:
		groupKey = bson.M{
			"year": bson.M{"$year": "$viewDate"},
			"week": bson.M{"$week": "$viewDate"},
		}
	case domain.GroupByMonth:
		groupKey = bson.M{
			"year":  bson.M{"$year": "$viewDate"},
			"month": bson.M{"$month": "$viewDate"},
		}
	default:
		groupKey = bson.M{
			"year":  bson.M{"$year": "$viewDate"},
			"month": bson.M{"$month": "$viewDate"},
			"day":   bson.M{"$dayOfMonth": "$viewDate"},
		}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: windowMatch(productID, start, end)}},
		{{Key: "$group", Value: bson.M{
			"_id":             groupKey,
			"count":           bson.M{"$sum": 1},
			"uniqueUsers":     bson.M{"$addToSet": "$userId"},
			"averageDuration": bson.M{"$avg": "$duration"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":             0,
			"year":            "$_id.year",
			"month":           bson.M{"$ifNull": bson.A{"$_id.month", 0}},
			"day":             bson.M{"$ifNull": bson.A{"$_id.day", 0}},
			"hour":            bson.M{"$ifNull": bson.A{"$_id.hour", 0}},
			"week":            bson.M{"$ifNull": bson.A{"$_id.week", 0}},
			"count":           1,
			"uniqueUsers":     bson.M{"$size": "$uniqueUsers"},
			"averageDuration": 1,
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "year", Value: 1},
			{Key: "month", Value: 1},
			{Key: "week", Value: 1},
			{Key: "day", Value: 1},
			{Key: "hour", Value: 1},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	buckets := []domain.ViewBucket{}
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, err
	}

	return buckets, nil
}

// RecentlyViewed returns the products a user viewed since the given time,
// most recently viewed first
func (r *ProductViewRepository) RecentlyViewed(ctx context.Context, userID int64, since time.Time, limit int) ([]domain.ViewedProduct, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"userId":   userID,
			"viewDate": bson.M{"$gte": since},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":        "$productId",
			"lastViewed": bson.M{"$max": "$viewDate"},
			"viewCount":  bson.M{"$sum": 1},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":        0,
			"productId":  "$_id",
			"lastViewed": 1,
			"viewCount":  1,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "lastViewed", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	viewed := []domain.ViewedProduct{}
	if err := cursor.All(ctx, &viewed); err != nil {
		return nil, err
	}

	return viewed, nil
}

// SimilarUsers returns users (other than userID) who viewed at least
// minCommon of the given products
func (r *ProductViewRepository) SimilarUsers(ctx context.Context, userID int64, productIDs []int64, minCommon, limit int) ([]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"userId":    bson.M{"$ne": userID},
			"productId": bson.M{"$in": productIDs},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":            "$userId",
			"commonProducts": bson.M{"$addToSet": "$productId"},
		}}},
		{{Key: "$project", Value: bson.M{
			"commonCount": bson.M{"$size": "$commonProducts"},
		}}},
		{{Key: "$match", Value: bson.M{
			"commonCount": bson.M{"$gte": minCommon},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "commonCount", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		UserID int64 `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	userIDs := make([]int64, 0, len(rows))
	for _, row := range rows {
		userIDs = append(userIDs, row.UserID)
	}

	return userIDs, nil
}

// ViewedBySimilarUsers returns products the given users viewed, excluding
// excludeIDs, ranked by distinct-viewer count times view count
func (r *ProductViewRepository) ViewedBySimilarUsers(ctx context.Context, userIDs []int64, excludeIDs []int64, limit int) ([]domain.ScoredProduct, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"userId":    bson.M{"$in": userIDs},
			"productId": bson.M{"$nin": excludeIDs},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$productId",
			"viewers":   bson.M{"$addToSet": "$userId"},
			"viewCount": bson.M{"$sum": 1},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":       0,
			"productId": "$_id",
			"userCount": bson.M{"$size": "$viewers"},
			"viewCount": 1,
			"score":     bson.M{"$multiply": bson.A{bson.M{"$size": "$viewers"}, "$viewCount"}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "score", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := []domain.ScoredProduct{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}

	return products, nil
}

// Popular returns the globally most viewed products since the given time
func (r *ProductViewRepository) Popular(ctx context.Context, since time.Time, limit int) ([]domain.ScoredProduct, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"viewDate": bson.M{"$gte": since},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$productId",
			"viewers":   bson.M{"$addToSet": "$userId"},
			"viewCount": bson.M{"$sum": 1},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":       0,
			"productId": "$_id",
			"userCount": bson.M{"$size": "$viewers"},
			"viewCount": 1,
			"score":     "$viewCount",
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "score", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := []domain.ScoredProduct{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}

	return products, nil
}
