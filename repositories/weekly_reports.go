package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"xinji/db"
	"xinji/models"
)

type WeeklyReportRepository struct {
	col *mongo.Collection
}

func NewWeeklyReportRepository(d *mongo.Database) *WeeklyReportRepository {
	return &WeeklyReportRepository{col: d.Collection(db.CollectionWeeklyReports)}
}

// UpsertByUserWeek 는 (user_id, week_start) 자연키로 업서트한다. _id 는 최초 생성 시에만 쓴다.
func (r *WeeklyReportRepository) UpsertByUserWeek(ctx context.Context, w *models.WeeklyReport) error {
	now := time.Now()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now

	filter := bson.M{"user_id": w.UserID, "week_start": w.WeekStart}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":        w.ID,
			"created_at": w.CreatedAt,
		},
		"$set": bson.M{
			"week_end":              w.WeekEnd,
			"diary_count":           w.DiaryCount,
			"analyzed_count":        w.AnalyzedCount,
			"emotion_trend":         w.EmotionTrend,
			"emotion_distribution":  w.EmotionDistribution,
			"average_intensity":     w.AverageIntensity,
			"most_frequent_emotion": w.MostFrequentEmotion,
			"keywords":              w.Keywords,
			"ai_summary":            w.AISummary,
			"updated_at":            w.UpdatedAt,
		},
	}
	_, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *WeeklyReportRepository) GetByUserWeek(ctx context.Context, userID, weekStart string) (*models.WeeklyReport, error) {
	var w models.WeeklyReport
	if err := r.col.FindOne(ctx, bson.M{"user_id": userID, "week_start": weekStart}).Decode(&w); err != nil {
		return nil, translate(err)
	}
	return &w, nil
}
