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

// AnalysisResultRepository 는 분석 결과 이력을 보관한다. 문서는 삭제하지 않는다.
// PROCESSING 에서 COMPLETED/FAILED 로의 전이는 조건부 업데이트로 한 번만 일어난다.
type AnalysisResultRepository struct {
	col *mongo.Collection
}

func NewAnalysisResultRepository(d *mongo.Database) *AnalysisResultRepository {
	return &AnalysisResultRepository{col: d.Collection(db.CollectionAnalysisResults)}
}

func (r *AnalysisResultRepository) Insert(ctx context.Context, a *models.AnalysisResult) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := r.col.InsertOne(ctx, a)
	return err
}

func (r *AnalysisResultRepository) GetByID(ctx context.Context, id string) (*models.AnalysisResult, error) {
	var a models.AnalysisResult
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// Complete 는 PROCESSING 상태인 문서만 완료 처리한다. 전이가 일어났으면 true 이다.
func (r *AnalysisResultRepository) Complete(ctx context.Context, a *models.AnalysisResult) (bool, error) {
	update := bson.M{"$set": bson.M{
		"status":                models.AnalysisCompleted,
		"emotions":              a.Emotions,
		"primary_emotion":       a.PrimaryEmotion,
		"emotion_intensity":     a.EmotionIntensity,
		"keywords":              a.Keywords,
		"cognitive_distortions": a.CognitiveDistortions,
		"suggestions":           a.Suggestions,
		"risk_level":            a.RiskLevel,
		"analyzed_at":           a.AnalyzedAt,
	}}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": a.ID, "status": models.AnalysisProcessing}, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// MarkFailed 는 PROCESSING 상태인 문서만 FAILED 로 바꾼다.
func (r *AnalysisResultRepository) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	update := bson.M{"$set": bson.M{
		"status":        models.AnalysisFailed,
		"error_message": reason,
	}}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id, "status": models.AnalysisProcessing}, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// FailStaleProcessing 은 before 이전에 생성되어 아직 PROCESSING 인 문서를 FAILED 로 바꾼다.
func (r *AnalysisResultRepository) FailStaleProcessing(ctx context.Context, before time.Time, reason string) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{"status": models.AnalysisProcessing, "created_at": bson.M{"$lt": before}},
		bson.M{"$set": bson.M{"status": models.AnalysisFailed, "error_message": reason}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *AnalysisResultRepository) GetByIDs(ctx context.Context, ids []string) (map[string]models.AnalysisResult, error) {
	out := make(map[string]models.AnalysisResult, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, err := r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

// FindCompletedSince 는 정합성 점검 배치에서 사용한다.
func (r *AnalysisResultRepository) FindCompletedSince(ctx context.Context, since time.Time) ([]models.AnalysisResult, error) {
	filter := bson.M{"status": models.AnalysisCompleted, "created_at": bson.M{"$gte": since}}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

// LatestByDiary 는 일기에 대해 가장 최근에 생성된 분석 문서이다.
func (r *AnalysisResultRepository) LatestByDiary(ctx context.Context, diaryID string) (*models.AnalysisResult, error) {
	var a models.AnalysisResult
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if err := r.col.FindOne(ctx, bson.M{"diary_id": diaryID}, opts).Decode(&a); err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// FindHighRiskSince 는 since 이후 HIGH 위험으로 완료된 결과이다.
func (r *AnalysisResultRepository) FindHighRiskSince(ctx context.Context, since time.Time) ([]models.AnalysisResult, error) {
	filter := bson.M{
		"status":      models.AnalysisCompleted,
		"risk_level":  models.RiskHigh,
		"analyzed_at": bson.M{"$gte": since},
	}
	return r.find(ctx, filter, nil)
}

func (r *AnalysisResultRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.AnalysisResult, error) {
	var cur *mongo.Cursor
	var err error
	if opts != nil {
		cur, err = r.col.Find(ctx, filter, opts)
	} else {
		cur, err = r.col.Find(ctx, filter)
	}
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	items := []models.AnalysisResult{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}
