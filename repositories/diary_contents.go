package repositories

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"xinji/db"
	"xinji/models"
)

type DiaryContentRepository struct {
	col *mongo.Collection
}

func NewDiaryContentRepository(d *mongo.Database) *DiaryContentRepository {
	return &DiaryContentRepository{col: d.Collection(db.CollectionDiaryContents)}
}

// Upsert 는 일기 ID 기준으로 본문 문서를 생성하거나 갱신한다.
func (r *DiaryContentRepository) Upsert(ctx context.Context, c *models.DiaryContent) error {
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	update := bson.M{
		"$setOnInsert": bson.M{
			"created_at": c.CreatedAt,
		},
		"$set": bson.M{
			"user_id":    c.UserID,
			"content":    c.Content,
			"preview":    c.Preview,
			"updated_at": c.UpdatedAt,
		},
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": c.ID}, update, options.Update().SetUpsert(true))
	return err
}

func (r *DiaryContentRepository) GetByID(ctx context.Context, id string) (*models.DiaryContent, error) {
	var c models.DiaryContent
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// GetByIDs 는 ID -> 문서 맵을 반환한다. 없는 ID 는 맵에 없다.
func (r *DiaryContentRepository) GetByIDs(ctx context.Context, ids []string) (map[string]models.DiaryContent, error) {
	out := make(map[string]models.DiaryContent, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var items []models.DiaryContent
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

// FindIDsByPreviewKeyword 는 미리보기에 keyword 가 포함된 사용자 일기 ID 목록이다.
func (r *DiaryContentRepository) FindIDsByPreviewKeyword(ctx context.Context, userID, keyword string) ([]string, error) {
	filter := bson.M{
		"user_id": userID,
		"preview": primitive.Regex{Pattern: regexp.QuoteMeta(keyword), Options: "i"},
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	ids := []string{}
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cur.Err()
}

func (r *DiaryContentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
