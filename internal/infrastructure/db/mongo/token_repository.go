package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/panelapi/panel-api/internal/core/domain"
)

const tokenCollection = "token_info"

// TokenRepository implements ports.TokenRecordStore. One document per
// username, enforced by a unique index; every write lands immediately.
type TokenRepository struct {
	coll *mongo.Collection
}

func NewTokenRepository(db *mongo.Database) *TokenRepository {
	return &TokenRepository{coll: db.Collection(tokenCollection)}
}

type mongoTokenRecord struct {
	Username           string `bson:"username"`
	RefreshToken       string `bson:"refresh_token"`
	RefreshTokenExpiry int64  `bson:"refresh_token_expiry"`
}

func (r *TokenRepository) FindByUsername(ctx context.Context, username string) (*domain.TokenRecord, error) {
	var rec mongoTokenRecord
	if err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&rec); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrRefreshTokenInvalid
		}
		return nil, fmt.Errorf("find token record: %w: %w", domain.ErrPersistence, err)
	}

	return &domain.TokenRecord{
		Username:           rec.Username,
		RefreshToken:       rec.RefreshToken,
		RefreshTokenExpiry: time.Unix(rec.RefreshTokenExpiry, 0).UTC(),
	}, nil
}

func (r *TokenRepository) Add(ctx context.Context, record *domain.TokenRecord) error {
	doc := mongoTokenRecord{
		Username:           record.Username,
		RefreshToken:       record.RefreshToken,
		RefreshTokenExpiry: record.RefreshTokenExpiry.Unix(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert token record: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (r *TokenRepository) Update(ctx context.Context, record *domain.TokenRecord) error {
	update := bson.M{"$set": bson.M{
		"refresh_token":        record.RefreshToken,
		"refresh_token_expiry": record.RefreshTokenExpiry.Unix(),
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"username": record.Username}, update)
	if err != nil {
		return fmt.Errorf("update token record: %w: %w", domain.ErrPersistence, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update token record: %w", domain.ErrRefreshTokenInvalid)
	}
	return nil
}
