package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/panelapi/panel-api/internal/core/domain"
)

const (
	userCollection = "users"
	roleCollection = "roles"

	// Rough stand-in for the usual framework password policy.
	minPasswordLength = 6
)

// IdentityRepository implements ports.IdentityStore on MongoDB. It owns
// password hashing: plaintext comes in, only bcrypt hashes are stored.
type IdentityRepository struct {
	users *mongo.Collection
	roles *mongo.Collection
}

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{
		users: db.Collection(userCollection),
		roles: db.Collection(roleCollection),
	}
}

type mongoUser struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Name         string             `bson:"name,omitempty"`
	Email        string             `bson:"email,omitempty"`
	PasswordHash string             `bson:"password_hash"`
	Roles        []string           `bson:"roles"`
	CreatedAt    int64              `bson:"created_at"`
	UpdatedAt    int64              `bson:"updated_at"`
}

type mongoRole struct {
	Name string `bson:"name"`
}

func (r *IdentityRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var mu mongoUser
	if err := r.users.FindOne(ctx, bson.M{"username": username}).Decode(&mu); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w: %w", domain.ErrPersistence, err)
	}

	return &domain.User{
		ID:           mu.ID.Hex(),
		Username:     mu.Username,
		Name:         mu.Name,
		Email:        mu.Email,
		PasswordHash: mu.PasswordHash,
		Roles:        mu.Roles,
		CreatedAt:    unixToTime(mu.CreatedAt),
		UpdatedAt:    unixToTime(mu.UpdatedAt),
	}, nil
}

func (r *IdentityRepository) CheckPassword(ctx context.Context, username, password string) error {
	user, err := r.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.ErrInvalidCredentials
	}
	return nil
}

func (r *IdentityRepository) Create(ctx context.Context, user *domain.User, password string) (*domain.User, error) {
	if len(password) < minPasswordLength {
		return nil, domain.ErrPasswordChange
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	doc := mongoUser{
		Username:     user.Username,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: string(hash),
		Roles:        []string{},
		CreatedAt:    user.CreatedAt.Unix(),
		UpdatedAt:    user.UpdatedAt.Unix(),
	}

	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w: %w", domain.ErrPersistence, err)
	}

	return r.FindByUsername(ctx, user.Username)
}

func (r *IdentityRepository) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	if err := r.CheckPassword(ctx, username, currentPassword); err != nil {
		if err == domain.ErrInvalidCredentials {
			return domain.ErrInvalidCurrentPassword
		}
		return err
	}
	if len(newPassword) < minPasswordLength {
		return domain.ErrPasswordChange
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	update := bson.M{"$set": bson.M{
		"password_hash": string(hash),
		"updated_at":    time.Now().UTC().Unix(),
	}}
	res, err := r.users.UpdateOne(ctx, bson.M{"username": username}, update)
	if err != nil {
		return fmt.Errorf("update password: %w: %w", domain.ErrPersistence, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *IdentityRepository) GetRoles(ctx context.Context, username string) ([]string, error) {
	user, err := r.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return user.Roles, nil
}

func (r *IdentityRepository) AddToRole(ctx context.Context, username, role string) error {
	update := bson.M{"$addToSet": bson.M{"roles": role}}
	res, err := r.users.UpdateOne(ctx, bson.M{"username": username}, update)
	if err != nil {
		return fmt.Errorf("add to role: %w: %w", domain.ErrPersistence, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *IdentityRepository) RoleExists(ctx context.Context, role string) (bool, error) {
	n, err := r.roles.CountDocuments(ctx, bson.M{"name": role})
	if err != nil {
		return false, fmt.Errorf("count roles: %w: %w", domain.ErrPersistence, err)
	}
	return n > 0, nil
}

// CreateRole inserts the role document. Losing a race to another creator is
// fine: the unique index turns the second insert into a no-op.
func (r *IdentityRepository) CreateRole(ctx context.Context, role string) error {
	if _, err := r.roles.InsertOne(ctx, mongoRole{Name: role}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert role: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
