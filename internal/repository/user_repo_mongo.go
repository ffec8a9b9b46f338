package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"marinova/internal/domain"
)

const usersCollection = "users"

type usageDocument struct {
	Feature string    `bson:"feature"`
	UsedAt  time.Time `bson:"used_at"`
}

type userDocument struct {
	ID                 string          `bson:"_id"`
	FullName           string          `bson:"full_name"`
	Email              string          `bson:"email"`
	PasswordHash       string          `bson:"password_hash"`
	IsEmailVerified    bool            `bson:"is_email_verified"`
	VerificationToken  *string         `bson:"verification_token"`
	SubscriptionStatus string          `bson:"subscription_status"`
	UsageCredits       int             `bson:"usage_credits"`
	UsageHistory       []usageDocument `bson:"usage_history"`
	CreatedAt          time.Time       `bson:"created_at"`
	UpdatedAt          time.Time       `bson:"updated_at"`
}

func (d userDocument) toDomain() domain.User {
	return domain.User{
		ID:                 d.ID,
		FullName:           d.FullName,
		Email:              d.Email,
		PasswordHash:       d.PasswordHash,
		IsEmailVerified:    d.IsEmailVerified,
		VerificationToken:  d.VerificationToken,
		SubscriptionStatus: domain.Plan(d.SubscriptionStatus),
		UsageCredits:       d.UsageCredits,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

// MongoUserRepository guarda cada usuario como un documento con su historial embebido.
type MongoUserRepository struct {
	users *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{users: db.Collection(usersCollection)}
}

// EnsureIndexes crea los índices de unicidad y de búsqueda por token.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "verification_token", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	return err
}

func (r *MongoUserRepository) Create(ctx context.Context, user domain.User) error {
	doc := userDocument{
		ID:                 user.ID,
		FullName:           user.FullName,
		Email:              user.Email,
		PasswordHash:       user.PasswordHash,
		IsEmailVerified:    user.IsEmailVerified,
		VerificationToken:  user.VerificationToken,
		SubscriptionStatus: string(user.SubscriptionStatus),
		UsageCredits:       user.UsageCredits,
		UsageHistory:       []usageDocument{},
		CreatedAt:          user.CreatedAt,
		UpdatedAt:          user.UpdatedAt,
	}
	_, err := r.users.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) ListUsage(ctx context.Context, id string) ([]domain.UsageEntry, error) {
	var doc userDocument
	opts := options.FindOne().SetProjection(bson.M{"usage_history": 1})
	err := r.users.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	entries := make([]domain.UsageEntry, 0, len(doc.UsageHistory))
	for _, u := range doc.UsageHistory {
		entries = append(entries, domain.UsageEntry{Feature: u.Feature, UsedAt: u.UsedAt})
	}
	return entries, nil
}

func (r *MongoUserRepository) SetVerificationToken(ctx context.Context, id, token string, at time.Time) error {
	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"verification_token": token, "updated_at": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) VerifyEmail(ctx context.Context, token string, at time.Time) (domain.User, error) {
	if token == "" {
		return domain.User{}, ErrNotFound
	}
	return r.findOneAndUpdate(ctx,
		bson.M{"verification_token": token},
		bson.M{"$set": bson.M{"is_email_verified": true, "verification_token": nil, "updated_at": at}},
	)
}

func (r *MongoUserRepository) ConsumeCredit(ctx context.Context, id string, feature domain.Feature, at time.Time) (domain.User, error) {
	user, err := r.findOneAndUpdate(ctx,
		bson.M{"_id": id, "usage_credits": bson.M{"$gt": 0}},
		bson.M{
			"$inc":  bson.M{"usage_credits": -1},
			"$push": bson.M{"usage_history": usageDocument{Feature: string(feature), UsedAt: at}},
			"$set":  bson.M{"updated_at": at},
		},
	)
	if !errors.Is(err, ErrNotFound) {
		return user, err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return domain.User{}, err
	}
	return domain.User{}, ErrNoCredits
}

func (r *MongoUserRepository) RecordUsage(ctx context.Context, id string, feature domain.Feature, at time.Time) (domain.User, error) {
	return r.findOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"usage_history": usageDocument{Feature: string(feature), UsedAt: at}},
			"$set":  bson.M{"updated_at": at},
		},
	)
}

func (r *MongoUserRepository) UpdateSubscription(ctx context.Context, id string, plan domain.Plan, credits int, at time.Time) (domain.User, error) {
	return r.findOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"subscription_status": string(plan), "usage_credits": credits, "updated_at": at}},
	)
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (domain.User, error) {
	var doc userDocument
	opts := options.FindOne().SetProjection(bson.M{"usage_history": 0})
	err := r.users.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return doc.toDomain(), nil
}

func (r *MongoUserRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (domain.User, error) {
	var doc userDocument
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"usage_history": 0})
	err := r.users.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return doc.toDomain(), nil
}
