package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/docshare/identity-api/internal/core/domain"
)

const (
	usersCollection    = "users"
	countersCollection = "counters"
	usersCounterID     = "users"
)

// UserRepository implements ports.UserRepository on MongoDB. Ids are
// numeric and come from a per-collection counter document.
type UserRepository struct {
	users    *mongo.Collection
	counters *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		users:    db.Collection(usersCollection),
		counters: db.Collection(countersCollection),
	}
}

type mongoUser struct {
	ID           int64     `bson:"_id"`
	Email        string    `bson:"email"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password_hash,omitempty"`
	FullName     string    `bson:"full_name,omitempty"`
	Bio          string    `bson:"bio,omitempty"`
	Role         int       `bson:"role"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (mu *mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:           mu.ID,
		Email:        mu.Email,
		Username:     mu.Username,
		PasswordHash: mu.PasswordHash,
		FullName:     mu.FullName,
		Bio:          mu.Bio,
		Role:         mu.Role,
		CreatedAt:    mu.CreatedAt.UTC(),
		UpdatedAt:    mu.UpdatedAt.UTC(),
	}
}

// EnsureIndexes creates the unique indexes backing email/username uniqueness.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	_, err := r.users.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *UserRepository) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": usersCounterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, storeErr("next user id", err)
	}
	return counter.Seq, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return nil, err
	}

	role := user.Role
	if role == 0 {
		role = domain.RoleRegular
	}
	doc := mongoUser{
		ID:           id,
		Email:        user.Email,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		FullName:     user.FullName,
		Bio:          user.Bio,
		Role:         role,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}

	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, r.duplicateFailure(ctx, user.Email, user.Username, 0)
		}
		return nil, storeErr("insert user", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.users.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storeErr("find user", err)
	}
	return mu.toDomain(), nil
}

// List returns users ordered by id. A zero page limit returns every row.
func (r *UserRepository) List(ctx context.Context, page domain.Page) ([]*domain.User, int64, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"password_hash": 0})
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit)).SetSkip(int64(page.Offset))
	}
	return r.findMany(ctx, bson.M{}, opts)
}

// SearchByEmail matches a case-insensitive, literal substring of email.
func (r *UserRepository) SearchByEmail(ctx context.Context, query string) ([]*domain.User, int64, error) {
	filter := bson.M{"email": bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"}}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"password_hash": 0})
	return r.findMany(ctx, filter, opts)
}

func (r *UserRepository) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := r.users.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, storeErr("count users", err)
	}

	cur, err := r.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, storeErr("find users", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, storeErr("decode users", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toDomain())
	}
	return users, total, nil
}

// Update sets the non-empty attributes of upd in one atomic write.
func (r *UserRepository) Update(ctx context.Context, id int64, upd domain.UserUpdate) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": upd.UpdatedAt}
	for field, value := range map[string]string{
		"email":         upd.Email,
		"username":      upd.Username,
		"password_hash": upd.PasswordHash,
		"full_name":     upd.FullName,
		"bio":           upd.Bio,
	} {
		if value != "" {
			set[field] = value
		}
	}

	var mu mongoUser
	err := r.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mu)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, domain.ErrUserNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, r.duplicateFailure(ctx, upd.Email, upd.Username, id)
		}
		return nil, storeErr("update user", err)
	}
	return mu.toDomain(), nil
}

// Delete removes the user with id. Removing nothing is not an error.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.users.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return storeErr("delete user", err)
	}
	return nil
}

// duplicateFailure checks which unique attribute collided so the caller
// gets a field-scoped error list.
func (r *UserRepository) duplicateFailure(ctx context.Context, email, username string, self int64) error {
	var fields []domain.FieldError
	check := func(field, value string) {
		if value == "" {
			return
		}
		n, err := r.users.CountDocuments(ctx, bson.M{field: value, "_id": bson.M{"$ne": self}})
		if err == nil && n > 0 {
			fields = append(fields, domain.FieldError{Field: field, Message: field + " is already in use"})
		}
	}
	check("email", email)
	check("username", username)

	if len(fields) == 0 {
		fields = append(fields, domain.FieldError{Field: "email", Message: "email or username is already in use"})
	}
	return domain.Invalid(domain.CauseDuplicateUnique, fields...)
}

// storeErr tags timeouts and network failures with domain.ErrStoreTimeout.
func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
