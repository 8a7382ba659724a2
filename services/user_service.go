package services

import (
	"context"
	"encoding/json"
	"healthcure-server/models"
	"healthcure-server/utils/errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const userCacheTTL = 24 * time.Hour

type userContextKey struct{}

// WithUserID stores the authenticated user's public id on ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userContextKey{}, userID)
}

// UserIDFromContext returns the authenticated user's public id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userContextKey{}).(string)
	return userID, ok && userID != ""
}

type UserService struct {
	collection *mongo.Collection
	cache      Cache
	jwtSecret  string
	tokenTTL   time.Duration
}

func NewUserService(ctx context.Context, db *mongo.Database, cache Cache, jwtSecret string, tokenTTL time.Duration) (*UserService, error) {
	collection := db.Collection("users")

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "public_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to create user indexes", http.StatusInternalServerError)
	}

	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &UserService{
		collection: collection,
		cache:      cache,
		jwtSecret:  jwtSecret,
		tokenTTL:   tokenTTL,
	}, nil
}

func userCacheKey(publicID string) string {
	return "user:" + publicID
}

// GetUser retrieves a user from the cache or MongoDB
func (s *UserService) GetUser(ctx context.Context, publicID string) (models.User, error) {
	var user models.User

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, userCacheKey(publicID)); err == nil {
			if err := json.Unmarshal(cached, &user); err == nil {
				return user, nil
			}
			log.Warn().Str("user", publicID).Msg("Discarding undecodable cached user")
		}
	}

	err := s.collection.FindOne(ctx, bson.M{"public_id": publicID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return models.User{}, errors.ErrNotFound
	}
	if err != nil {
		return models.User{}, errors.Wrap(err, "DB_ERROR", "failed to load user", http.StatusInternalServerError)
	}

	s.cacheUser(ctx, user)
	return user, nil
}

func (s *UserService) cacheUser(ctx context.Context, user models.User) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, userCacheKey(user.PublicID), payload, userCacheTTL); err != nil {
		log.Warn().Err(err).Str("user", user.PublicID).Msg("Failed to cache user")
	}
}

func (s *UserService) invalidate(ctx context.Context, publicID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, userCacheKey(publicID)); err != nil {
		log.Warn().Err(err).Str("user", publicID).Msg("Failed to invalidate cached user")
	}
}

// Favorites lists the authenticated user's bookmarked doctors.
func (s *UserService) Favorites(ctx context.Context) ([]models.FavoriteDoctor, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, errors.ErrUnauthorized
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.FavoriteDoctors == nil {
		return []models.FavoriteDoctor{}, nil
	}
	return user.FavoriteDoctors, nil
}

// AddFavorite bookmarks a doctor. Adding an id that is already bookmarked is a no-op.
func (s *UserService) AddFavorite(ctx context.Context, fav models.FavoriteDoctor) error {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return errors.ErrUnauthorized
	}
	if fav.ID == 0 || !fav.Location.Valid() {
		return errors.ErrInvalidInput
	}

	res, err := s.collection.UpdateOne(ctx,
		bson.M{"public_id": userID, "favorite_doctors.id": bson.M{"$ne": fav.ID}},
		bson.M{"$push": bson.M{"favorite_doctors": fav}},
	)
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to add favorite", http.StatusInternalServerError)
	}
	if res.MatchedCount == 0 {
		// Either the user is gone or the doctor is already bookmarked.
		if _, err := s.GetUser(ctx, userID); err != nil {
			return err
		}
		return nil
	}

	s.invalidate(ctx, userID)
	log.Info().Str("user", userID).Int64("doctor", fav.ID).Msg("Favorite doctor added")
	return nil
}

// RemoveFavorite drops a bookmarked doctor.
func (s *UserService) RemoveFavorite(ctx context.Context, doctorID int64) error {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return errors.ErrUnauthorized
	}

	res, err := s.collection.UpdateOne(ctx,
		bson.M{"public_id": userID, "favorite_doctors.id": doctorID},
		bson.M{"$pull": bson.M{"favorite_doctors": bson.M{"id": doctorID}}},
	)
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to remove favorite", http.StatusInternalServerError)
	}
	if res.MatchedCount == 0 {
		return errors.ErrNotFound
	}

	s.invalidate(ctx, userID)
	return nil
}
