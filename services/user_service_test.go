package services

import (
	"context"
	"healthcure-server/models"
	apierrors "healthcure-server/utils/errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"golang.org/x/crypto/bcrypt"
)

const usersNS = "healthcure.users"

var rao = models.FavoriteDoctor{ID: 7, Name: "Dr. Rao", Specialty: "ENT", Location: models.Coordinate{Lat: 12.97, Lon: 77.59}}

func newMockUserService(mt *mtest.T, cache Cache) *UserService {
	mt.AddMockResponses(mtest.CreateSuccessResponse()) // createIndexes
	svc, err := NewUserService(context.Background(), mt.DB, cache, "secret", time.Hour)
	require.NoError(mt, err)
	return svc
}

func userDoc(publicID, passwordHash string, favorites ...models.FavoriteDoctor) bson.D {
	favs := bson.A{}
	for _, f := range favorites {
		favs = append(favs, bson.D{
			{Key: "id", Value: f.ID},
			{Key: "name", Value: f.Name},
			{Key: "specialty", Value: f.Specialty},
			{Key: "location", Value: bson.D{{Key: "lat", Value: f.Location.Lat}, {Key: "lon", Value: f.Location.Lon}}},
		})
	}
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "public_id", Value: publicID},
		{Key: "username", Value: "asha"},
		{Key: "email", Value: "asha@example.com"},
		{Key: "password_hash", Value: passwordHash},
		{Key: "favorite_doctors", Value: favs},
	}
}

func foundUser(doc bson.D) bson.D {
	return mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch, doc)
}

func noUser() bson.D {
	return mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch)
}

func matched(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func commandText(mt *mtest.T, name string) string {
	for _, evt := range mt.GetAllStartedEvents() {
		if evt.CommandName == name {
			return evt.Command.String()
		}
	}
	return ""
}

func TestUserService_Favorites(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	asha := WithUserID(context.Background(), "u-1")

	mt.Run("loads from mongo then serves from cache", func(mt *mtest.T) {
		cache := newMemCache()
		svc := newMockUserService(mt, cache)
		mt.AddMockResponses(foundUser(userDoc("u-1", "", rao)))

		favs, err := svc.Favorites(asha)
		require.NoError(mt, err)
		assert.Equal(mt, []models.FavoriteDoctor{rao}, favs)

		// No mock response is left, so this must come from the cache.
		favs, err = svc.Favorites(asha)
		require.NoError(mt, err)
		assert.Equal(mt, []models.FavoriteDoctor{rao}, favs)
	})

	mt.Run("empty list is not nil", func(mt *mtest.T) {
		svc := newMockUserService(mt, nil)
		mt.AddMockResponses(foundUser(userDoc("u-1", "")))

		favs, err := svc.Favorites(asha)
		require.NoError(mt, err)
		assert.NotNil(mt, favs)
		assert.Empty(mt, favs)
	})

	mt.Run("unknown user", func(mt *mtest.T) {
		svc := newMockUserService(mt, nil)
		mt.AddMockResponses(noUser())

		_, err := svc.Favorites(asha)
		assert.ErrorIs(mt, err, apierrors.ErrNotFound)
	})

	mt.Run("requires an authenticated user", func(mt *mtest.T) {
		svc := newMockUserService(mt, nil)
		_, err := svc.Favorites(context.Background())
		assert.ErrorIs(mt, err, apierrors.ErrUnauthorized)
	})
}

func TestUserService_AddFavorite(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	asha := WithUserID(context.Background(), "u-1")

	mt.Run("adds by id and invalidates the cached user", func(mt *mtest.T) {
		cache := newMemCache()
		require.NoError(mt, cache.Set(context.Background(), userCacheKey("u-1"), []byte(`{}`), time.Hour))
		svc := newMockUserService(mt, cache)
		mt.AddMockResponses(matched(1))

		require.NoError(mt, svc.AddFavorite(asha, rao))

		_, err := cache.Get(context.Background(), userCacheKey("u-1"))
		assert.ErrorIs(mt, err, ErrCacheMiss)

		update := commandText(mt, "update")
		assert.Contains(mt, update, "$ne")
		assert.Contains(mt, update, "$push")
	})

	mt.Run("adding the same doctor twice is a no-op", func(mt *mtest.T) {
		svc := newMockUserService(mt, nil)
		mt.AddMockResponses(matched(0), foundUser(userDoc("u-1", "", rao)))

		assert.NoError(mt, svc.AddFavorite(asha, rao))
	})

	mt.Run("unknown user", func(mt *mtest.T) {
		svc := newMockUserService(mt, nil)
		mt.AddMockResponses(matched(0), noUser())

		assert.ErrorIs(mt, svc.AddFavorite(asha, rao), apierrors.ErrNotFound)
	})

	mt.Run("rejects invalid favourites before touching mongo", func(mt *mtest.T) {
		svc := newMockUserService(mt, nil)
		mt.ClearEvents()

		assert.ErrorIs(mt, svc.AddFavorite(asha, models.FavoriteDoctor{Name: "No id"}), apierrors.ErrInvalidInput)
		bad := rao
		bad.Location = models.Coordinate{Lat: 95}
		assert.ErrorIs(mt, svc.AddFavorite(asha, bad), apierrors.ErrInvalidInput)
		assert.Empty(mt, mt.GetAllStartedEvents())
	})
}

func TestUserService_RemoveFavorite(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	asha := WithUserID(context.Background(), "u-1")

	mt.Run("removes and invalidates", func(mt *mtest.T) {
		cache := newMemCache()
		require.NoError(mt, cache.Set(context.Background(), userCacheKey("u-1"), []byte(`{}`), time.Hour))
		svc := newMockUserService(mt, cache)
		mt.AddMockResponses(matched(1))

		require.NoError(mt, svc.RemoveFavorite(asha, rao.ID))
		_, err := cache.Get(context.Background(), userCacheKey("u-1"))
		assert.ErrorIs(mt, err, ErrCacheMiss)
		assert.Contains(mt, commandText(mt, "update"), "$pull")
	})

	mt.Run("missing id is not found", func(mt *mtest.T) {
		svc := newMockUserService(mt, nil)
		mt.AddMockResponses(matched(0))

		assert.ErrorIs(mt, svc.RemoveFavorite(asha, 999), apierrors.ErrNotFound)
	})
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("register stores and caches the user", func(mt *mtest.T) {
		cache := newMemCache()
		svc := newMockUserService(mt, cache)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		publicID, err := svc.Register(context.Background(), "asha", "asha@example.com", "correct horse")
		require.NoError(mt, err)
		assert.NotEmpty(mt, publicID)

		cached, err := cache.Get(context.Background(), userCacheKey(publicID))
		require.NoError(mt, err)
		assert.True(mt, strings.Contains(string(cached), `"username":"asha"`))
	})

	mt.Run("duplicate username conflicts", func(mt *mtest.T) {
		svc := newMockUserService(mt, nil)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}))

		_, err := svc.Register(context.Background(), "asha", "asha@example.com", "correct horse")
		assert.ErrorIs(mt, err, apierrors.ErrConflict)
	})

	mt.Run("weak input never reaches mongo", func(mt *mtest.T) {
		svc := newMockUserService(mt, nil)
		mt.ClearEvents()

		_, err := svc.Register(context.Background(), "asha", "asha@example.com", "short")
		assert.ErrorIs(mt, err, apierrors.ErrInvalidInput)
		_, err = svc.Register(context.Background(), "asha", "not-an-email", "correct horse")
		assert.ErrorIs(mt, err, apierrors.ErrInvalidInput)
		assert.Empty(mt, mt.GetAllStartedEvents())
	})

	mt.Run("login issues a token for the public id", func(mt *mtest.T) {
		hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
		require.NoError(mt, err)
		svc := newMockUserService(mt, nil)
		mt.AddMockResponses(foundUser(userDoc("u-1", string(hash))))

		token, err := svc.Login(context.Background(), "asha", "correct horse")
		require.NoError(mt, err)
		userID, err := ParseToken("secret", token)
		require.NoError(mt, err)
		assert.Equal(mt, "u-1", userID)
	})

	mt.Run("login with a wrong password", func(mt *mtest.T) {
		hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
		require.NoError(mt, err)
		svc := newMockUserService(mt, nil)
		mt.AddMockResponses(foundUser(userDoc("u-1", string(hash))))

		_, err = svc.Login(context.Background(), "asha", "battery staple")
		var apiErr *apierrors.APIError
		require.ErrorAs(mt, err, &apiErr)
		assert.Equal(mt, "INVALID_CREDENTIALS", apiErr.Code)
	})
}
