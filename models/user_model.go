package models

type User struct {
	ID              string           `json:"id" bson:"_id,omitempty"`
	PublicID        string           `json:"public_id" bson:"public_id"`
	Username        string           `json:"username" bson:"username"`
	Email           string           `json:"email" bson:"email"`
	PasswordHash    string           `json:"password_hash" bson:"password_hash"`
	FavoriteDoctors []FavoriteDoctor `json:"favorite_doctors" bson:"favorite_doctors"`
}

// FavoriteDoctor is a doctor bookmarked by a user, keyed by OSM node id.
type FavoriteDoctor struct {
	ID        int64      `json:"id" bson:"id"`
	Name      string     `json:"name" bson:"name"`
	Specialty string     `json:"specialty" bson:"specialty"`
	Location  Coordinate `json:"location" bson:"location"`
}
