package models

// StyleProfile is the persisted form of a user's learned preferences. The
// counter maps are stored as JSON text columns and decoded by the style
// profile repository; the engine itself never touches serialization.
type StyleProfile struct {
	JsonModel
	Owner   UserAccount `json:"-"`
	OwnerID uint        `gorm:"uniqueIndex" json:"-"`

	FavoriteGarmentIDsJSON string `gorm:"type:text" json:"-"`
	FavoriteLookIDsJSON    string `gorm:"type:text" json:"-"`
	SelectionCountsJSON    string `gorm:"type:text" json:"-"`
	WornCountsJSON         string `gorm:"type:text" json:"-"`
	ColorCombinationsJSON  string `gorm:"type:text" json:"-"`
	CategoryByOccasionJSON string `gorm:"type:text" json:"-"`
	FormalityCountsJSON    string `gorm:"type:text" json:"-"`
}
