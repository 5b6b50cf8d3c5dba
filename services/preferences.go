package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"

	"prismstyleapi/models"
	"prismstyleapi/recommender"
)

type StyleProfileProvider interface {
	Load(db *gorm.DB, userID uint) (*recommender.PreferenceStore, error)
	Save(db *gorm.DB, userID uint, data recommender.PreferenceData) error
}

// StyleProfileRepository moves preference data between the engine's
// in-memory form and the style_profiles row. Saves for the same user are
// serialized so concurrent feedback never interleaves its counter writes.
type StyleProfileRepository struct {
	userLocks sync.Map // userID -> *sync.Mutex
}

func NewStyleProfileRepository() *StyleProfileRepository {
	return &StyleProfileRepository{}
}

func (r *StyleProfileRepository) lockFor(userID uint) *sync.Mutex {
	lock, _ := r.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Load reads the user's profile row, creating an empty one on first use.
func (r *StyleProfileRepository) Load(db *gorm.DB, userID uint) (*recommender.PreferenceStore, error) {
	var profile models.StyleProfile
	result := db.Where("owner_id = ?", userID).First(&profile)
	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			return nil, result.Error
		}
		profile = models.StyleProfile{OwnerID: userID}
		if err := db.Create(&profile).Error; err != nil {
			sentry.CaptureException(fmt.Errorf("[Profile user: %v] Error creating style profile: %v", userID, err))
			return nil, err
		}
		return recommender.NewPreferenceStore(recommender.NewPreferenceData()), nil
	}

	data := recommender.NewPreferenceData()
	decode := func(raw string, target any) {
		if raw == "" {
			return
		}
		if err := json.Unmarshal([]byte(raw), target); err != nil {
			fmt.Printf("[Profile user: %v] Corrupt profile column, resetting: %v\n", userID, err)
			sentry.CaptureException(fmt.Errorf("[Profile user: %v] corrupt style profile column: %v", userID, err))
		}
	}
	decode(profile.FavoriteGarmentIDsJSON, &data.FavoriteGarmentIDs)
	decode(profile.FavoriteLookIDsJSON, &data.FavoriteLookIDs)
	decode(profile.SelectionCountsJSON, &data.SelectionCounts)
	decode(profile.WornCountsJSON, &data.WornCounts)
	decode(profile.ColorCombinationsJSON, &data.ColorCombinations)
	decode(profile.CategoryByOccasionJSON, &data.CategoryByOccasion)
	decode(profile.FormalityCountsJSON, &data.FormalityCounts)

	return recommender.NewPreferenceStore(data), nil
}

// Save writes the full counter set back. Last write wins per column set,
// which is why writes are serialized per user.
func (r *StyleProfileRepository) Save(db *gorm.DB, userID uint, data recommender.PreferenceData) error {
	lock := r.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	encode := func(value any) string {
		raw, err := json.Marshal(value)
		if err != nil {
			sentry.CaptureException(fmt.Errorf("[Profile user: %v] Error encoding style profile: %v", userID, err))
			return ""
		}
		return string(raw)
	}

	var profile models.StyleProfile
	result := db.Where("owner_id = ?", userID).First(&profile)
	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			return result.Error
		}
		profile = models.StyleProfile{OwnerID: userID}
	}

	profile.FavoriteGarmentIDsJSON = encode(data.FavoriteGarmentIDs)
	profile.FavoriteLookIDsJSON = encode(data.FavoriteLookIDs)
	profile.SelectionCountsJSON = encode(data.SelectionCounts)
	profile.WornCountsJSON = encode(data.WornCounts)
	profile.ColorCombinationsJSON = encode(data.ColorCombinations)
	profile.CategoryByOccasionJSON = encode(data.CategoryByOccasion)
	profile.FormalityCountsJSON = encode(data.FormalityCounts)

	if err := db.Save(&profile).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[Profile user: %v] Error saving style profile: %v", userID, err))
		return err
	}
	return nil
}
