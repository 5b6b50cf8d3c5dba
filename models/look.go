package models

import "github.com/lib/pq"

// OutfitLook is a photographed real-world outfit, as opposed to one
// composed by the recommendation engine.
type OutfitLook struct {
	JsonModel
	Occasion  string  `json:"occasion"`
	TimeOfDay string  `json:"time_of_day"`
	Notes     *string `gorm:"type:text" json:"notes"`
	// this is photo **key** in storage.
	ImageURL *string `json:"image_url"`
	Favorite bool    `gorm:"default:false" json:"favorite"`
	// garments visible on the photo, tagged manually by the user
	GarmentIDs pq.Int64Array `gorm:"type:bigint[]" json:"garment_ids"`
	Owner      UserAccount   `json:"-"`
	OwnerID    uint          `json:"-"`

	// filled by the analyze_look worker, consumed by photo re-analysis
	AnalysisStatus string `json:"analysis_status"` // pending, completed, failed
	// [0,1] photo quality from the vision collaborator
	QualityScore *float64 `json:"quality_score"`
	// whether the photo shows a complete outfit head to toe
	FullOutfit *bool `json:"full_outfit"`
	// dominant hex colors detected on the photo
	DominantColors       pq.StringArray `gorm:"type:text[]" json:"dominant_colors"`
	AnalysisRetryTimes   uint           `json:"-"`
	AnalysisErrorMessage *string        `json:"analysis_error_message"`
	AlertWhenAnalyzed    bool           `json:"alert_when_analyzed"`
}

// RecommendationRecord keeps returned recommendations so feedback calls can
// reference them later.
type RecommendationRecord struct {
	JsonModel
	Owner      UserAccount `json:"-"`
	OwnerID    uint        `json:"-"`
	Occasion   string      `json:"occasion"`
	TimeOfDay  string      `json:"time_of_day"`
	Verdict    string      `gorm:"type:text" json:"verdict"`
	Rationale  string      `gorm:"type:text" json:"rationale"`
	Confidence float64     `json:"confidence"`
	// garments the engine suggested, empty when a look was matched instead
	GarmentIDs pq.Int64Array  `gorm:"type:bigint[]" json:"garment_ids"`
	LookID     *uint          `json:"look_id"`
	StyleTags  pq.StringArray `gorm:"type:text[]" json:"style_tags"`
	// nil until the user reacted
	Liked *bool `json:"liked"`
}
