package recommender

// Weights collects every tunable constant of the pipeline. The defaults are
// the empirically chosen values the product shipped with; callers can pass
// their own set to NewEngine.
type Weights struct {
	// aggregate axis weights
	Color      float64
	Style      float64
	Occasion   float64
	Preference float64
	Weather    float64

	// look matching points
	OccasionMatchPoints  float64
	TimeMatchPoints      float64
	MemoryFavoritePoints float64
	FlagFavoritePoints   float64
	SuccessRatePoints    float64
	LookMatchThreshold   float64
	LookMatchConfidence  float64

	// photo re-analysis
	PhotoBaseConfidence float64
	PhotoQualityPoints  float64
	FullOutfitPoints    float64
	PhotoConfidenceBar  float64

	// composition confidence
	ComposeBaseConfidence float64
	ThreePieceBonus       float64
	TwoPieceBonus         float64
	FavoritePieceBonus    float64
	OccasionStyleBonus    float64
	MaxConfidence         float64

	// accept a refinement only above this relative harmony gain, keeps the
	// optimizer from flapping on marginal swaps
	RefinementMinGain float64
}

func DefaultWeights() Weights {
	return Weights{
		Color:      0.3,
		Style:      0.25,
		Occasion:   0.2,
		Preference: 0.15,
		Weather:    0.1,

		OccasionMatchPoints:  5,
		TimeMatchPoints:      3,
		MemoryFavoritePoints: 4,
		FlagFavoritePoints:   2,
		SuccessRatePoints:    3,
		LookMatchThreshold:   8,
		LookMatchConfidence:  95,

		PhotoBaseConfidence: 50,
		PhotoQualityPoints:  10,
		FullOutfitPoints:    5,
		PhotoConfidenceBar:  70,

		ComposeBaseConfidence: 50,
		ThreePieceBonus:       20,
		TwoPieceBonus:         10,
		FavoritePieceBonus:    10,
		OccasionStyleBonus:    5,
		MaxConfidence:         95,

		RefinementMinGain: 0.05,
	}
}
