package recommender

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prismstyleapi/models"
)

func look(id uint, occasion, timeOfDay string, createdAt time.Time) models.OutfitLook {
	return models.OutfitLook{
		JsonModel: models.JsonModel{ID: id, CreatedAt: createdAt},
		Occasion:  occasion,
		TimeOfDay: timeOfDay,
	}
}

func TestLookScoreWorkMorning(t *testing.T) {
	store := newStore()
	matcher := NewLookMatcher(store, DefaultWeights())
	now := time.Now()

	// occasion match (5) + time match (3) + flag favorite (2) + fresh
	// recency (2) = 12, clears the threshold of 8
	l := look(1, "Work", "Morning", now)
	l.Favorite = true

	score := matcher.Score(l, Occasion{Title: "Work", TimeOfDay: "Morning"}, now)
	assert.InDelta(t, 12.0, score, 0.01)

	best, bestScore, ok := matcher.BestMatch([]models.OutfitLook{l}, Occasion{Title: "Work", TimeOfDay: "Morning"}, now)
	require.True(t, ok)
	assert.Equal(t, uint(1), best.ID)
	assert.GreaterOrEqual(t, bestScore, DefaultWeights().LookMatchThreshold)
}

func TestLookScoreBelowThresholdNoMatch(t *testing.T) {
	matcher := NewLookMatcher(newStore(), DefaultWeights())
	now := time.Now()

	// stale, unrelated look: no occasion, no time, no favorites, no recency
	l := look(1, "Gym", "Evening", now.AddDate(0, -6, 0))

	_, score, ok := matcher.BestMatch([]models.OutfitLook{l}, Occasion{Title: "Wedding", TimeOfDay: "Afternoon"}, now)
	assert.False(t, ok)
	assert.Less(t, score, DefaultWeights().LookMatchThreshold)
}

func TestLookScoreOccasionContainment(t *testing.T) {
	matcher := NewLookMatcher(newStore(), DefaultWeights())
	now := time.Now().AddDate(0, -6, 0)

	a := matcher.Score(look(1, "Work dinner", "", now), Occasion{Title: "dinner"}, time.Now())
	b := matcher.Score(look(2, "dinner", "", now), Occasion{Title: "Work dinner"}, time.Now())
	assert.Equal(t, DefaultWeights().OccasionMatchPoints, a, "containment works in both directions")
	assert.Equal(t, a, b)
}

func TestLookScoreEmptyOccasionNeverMatches(t *testing.T) {
	matcher := NewLookMatcher(newStore(), DefaultWeights())
	now := time.Now().AddDate(0, -6, 0)

	score := matcher.Score(look(1, "", "", now), Occasion{Title: "Work"}, time.Now())
	assert.Equal(t, 0.0, score)
}

func TestLookScoreRecencyDecays(t *testing.T) {
	matcher := NewLookMatcher(newStore(), DefaultWeights())
	now := time.Now()

	fresh := matcher.Score(look(1, "Work", "", now), Occasion{Title: "Work"}, now)
	aged := matcher.Score(look(2, "Work", "", now.AddDate(0, 0, -30)), Occasion{Title: "Work"}, now)
	stale := matcher.Score(look(3, "Work", "", now.AddDate(0, 0, -90)), Occasion{Title: "Work"}, now)

	assert.Greater(t, fresh, aged)
	assert.Greater(t, aged, stale)
	assert.InDelta(t, DefaultWeights().OccasionMatchPoints, stale, 0.01, "recency bonus bottoms out at zero")
}

func TestLookScoreSuccessRate(t *testing.T) {
	store := newStore()
	matcher := NewLookMatcher(store, DefaultWeights())
	now := time.Now().AddDate(0, -6, 0)
	occ := Occasion{Title: "Work", TimeOfDay: "Morning"}

	store.RecordSelection(occ.Key())
	store.RecordWorn(occ.Key())

	score := matcher.Score(look(1, "Work", "Morning", now), occ, time.Now())
	// 5 occasion + 3 time + 3 * 1.0 success rate
	assert.InDelta(t, 11.0, score, 0.01)
}

func TestBestMatchEmptyLooks(t *testing.T) {
	matcher := NewLookMatcher(newStore(), DefaultWeights())
	_, _, ok := matcher.BestMatch(nil, Occasion{Title: "Work"}, time.Now())
	assert.False(t, ok)
}

func TestAnalyzePhotosEmpty(t *testing.T) {
	matcher := NewLookMatcher(newStore(), DefaultWeights())
	_, ok := matcher.AnalyzePhotos(nil, nil, Occasion{Title: "Work"}, Options{}, time.Now())
	assert.False(t, ok)
}

func TestAssessPhotoDressCodeMatch(t *testing.T) {
	matcher := NewLookMatcher(newStore(), DefaultWeights())
	now := time.Now().AddDate(0, -3, 0)

	garments := map[uint]models.Garment{
		1: {JsonModel: models.JsonModel{ID: 1}, Category: models.CategoryTop, Formality: models.FormalityBusiness},
		2: {JsonModel: models.JsonModel{ID: 2}, Category: models.CategoryBottom, Formality: models.FormalityBusiness},
	}
	l := look(1, "office", "", now)
	l.GarmentIDs = pq.Int64Array{1, 2}

	assessment, ok := matcher.AnalyzePhotos([]models.OutfitLook{l}, garments, Occasion{Title: "Office day"}, Options{}, time.Now())
	require.True(t, ok)
	// base 50 + exact dress code 15 + occasion containment 15
	assert.InDelta(t, 80.0, assessment.Confidence, 0.01)
	assert.Contains(t, assessment.Notes, "dress code matches exactly")
}

func TestAssessPhotoQualitySignals(t *testing.T) {
	matcher := NewLookMatcher(newStore(), DefaultWeights())
	now := time.Now().AddDate(0, -3, 0)

	quality := 0.9
	full := true
	l := look(1, "gym", "", now)
	l.QualityScore = &quality
	l.FullOutfit = &full

	assessment, ok := matcher.AnalyzePhotos([]models.OutfitLook{l}, nil, Occasion{Title: "Gym session"}, Options{}, time.Now())
	require.True(t, ok)
	// base 50 + occasion 15 + quality 9 + full outfit 5
	assert.InDelta(t, 79.0, assessment.Confidence, 0.01)
}

func TestAssessPhotoConfidenceClamped(t *testing.T) {
	matcher := NewLookMatcher(newStore(), DefaultWeights())
	now := time.Now().AddDate(0, -3, 0)

	garments := map[uint]models.Garment{
		1: {JsonModel: models.JsonModel{ID: 1}, Category: models.CategoryTop, Formality: models.FormalityAthletic},
	}
	l := look(1, "gym", "", now)
	l.GarmentIDs = pq.Int64Array{1}

	assessment, ok := matcher.AnalyzePhotos([]models.OutfitLook{l}, garments, Occasion{Title: "Wedding"}, Options{}, time.Now())
	require.True(t, ok)
	assert.GreaterOrEqual(t, assessment.Confidence, 0.0)
	assert.LessOrEqual(t, assessment.Confidence, 100.0)
}

func TestAnalyzePhotosPicksBest(t *testing.T) {
	matcher := NewLookMatcher(newStore(), DefaultWeights())
	now := time.Now().AddDate(0, -3, 0)

	matching := look(1, "brunch", "Morning", now)
	unrelated := look(2, "club night", "Evening", now)

	assessment, ok := matcher.AnalyzePhotos([]models.OutfitLook{unrelated, matching}, nil, Occasion{Title: "Brunch", TimeOfDay: "Morning"}, Options{}, time.Now())
	require.True(t, ok)
	assert.Equal(t, uint(1), assessment.Look.ID)
}
