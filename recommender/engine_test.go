package recommender

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prismstyleapi/models"
)

func TestRecommendEmptyWardrobe(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	store := newStore()

	result, err := engine.Recommend(context.Background(), RecommendInput{
		Occasion: Occasion{Title: "Wedding", TimeOfDay: "Afternoon"},
		Prefs:    store,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.GarmentIDs)
	assert.Contains(t, result.StyleTags, TagNeedsMoreData)
}

func TestRecommendComposesWeddingOutfit(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	store := newStore()

	dress := garment(1, models.CategoryDress, models.FormalityFormal, "#1B2A4A")
	shoes := garment(2, models.CategoryFootwear, models.FormalityFormal, "#111111")

	result, err := engine.Recommend(context.Background(), RecommendInput{
		Occasion: Occasion{Title: "Wedding", TimeOfDay: "Afternoon"},
		Garments: []models.Garment{dress, shoes},
		Prefs:    store,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Confidence, 50.0)
	assert.Contains(t, result.StyleTags, "dressed")
	assert.Contains(t, result.GarmentIDs, uint(2), "the shoes belong in the outfit")
	require.NotNil(t, result.Suggestion)
	assert.NotEmpty(t, result.Breakdown)
}

func TestRecommendConfidenceClamped(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	store := newStore()

	var garments []models.Garment
	for i, cat := range []models.GarmentCategory{
		models.CategoryDress, models.CategoryOuterwear, models.CategoryFootwear,
		models.CategoryAccessory, models.CategoryAccessory,
	} {
		g := garment(uint(i+1), cat, models.FormalityFormal, "#1B2A4A")
		g.Favorite = true
		garments = append(garments, g)
	}

	result, err := engine.Recommend(context.Background(), RecommendInput{
		Occasion: Occasion{Title: "Wedding"},
		Garments: garments,
		Prefs:    store,
		Options:  Options{Style: models.VibeClassic},
	})
	require.NoError(t, err)
	assert.Equal(t, 95.0, result.Confidence)
}

func TestRecommendMatchesProvenLook(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	store := newStore()
	now := time.Now()

	l := look(4, "Work", "Morning", now)
	l.Favorite = true

	result, err := engine.Recommend(context.Background(), RecommendInput{
		Occasion: Occasion{Title: "Work", TimeOfDay: "Morning"},
		Looks:    []models.OutfitLook{l},
		Prefs:    store,
		Now:      now,
	})
	require.NoError(t, err)
	assert.Equal(t, 95.0, result.Confidence)
	require.NotNil(t, result.BestLookID)
	assert.Equal(t, uint(4), *result.BestLookID)
	assert.Contains(t, result.StyleTags, "proven_look")
	assert.Empty(t, result.GarmentIDs, "a repeated look carries no fresh composition")
}

func TestRecommendPhotoAnalysisFallback(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	store := newStore()
	now := time.Now()

	// six months old so the recency bonus is gone and the look match stays
	// under threshold; photo analysis still clears the confidence bar
	quality := 0.9
	full := true
	l := look(5, "office", "Morning", now.AddDate(0, -6, 0))
	l.QualityScore = &quality
	l.FullOutfit = &full

	result, err := engine.Recommend(context.Background(), RecommendInput{
		Occasion: Occasion{Title: "Office party prep", TimeOfDay: "Evening"},
		Looks:    []models.OutfitLook{l},
		Prefs:    store,
		Now:      now,
	})
	require.NoError(t, err)
	assert.Contains(t, result.StyleTags, "photo_match")
	require.NotNil(t, result.BestLookID)
	assert.Equal(t, uint(5), *result.BestLookID)
	assert.Greater(t, result.Confidence, DefaultWeights().PhotoConfidenceBar)
}

func TestRecommendBumpsSelectionCounter(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	store := newStore()
	occ := Occasion{Title: "Brunch", TimeOfDay: "Morning"}

	_, err := engine.Recommend(context.Background(), RecommendInput{Occasion: occ, Prefs: store})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Data().SelectionCounts[occ.Key()])
}

func TestRecommendCancelledContext(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Recommend(ctx, RecommendInput{
		Occasion: Occasion{Title: "Work"},
		Prefs:    newStore(),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestRecommendAlternatives(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	store := newStore()

	top := garment(1, models.CategoryTop, models.FormalityCasual, "#222222")
	bottom := garment(2, models.CategoryBottom, models.FormalityCasual, "#333333")
	// clashes with the bottom so refinement leaves it as an alternative
	fancier := garment(3, models.CategoryTop, models.FormalitySmartCasual, "#FF0000")

	result, err := engine.Recommend(context.Background(), RecommendInput{
		Occasion: Occasion{Title: "Errand run"},
		Garments: []models.Garment{top, bottom, fancier},
		Prefs:    store,
	})
	require.NoError(t, err)

	categories := map[string]bool{}
	for _, alt := range result.Alternatives {
		categories[alt.Category] = true
	}
	assert.True(t, categories["formal_variant"], "a smarter top exists one rank up")
	assert.True(t, categories["color_variation"])
}

func TestRequiredFormalityMatchesWholeWords(t *testing.T) {
	cases := []struct {
		title string
		want  models.Formality
	}{
		{"Errand run", models.FormalityCasual},
		{"School run", models.FormalityCasual},
		{"Company workshop", models.FormalityCasual},
		{"Morning jog", models.FormalityAthletic},
		{"Going running", models.FormalityAthletic},
		{"Black tie reception", models.FormalityFormal},
		{"Brunch with friends", models.FormalitySmartCasual},
		{"Job interview", models.FormalityBusiness},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Occasion{Title: tc.title}.RequiredFormality(Options{}), tc.title)
	}
}

func TestRecommendDailyRotates(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	store := newStore()
	in := RecommendInput{
		Occasion: Occasion{Title: "Day out", TimeOfDay: "morning"},
		Garments: []models.Garment{
			garment(1, models.CategoryDress, models.FormalityCasual, "#2F4F4F"),
			garment(2, models.CategoryTop, models.FormalityCasual, "#336699"),
			garment(3, models.CategoryBottom, models.FormalityCasual, "#223344"),
		},
		Prefs: store,
	}

	first, err := engine.RecommendDaily(context.Background(), in, 0)
	require.NoError(t, err)
	second, err := engine.RecommendDaily(context.Background(), in, 1)
	require.NoError(t, err)

	assert.NotEmpty(t, first.GarmentIDs)
	assert.NotEmpty(t, second.GarmentIDs)
	assert.NotEqual(t, first.GarmentIDs, second.GarmentIDs, "consecutive days rotate templates")
}

func TestRecommendDailyEmptyWardrobe(t *testing.T) {
	engine := NewEngine(DefaultWeights())

	result, err := engine.RecommendDaily(context.Background(), RecommendInput{
		Occasion: Occasion{Title: "Day out", TimeOfDay: "morning"},
		Prefs:    newStore(),
	}, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Contains(t, result.StyleTags, TagNeedsMoreData)
}

func TestComposedVerdictCarriesOutfitName(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	store := newStore()

	result, err := engine.Recommend(context.Background(), RecommendInput{
		Occasion: Occasion{Title: "Wedding", TimeOfDay: "Afternoon"},
		Garments: []models.Garment{
			garment(1, models.CategoryDress, models.FormalityFormal, "#1B2A4A"),
			garment(2, models.CategoryFootwear, models.FormalityFormal, "#111111"),
		},
		Prefs: store,
	})
	require.NoError(t, err)
	assert.Contains(t, result.Verdict, ": wear ", "composed outfits carry a display name")
	assert.Contains(t, result.Verdict, "dress")
}

func TestRecordFeedbackLiked(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	store := newStore()
	occ := Occasion{Title: "Dinner", TimeOfDay: "Evening"}

	top := garment(1, models.CategoryTop, models.FormalitySmartCasual, "#3366AA")
	bottom := garment(2, models.CategoryBottom, models.FormalitySmartCasual, "#223355")
	index := map[uint]models.Garment{1: top, 2: bottom}

	lookID := uint(9)
	result := &RecommendationResult{GarmentIDs: []uint{1, 2}, BestLookID: &lookID}
	engine.RecordFeedback(result, occ, true, store, index)

	assert.True(t, store.IsFavoriteGarment(1))
	assert.True(t, store.IsFavoriteGarment(2))
	assert.True(t, store.IsFavoriteLook(9))
	assert.Equal(t, 1, store.Data().WornCounts[occ.Key()])
	assert.Equal(t, 1, store.Data().WornCounts[GarmentKey(1)])
	assert.Equal(t, 1, store.Data().ColorCombinations[ColorComboKey("#3366AA", "#223355")])
	assert.Equal(t, 2, store.Data().FormalityCounts[string(models.FormalitySmartCasual)])
}

func TestRecordFeedbackDisliked(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	store := newStore()
	occ := Occasion{Title: "Dinner", TimeOfDay: "Evening"}
	store.RecordSelection(occ.Key())

	engine.RecordFeedback(&RecommendationResult{GarmentIDs: []uint{1}}, occ, false, store, nil)

	assert.Equal(t, 0, store.Data().SelectionCounts[occ.Key()])
	assert.False(t, store.IsFavoriteGarment(1), "negative feedback never favorites")
}

func TestFeedbackLoopRaisesPrediction(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	store := newStore()
	occ := Occasion{Title: "Dinner", TimeOfDay: "Evening"}
	now := time.Now()

	top := garment(1, models.CategoryTop, models.FormalitySmartCasual, "#3366AA")
	index := map[uint]models.Garment{1: top}

	before := store.PredictPreference(top, now)
	engine.RecordFeedback(&RecommendationResult{GarmentIDs: []uint{1}}, occ, true, store, index)
	after := store.PredictPreference(top, now)

	assert.Greater(t, after, before)
}
