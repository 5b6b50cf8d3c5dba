package recommender

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prismstyleapi/models"
)

func garment(id uint, category models.GarmentCategory, formality models.Formality, color string) models.Garment {
	return models.Garment{
		JsonModel:    models.JsonModel{ID: id, CreatedAt: time.Now()},
		Name:         string(category),
		Category:     category,
		Formality:    formality,
		Season:       models.SeasonAll,
		PrimaryColor: color,
	}
}

func TestComposePrefersDressTemplate(t *testing.T) {
	composer := NewComposer(newStore(), DefaultWeights())
	garments := []models.Garment{
		garment(1, models.CategoryDress, models.FormalityFormal, "#1B2A4A"),
		garment(2, models.CategoryTop, models.FormalityFormal, "#FFFFFF"),
		garment(3, models.CategoryBottom, models.FormalityFormal, "#222222"),
		garment(4, models.CategoryFootwear, models.FormalityFormal, "#111111"),
	}

	candidate := composer.Compose(garments, Occasion{Title: "Wedding"}, Options{}, time.Now())
	require.NotNil(t, candidate)
	assert.Contains(t, candidate.GarmentIDs, uint(1), "the dress must anchor the outfit")
	assert.NotContains(t, candidate.GarmentIDs, uint(2))
	assert.NotContains(t, candidate.GarmentIDs, uint(3))
}

func TestComposeFallsBackToSeparates(t *testing.T) {
	composer := NewComposer(newStore(), DefaultWeights())
	garments := []models.Garment{
		garment(1, models.CategoryTop, models.FormalityCasual, "#3366AA"),
		garment(2, models.CategoryBottom, models.FormalityCasual, "#223355"),
		garment(3, models.CategoryFootwear, models.FormalityCasual, "#FFFFFF"),
	}

	candidate := composer.Compose(garments, Occasion{Title: "Weekend stroll"}, Options{}, time.Now())
	require.NotNil(t, candidate)
	assert.Contains(t, candidate.GarmentIDs, uint(1))
	assert.Contains(t, candidate.GarmentIDs, uint(2))
	assert.Contains(t, candidate.GarmentIDs, uint(3))
}

func TestComposeNilWhenNoCoreAvailable(t *testing.T) {
	composer := NewComposer(newStore(), DefaultWeights())
	garments := []models.Garment{
		garment(1, models.CategoryFootwear, models.FormalityCasual, "#FFFFFF"),
		garment(2, models.CategoryAccessory, models.FormalityCasual, "#000000"),
	}

	assert.Nil(t, composer.Compose(garments, Occasion{Title: "Brunch"}, Options{}, time.Now()))
}

func TestComposeFiltersIncompatibleFormality(t *testing.T) {
	composer := NewComposer(newStore(), DefaultWeights())
	// wedding requires formal; athletic wear sits five ranks away
	garments := []models.Garment{
		garment(1, models.CategoryTop, models.FormalityAthletic, "#3366AA"),
		garment(2, models.CategoryBottom, models.FormalityAthletic, "#223355"),
	}

	assert.Nil(t, composer.Compose(garments, Occasion{Title: "Wedding"}, Options{}, time.Now()))
}

func TestComposeHonorsFormalityOverride(t *testing.T) {
	composer := NewComposer(newStore(), DefaultWeights())
	garments := []models.Garment{
		garment(1, models.CategoryTop, models.FormalityAthletic, "#3366AA"),
		garment(2, models.CategoryBottom, models.FormalityAthletic, "#223355"),
	}

	override := models.FormalityAthletic
	candidate := composer.Compose(garments, Occasion{Title: "Wedding"}, Options{FormalityOverride: &override}, time.Now())
	require.NotNil(t, candidate)
	assert.Len(t, candidate.GarmentIDs, 2)
}

func TestComposeNeverDuplicatesGarments(t *testing.T) {
	composer := NewComposer(newStore(), DefaultWeights())
	garments := []models.Garment{
		garment(1, models.CategoryTop, models.FormalityCasual, "#3366AA"),
		garment(2, models.CategoryBottom, models.FormalityCasual, "#223355"),
		garment(3, models.CategoryOuterwear, models.FormalityCasual, "#2A3A5A"),
		garment(4, models.CategoryFootwear, models.FormalityCasual, "#FFFFFF"),
		garment(5, models.CategoryAccessory, models.FormalityCasual, "#C0C0C0"),
		garment(6, models.CategoryAccessory, models.FormalityCasual, "#D4AF37"),
	}

	candidate := composer.Compose(garments, Occasion{Title: "Picnic"}, Options{}, time.Now())
	require.NotNil(t, candidate)

	seen := map[uint]bool{}
	for _, id := range candidate.GarmentIDs {
		assert.False(t, seen[id], "garment %d appears twice", id)
		seen[id] = true
	}
}

func TestAccessoryCountByVibe(t *testing.T) {
	assert.Equal(t, 3, accessoryCount(models.VibeBold, 1, 3))
	assert.Equal(t, 1, accessoryCount(models.VibeMinimalist, 1, 3))
	assert.Equal(t, 2, accessoryCount(models.VibeClassic, 1, 3))
	assert.Equal(t, 2, accessoryCount(models.VibeAny, 1, 2))
}

func TestBoldVibeAddsMoreAccessories(t *testing.T) {
	composer := NewComposer(newStore(), DefaultWeights())
	garments := []models.Garment{
		garment(1, models.CategoryDress, models.FormalityParty, "#8A2BE2"),
		garment(2, models.CategoryAccessory, models.FormalityParty, "#FFD700"),
		garment(3, models.CategoryAccessory, models.FormalityParty, "#C0C0C0"),
		garment(4, models.CategoryAccessory, models.FormalityParty, "#FF6B8A"),
	}
	now := time.Now()

	bold := composer.Compose(garments, Occasion{Title: "Birthday party"}, Options{Style: models.VibeBold}, now)
	minimal := composer.Compose(garments, Occasion{Title: "Birthday party"}, Options{Style: models.VibeMinimalist}, now)
	require.NotNil(t, bold)
	require.NotNil(t, minimal)
	assert.Greater(t, len(bold.GarmentIDs), len(minimal.GarmentIDs))
}

func TestSuitTemplatePicksDressShoes(t *testing.T) {
	composer := NewComposer(newStore(), DefaultWeights())
	garments := []models.Garment{
		garment(1, models.CategorySuit, models.FormalityBusiness, "#1B2A4A"),
		garment(2, models.CategoryFootwear, models.FormalityCasual, "#FFFFFF"),
		garment(3, models.CategoryFootwear, models.FormalityBusiness, "#2A1A0A"),
	}

	candidate := composer.Compose(garments, Occasion{Title: "Job interview"}, Options{}, time.Now())
	require.NotNil(t, candidate)
	assert.Contains(t, candidate.GarmentIDs, uint(3))
	assert.NotContains(t, candidate.GarmentIDs, uint(2))
}

func TestComposeAllRankedNonIncreasing(t *testing.T) {
	composer := NewComposer(newStore(), DefaultWeights())
	garments := []models.Garment{
		garment(1, models.CategoryDress, models.FormalityCasual, "#3366AA"),
		garment(2, models.CategoryTop, models.FormalityCasual, "#FFFFFF"),
		garment(3, models.CategoryBottom, models.FormalityCasual, "#223355"),
		garment(4, models.CategoryFootwear, models.FormalityCasual, "#111111"),
	}

	candidates := composer.ComposeAll(garments, Occasion{Title: "Brunch date"}, Options{}, time.Now())
	require.GreaterOrEqual(t, len(candidates), 2)
	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Aggregate, candidates[i].Aggregate)
	}
}

func TestValidComposition(t *testing.T) {
	top := garment(1, models.CategoryTop, models.FormalityCasual, "#FFFFFF")
	bottom := garment(2, models.CategoryBottom, models.FormalityCasual, "#223355")
	dress := garment(3, models.CategoryDress, models.FormalityCasual, "#3366AA")

	assert.True(t, validComposition([]models.Garment{top, bottom}))
	assert.True(t, validComposition([]models.Garment{dress}))
	assert.False(t, validComposition([]models.Garment{top}), "top without bottom has no core")
	assert.False(t, validComposition([]models.Garment{dress, top, bottom}), "dress excludes separates")
	assert.False(t, validComposition([]models.Garment{top, bottom, top}), "duplicate ids rejected")
}

func TestScorePopulatesWeatherOnlyWithSeason(t *testing.T) {
	composer := NewComposer(newStore(), DefaultWeights())
	garments := []models.Garment{
		garment(1, models.CategoryTop, models.FormalityCasual, "#3366AA"),
		garment(2, models.CategoryBottom, models.FormalityCasual, "#223355"),
	}
	now := time.Now()

	plain := composer.Compose(garments, Occasion{Title: "Errand"}, Options{}, now)
	require.NotNil(t, plain)
	assert.Nil(t, plain.WeatherScore)

	seasonal := composer.Compose(garments, Occasion{Title: "Errand", Season: models.SeasonWinter}, Options{}, now)
	require.NotNil(t, seasonal)
	require.NotNil(t, seasonal.WeatherScore)
	assert.Equal(t, 1.0, *seasonal.WeatherScore, "all-season garments match any season")
}
