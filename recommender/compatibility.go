package recommender

import (
	"math"

	"prismstyleapi/models"
)

// FormalityCompatibility maps the rank distance between two garments on the
// six-level scale to a score bucket.
func FormalityCompatibility(a, b models.Formality) float64 {
	switch distance := int(math.Abs(float64(a.Rank() - b.Rank()))); distance {
	case 0:
		return 1.0
	case 1:
		return 0.75
	case 2:
		return 0.5
	default:
		return 0.25
	}
}

type categoryPair struct {
	a models.GarmentCategory
	b models.GarmentCategory
}

// conventional pairings score high, a dress next to a suit scores low
var categoryScores = map[categoryPair]float64{
	{models.CategoryTop, models.CategoryBottom}:          1.0,
	{models.CategoryTop, models.CategoryOuterwear}:       0.9,
	{models.CategoryTop, models.CategoryFootwear}:        0.8,
	{models.CategoryBottom, models.CategoryOuterwear}:    0.85,
	{models.CategoryBottom, models.CategoryFootwear}:     0.9,
	{models.CategoryOuterwear, models.CategoryFootwear}:  0.8,
	{models.CategoryDress, models.CategoryOuterwear}:     0.85,
	{models.CategoryDress, models.CategoryFootwear}:      0.9,
	{models.CategorySuit, models.CategoryFootwear}:       0.9,
	{models.CategorySuit, models.CategoryOuterwear}:      0.7,
	{models.CategoryDress, models.CategoryTop}:           0.2,
	{models.CategoryDress, models.CategoryBottom}:        0.2,
	{models.CategoryDress, models.CategorySuit}:          0.1,
	{models.CategorySuit, models.CategoryTop}:            0.3,
	{models.CategorySuit, models.CategoryBottom}:         0.2,
	{models.CategoryTop, models.CategoryTop}:             0.3,
	{models.CategoryBottom, models.CategoryBottom}:       0.2,
	{models.CategoryOuterwear, models.CategoryOuterwear}: 0.4,
	{models.CategoryFootwear, models.CategoryFootwear}:   0.2,
	{models.CategoryDress, models.CategoryDress}:         0.1,
	{models.CategorySuit, models.CategorySuit}:           0.1,
	{models.CategoryAccessory, models.CategoryAccessory}: 0.7,
}

// CategoryCompatibility scores how conventionally two garment categories go
// together. Accessories pair with everything; unknown combinations fall back
// to an indifferent 0.5.
func CategoryCompatibility(a, b models.GarmentCategory) float64 {
	if a == models.CategoryAccessory || b == models.CategoryAccessory {
		if a == b {
			return categoryScores[categoryPair{a, b}]
		}
		return 0.8
	}
	if score, ok := categoryScores[categoryPair{a, b}]; ok {
		return score
	}
	if score, ok := categoryScores[categoryPair{b, a}]; ok {
		return score
	}
	return 0.5
}

// PairwiseStyle is the combined two-garment compatibility score in [0,1].
func PairwiseStyle(a, b models.Garment) float64 {
	score := 0.5 +
		0.3*FormalityCompatibility(a.Formality, b.Formality) +
		0.4*ColorHarmony(a.PrimaryColor, []string{b.PrimaryColor}) +
		0.3*CategoryCompatibility(a.Category, b.Category)
	return math.Min(1, score)
}
