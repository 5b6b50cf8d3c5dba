package recommender

import (
	"fmt"
	"math"
	"strings"
	"time"

	"prismstyleapi/models"
)

// LookMatcher scores photographed outfits against a requested occasion.
// A strong historical match short-circuits composition entirely.
type LookMatcher struct {
	prefs   *PreferenceStore
	weights Weights
}

func NewLookMatcher(prefs *PreferenceStore, weights Weights) *LookMatcher {
	return &LookMatcher{prefs: prefs, weights: weights}
}

func containsEither(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Score is the look-vs-occasion point total: occasion containment, exact
// time-of-day, favorites, a recency bonus decaying over two months and the
// occasion's historical success rate.
func (m *LookMatcher) Score(look models.OutfitLook, occ Occasion, now time.Time) float64 {
	var score float64
	if containsEither(look.Occasion, occ.Title) {
		score += m.weights.OccasionMatchPoints
	}
	if look.TimeOfDay != "" && strings.EqualFold(look.TimeOfDay, occ.TimeOfDay) {
		score += m.weights.TimeMatchPoints
	}
	if m.prefs.IsFavoriteLook(look.ID) {
		score += m.weights.MemoryFavoritePoints
	}
	if look.Favorite {
		score += m.weights.FlagFavoritePoints
	}
	daysSinceCreated := now.Sub(look.CreatedAt).Hours() / 24
	score += math.Max(0, 2-daysSinceCreated/30)
	score += m.weights.SuccessRatePoints * m.prefs.SuccessRate(occ.Key())
	return score
}

// BestMatch returns the highest scoring look, reported as a match only when
// its score clears the threshold.
func (m *LookMatcher) BestMatch(looks []models.OutfitLook, occ Occasion, now time.Time) (*models.OutfitLook, float64, bool) {
	if len(looks) == 0 {
		return nil, 0, false
	}
	best := looks[0]
	bestScore := m.Score(best, occ, now)
	for _, look := range looks[1:] {
		if score := m.Score(look, occ, now); score > bestScore {
			best, bestScore = look, score
		}
	}
	if bestScore < m.weights.LookMatchThreshold {
		return nil, bestScore, false
	}
	return &best, bestScore, true
}

// PhotoAssessment is a re-analyzed look with its confidence and the factor
// notes that produced it.
type PhotoAssessment struct {
	Look       models.OutfitLook
	Confidence float64
	Notes      []string
}

// AnalyzePhotos re-scores recorded looks against the occasion using the
// garments tagged on each photo, the stored dominant colors and the vision
// collaborator's quality signals. Returns the best assessment; the caller
// decides whether the confidence clears the bar.
func (m *LookMatcher) AnalyzePhotos(looks []models.OutfitLook, garmentsByID map[uint]models.Garment, occ Occasion, opts Options, now time.Time) (PhotoAssessment, bool) {
	if len(looks) == 0 {
		return PhotoAssessment{}, false
	}
	required := occ.RequiredFormality(opts)
	preferredColors := m.prefs.TopColors(5)

	best := PhotoAssessment{Confidence: -1}
	for _, look := range looks {
		assessment := m.assessPhoto(look, garmentsByID, occ, required, preferredColors)
		if assessment.Confidence > best.Confidence {
			best = assessment
		}
	}
	return best, true
}

func (m *LookMatcher) assessPhoto(look models.OutfitLook, garmentsByID map[uint]models.Garment, occ Occasion, required models.Formality, preferredColors []string) PhotoAssessment {
	confidence := m.weights.PhotoBaseConfidence
	var notes []string

	// formality of the garments tagged on the photo vs the dress code
	if len(look.GarmentIDs) > 0 {
		var rankTotal float64
		var counted int
		for _, id := range look.GarmentIDs {
			if g, ok := garmentsByID[uint(id)]; ok {
				rankTotal += math.Abs(float64(g.Formality.Rank() - required.Rank()))
				counted++
			}
		}
		if counted > 0 {
			switch avg := rankTotal / float64(counted); {
			case avg == 0:
				confidence += 15
				notes = append(notes, "dress code matches exactly")
			case avg <= 1:
				confidence += 5
				notes = append(notes, "dress code is close")
			default:
				confidence -= 10
				notes = append(notes, "dress code is off")
			}
		}
	}

	// dominant palette vs the user's recorded color combinations
	if len(look.DominantColors) > 0 && len(preferredColors) > 0 {
		var total float64
		for _, hex := range look.DominantColors {
			best := 0.0
			for _, preferred := range preferredColors {
				best = math.Max(best, 1-ColorDistance(hex, preferred))
			}
			total += best
		}
		switch affinity := total / float64(len(look.DominantColors)); {
		case affinity >= 0.7:
			confidence += 20
			notes = append(notes, "palette matches your favorite colors")
		case affinity >= 0.45:
			confidence += 10
			notes = append(notes, "palette is close to your favorite colors")
		case affinity < 0.25:
			confidence -= 5
			notes = append(notes, "palette differs from what you usually wear")
		}
	}

	// style consistency with the requested occasion
	switch {
	case containsEither(look.Occasion, occ.Title):
		confidence += 15
		notes = append(notes, fmt.Sprintf("worn before for %q", look.Occasion))
		if look.TimeOfDay != "" && strings.EqualFold(look.TimeOfDay, occ.TimeOfDay) {
			confidence += 5
		}
	case look.TimeOfDay != "" && strings.EqualFold(look.TimeOfDay, occ.TimeOfDay):
		confidence += 5
	default:
		confidence -= 5
	}

	// vision collaborator signals, stored on the look by the analyze worker
	if look.QualityScore != nil {
		confidence += *look.QualityScore * m.weights.PhotoQualityPoints
	}
	if look.FullOutfit != nil && *look.FullOutfit {
		confidence += m.weights.FullOutfitPoints
	}

	confidence = math.Max(0, math.Min(100, confidence))
	return PhotoAssessment{Look: look, Confidence: confidence, Notes: notes}
}
