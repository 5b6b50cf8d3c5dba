package recommender

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"prismstyleapi/models"
	"prismstyleapi/styleutil"
)

// Engine sequences the recommendation pipeline: match a proven look first,
// re-analyze outfit photos second, compose a fresh outfit from the wardrobe
// last. All scoring is pure; the only side effect is the selection counter
// bump right before a result is returned.
type Engine struct {
	weights Weights
}

func NewEngine(weights Weights) *Engine {
	return &Engine{weights: weights}
}

// RecommendInput is the immutable snapshot a single request works on. The
// preference store is injected per call, never a package-level singleton.
type RecommendInput struct {
	Occasion Occasion
	Garments []models.Garment
	Looks    []models.OutfitLook
	Prefs    *PreferenceStore
	Options  Options
	Now      time.Time
}

type stage int

const (
	stageMatchLook stage = iota
	stagePhotoAnalysis
	stageCompose
	stageDone
)

// Recommend runs the pipeline to completion. The returned error is only
// ever a context cancellation; every scoring path is total and degrades to
// a zero-confidence result instead of failing.
func (e *Engine) Recommend(ctx context.Context, in RecommendInput) (*RecommendationResult, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	matcher := NewLookMatcher(in.Prefs, e.weights)
	composer := NewComposer(in.Prefs, e.weights)

	var result *RecommendationResult
	current := stageMatchLook
	for current != stageDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch current {
		case stageMatchLook:
			if matched, score, ok := matcher.BestMatch(in.Looks, in.Occasion, now); ok {
				result = e.lookResult(matched, score, in.Occasion)
				current = stageDone
				break
			}
			current = stagePhotoAnalysis

		case stagePhotoAnalysis:
			if len(in.Looks) == 0 {
				current = stageCompose
				break
			}
			assessment, ok := matcher.AnalyzePhotos(in.Looks, garmentIndex(in.Garments), in.Occasion, in.Options, now)
			if ok && assessment.Confidence > e.weights.PhotoConfidenceBar {
				result = e.photoResult(assessment, in.Occasion)
				current = stageDone
				break
			}
			current = stageCompose

		case stageCompose:
			candidate := composer.Compose(in.Garments, in.Occasion, in.Options, now)
			if candidate == nil {
				result = e.needsMoreDataResult(in.Occasion)
			} else {
				result = e.composedResult(candidate, in, now)
			}
			current = stageDone
		}
	}

	// short non-cancellable critical section, runs to completion once begun
	in.Prefs.RecordSelection(in.Occasion.Key())
	return result, nil
}

// RecommendDaily composes the outfit-of-the-day suggestion. It skips the
// proven-look stage and rotates across every template the wardrobe covers,
// so consecutive days vary the outfit whenever an alternative exists.
func (e *Engine) RecommendDaily(ctx context.Context, in RecommendInput, rotation int) (*RecommendationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	composer := NewComposer(in.Prefs, e.weights)

	var result *RecommendationResult
	candidates := composer.ComposeAll(in.Garments, in.Occasion, in.Options, now)
	if len(candidates) == 0 {
		result = e.needsMoreDataResult(in.Occasion)
	} else {
		if rotation < 0 {
			rotation = -rotation
		}
		result = e.composedResult(candidates[rotation%len(candidates)], in, now)
	}

	in.Prefs.RecordSelection(in.Occasion.Key())
	return result, nil
}

func garmentIndex(garments []models.Garment) map[uint]models.Garment {
	index := make(map[uint]models.Garment, len(garments))
	for _, g := range garments {
		index[g.ID] = g
	}
	return index
}

func (e *Engine) lookResult(look *models.OutfitLook, score float64, occ Occasion) *RecommendationResult {
	lookID := look.ID
	return &RecommendationResult{
		Verdict:    fmt.Sprintf("Wear your %q look again", look.Occasion),
		Rationale:  fmt.Sprintf("This outfit worked for %s before and matches todays occasion (match score %.1f).", look.Occasion, score),
		BestLookID: &lookID,
		GarmentIDs: []uint{},
		Confidence: e.weights.LookMatchConfidence,
		StyleTags:  []string{"proven_look", "repeat"},
		Breakdown: []string{
			fmt.Sprintf("Matched recorded look #%d (%s, %s)", look.ID, look.Occasion, look.TimeOfDay),
			fmt.Sprintf("Match score %.1f over threshold %.0f", score, e.weights.LookMatchThreshold),
		},
	}
}

func (e *Engine) photoResult(assessment PhotoAssessment, occ Occasion) *RecommendationResult {
	lookID := assessment.Look.ID
	breakdown := []string{fmt.Sprintf("Re-analyzed photo #%d against %q", assessment.Look.ID, occ.Title)}
	breakdown = append(breakdown, assessment.Notes...)
	return &RecommendationResult{
		Verdict:    fmt.Sprintf("Your photographed %q outfit fits this occasion", assessment.Look.Occasion),
		Rationale:  fmt.Sprintf("Photo analysis scored this look %.0f/100 for %s.", assessment.Confidence, occ.Title),
		BestLookID: &lookID,
		GarmentIDs: []uint{},
		Confidence: assessment.Confidence,
		StyleTags:  []string{"photo_match"},
		Breakdown:  breakdown,
	}
}

func (e *Engine) needsMoreDataResult(occ Occasion) *RecommendationResult {
	return &RecommendationResult{
		Verdict:    "Not enough garments to put together an outfit",
		Rationale:  fmt.Sprintf("Your wardrobe has no combination covering %q yet. Add a dress, a suit, or a top and a bottom.", occ.Title),
		GarmentIDs: []uint{},
		Confidence: 0,
		StyleTags:  []string{TagNeedsMoreData},
		Breakdown:  []string{"No dress, suit or top+bottom combination available at the required dress code"},
	}
}

func (e *Engine) composedResult(candidate *ScoredCandidate, in RecommendInput, now time.Time) *RecommendationResult {
	index := garmentIndex(in.Garments)
	var chosen []models.Garment
	for _, id := range candidate.GarmentIDs {
		if g, ok := index[id]; ok {
			chosen = append(chosen, g)
		}
	}
	required := in.Occasion.RequiredFormality(in.Options)

	confidence := e.weights.ComposeBaseConfidence
	switch {
	case len(chosen) >= 3:
		confidence += e.weights.ThreePieceBonus
	case len(chosen) == 2:
		confidence += e.weights.TwoPieceBonus
	}
	for _, g := range chosen {
		if g.Favorite || in.Prefs.IsFavoriteGarment(g.ID) {
			confidence += e.weights.FavoritePieceBonus
		}
	}
	if occasionRecognized(in.Occasion) {
		confidence += e.weights.OccasionStyleBonus
	}
	if in.Options.Style != "" && in.Options.Style != models.VibeAny {
		confidence += e.weights.OccasionStyleBonus
	}
	confidence = math.Min(confidence, e.weights.MaxConfidence)

	template := Template(chosen)
	tags := []string{string(template), required.Value()}
	if in.Options.Style != "" && in.Options.Style != models.VibeAny {
		tags = append(tags, string(in.Options.Style))
	}
	if in.Options.ComfortPriority {
		tags = append(tags, "comfort")
	}

	breakdown := make([]string, 0, len(chosen)+2)
	var names []string
	for _, g := range chosen {
		breakdown = append(breakdown, fmt.Sprintf("%s: %s (%s, %s)", styleutil.Label(string(g.Category)), g.Name, g.Formality.Value(), g.PrimaryColor))
		names = append(names, g.Name)
	}
	breakdown = append(breakdown,
		fmt.Sprintf("Color harmony %.2f, style %.2f, occasion fit %.2f, preference %.2f", candidate.ColorScore, candidate.StyleScore, candidate.OccasionScore, candidate.PreferenceScore),
		fmt.Sprintf("Aggregate score %.2f", candidate.Aggregate))

	suggestion := candidate.Reasoning
	return &RecommendationResult{
		Verdict:      fmt.Sprintf("%s: wear %s", styleutil.OutfitName(), strings.Join(names, " with ")),
		Rationale:    fmt.Sprintf("Composed a %s outfit at the %s dress code for %s.", string(template), required.Value(), in.Occasion.Title),
		Suggestion:   &suggestion,
		GarmentIDs:   candidate.GarmentIDs,
		Confidence:   confidence,
		StyleTags:    tags,
		Breakdown:    breakdown,
		Alternatives: e.buildAlternatives(chosen, in.Garments, required),
	}
}

func occasionRecognized(occ Occasion) bool {
	_, ok := matchFormalityKeyword(occ.Title)
	return ok
}

// buildAlternatives proposes up to three variations: a more formal take, a
// more casual take and a color accent, each only when the wardrobe can
// actually back it.
func (e *Engine) buildAlternatives(chosen []models.Garment, all []models.Garment, required models.Formality) []Alternative {
	var alternatives []Alternative

	inChosen := map[uint]bool{}
	for _, g := range chosen {
		inChosen[g.ID] = true
	}
	findAtRank := func(rank int) *models.Garment {
		if rank < 0 || rank > models.FormalityFormal.Rank() {
			return nil
		}
		for _, g := range all {
			if !inChosen[g.ID] && g.Formality.Rank() == rank {
				return &g
			}
		}
		return nil
	}

	if g := findAtRank(required.Rank() + 1); g != nil {
		alternatives = append(alternatives, Alternative{
			Title:       "Dress it up",
			Description: fmt.Sprintf("Swap in %s for a more polished %s take.", g.Name, g.Formality.Value()),
			Category:    "formal_variant",
		})
	}
	if g := findAtRank(required.Rank() - 1); g != nil {
		alternatives = append(alternatives, Alternative{
			Title:       "Keep it relaxed",
			Description: fmt.Sprintf("%s works if the occasion turns out more laid back.", g.Name),
			Category:    "casual_variant",
		})
	}
	if len(chosen) > 0 {
		anchor := chosen[0]
		alternatives = append(alternatives, Alternative{
			Title:       "Add a color accent",
			Description: fmt.Sprintf("A piece in %s would contrast the %s of your %s.", Complementary(anchor.PrimaryColor), anchor.PrimaryColor, anchor.Name),
			Category:    "color_variation",
		})
	}
	return alternatives
}

// RecordFeedback folds the user's reaction back into the preference store.
// Positive feedback marks the pieces worn and favorited and reinforces the
// category, formality and color-pairing counters; negative feedback backs
// the occasion's selection counter off.
func (e *Engine) RecordFeedback(result *RecommendationResult, occ Occasion, liked bool, prefs *PreferenceStore, garmentsByID map[uint]models.Garment) {
	key := occ.Key()
	if !liked {
		prefs.DecrementSelection(key)
		return
	}

	prefs.RecordWorn(key)
	if result.BestLookID != nil {
		prefs.RecordFavoriteLook(*result.BestLookID)
	}

	var worn []models.Garment
	for _, id := range result.GarmentIDs {
		prefs.RecordFavoriteGarment(id)
		prefs.RecordWorn(GarmentKey(id))
		if g, ok := garmentsByID[id]; ok {
			worn = append(worn, g)
			prefs.RecordCategoryPreference(occ.Title, g.Category)
			prefs.RecordFormalityPreference(g.Formality)
		}
	}
	for i := 0; i < len(worn); i++ {
		for j := i + 1; j < len(worn); j++ {
			prefs.RecordColorCombination(worn[i].PrimaryColor, worn[j].PrimaryColor)
		}
	}
}
