package recommender

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"prismstyleapi/models"
)

// Composer fills outfit slots from available garments. Template priority is
// fixed: a dress outfit beats a suit outfit beats separates; the first
// template that yields a non-empty outfit wins.
type Composer struct {
	prefs   *PreferenceStore
	weights Weights
}

func NewComposer(prefs *PreferenceStore, weights Weights) *Composer {
	return &Composer{prefs: prefs, weights: weights}
}

type outfitTemplate string

const (
	templateDress     outfitTemplate = "dressed"
	templateSuit      outfitTemplate = "suited"
	templateSeparates outfitTemplate = "separates"
)

// Compose builds the best outfit candidate for the occasion, or nil when
// the wardrobe cannot cover any template.
func (c *Composer) Compose(garments []models.Garment, occ Occasion, opts Options, now time.Time) *ScoredCandidate {
	required := occ.RequiredFormality(opts)
	available := filterByFormality(garments, required)

	for _, template := range []outfitTemplate{templateDress, templateSuit, templateSeparates} {
		chosen := c.composeTemplate(template, available, occ, opts, now)
		if len(chosen) == 0 {
			continue
		}
		chosen = c.refine(chosen, available, now)
		return c.score(chosen, template, occ, opts, required, now)
	}
	return nil
}

// ComposeAll builds a candidate per applicable template and returns them
// ranked by aggregate score. Used where template priority should not decide,
// e.g. the daily suggestion rotation.
func (c *Composer) ComposeAll(garments []models.Garment, occ Occasion, opts Options, now time.Time) []*ScoredCandidate {
	required := occ.RequiredFormality(opts)
	available := filterByFormality(garments, required)

	var out []*ScoredCandidate
	for _, template := range []outfitTemplate{templateDress, templateSuit, templateSeparates} {
		chosen := c.composeTemplate(template, available, occ, opts, now)
		if len(chosen) == 0 {
			continue
		}
		chosen = c.refine(chosen, available, now)
		out = append(out, c.score(chosen, template, occ, opts, required, now))
	}
	RankCandidates(out)
	return out
}

// compatible means at most one formality rank away from the occasion
func filterByFormality(garments []models.Garment, required models.Formality) []models.Garment {
	var out []models.Garment
	for _, g := range garments {
		if int(math.Abs(float64(g.Formality.Rank()-required.Rank()))) <= 1 {
			out = append(out, g)
		}
	}
	return out
}

func (c *Composer) composeTemplate(template outfitTemplate, available []models.Garment, occ Occasion, opts Options, now time.Time) []models.Garment {
	grouped := map[models.GarmentCategory][]models.Garment{}
	for _, g := range available {
		grouped[g.Category] = append(grouped[g.Category], g)
	}

	switch template {
	case templateDress:
		dress, ok := c.mostPreferred(grouped[models.CategoryDress], now)
		if !ok {
			return nil
		}
		outfit := []models.Garment{dress}
		outfit = c.appendCoordinating(outfit, grouped[models.CategoryOuterwear], dress.Season, now)
		outfit = c.appendCoordinating(outfit, grouped[models.CategoryFootwear], dress.Season, now)
		return c.appendAccessories(outfit, grouped[models.CategoryAccessory], accessoryCount(opts.Style, 1, 3), now)

	case templateSuit:
		suit, ok := c.mostPreferred(grouped[models.CategorySuit], now)
		if !ok {
			return nil
		}
		outfit := []models.Garment{suit}
		// dress shoes first when the wardrobe has them
		footwear := grouped[models.CategoryFootwear]
		sort.SliceStable(footwear, func(i, j int) bool {
			return formalFootwearRank(footwear[i]) > formalFootwearRank(footwear[j])
		})
		if len(footwear) > 0 {
			outfit = append(outfit, footwear[0])
		}
		return c.appendAccessories(outfit, grouped[models.CategoryAccessory], 2, now)

	default:
		top, ok := c.mostPreferred(grouped[models.CategoryTop], now)
		if !ok {
			return nil
		}
		bottom, ok := c.pickCoordinating(grouped[models.CategoryBottom], top.Season, now)
		if !ok {
			return nil
		}
		outfit := []models.Garment{top, bottom}
		outfit = c.appendCoordinating(outfit, grouped[models.CategoryOuterwear], top.Season, now)
		outfit = c.appendCoordinating(outfit, grouped[models.CategoryFootwear], top.Season, now)
		return c.appendAccessories(outfit, grouped[models.CategoryAccessory], accessoryCount(opts.Style, 1, 2), now)
	}
}

// bold styling piles on accessories, minimalist strips them back
func accessoryCount(vibe models.StyleVibe, min, max int) int {
	switch vibe {
	case models.VibeBold:
		return max
	case models.VibeMinimalist:
		return min
	default:
		if max > 2 {
			return 2
		}
		return max
	}
}

func formalFootwearRank(g models.Garment) int {
	switch g.Formality {
	case models.FormalityFormal:
		return 3
	case models.FormalityBusiness:
		return 2
	case models.FormalitySmartCasual:
		return 1
	default:
		return 0
	}
}

func (c *Composer) mostPreferred(candidates []models.Garment, now time.Time) (models.Garment, bool) {
	if len(candidates) == 0 {
		return models.Garment{}, false
	}
	best := candidates[0]
	bestScore := c.prefs.PredictPreference(best, now)
	for _, g := range candidates[1:] {
		if score := c.prefs.PredictPreference(g, now); score > bestScore {
			best, bestScore = g, score
		}
	}
	return best, true
}

// pickCoordinating prefers garments in the anchor's season before falling
// back to the whole pool.
func (c *Composer) pickCoordinating(candidates []models.Garment, season models.Season, now time.Time) (models.Garment, bool) {
	var seasonal []models.Garment
	for _, g := range candidates {
		if g.Season == season || g.Season == models.SeasonAll || season == models.SeasonAll {
			seasonal = append(seasonal, g)
		}
	}
	if len(seasonal) > 0 {
		return c.mostPreferred(seasonal, now)
	}
	return c.mostPreferred(candidates, now)
}

func (c *Composer) appendCoordinating(outfit []models.Garment, candidates []models.Garment, season models.Season, now time.Time) []models.Garment {
	if pick, ok := c.pickCoordinating(candidates, season, now); ok {
		outfit = append(outfit, pick)
	}
	return outfit
}

func (c *Composer) appendAccessories(outfit []models.Garment, accessories []models.Garment, count int, now time.Time) []models.Garment {
	sort.SliceStable(accessories, func(i, j int) bool {
		return c.prefs.PredictPreference(accessories[i], now) > c.prefs.PredictPreference(accessories[j], now)
	})
	for i := 0; i < len(accessories) && i < count; i++ {
		outfit = append(outfit, accessories[i])
	}
	return outfit
}

// refine tests appending or substituting preference-recommended garments
// and keeps the single best modification, but only when it beats the base
// harmony by the configured relative margin.
func (c *Composer) refine(chosen []models.Garment, available []models.Garment, now time.Time) []models.Garment {
	baseHarmony := OutfitHarmony(chosen)

	exclude := map[uint]bool{}
	for _, g := range chosen {
		exclude[g.ID] = true
	}
	recommended := c.prefs.RecommendSimilar(available, exclude, 5, now)

	bestHarmony := baseHarmony
	var bestOutfit []models.Garment
	consider := func(candidate []models.Garment) {
		if !validComposition(candidate) {
			return
		}
		if harmony := OutfitHarmony(candidate); harmony > bestHarmony {
			bestHarmony = harmony
			bestOutfit = candidate
		}
	}

	for _, rec := range recommended {
		appended := make([]models.Garment, len(chosen), len(chosen)+1)
		copy(appended, chosen)
		consider(append(appended, rec))

		for slot := range chosen {
			substituted := make([]models.Garment, len(chosen))
			copy(substituted, chosen)
			substituted[slot] = rec
			consider(substituted)
		}
	}

	if bestOutfit != nil && bestHarmony >= baseHarmony*(1+c.weights.RefinementMinGain) {
		return bestOutfit
	}
	return chosen
}

// validComposition enforces the coverage invariant: a dress, a suit or a
// top+bottom core, extended only by at most one outerwear, one footwear and
// up to three accessories. Never duplicate garment ids.
func validComposition(outfit []models.Garment) bool {
	seen := map[uint]bool{}
	counts := map[models.GarmentCategory]int{}
	for _, g := range outfit {
		if seen[g.ID] {
			return false
		}
		seen[g.ID] = true
		counts[g.Category]++
	}

	coreOK := false
	switch {
	case counts[models.CategoryDress] == 1 && counts[models.CategorySuit] == 0 && counts[models.CategoryTop] == 0 && counts[models.CategoryBottom] == 0:
		coreOK = true
	case counts[models.CategorySuit] == 1 && counts[models.CategoryDress] == 0 && counts[models.CategoryTop] == 0 && counts[models.CategoryBottom] == 0:
		coreOK = true
	case counts[models.CategoryTop] == 1 && counts[models.CategoryBottom] == 1 && counts[models.CategoryDress] == 0 && counts[models.CategorySuit] == 0:
		coreOK = true
	}
	if !coreOK {
		return false
	}
	return counts[models.CategoryOuterwear] <= 1 &&
		counts[models.CategoryFootwear] <= 1 &&
		counts[models.CategoryAccessory] <= 3
}

func (c *Composer) score(chosen []models.Garment, template outfitTemplate, occ Occasion, opts Options, required models.Formality, now time.Time) *ScoredCandidate {
	candidate := &ScoredCandidate{}
	for _, g := range chosen {
		candidate.GarmentIDs = append(candidate.GarmentIDs, g.ID)
	}

	candidate.ColorScore = OutfitHarmony(chosen)

	if len(chosen) >= 2 {
		var total float64
		var pairs int
		for i := 0; i < len(chosen); i++ {
			for j := i + 1; j < len(chosen); j++ {
				total += PairwiseStyle(chosen[i], chosen[j])
				pairs++
			}
		}
		candidate.StyleScore = total / float64(pairs)
	} else {
		candidate.StyleScore = 1
	}

	var occasionTotal, preferenceTotal float64
	for _, g := range chosen {
		occasionTotal += FormalityCompatibility(g.Formality, required)
		preferenceTotal += c.prefs.PredictPreference(g, now)
	}
	candidate.OccasionScore = occasionTotal / float64(len(chosen))
	candidate.PreferenceScore = preferenceTotal / float64(len(chosen))

	if occ.Season != "" && occ.Season != models.SeasonAll {
		matching := 0
		for _, g := range chosen {
			if g.Season == occ.Season || g.Season == models.SeasonAll {
				matching++
			}
		}
		weather := float64(matching) / float64(len(chosen))
		candidate.WeatherScore = &weather
	}

	candidate.computeAggregate(c.weights)

	var names []string
	for _, g := range chosen {
		names = append(names, g.Name)
	}
	candidate.Reasoning = fmt.Sprintf("%s outfit for %s (%s dress code): %s. Palette harmony %.2f, style fit %.2f.",
		string(template), occ.Title, required.Value(), strings.Join(names, ", "), candidate.ColorScore, candidate.StyleScore)
	return candidate
}

// Template reports which coverage template a candidate's id list satisfied
// against the supplied garments. Used for style tags.
func Template(chosen []models.Garment) outfitTemplate {
	for _, g := range chosen {
		switch g.Category {
		case models.CategoryDress:
			return templateDress
		case models.CategorySuit:
			return templateSuit
		}
	}
	return templateSeparates
}
