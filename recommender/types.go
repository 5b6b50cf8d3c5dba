package recommender

import (
	"sort"
	"strings"
	"unicode"

	"prismstyleapi/models"
)

// Occasion is the context an outfit is requested for. Pure value, nothing
// persisted.
type Occasion struct {
	Title     string
	TimeOfDay string
	Vibe      models.StyleVibe
	Season    models.Season
}

func (o Occasion) Key() string {
	return OccasionKey(o.Title, o.TimeOfDay)
}

// Options tune a single recommendation request.
type Options struct {
	Style             models.StyleVibe
	ColorFamily       models.ColorFamily
	FormalityOverride *models.Formality
	ComfortPriority   bool
	// advisory only, not scored
	Location string
}

var occasionFormalityKeywords = []struct {
	keyword string
	level   models.Formality
}{
	{"wedding", models.FormalityFormal},
	{"gala", models.FormalityFormal},
	{"black tie", models.FormalityFormal},
	{"ceremony", models.FormalityFormal},
	{"funeral", models.FormalityFormal},
	{"interview", models.FormalityBusiness},
	{"meeting", models.FormalityBusiness},
	{"office", models.FormalityBusiness},
	{"work", models.FormalityBusiness},
	{"conference", models.FormalityBusiness},
	{"presentation", models.FormalityBusiness},
	{"party", models.FormalityParty},
	{"club", models.FormalityParty},
	{"birthday", models.FormalityParty},
	{"cocktail", models.FormalityParty},
	{"date", models.FormalitySmartCasual},
	{"dinner", models.FormalitySmartCasual},
	{"brunch", models.FormalitySmartCasual},
	{"museum", models.FormalitySmartCasual},
	{"gym", models.FormalityAthletic},
	{"workout", models.FormalityAthletic},
	// bare "run" reads as errands more often than exercise
	{"running", models.FormalityAthletic},
	{"jog", models.FormalityAthletic},
	{"hike", models.FormalityAthletic},
	{"yoga", models.FormalityAthletic},
}

// matchFormalityKeyword looks the title's whole words up in the keyword
// table; "work" must not fire on "workshop" nor "date" on "update".
func matchFormalityKeyword(title string) (models.Formality, bool) {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	normalized := " " + strings.Join(words, " ") + " "
	for _, entry := range occasionFormalityKeywords {
		if strings.Contains(normalized, " "+entry.keyword+" ") {
			return entry.level, true
		}
	}
	return models.FormalityCasual, false
}

// RequiredFormality infers the dress code from the occasion title keywords,
// unless the caller overrides it explicitly. Unknown occasions read casual.
func (o Occasion) RequiredFormality(opts Options) models.Formality {
	if opts.FormalityOverride != nil {
		return *opts.FormalityOverride
	}
	level, _ := matchFormalityKeyword(o.Title)
	return level
}

// ScoredCandidate is an in-progress outfit: garment ids plus independent
// axis scores. Built and discarded per recommendation call.
type ScoredCandidate struct {
	GarmentIDs      []uint
	ColorScore      float64
	StyleScore      float64
	OccasionScore   float64
	PreferenceScore float64
	// nil when the occasion carries no season/weather tag
	WeatherScore *float64
	Aggregate    float64
	Reasoning    string
}

// Aggregate combines the axis scores. When no weather score exists its
// weight mass is redistributed so the aggregate stays in [0,1].
func (c *ScoredCandidate) computeAggregate(w Weights) {
	total := w.Color*c.ColorScore +
		w.Style*c.StyleScore +
		w.Occasion*c.OccasionScore +
		w.Preference*c.PreferenceScore
	weightSum := w.Color + w.Style + w.Occasion + w.Preference
	if c.WeatherScore != nil {
		total += w.Weather * (*c.WeatherScore)
		weightSum += w.Weather
	}
	if weightSum == 0 {
		c.Aggregate = 0
		return
	}
	c.Aggregate = total / weightSum
}

// RankCandidates stable-sorts by aggregate score descending.
func RankCandidates(candidates []*ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Aggregate > candidates[j].Aggregate
	})
}

// Alternative is a lighter-weight suggestion attached to a result.
type Alternative struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// RecommendationResult is what the engine hands back to the caller. A zero
// Confidence means the engine could not help; callers must inspect it
// rather than assume success.
type RecommendationResult struct {
	Verdict      string        `json:"verdict"`
	Rationale    string        `json:"rationale"`
	Suggestion   *string       `json:"suggestion,omitempty"`
	GarmentIDs   []uint        `json:"garment_ids"`
	BestLookID   *uint         `json:"best_look_id,omitempty"`
	Confidence   float64       `json:"confidence"`
	StyleTags    []string      `json:"style_tags"`
	Breakdown    []string      `json:"breakdown"`
	Alternatives []Alternative `json:"alternatives"`
}

// TagNeedsMoreData marks the degenerate "not enough garments" result.
const TagNeedsMoreData = "needs_more_data"
