package recommender

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"prismstyleapi/models"
)

// PreferenceData is the serializable body of a preference store. The style
// profile repository moves it to and from postgres; the engine only ever
// sees the in-memory form.
type PreferenceData struct {
	FavoriteGarmentIDs map[uint]bool  `json:"favorite_garment_ids"`
	FavoriteLookIDs    map[uint]bool  `json:"favorite_look_ids"`
	SelectionCounts    map[string]int `json:"selection_counts"`
	WornCounts         map[string]int `json:"worn_counts"`
	ColorCombinations  map[string]int `json:"color_combinations"`
	// occasion -> category -> count
	CategoryByOccasion map[string]map[string]int `json:"category_by_occasion"`
	FormalityCounts    map[string]int            `json:"formality_counts"`
}

func NewPreferenceData() PreferenceData {
	return PreferenceData{
		FavoriteGarmentIDs: map[uint]bool{},
		FavoriteLookIDs:    map[uint]bool{},
		SelectionCounts:    map[string]int{},
		WornCounts:         map[string]int{},
		ColorCombinations:  map[string]int{},
		CategoryByOccasion: map[string]map[string]int{},
		FormalityCounts:    map[string]int{},
	}
}

// PreferenceStore is the learned-preference aggregate for one user. Reads
// are concurrent, writes are serialized: feedback recording must never
// interleave with another write for the same user.
type PreferenceStore struct {
	mu   sync.RWMutex
	data PreferenceData
}

func NewPreferenceStore(data PreferenceData) *PreferenceStore {
	if data.FavoriteGarmentIDs == nil {
		data = NewPreferenceData()
	}
	return &PreferenceStore{data: data}
}

// OccasionKey builds the counter key for an occasion/time-of-day pair.
func OccasionKey(title, timeOfDay string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(timeOfDay))
}

// GarmentKey builds the counter key for per-garment worn counts.
func GarmentKey(id uint) string {
	return fmt.Sprintf("garment|%d", id)
}

// ColorComboKey is order independent so a+b and b+a hit the same counter.
func ColorComboKey(hexA, hexB string) string {
	a := strings.ToUpper(strings.TrimPrefix(hexA, "#"))
	b := strings.ToUpper(strings.TrimPrefix(hexB, "#"))
	if b < a {
		a, b = b, a
	}
	return a + "+" + b
}

// Data returns a deep copy safe to hand to the repository for saving.
func (s *PreferenceStore) Data() PreferenceData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := NewPreferenceData()
	for k, v := range s.data.FavoriteGarmentIDs {
		out.FavoriteGarmentIDs[k] = v
	}
	for k, v := range s.data.FavoriteLookIDs {
		out.FavoriteLookIDs[k] = v
	}
	for k, v := range s.data.SelectionCounts {
		out.SelectionCounts[k] = v
	}
	for k, v := range s.data.WornCounts {
		out.WornCounts[k] = v
	}
	for k, v := range s.data.ColorCombinations {
		out.ColorCombinations[k] = v
	}
	for occ, categories := range s.data.CategoryByOccasion {
		inner := map[string]int{}
		for k, v := range categories {
			inner[k] = v
		}
		out.CategoryByOccasion[occ] = inner
	}
	for k, v := range s.data.FormalityCounts {
		out.FormalityCounts[k] = v
	}
	return out
}

func (s *PreferenceStore) RecordSelection(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.SelectionCounts[key]++
}

// DecrementSelection is the negative-feedback path, floored at zero.
func (s *PreferenceStore) DecrementSelection(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.SelectionCounts[key] > 0 {
		s.data.SelectionCounts[key]--
	}
}

func (s *PreferenceStore) RecordWorn(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.WornCounts[key]++
}

// RecordFavoriteGarment is idempotent.
func (s *PreferenceStore) RecordFavoriteGarment(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.FavoriteGarmentIDs[id] = true
}

func (s *PreferenceStore) RemoveFavoriteGarment(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.FavoriteGarmentIDs, id)
}

func (s *PreferenceStore) RecordFavoriteLook(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.FavoriteLookIDs[id] = true
}

func (s *PreferenceStore) RemoveFavoriteLook(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.FavoriteLookIDs, id)
}

func (s *PreferenceStore) RecordColorCombination(hexA, hexB string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ColorCombinations[ColorComboKey(hexA, hexB)]++
}

func (s *PreferenceStore) RecordCategoryPreference(occasion string, category models.GarmentCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(occasion))
	if s.data.CategoryByOccasion[key] == nil {
		s.data.CategoryByOccasion[key] = map[string]int{}
	}
	s.data.CategoryByOccasion[key][string(category)]++
}

func (s *PreferenceStore) RecordFormalityPreference(formality models.Formality) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.FormalityCounts[string(formality)]++
}

func (s *PreferenceStore) IsFavoriteGarment(id uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.FavoriteGarmentIDs[id]
}

func (s *PreferenceStore) IsFavoriteLook(id uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.FavoriteLookIDs[id]
}

// SuccessRate is worn/selected for a key, 0 when never selected.
func (s *PreferenceStore) SuccessRate(key string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	selected := s.data.SelectionCounts[key]
	if selected == 0 {
		return 0
	}
	return float64(s.data.WornCounts[key]) / float64(selected)
}

func (s *PreferenceStore) categoryFrequency(category models.GarmentCategory) float64 {
	counts := map[string]int{}
	for _, categories := range s.data.CategoryByOccasion {
		for cat, n := range categories {
			counts[cat] += n
		}
	}
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	if max == 0 {
		return 0
	}
	return float64(counts[string(category)]) / float64(max)
}

func (s *PreferenceStore) formalityFrequency(formality models.Formality) float64 {
	max := 0
	for _, n := range s.data.FormalityCounts {
		if n > max {
			max = n
		}
	}
	if max == 0 {
		return 0
	}
	return float64(s.data.FormalityCounts[string(formality)]) / float64(max)
}

func (s *PreferenceStore) colorFrequency(hex string) float64 {
	needle := strings.ToUpper(strings.TrimPrefix(hex, "#"))
	counts := map[string]int{}
	for combo, n := range s.data.ColorCombinations {
		for _, part := range strings.Split(combo, "+") {
			counts[part] += n
		}
	}
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	if max == 0 {
		return 0
	}
	return float64(counts[needle]) / float64(max)
}

// TopColors returns the most frequently recorded combination colors as hex
// strings, most frequent first.
func (s *PreferenceStore) TopColors(n int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int{}
	for combo, count := range s.data.ColorCombinations {
		for _, part := range strings.Split(combo, "+") {
			counts[part] += count
		}
	}
	colors := make([]string, 0, len(counts))
	for color := range counts {
		colors = append(colors, color)
	}
	sort.Slice(colors, func(i, j int) bool {
		if counts[colors[i]] != counts[colors[j]] {
			return counts[colors[i]] > counts[colors[j]]
		}
		return colors[i] < colors[j]
	})
	if len(colors) > n {
		colors = colors[:n]
	}
	for i, color := range colors {
		colors[i] = "#" + color
	}
	return colors
}

// PredictPreference estimates how much the user likes a garment, in [0,1].
// Raw signal is favorites plus frequency ranks plus a 30-day recency boost
// plus worn count, squashed through a sigmoid.
func (s *PreferenceStore) PredictPreference(g models.Garment, now time.Time) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw float64
	if s.data.FavoriteGarmentIDs[g.ID] {
		raw += 3.0
	}
	raw += 0.4 * s.categoryFrequency(g.Category)
	raw += 0.3 * s.formalityFrequency(g.Formality)
	raw += 0.2 * s.colorFrequency(g.PrimaryColor)

	daysSinceCreated := now.Sub(g.CreatedAt).Hours() / 24
	raw += math.Max(0, 1-daysSinceCreated/30) * 0.5

	raw += 0.1 * float64(s.data.WornCounts[GarmentKey(g.ID)])

	return 1 / (1 + math.Exp(-raw/3))
}

const (
	maxPerCategory     = 2
	maxPerPrimaryColor = 3
)

// RecommendSimilar ranks non-excluded garments by predicted preference and
// greedily selects a diversity-capped list: at most 2 per category and 3 per
// primary color over the top 2*maxItems candidates. When the caps leave the
// list short it backfills with the best remaining garments.
func (s *PreferenceStore) RecommendSimilar(garments []models.Garment, exclude map[uint]bool, maxItems int, now time.Time) []models.Garment {
	if maxItems <= 0 {
		return nil
	}

	type scored struct {
		garment models.Garment
		score   float64
	}
	var ranked []scored
	for _, g := range garments {
		if exclude[g.ID] {
			continue
		}
		ranked = append(ranked, scored{garment: g, score: s.PredictPreference(g, now)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	pool := ranked
	if len(pool) > 2*maxItems {
		pool = pool[:2*maxItems]
	}

	picked := make([]models.Garment, 0, maxItems)
	pickedIDs := map[uint]bool{}
	perCategory := map[models.GarmentCategory]int{}
	perColor := map[string]int{}
	for _, cand := range pool {
		if len(picked) >= maxItems {
			break
		}
		colorKey := strings.ToUpper(strings.TrimPrefix(cand.garment.PrimaryColor, "#"))
		if perCategory[cand.garment.Category] >= maxPerCategory {
			continue
		}
		if perColor[colorKey] >= maxPerPrimaryColor {
			continue
		}
		picked = append(picked, cand.garment)
		pickedIDs[cand.garment.ID] = true
		perCategory[cand.garment.Category]++
		perColor[colorKey]++
	}

	// backfill from the raw ranking when diversity caps left us short
	for _, cand := range ranked {
		if len(picked) >= maxItems {
			break
		}
		if pickedIDs[cand.garment.ID] {
			continue
		}
		picked = append(picked, cand.garment)
		pickedIDs[cand.garment.ID] = true
	}
	return picked
}
