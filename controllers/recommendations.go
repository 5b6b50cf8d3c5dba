package controllers

import (
	"fmt"
	"net/http"
	"time"

	"prismstyleapi/models"
	"prismstyleapi/recommender"
	"prismstyleapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type RecommendIn struct {
	Occasion          string  `json:"occasion" validate:"required,max=100"`
	TimeOfDay         string  `json:"time_of_day" validate:"omitempty,max=30"`
	Season            string  `json:"season" validate:"omitempty,season"`
	Style             string  `json:"style" validate:"omitempty,stylevibe"`
	ColorFamily       string  `json:"color_family" validate:"omitempty,colorfamily"`
	FormalityOverride *string `json:"formality_override" validate:"omitempty,formality"`
	ComfortPriority   bool    `json:"comfort_priority"`
	Location          string  `json:"location" validate:"omitempty,max=100"`
}

type FeedbackIn struct {
	Liked *bool `json:"liked" validate:"required"`
}

type RecommendationOut struct {
	ID uint `json:"id"`
	recommender.RecommendationResult
}

type RecommendationHistoryItem struct {
	ID         uint     `json:"id"`
	Occasion   string   `json:"occasion"`
	TimeOfDay  string   `json:"time_of_day"`
	Verdict    string   `json:"verdict"`
	Confidence float64  `json:"confidence"`
	GarmentIDs []int64  `json:"garment_ids"`
	LookID     *uint    `json:"look_id"`
	StyleTags  []string `json:"style_tags"`
	Liked      *bool    `json:"liked"`
	CreatedAt  string   `json:"created_at"`
}

type RecommendationsController struct {
	Profiles services.StyleProfileProvider
	Engine   *recommender.Engine
}

func (controller *RecommendationsController) RecommendationRoutes(g *echo.Group) {
	if controller.Engine == nil {
		controller.Engine = recommender.NewEngine(recommender.DefaultWeights())
	}
	g.POST("/recommend", controller.Recommend)
	g.POST("/:recommendationId/feedback", controller.Feedback)
	g.GET("/history", controller.History)
}

// fallbackResult is returned when wardrobe data cannot be loaded. The client
// still gets a well formed result instead of a 5xx.
func fallbackResult(occasion string) *recommender.RecommendationResult {
	return &recommender.RecommendationResult{
		Verdict:    "We could not check your wardrobe right now",
		Rationale:  fmt.Sprintf("Your wardrobe data was unavailable while recommending for %q. Please try again.", occasion),
		GarmentIDs: []uint{},
		Confidence: 0,
		StyleTags:  []string{recommender.TagNeedsMoreData},
		Breakdown:  []string{"Wardrobe data unavailable"},
	}
}

func (controller *RecommendationsController) Recommend(c echo.Context) error {
	var req RecommendIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	occ := recommender.Occasion{
		Title:     req.Occasion,
		TimeOfDay: req.TimeOfDay,
		Vibe:      models.StyleVibe(req.Style),
		Season:    models.Season(req.Season),
	}
	opts := recommender.Options{
		Style:           models.StyleVibe(req.Style),
		ColorFamily:     models.ColorFamily(req.ColorFamily),
		ComfortPriority: req.ComfortPriority,
		Location:        req.Location,
	}
	if req.FormalityOverride != nil {
		f := models.Formality(*req.FormalityOverride)
		opts.FormalityOverride = &f
	}

	var garments []models.Garment
	if err := db.Where("owner_id = ? AND archived = false", user.ID).Find(&garments).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[User: %v] failed to load garments for recommendation: %w", user.ID, err))
		return c.JSON(http.StatusOK, RecommendationOut{RecommendationResult: *fallbackResult(req.Occasion)})
	}
	var looks []models.OutfitLook
	if err := db.Where("owner_id = ?", user.ID).Find(&looks).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[User: %v] failed to load looks for recommendation: %w", user.ID, err))
		return c.JSON(http.StatusOK, RecommendationOut{RecommendationResult: *fallbackResult(req.Occasion)})
	}
	store, err := controller.Profiles.Load(db, user.ID)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[User: %v] failed to load style profile: %w", user.ID, err))
		return c.JSON(http.StatusOK, RecommendationOut{RecommendationResult: *fallbackResult(req.Occasion)})
	}

	result, err := controller.Engine.Recommend(c.Request().Context(), recommender.RecommendInput{
		Occasion: occ,
		Garments: garments,
		Looks:    looks,
		Prefs:    store,
		Options:  opts,
		Now:      time.Now(),
	})
	if err != nil {
		// only context cancellation reaches here
		fmt.Println("Recommendation cancelled for user ", user.ID, err)
		return echo.ErrBadRequest
	}

	// the run bumped the occasion selection counter
	if err := controller.Profiles.Save(db, user.ID, store.Data()); err != nil {
		sentry.CaptureException(fmt.Errorf("[User: %v] failed to save style profile after recommendation: %w", user.ID, err))
	}

	garmentIds := make(pq.Int64Array, 0, len(result.GarmentIDs))
	for _, id := range result.GarmentIDs {
		garmentIds = append(garmentIds, int64(id))
	}
	record := models.RecommendationRecord{
		OwnerID:    user.ID,
		Occasion:   req.Occasion,
		TimeOfDay:  req.TimeOfDay,
		Verdict:    result.Verdict,
		Rationale:  result.Rationale,
		Confidence: result.Confidence,
		GarmentIDs: garmentIds,
		LookID:     result.BestLookID,
		StyleTags:  pq.StringArray(result.StyleTags),
	}
	if err := db.Create(&record).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[User: %v] failed to persist recommendation: %w", user.ID, err))
		// still return the result, feedback just won't have a record to attach to
	}
	fmt.Printf("[User %v] Recommended for %q confidence %.0f tags %v \n", user.ID, req.Occasion, result.Confidence, result.StyleTags)

	return c.JSON(http.StatusOK, RecommendationOut{
		ID:                   record.ID,
		RecommendationResult: *result,
	})
}

func (controller *RecommendationsController) Feedback(c echo.Context) error {
	var recommendationId uint
	if err := echo.PathParamsBinder(c).Uint("recommendationId", &recommendationId).BindError(); err != nil {
		return echo.ErrBadRequest
	}
	var req FeedbackIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var record models.RecommendationRecord
	r := db.Where("id = ? AND owner_id = ?", recommendationId, user.ID).Limit(1).Find(&record)
	if r.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch recommendation"})
	}
	if r.RowsAffected == 0 {
		return echo.ErrNotFound
	}

	garmentIds := make([]uint, 0, len(record.GarmentIDs))
	for _, id := range record.GarmentIDs {
		garmentIds = append(garmentIds, uint(id))
	}
	var garments []models.Garment
	if len(garmentIds) > 0 {
		if err := db.Where("owner_id = ? AND id IN ?", user.ID, garmentIds).Find(&garments).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch garments"})
		}
	}
	garmentsByID := make(map[uint]models.Garment, len(garments))
	for _, g := range garments {
		garmentsByID[g.ID] = g
	}

	store, err := controller.Profiles.Load(db, user.ID)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[User: %v] failed to load style profile for feedback: %w", user.ID, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to record feedback, please try again"})
	}

	result := &recommender.RecommendationResult{
		GarmentIDs: garmentIds,
		BestLookID: record.LookID,
	}
	occ := recommender.Occasion{Title: record.Occasion, TimeOfDay: record.TimeOfDay}
	controller.Engine.RecordFeedback(result, occ, *req.Liked, store, garmentsByID)

	if err := controller.Profiles.Save(db, user.ID, store.Data()); err != nil {
		sentry.CaptureException(fmt.Errorf("[User: %v] failed to save style profile after feedback: %w", user.ID, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to record feedback, please try again"})
	}

	record.Liked = req.Liked
	if err := db.Save(&record).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to record feedback, please try again"})
	}
	fmt.Printf("[User %v] Feedback on recommendation %v liked=%v \n", user.ID, record.ID, *req.Liked)
	return c.JSON(http.StatusOK, echo.Map{
		"id":    record.ID,
		"liked": *req.Liked,
	})
}

func (controller *RecommendationsController) History(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var records []models.RecommendationRecord
	if err := db.Where("owner_id = ?", user.ID).Order("created_at desc").Limit(50).Find(&records).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch history"})
	}
	items := make([]RecommendationHistoryItem, 0, len(records))
	for _, record := range records {
		garmentIds := []int64(record.GarmentIDs)
		if garmentIds == nil {
			garmentIds = []int64{}
		}
		styleTags := []string(record.StyleTags)
		if styleTags == nil {
			styleTags = []string{}
		}
		items = append(items, RecommendationHistoryItem{
			ID:         record.ID,
			Occasion:   record.Occasion,
			TimeOfDay:  record.TimeOfDay,
			Verdict:    record.Verdict,
			Confidence: record.Confidence,
			GarmentIDs: garmentIds,
			LookID:     record.LookID,
			StyleTags:  styleTags,
			Liked:      record.Liked,
			CreatedAt:  record.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"recommendations": items,
	})
}
