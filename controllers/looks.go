package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"prismstyleapi/models"
	"prismstyleapi/services"
	"prismstyleapi/tasks"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// free plan cap on photographed looks, EnforcedLookLimit overrides per user
const freeLookLimit = 10

type CreateLookIn struct {
	Occasion          string  `json:"occasion" validate:"required,max=100"`
	TimeOfDay         string  `json:"time_of_day" validate:"omitempty,max=30"`
	Notes             *string `json:"notes" validate:"omitempty,max=500"`
	FileName          *string `json:"file_name" validate:"required,max=200"`
	GarmentIDs        []int64 `json:"garment_ids"`
	AlertWhenAnalyzed *bool   `json:"alert_when_analyzed"`
}

type FavoriteLookIn struct {
	Favorite *bool `json:"favorite" validate:"required"`
}

type LookResponse struct {
	ID             uint     `json:"id"`
	Occasion       string   `json:"occasion"`
	TimeOfDay      string   `json:"time_of_day"`
	Notes          *string  `json:"notes"`
	Favorite       bool     `json:"favorite"`
	GarmentIDs     []int64  `json:"garment_ids"`
	AnalysisStatus string   `json:"analysis_status"`
	QualityScore   *float64 `json:"quality_score"`
	FullOutfit     *bool    `json:"full_outfit"`
	DominantColors []string `json:"dominant_colors"`
	Uri            *string  `json:"uri,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

type LookCreatedResponse struct {
	Look          LookResponse `json:"look"`
	FileUploadUrl string       `json:"file_upload_url"`
}

type LooksController struct {
	AWSService  services.AWSServiceProvider
	FirebaseApp *firebase.App
	URLCache    services.URLCacheServiceProvider
	Profiles    services.StyleProfileProvider
}

func (controller *LooksController) LookRoutes(g *echo.Group) {
	g.POST("/create", controller.CreateLook)
	g.GET("/list", controller.ListLooks)
	g.POST("/:lookId/favorite", controller.FavoriteLook)
	g.DELETE("/:lookId", controller.DeleteLook)
}

func lookToResponse(item models.OutfitLook, uri *string) LookResponse {
	garmentIds := []int64(item.GarmentIDs)
	if garmentIds == nil {
		garmentIds = []int64{}
	}
	dominantColors := []string(item.DominantColors)
	if dominantColors == nil {
		dominantColors = []string{}
	}
	return LookResponse{
		ID:             item.ID,
		Occasion:       item.Occasion,
		TimeOfDay:      item.TimeOfDay,
		Notes:          item.Notes,
		Favorite:       item.Favorite,
		GarmentIDs:     garmentIds,
		AnalysisStatus: item.AnalysisStatus,
		QualityScore:   item.QualityScore,
		FullOutfit:     item.FullOutfit,
		DominantColors: dominantColors,
		Uri:            uri,
		CreatedAt:      item.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:      item.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (controller *LooksController) CreateLook(c echo.Context) error {
	var req CreateLookIn
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
	asynqClient, ok := c.Get("__asynqclient").(*asynq.Client)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Service is not available, please try again a bit later"})
	}

	if req.FileName == nil || *req.FileName == "" {
		sentry.CaptureException(fmt.Errorf("Photo was not provided when creating look %s, user %v", req.Occasion, user.ID))
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Sorry, it seems photo was not provided, please try again"})
	}
	if !services.IsAllowedImageFile(*req.FileName) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Sorry, this image format is not supported"})
	}

	lookLimit := int64(freeLookLimit)
	if user.EnforcedLookLimit != nil {
		lookLimit = int64(*user.EnforcedLookLimit)
	}
	if user.Subscription == nil || *user.Subscription == "free" {
		var totalLookCount int64
		if err := db.Model(&models.OutfitLook{}).Where("owner_id = ?", user.ID).Count(&totalLookCount).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get look data"})
		}
		fmt.Printf("[User %v] Free plan, look count: %v", user.ID, totalLookCount)
		if totalLookCount >= lookLimit {
			return c.JSON(http.StatusForbidden, map[string]string{"error": fmt.Sprintf("You have reached the free limit of %v looks, please subscribe", lookLimit)})
		}
	}

	look := models.OutfitLook{
		Occasion:       req.Occasion,
		TimeOfDay:      req.TimeOfDay,
		Notes:          req.Notes,
		GarmentIDs:     pq.Int64Array(req.GarmentIDs),
		OwnerID:        user.ID,
		AnalysisStatus: "pending",
	}
	if req.AlertWhenAnalyzed != nil {
		look.AlertWhenAnalyzed = *req.AlertWhenAnalyzed
	}
	var bucketName = services.GetEnv("R2_BUCKET_NAME", "")
	safeFileName := fmt.Sprintf("looks/%v/%s", user.ID, *req.FileName)
	uploadUrl, presignErr := controller.AWSService.PresignLink(context.Background(), bucketName, safeFileName)
	look.ImageURL = &safeFileName
	if presignErr != nil {
		log.Printf("Unable to presign upload for look %s!, %s", look.Occasion, presignErr)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": "Error while creating look with attachment",
		})
	}
	if err := db.Create(&look).Error; err != nil {
		sentry.CaptureException(err)
		return err
	}

	task, err := tasks.NewAnalyzeLookTask(look.ID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not process look, please try again"})
	}
	info, err := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.Queue("generate"))
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not process look, please try again"})
	}
	fmt.Println("[Queue] Analyze look task submitted, Look ID: ", look.ID, " Task ID: ", info.ID)

	response := LookCreatedResponse{
		Look:          lookToResponse(look, nil),
		FileUploadUrl: uploadUrl,
	}
	return c.JSON(http.StatusCreated, response)
}

func (controller *LooksController) populatePresignedLookImages(ctx context.Context, looks []models.OutfitLook) []LookResponse {
	if len(looks) == 0 {
		return []LookResponse{}
	}

	var wg sync.WaitGroup
	processedResponses := make([]LookResponse, len(looks))
	bucketName := services.GetEnv("R2_BUCKET_NAME", "")

	for i, lookItem := range looks {
		wg.Add(1)
		go func(index int, item models.OutfitLook) {
			defer wg.Done()

			var imageUrl string
			if item.ImageURL != nil && *item.ImageURL != "" {
				objectKey := *item.ImageURL
				url, err := controller.URLCache.GetReadURL(ctx, objectKey)
				if err == nil {
					imageUrl = url
				} else {
					log.Printf("CACHE WARNING: Cache system failed for key '%s': %v. Triggering manual R2 fallback.", objectKey, err)
					sentry.WithScope(func(scope *sentry.Scope) {
						scope.SetTag("failure_type", "cache_system")
						scope.SetExtra("objectKey", objectKey)
						sentry.CaptureException(err)
					})
					fallbackUrl, fallbackErr := controller.AWSService.GetPresignedR2FileReadURL(ctx, bucketName, objectKey)
					if fallbackErr != nil {
						log.Printf("CRITICAL: Manual R2 fallback also failed for key '%s': %v", objectKey, fallbackErr)
						sentry.CaptureException(fallbackErr)
					} else {
						imageUrl = fallbackUrl
					}
				}
			}
			processedResponses[index] = lookToResponse(item, &imageUrl)
		}(i, lookItem)
	}

	wg.Wait()
	return processedResponses
}

func (controller *LooksController) ListLooks(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	var looks []models.OutfitLook
	if err := db.Where("owner_id = ?", user.ID).Order("created_at desc").Find(&looks).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch looks"})
	}
	processedResponses := controller.populatePresignedLookImages(c.Request().Context(), looks)
	return c.JSON(http.StatusOK, echo.Map{
		"looks": processedResponses,
	})
}

func (controller *LooksController) FavoriteLook(c echo.Context) error {
	var lookId uint
	if err := echo.PathParamsBinder(c).Uint("lookId", &lookId).BindError(); err != nil {
		return echo.ErrBadRequest
	}
	var req FavoriteLookIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var look models.OutfitLook
	r := db.Where("id = ? AND owner_id = ?", lookId, user.ID).Limit(1).Find(&look)
	if r.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch look"})
	}
	if r.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	look.Favorite = *req.Favorite
	if err := db.Save(&look).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update look"})
	}

	store, err := controller.Profiles.Load(db, user.ID)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Look: %v] failed to load style profile: %w", look.ID, err))
	} else {
		if *req.Favorite {
			store.RecordFavoriteLook(look.ID)
		} else {
			store.RemoveFavoriteLook(look.ID)
		}
		if err := controller.Profiles.Save(db, user.ID, store.Data()); err != nil {
			sentry.CaptureException(fmt.Errorf("[Look: %v] failed to save style profile: %w", look.ID, err))
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":       look.ID,
		"favorite": look.Favorite,
	})
}

func (controller *LooksController) DeleteLook(c echo.Context) error {
	var lookId uint
	if err := echo.PathParamsBinder(c).Uint("lookId", &lookId).BindError(); err != nil {
		return echo.ErrBadRequest
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	result := db.Where("id = ? AND owner_id = ?", lookId, user.ID).Delete(&models.OutfitLook{})
	if result.Error != nil {
		sentry.CaptureException(result.Error)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete look"})
	}
	if result.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	store, err := controller.Profiles.Load(db, user.ID)
	if err == nil {
		store.RemoveFavoriteLook(lookId)
		if saveErr := controller.Profiles.Save(db, user.ID, store.Data()); saveErr != nil {
			sentry.CaptureException(fmt.Errorf("[Look: %v] failed to save style profile: %w", lookId, saveErr))
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "deleted",
	})
}
