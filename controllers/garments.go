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
	"gorm.io/gorm"
)

// free plan wardrobe cap, EnforcedGarmentLimit overrides per user
const freeGarmentLimit = 20

type CreateGarmentIn struct {
	Name           string  `json:"name" validate:"omitempty,max=100"`
	FileName       *string `json:"file_name" validate:"required,max=200"`
	Description    *string `json:"description" validate:"omitempty,max=500"`
	Category       string  `json:"category" validate:"required,category"`
	Formality      string  `json:"formality" validate:"required,formality"`
	Season         string  `json:"season" validate:"omitempty,season"`
	PrimaryColor   string  `json:"primary_color" validate:"required,hexcolor"`
	SecondaryColor *string `json:"secondary_color" validate:"omitempty,hexcolor"`
	Pattern        *string `json:"pattern" validate:"omitempty,max=50"`
	Material       *string `json:"material" validate:"omitempty,max=50"`
	AutoTag        *bool   `json:"auto_tag"`
}

type UpdateGarmentIn struct {
	Name           *string `json:"name" validate:"omitempty,max=100"`
	Description    *string `json:"description" validate:"omitempty,max=500"`
	Formality      *string `json:"formality" validate:"omitempty,formality"`
	Season         *string `json:"season" validate:"omitempty,season"`
	PrimaryColor   *string `json:"primary_color" validate:"omitempty,hexcolor"`
	SecondaryColor *string `json:"secondary_color" validate:"omitempty,hexcolor"`
	Pattern        *string `json:"pattern" validate:"omitempty,max=50"`
	Material       *string `json:"material" validate:"omitempty,max=50"`
}

type FavoriteGarmentIn struct {
	Favorite *bool `json:"favorite" validate:"required"`
}

type GarmentResponse struct {
	ID             uint    `json:"id"`
	Name           string  `json:"name"`
	Description    *string `json:"description"`
	Category       string  `json:"category"`
	Formality      string  `json:"formality"`
	Season         string  `json:"season"`
	PrimaryColor   string  `json:"primary_color"`
	SecondaryColor *string `json:"secondary_color"`
	Pattern        *string `json:"pattern"`
	Material       *string `json:"material"`
	Favorite       bool    `json:"favorite"`
	Uri            *string `json:"uri,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

type GarmentCreatedResponse struct {
	Garment       GarmentResponse `json:"garment"`
	FileUploadUrl string          `json:"file_upload_url"`
}

type GarmentsListResponse struct {
	Tops        []GarmentResponse `json:"tops"`
	Bottoms     []GarmentResponse `json:"bottoms"`
	Outerwear   []GarmentResponse `json:"outerwear"`
	Footwear    []GarmentResponse `json:"footwear"`
	Accessories []GarmentResponse `json:"accessories"`
	Dresses     []GarmentResponse `json:"dresses"`
	Suits       []GarmentResponse `json:"suits"`
}

type GarmentsController struct {
	AWSService  services.AWSServiceProvider
	FirebaseApp *firebase.App
	URLCache    services.URLCacheServiceProvider
	Profiles    services.StyleProfileProvider
}

func (controller *GarmentsController) GarmentRoutes(g *echo.Group) {
	g.POST("/create", controller.CreateGarment)
	g.GET("/list", controller.ListGarments)
	g.POST("/:garmentId/favorite", controller.FavoriteGarment)
	g.POST("/:garmentId/update", controller.UpdateGarment)
	g.DELETE("/:garmentId", controller.DeleteGarment)
}

func garmentToResponse(item models.Garment, uri *string) GarmentResponse {
	return GarmentResponse{
		ID:             item.ID,
		Name:           item.Name,
		Description:    item.Description,
		Category:       string(item.Category),
		Formality:      string(item.Formality),
		Season:         string(item.Season),
		PrimaryColor:   item.PrimaryColor,
		SecondaryColor: item.SecondaryColor,
		Pattern:        item.Pattern,
		Material:       item.Material,
		Favorite:       item.Favorite,
		Uri:            uri,
		CreatedAt:      item.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:      item.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (controller *GarmentsController) CreateGarment(c echo.Context) error {
	var req CreateGarmentIn
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
		sentry.CaptureException(fmt.Errorf("Image was not provided when creating garment %s, user %v", req.Name, user.ID))
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Sorry, it seems image was not provided, please try again"})
	}
	if !services.IsAllowedImageFile(*req.FileName) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Sorry, this image format is not supported"})
	}

	garmentLimit := int64(freeGarmentLimit)
	if user.EnforcedGarmentLimit != nil {
		garmentLimit = int64(*user.EnforcedGarmentLimit)
	}
	if user.Subscription == nil || *user.Subscription == "free" {
		var totalGarmentCount int64
		if err := db.Model(&models.Garment{}).Where("owner_id = ? AND archived = false", user.ID).Count(&totalGarmentCount).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get wardrobe data"})
		}
		fmt.Printf("[User %v] Free plan, garment count: %v", user.ID, totalGarmentCount)
		if totalGarmentCount >= garmentLimit {
			return c.JSON(http.StatusForbidden, map[string]string{"error": fmt.Sprintf("You have reached the free limit of %v garments, please subscribe", garmentLimit)})
		}
	}

	season := models.SeasonAll
	if req.Season != "" {
		season = models.Season(req.Season)
	}
	garment := models.Garment{
		Name:           req.Name,
		Description:    req.Description,
		Category:       models.GarmentCategory(req.Category),
		Formality:      models.Formality(req.Formality),
		Season:         season,
		PrimaryColor:   req.PrimaryColor,
		SecondaryColor: req.SecondaryColor,
		Pattern:        req.Pattern,
		Material:       req.Material,
		OwnerID:        user.ID,
		ImageStatus:    "draft",
	}
	var bucketName = services.GetEnv("R2_BUCKET_NAME", "")
	safeFileName := fmt.Sprintf("garments/%v/%s", user.ID, *req.FileName)
	uploadUrl, presignErr := controller.AWSService.PresignLink(context.Background(), bucketName, safeFileName)
	garment.ImageURL = &safeFileName
	if presignErr != nil {
		log.Printf("Unable to presign upload for %s!, %s", garment.Name, presignErr)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"message": "Error while creating garment with attachment",
		})
	}
	if err := db.Create(&garment).Error; err != nil {
		sentry.CaptureException(err)
		return err
	}
	if req.AutoTag != nil && *req.AutoTag {
		task, err := tasks.NewAnalyzeGarmentTask(garment.ID)
		if err != nil {
			sentry.CaptureException(err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not process garment, please try again"})
		}
		info, err := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.Queue("generate"))
		if err != nil {
			sentry.CaptureException(err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not process garment, please try again"})
		}
		fmt.Println("[Queue] Analyze garment task submitted, Garment ID: ", garment.ID, " Task ID: ", info.ID)
	}

	response := GarmentCreatedResponse{
		Garment:       garmentToResponse(garment, nil),
		FileUploadUrl: uploadUrl,
	}
	return c.JSON(http.StatusCreated, response)
}

// populatePresignedGarmentImages enriches raw garment rows with presigned read
// URLs concurrently, falling back to a direct R2 presign when the cache fails.
func (controller *GarmentsController) populatePresignedGarmentImages(ctx context.Context, garments []models.Garment) []GarmentResponse {
	if len(garments) == 0 {
		return []GarmentResponse{}
	}

	var wg sync.WaitGroup
	processedResponses := make([]GarmentResponse, len(garments))
	bucketName := services.GetEnv("R2_BUCKET_NAME", "")

	for i, garmentItem := range garments {
		wg.Add(1)
		go func(index int, item models.Garment) {
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
			processedResponses[index] = garmentToResponse(item, &imageUrl)
		}(i, garmentItem)
	}

	wg.Wait()
	return processedResponses
}

func (controller *GarmentsController) ListGarments(c echo.Context) error {
	user, ok := c.Get("currentUser").(models.UserAccount)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}

	var garments []models.Garment
	if err := db.Where("owner_id = ? AND archived = false", user.ID).Order("created_at desc").Find(&garments).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch wardrobe"})
	}
	processedResponses := controller.populatePresignedGarmentImages(c.Request().Context(), garments)

	response := GarmentsListResponse{
		Tops:        []GarmentResponse{},
		Bottoms:     []GarmentResponse{},
		Outerwear:   []GarmentResponse{},
		Footwear:    []GarmentResponse{},
		Accessories: []GarmentResponse{},
		Dresses:     []GarmentResponse{},
		Suits:       []GarmentResponse{},
	}
	for _, resp := range processedResponses {
		switch models.GarmentCategory(resp.Category) {
		case models.CategoryTop:
			response.Tops = append(response.Tops, resp)
		case models.CategoryBottom:
			response.Bottoms = append(response.Bottoms, resp)
		case models.CategoryOuterwear:
			response.Outerwear = append(response.Outerwear, resp)
		case models.CategoryFootwear:
			response.Footwear = append(response.Footwear, resp)
		case models.CategoryAccessory:
			response.Accessories = append(response.Accessories, resp)
		case models.CategoryDress:
			response.Dresses = append(response.Dresses, resp)
		case models.CategorySuit:
			response.Suits = append(response.Suits, resp)
		}
	}
	return c.JSON(http.StatusOK, response)
}

func (controller *GarmentsController) FavoriteGarment(c echo.Context) error {
	var garmentId uint
	if err := echo.PathParamsBinder(c).Uint("garmentId", &garmentId).BindError(); err != nil {
		return echo.ErrBadRequest
	}
	var req FavoriteGarmentIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var garment models.Garment
	r := db.Where("id = ? AND owner_id = ?", garmentId, user.ID).Limit(1).Find(&garment)
	if r.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch garment"})
	}
	if r.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	garment.Favorite = *req.Favorite
	if err := db.Save(&garment).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update garment"})
	}

	// favorites feed the preference profile directly
	store, err := controller.Profiles.Load(db, user.ID)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Garment: %v] failed to load style profile: %w", garment.ID, err))
	} else {
		if *req.Favorite {
			store.RecordFavoriteGarment(garment.ID)
		} else {
			store.RemoveFavoriteGarment(garment.ID)
		}
		if err := controller.Profiles.Save(db, user.ID, store.Data()); err != nil {
			sentry.CaptureException(fmt.Errorf("[Garment: %v] failed to save style profile: %w", garment.ID, err))
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":       garment.ID,
		"favorite": garment.Favorite,
	})
}

func (controller *GarmentsController) UpdateGarment(c echo.Context) error {
	var garmentId uint
	if err := echo.PathParamsBinder(c).Uint("garmentId", &garmentId).BindError(); err != nil {
		return echo.ErrBadRequest
	}
	var req UpdateGarmentIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var garment models.Garment
	r := db.Where("id = ? AND owner_id = ?", garmentId, user.ID).Limit(1).Find(&garment)
	if r.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch garment"})
	}
	if r.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	if req.Name != nil {
		garment.Name = *req.Name
	}
	if req.Description != nil {
		garment.Description = req.Description
	}
	if req.Formality != nil {
		garment.Formality = models.Formality(*req.Formality)
	}
	if req.Season != nil {
		garment.Season = models.Season(*req.Season)
	}
	if req.PrimaryColor != nil {
		garment.PrimaryColor = *req.PrimaryColor
	}
	if req.SecondaryColor != nil {
		garment.SecondaryColor = req.SecondaryColor
	}
	if req.Pattern != nil {
		garment.Pattern = req.Pattern
	}
	if req.Material != nil {
		garment.Material = req.Material
	}
	if err := db.Save(&garment).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update garment"})
	}
	return c.JSON(http.StatusOK, garmentToResponse(garment, nil))
}

func (controller *GarmentsController) DeleteGarment(c echo.Context) error {
	var garmentId uint
	if err := echo.PathParamsBinder(c).Uint("garmentId", &garmentId).BindError(); err != nil {
		return echo.ErrBadRequest
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var garment models.Garment
	r := db.Where("id = ? AND owner_id = ?", garmentId, user.ID).Limit(1).Find(&garment)
	if r.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch garment"})
	}
	if r.RowsAffected == 0 {
		return echo.ErrNotFound
	}
	// archive instead of hard delete, looks may still reference the garment
	garment.Archived = true
	garment.Favorite = false
	if err := db.Save(&garment).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete garment"})
	}
	store, err := controller.Profiles.Load(db, user.ID)
	if err == nil {
		store.RemoveFavoriteGarment(garment.ID)
		if saveErr := controller.Profiles.Save(db, user.ID, store.Data()); saveErr != nil {
			sentry.CaptureException(fmt.Errorf("[Garment: %v] failed to save style profile: %w", garment.ID, saveErr))
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "deleted",
	})
}
