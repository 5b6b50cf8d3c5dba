package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"prismstyleapi/models"
	"prismstyleapi/services"

	firebase "firebase.google.com/go/v4"
	"github.com/go-playground/validator"
	"github.com/hibiken/asynq"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func SetupServer(
	db *gorm.DB,
	googleService services.GoogleServiceProvider,
	awsService services.AWSServiceProvider,
	urlCache services.URLCacheServiceProvider,
	profileRepo services.StyleProfileProvider,
	firebaseApp *firebase.App,
	asynqClient *asynq.Client,
	asynqInspector *asynq.Inspector,
) *echo.Echo {

	err := awsService.InitPresignClient(context.Background())
	if err != nil {
		log.Fatal("Failed to initialize AWS provider: S3")
	}

	e := echo.New()
	v := validator.New()
	v.RegisterValidation("platform", models.ValidatePlatform)
	v.RegisterValidation("category", models.ValidateCategory)
	v.RegisterValidation("formality", models.ValidateFormality)
	v.RegisterValidation("season", models.ValidateSeason)
	v.RegisterValidation("stylevibe", models.ValidateStyleVibe)
	v.RegisterValidation("colorfamily", models.ValidateColorFamily)
	e.Validator = &CustomValidator{validator: v}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__db", db)
			c.Set("__asynqclient", asynqClient)
			c.Set("__asynqinspector", asynqInspector)
			return next(c)
		}
	})

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	authGroup := e.Group("auth")
	authController := AuthController{Google: googleService, FirebaseApp: firebaseApp, AWSService: awsService}
	authController.ProfileRoutes(authGroup)

	fmt.Println("Setting up wardrobe routes")
	garmentController := GarmentsController{AWSService: awsService, FirebaseApp: firebaseApp, URLCache: urlCache, Profiles: profileRepo}
	garmentGroup := e.Group("garments", echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))), UserMiddleware)
	garmentController.GarmentRoutes(garmentGroup)

	lookController := LooksController{AWSService: awsService, FirebaseApp: firebaseApp, URLCache: urlCache, Profiles: profileRepo}
	lookGroup := e.Group("looks", echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))), UserMiddleware)
	lookController.LookRoutes(lookGroup)

	recommendationController := RecommendationsController{Profiles: profileRepo}
	recommendationGroup := e.Group("recommendations", echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))), UserMiddleware)
	recommendationController.RecommendationRoutes(recommendationGroup)

	return e
}
