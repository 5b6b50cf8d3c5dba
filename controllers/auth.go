package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"prismstyleapi/models"
	"prismstyleapi/services"

	firebase "firebase.google.com/go/v4"
	apple "github.com/Timothylock/go-signin-with-apple/apple"
	"github.com/getsentry/sentry-go"
	"github.com/golang-jwt/jwt/v4"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const fallbackAvatarURL = "https://pub-prismstyle.r2.dev/user-circle.png"

type AuthController struct {
	Google      services.GoogleServiceProvider
	FirebaseApp *firebase.App
	AWSService  services.AWSServiceProvider
}

func (m *AuthController) ProfileRoutes(g *echo.Group) {
	g.POST("/google", func(c echo.Context) (err error) {
		googleCreds := new(models.GoogleAuthSignIn)
		if err := c.Bind(googleCreds); err != nil {
			return err
		}
		if !models.ValidatePlatformRaw(googleCreds.Platform) {
			return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Please provide proper platform parameter"})
		}
		if err = c.Validate(googleCreds); err != nil {
			return err
		}

		payload, err := m.Google.ValidateIdToken(context.Background(), googleCreds.IdToken, os.Getenv("GOOGLE_CLIENT_ID"))
		if err != nil {
			fmt.Println(err)
			return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Couldn't verify credentials"})
		}
		sub, ok := payload.Claims["sub"]
		if !ok {
			sentry.CaptureMessage(fmt.Sprintf("Error when fetching user data %s", payload.Claims))
			return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Couldn't verify credentials"})
		}
		var googleId string = sub.(string)

		googleEmail, ok := payload.Claims["email"]
		if !ok {
			sentry.CaptureMessage(fmt.Sprintf("Error when fetching user data email %s", payload.Claims))
			return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Couldn't verify credentials"})
		}
		pictureUrl, _ := payload.Claims["picture"].(string)
		googleName, _ := payload.Claims["name"].(string)

		db := c.Get("__db").(*gorm.DB)
		var user *models.UserAccount
		r := db.Where("google_id = ?", googleId).Limit(1).Find(&user)
		if r.Error != nil {
			return c.JSON(http.StatusInternalServerError, map[string]interface{}{"message": "Internal server error"})
		}
		if r.RowsAffected > 0 {
			if user.Banned {
				return echo.ErrForbidden
			}
			refreshToken, err := GenerateRefreshToken(fmt.Sprint(user.ID))
			if err != nil {
				fmt.Println(err)
				return echo.ErrInternalServerError
			}
			return c.JSON(http.StatusOK, map[string]interface{}{
				"id":            user.ID,
				"name":          user.Name,
				"email":         googleEmail,
				"new":           false,
				"avatar":        user.AvatarUrl,
				"access_token":  GenerateUserToken(fmt.Sprint(user.ID), c),
				"refresh_token": refreshToken,
			})
		}

		// same mailbox may have signed in through apple before
		r = db.Where("email = ?", googleEmail).Limit(1).Find(&user)
		isNew := r.RowsAffected == 0
		if isNew {
			user = &models.UserAccount{
				Name:      googleName,
				Email:     googleEmail.(string),
				GoogleID:  googleId,
				Platform:  models.ScanPlatform(googleCreds.Platform),
				LastIp:    c.RealIP(),
				Status:    "FINISHED_AUTH",
				AvatarUrl: pictureUrl,
			}
			db.Create(&user)
			fmt.Println("User onboarding finished google: ", googleEmail, googleId)
		} else {
			user.GoogleID = googleId
			user.Name = googleName
			user.AvatarUrl = pictureUrl
			user.LastIp = c.RealIP()
			user.Platform = models.ScanPlatform(googleCreds.Platform)
			db.Save(&user)
		}
		refreshToken, err := GenerateRefreshToken(fmt.Sprint(user.ID))
		if err != nil {
			fmt.Println(err)
			return echo.ErrInternalServerError
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"id":            user.ID,
			"name":          user.Name,
			"email":         googleEmail,
			"new":           isNew,
			"avatar":        user.AvatarUrl,
			"access_token":  GenerateUserToken(fmt.Sprint(user.ID), c),
			"refresh_token": refreshToken,
		})
	})

	g.POST("/apple", func(c echo.Context) error {
		var req models.AppleAuthRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
		}
		if err := c.Validate(req); err != nil {
			return err
		}

		teamID := services.GetEnv("APPLE_TEAM_ID", "")
		keyID := services.GetEnv("APPLE_SIGNIN_KEY_ID", "")
		// ClientID is the "Services ID" for the sign-in-with-Apple enabled app
		clientID := services.GetEnv("APPLE_BUNDLE_ID", "com.prismstyle.app")

		secret, err := services.DecodeBase64EnvPrivateKey("APPLE_SIGNIN_PKEY_BASE64")
		if err != nil {
			log.Println("Error getting Apple private key:", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		}
		secret, err = apple.GenerateClientSecret(secret, teamID, clientID, keyID)
		if err != nil {
			log.Println("Error generating Apple client secret:", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		}
		client := apple.New()

		vReq := apple.AppValidationTokenRequest{
			ClientID:     clientID,
			ClientSecret: secret,
			Code:         req.AuthorizationCode,
		}
		var resp apple.ValidationResponse
		err = client.VerifyAppToken(context.Background(), vReq, &resp)
		if err != nil {
			fmt.Println("error verifying: " + err.Error())
			return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Couldn't verify credentials"})
		}
		if resp.Error != "" {
			fmt.Printf("apple returned an error: %s - %s\n", resp.Error, resp.ErrorDescription)
			return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Couldn't verify credentials through Apple"})
		}

		unique, err := apple.GetUniqueID(resp.IDToken)
		if err != nil {
			fmt.Println("failed to get unique ID: " + err.Error())
			return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Couldn't get your unique identifier"})
		}
		claim, err := apple.GetClaims(resp.IDToken)
		if err != nil {
			fmt.Println("failed to get claims: " + err.Error())
			return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Couldn't get your information"})
		}

		appleEmail, ok := (*claim)["email"].(string)
		emailVerified, verifiedOk := (*claim)["email_verified"].(bool)
		fmt.Println("[Apple signin] email:", appleEmail, " verified:", emailVerified)
		if !ok {
			fmt.Println(fmt.Sprintf("[Apple signin] no email in token %v", claim))
		}
		if !verifiedOk {
			log.Println("[Apple signin] email_verified missing from claims")
		}
		var appleId string = unique

		db := c.Get("__db").(*gorm.DB)
		var user *models.UserAccount
		var r *gorm.DB
		if appleEmail == "" {
			r = db.Where("apple_id = ?", appleId).Limit(1).Find(&user)
		} else {
			r = db.Where("apple_id = ? or email = ?", appleId, appleEmail).Limit(1).Find(&user)
		}
		if r.Error != nil {
			return c.JSON(http.StatusInternalServerError, map[string]interface{}{"message": "Internal server error"})
		}
		isNew := r.RowsAffected == 0
		if isNew {
			if appleEmail == "" {
				fmt.Println("[Apple signin] New user but no email in claims")
				return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "It seems you are signing in the first time and no email was provided by Apple. Please try again or contact support."})
			}
			user = &models.UserAccount{
				Name:      appleEmail,
				Email:     appleEmail,
				AppleID:   appleId,
				Platform:  models.ScanPlatform(req.Platform),
				LastIp:    c.RealIP(),
				Status:    "FINISHED_AUTH",
				AvatarUrl: fallbackAvatarURL,
			}
			db.Create(&user)
			fmt.Println("User onboarding finished apple: ", appleEmail, appleId)
		} else {
			if user.Banned {
				return echo.ErrForbidden
			}
			if user.AvatarUrl == "" {
				user.AvatarUrl = fallbackAvatarURL
			}
			user.AppleID = appleId
			if user.Name == "" && appleEmail != "" {
				user.Name = appleEmail
			}
			user.LastIp = c.RealIP()
			user.Platform = models.ScanPlatform(req.Platform)
			db.Save(&user)
		}
		refreshToken, err := GenerateRefreshToken(fmt.Sprint(user.ID))
		if err != nil {
			fmt.Println(err)
			return echo.ErrInternalServerError
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"id":            user.ID,
			"name":          user.Name,
			"email":         user.Email,
			"new":           isNew,
			"avatar":        user.AvatarUrl,
			"access_token":  GenerateUserToken(fmt.Sprint(user.ID), c),
			"refresh_token": refreshToken,
		})
	})

	g.POST("/refresh-token", func(c echo.Context) error {
		tokenReq := new(models.RefreshTokenIn)
		if err := c.Bind(&tokenReq); err != nil {
			fmt.Println(err)
			return echo.ErrBadRequest
		}
		if tokenReq.RefreshToken == "" {
			fmt.Println("Refresh token is empty")
			return echo.ErrBadRequest
		}
		token, err := jwt.Parse(tokenReq.RefreshToken, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("Unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(os.Getenv("JWT_SECRET")), nil
		})
		if err != nil {
			fmt.Println(err)
			return echo.ErrBadRequest
		}
		if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
			db := c.Get("__db").(*gorm.DB)
			data, errConvert := claims["sub"].(string)
			if !errConvert {
				fmt.Println("Cannot convert sub to string!", err)
				return echo.ErrInternalServerError
			}
			userId, err := strconv.Atoi(data)
			if err != nil {
				fmt.Println("Error parsing sub of the user!!", err)
				return echo.ErrInternalServerError
			}
			if userId < 1 {
				fmt.Println("Refresh: sub is:", userId)
				return echo.ErrBadRequest
			}
			var user *models.UserAccount
			result := db.First(&user, userId)
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				fmt.Println("Requested user not found!", userId)
				return echo.ErrForbidden
			}
			if result.Error != nil {
				fmt.Println("Error getting user while refreshing token", userId)
				return echo.ErrInternalServerError
			}
			if user.Banned {
				return echo.ErrUnauthorized
			}

			t := GenerateUserToken(fmt.Sprint(userId), c)
			rt, err := GenerateRefreshToken(fmt.Sprint(userId))
			if err != nil {
				fmt.Println("Error refreshing token ", err)
				return echo.ErrInternalServerError
			}
			return c.JSON(http.StatusOK, echo.Map{
				"access_token":  t,
				"refresh_token": rt,
			})
		}
		return err
	})

	g.GET("/me", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)

		var garmentCount int64
		if err := db.Model(&models.Garment{}).Where("owner_id = ? AND archived = false", user.ID).Count(&garmentCount).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something went wrong"})
		}
		var lookCount int64
		if err := db.Model(&models.OutfitLook{}).Where("owner_id = ?", user.ID).Count(&lookCount).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something went wrong"})
		}
		return c.JSON(http.StatusOK, models.UserMeInfoOut{
			Id:                   UIntToStr(user.ID),
			Name:                 user.Name,
			Email:                user.Email,
			AvatarURL:            user.AvatarUrl,
			ReceiveNotifications: user.ReceiveNotifications,
			Subscription:         user.Subscription,
			GarmentCount:         garmentCount,
			LookCount:            lookCount,
		})
	}, echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))), UserMiddleware)

	g.POST("/settings", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		var settingsIn = new(models.UserSettingsIn)
		db := c.Get("__db").(*gorm.DB)
		if err := c.Bind(settingsIn); err != nil {
			return err
		}
		user.ReceiveNotifications = settingsIn.ReceiveNotifications
		user.DailyOutfitEnabled = settingsIn.DailyOutfitEnabled
		db.Save(&user)
		return c.JSON(http.StatusOK, settingsIn)
	}, echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))), UserMiddleware)

	g.POST("/register-push", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)
		var tokenRequest = new(models.UserPushIn)
		if err := c.Bind(tokenRequest); err != nil {
			return err
		}
		if !models.ValidatePlatformRaw(tokenRequest.Platform) {
			return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Please provide proper platform parameter"})
		}
		var pushData models.UserPushToken = models.UserPushToken{
			Platform:      models.ScanPlatform(tokenRequest.Platform),
			Token:         tokenRequest.Token,
			UserAccountID: user.ID,
			Active:        true,
		}

		// same token/device can sign in to diff accs and still receive pushes
		result := db.Where("token = ? and user_account_id = ?", tokenRequest.Token, user.ID).FirstOrCreate(&pushData)
		if result.Error != nil {
			log.Println(result.Error)
			return echo.ErrInternalServerError
		}
		if result.RowsAffected >= 1 {
			fmt.Println("Token created for user ", user.ID, "Platform: ", tokenRequest.Platform)
		}
		fmt.Println("Push id ", pushData.ID, " Token ", pushData.Token, " Platform: ", pushData.Platform, "User ID:", pushData.UserAccountID)
		return c.JSON(http.StatusOK, echo.Map{
			"message": "registered",
			"push_id": pushData.ID,
		})
	}, echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))), UserMiddleware)

	g.POST("/delete-push", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)
		var tokenRequest = new(models.UserPushIn)
		if err := c.Bind(tokenRequest); err != nil {
			return err
		}
		if !models.ValidatePlatformRaw(tokenRequest.Platform) {
			return c.JSON(http.StatusForbidden, map[string]interface{}{"message": "Please provide proper platform parameter"})
		}
		result := db.Where("token = ? and user_account_id = ? and platform = ?", tokenRequest.Token, user.ID, tokenRequest.Platform).Delete(&models.UserPushToken{})
		if result.Error != nil {
			log.Println(result.Error)
			return echo.ErrInternalServerError
		}
		if result.RowsAffected >= 1 {
			fmt.Println("Token deleted for user ", user.ID, "Platform: ", tokenRequest.Platform)
		}
		return c.JSON(http.StatusOK, echo.Map{
			"message": "deleted",
			"deleted": result.RowsAffected > 0,
		})
	}, echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))), UserMiddleware)

	g.POST("/logout", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)
		var tokenRequest = new(models.UserPushIn)
		if err := c.Bind(tokenRequest); err != nil {
			return err
		}
		db.Where("user_account_id = ? and token = ?", user.ID, tokenRequest.Token).Delete(&models.UserPushToken{})
		return c.JSON(http.StatusOK, echo.Map{
			"message": "logged out",
		})
	}, echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))), UserMiddleware)

	g.POST("/delete-account", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		db := c.Get("__db").(*gorm.DB)
		now := time.Now()
		user.ConfirmedDeleteDate = &now
		db.Save(user)
		return c.JSON(http.StatusOK, echo.Map{
			"message": "scheduled for deletion",
		})
	}, echojwt.JWT([]byte(os.Getenv("JWT_SECRET"))), UserMiddleware)
}
