package test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"prismstyleapi/models"
	"prismstyleapi/services"

	"github.com/golang-jwt/jwt/v4"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateUserToken(userPk string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userPk,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		log.Fatalf("Error when signing user token for %s. Error %s ", userPk, err)
	}
	return t
}

func NewJSONAuthRequest(method string, target string, userPk string, param interface{}) *http.Request {
	log.Println(JsonString(param))
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func NewJSONAuthRequestRaw(method string, target string, userPk string, json string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(json))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func Int64Pointer(i int64) *int64 {
	return &i
}

func NewRefString(data string) *string {
	return &data
}

func FakeUser(db *gorm.DB) *models.UserAccount {
	user := &models.UserAccount{
		Name:      "OurName",
		Email:     "email@example.com",
		GoogleID:  "12232",
		Platform:  models.PlatformIOS,
		LastIp:    "123.122.122.122",
		Status:    "FINISHED_AUTH",
		AvatarUrl: "pictureurl",
	}
	db.Create(&user)
	tokenDb := models.UserPushToken{
		UserAccountID: user.ID,
		Platform:      "android",
		Token:         "cX-UZ3zwQEiPt-2GJkG2gA:APA91bGqRflaGrJrnynhRwZ442HdgUjVcO7mWMFnx6IwAdJ9RRKopvSP4QU7hbvTmk1XAp8XGvtHZLvo5JmOPTVKBbGqqvhfbZWKlXA9csEjx1hgpNvrWepU-rqG1sxS8_WCF5cGZchf",
		Active:        true,
	}
	db.Save(&tokenDb)
	return user
}

func FakeUserV2(db *gorm.DB, userName string, email string) *models.UserAccount {
	if email == "" {
		email = "email@example.com"
	}
	user := &models.UserAccount{
		Name:      userName,
		Email:     email,
		GoogleID:  "12232",
		Platform:  models.PlatformIOS,
		LastIp:    "123.122.122.122",
		Status:    "FINISHED_AUTH",
		AvatarUrl: "pictureurl",
	}
	db.Create(&user)
	return user
}

func FakeGarment(db *gorm.DB, ownerID uint, category models.GarmentCategory, formality models.Formality, color string) *models.Garment {
	garment := &models.Garment{
		Name:         fmt.Sprintf("My %s", category),
		Category:     category,
		Formality:    formality,
		Season:       models.SeasonAll,
		PrimaryColor: color,
		OwnerID:      ownerID,
		ImageStatus:  "uploaded",
	}
	db.Create(&garment)
	return garment
}

type GoogleServiceMock struct{}

func (gsm GoogleServiceMock) ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error) {
	return &idtoken.Payload{Issuer: "Issue", Audience: "AAA", Expires: 119919191919, IssuedAt: 12312321321, Subject: "fake@example.com", Claims: map[string]interface{}{
		"email":   "fake@example.com",
		"picture": "pictureurl",
		"name":    "Fake Person",
		"sub":     "123googleid",
	}}, nil
}

func (gsm GoogleServiceMock) GetUserSubscriptionStatus(ctx context.Context, appUserId string) ([]byte, error) {
	data := `
	{
		"request_date": "2024-05-11T06:50:56Z",
		"subscriber": {
		  "entitlements": {
			"Pro": {
			  "expires_date": "2029-05-11T06:51:15Z",
			  "product_identifier": "prostandard",
			  "purchase_date": "2024-05-11T06:49:05Z"
			}
		  },
		  "management_url": "https://play.google.com/store/account/subscriptions",
		  "subscriptions": {}
		}
	  }
	  `
	return []byte(data), nil
}

type AWSProviderMock struct {
	MockUrl string
}

func (awsService AWSProviderMock) InitPresignClient(ctx context.Context) error {
	return nil
}

func (awsService AWSProviderMock) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {
	return fmt.Sprintf("https://fakebucketurl.com/%s", fileName), nil
}

func (awsService AWSProviderMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	return awsService.MockUrl, nil
}

// URLCacheMock skips caching entirely and returns a deterministic URL.
type URLCacheMock struct {
	MockUrl string
	Err     error
}

func (m URLCacheMock) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return fmt.Sprintf("%s/%s", m.MockUrl, objectKey), nil
}

type LookVisionMock struct{}

func (m LookVisionMock) AnalyzeLookPhoto(filePath string, modelName services.LLMModelName) (*services.LLMResponse, error) {
	return &services.LLMResponse{Response: `{
		"quality_score": 0.85,
		"full_outfit": true,
		"dominant_colors": ["#1B2A4A", "#FFFFFF"],
		"detected_items": ["top", "bottom", "footwear"],
		"occasion_hint": "office"
		}`,
		InputTokenCount:    10,
		TotalTokenCount:    11,
		ThoughtsTokenCount: 12,
		OutputTokenCount:   13,
	}, nil
}

func (m LookVisionMock) AnalyzeGarmentPhoto(filePath string, modelName services.LLMModelName) (*services.LLMResponse, error) {
	return &services.LLMResponse{Response: `{
		"name": "Navy blazer",
		"category": "outerwear",
		"formality": "business",
		"season": "all",
		"primary_color": "#1B2A4A",
		"secondary_color": "",
		"pattern": "solid",
		"material": "wool"
		}`,
		InputTokenCount:    10,
		TotalTokenCount:    11,
		ThoughtsTokenCount: 12,
		OutputTokenCount:   13,
	}, nil
}
