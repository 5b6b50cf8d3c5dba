package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"prismstyleapi/models"
	"prismstyleapi/recommender"
	"prismstyleapi/services"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type AnalyzeLookPayload struct {
	LookID uint `json:"look_id"`
}
type AnalyzeGarmentPayload struct {
	GarmentID uint `json:"garment_id"`
}

func NewAnalyzeLookTask(lookID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(AnalyzeLookPayload{LookID: lookID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask("generate:analyze_look", payload), nil
}

func NewAnalyzeGarmentTask(garmentID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(AnalyzeGarmentPayload{GarmentID: garmentID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask("generate:analyze_garment", payload), nil
}

// downloadPhoto fetches the stored photo through a presigned R2 read link and
// writes it to a temp file for the vision upload.
func downloadPhoto(awsService services.AWSServiceProvider, imageKey string, localName string) (string, error) {
	bucketName := services.GetEnv("R2_BUCKET_NAME", "")
	readURL, err := awsService.GetPresignedR2FileReadURL(context.Background(), bucketName, imageKey)
	if err != nil {
		return "", fmt.Errorf("error presigning read url for %s: %v", imageKey, err)
	}
	data, err := services.ReadFileFromUrl(readURL)
	if err != nil {
		return "", fmt.Errorf("error downloading %s: %v", imageKey, err)
	}
	return services.CreateTempFile(data, localName)
}

func cleanAIResponseText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func saveLookAnalysisFail(db *gorm.DB, look models.OutfitLook, msg string, shouldRetry bool) error {
	look.AnalysisRetryTimes = look.AnalysisRetryTimes + 1
	look.AnalysisErrorMessage = &msg
	if !shouldRetry || look.AnalysisRetryTimes >= 3 {
		look.AnalysisStatus = "failed"
	}
	tx := db.Omit("alert_when_analyzed").Save(&look)
	if tx.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Fail Look %v] Error on saving look for failed status", look.ID))
		return tx.Error
	}
	return nil
}

func HandleAnalyzeLookTask(ctx context.Context, t *asynq.Task, db *gorm.DB, vision services.LookVisionProvider, awsService services.AWSServiceProvider, fbApp *firebase.App) error {
	var payload AnalyzeLookPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	fmt.Printf("[Look: %v] Analyzing photo\n", payload.LookID)

	var look models.OutfitLook
	res := db.First(&look, payload.LookID)
	if res.Error != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on retrieving look for analysis %v", payload.LookID))
		return res.Error
	}
	if look.AnalysisStatus == "completed" {
		fmt.Printf("[Look: %v] Already analyzed, skipping\n", look.ID)
		return nil
	}
	if look.ImageURL == nil || *look.ImageURL == "" {
		sentry.CaptureException(fmt.Errorf("[Look: %v] Photo key is empty", look.ID))
		saveLookAnalysisFail(db, look, "Photo was not uploaded for this look", false)
		return nil
	}

	filePath, err := downloadPhoto(awsService, *look.ImageURL, fmt.Sprintf("look-%v.jpg", look.ID))
	if err != nil {
		fmt.Printf("[Look: %v] Error downloading photo %v\n", look.ID, err)
		sentry.CaptureException(fmt.Errorf("[Look: %v] %v", look.ID, err))
		saveLookAnalysisFail(db, look, "Could not read the uploaded photo, please re-upload", true)
		return err
	}
	defer os.Remove(filePath)

	llmResponse, err := vision.AnalyzeLookPhoto(filePath, services.Flash25)
	if err != nil {
		fmt.Printf("[Look: %v] Vision error %v\n", look.ID, err)
		sentry.CaptureException(fmt.Errorf("[Look: %v] Vision error: %v", look.ID, err))
		if strings.Contains(err.Error(), "content violation") {
			saveLookAnalysisFail(db, look, "The photo did not pass our content check", false)
			return nil
		}
		saveLookAnalysisFail(db, look, "Photo analysis failed, please try again", true)
		return err
	}

	var visionResult services.LookVisionResponse
	cleaned := cleanAIResponseText(llmResponse.Response)
	if err := json.Unmarshal([]byte(cleaned), &visionResult); err != nil {
		fmt.Printf("[Look: %v] Malformed vision response: %v %s\n", look.ID, err, cleaned)
		sentry.CaptureException(fmt.Errorf("[Look: %v] Malformed vision response: %v", look.ID, err))
		saveLookAnalysisFail(db, look, "Photo analysis returned an unexpected result, please try again", true)
		return err
	}

	quality := visionResult.QualityScore
	if quality < 0 {
		quality = 0
	}
	if quality > 1 {
		quality = 1
	}
	look.QualityScore = &quality
	look.FullOutfit = services.BoolPointer(visionResult.FullOutfit)
	look.DominantColors = pq.StringArray(visionResult.DominantColors)
	look.AnalysisStatus = "completed"
	look.AnalysisErrorMessage = nil
	if err := db.Omit("alert_when_analyzed").Save(&look).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[Look: %v] Error saving analysis result: %v", look.ID, err))
		return err
	}
	fmt.Printf("[Look: %v] Analysis done, quality %.2f full outfit %v colors %v\n", look.ID, quality, visionResult.FullOutfit, visionResult.DominantColors)

	if look.AlertWhenAnalyzed {
		services.SendNotification(fbApp, db, look.OwnerID,
			"Your look is ready",
			fmt.Sprintf("We finished analyzing your %q look", look.Occasion),
			map[string]string{"look_id": fmt.Sprintf("%d", look.ID), "type": "look_analyzed"})
	}
	return nil
}

func HandleAnalyzeGarmentTask(ctx context.Context, t *asynq.Task, db *gorm.DB, vision services.LookVisionProvider, awsService services.AWSServiceProvider) error {
	var payload AnalyzeGarmentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	fmt.Printf("[Garment: %v] Auto-tagging photo\n", payload.GarmentID)

	var garment models.Garment
	res := db.First(&garment, payload.GarmentID)
	if res.Error != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on retrieving garment for tagging %v", payload.GarmentID))
		return res.Error
	}
	if garment.ImageURL == nil || *garment.ImageURL == "" {
		sentry.CaptureException(fmt.Errorf("[Garment: %v] Photo key is empty", garment.ID))
		return nil
	}

	filePath, err := downloadPhoto(awsService, *garment.ImageURL, fmt.Sprintf("garment-%v.jpg", garment.ID))
	if err != nil {
		fmt.Printf("[Garment: %v] Error downloading photo %v\n", garment.ID, err)
		sentry.CaptureException(fmt.Errorf("[Garment: %v] %v", garment.ID, err))
		return err
	}
	defer os.Remove(filePath)

	llmResponse, err := vision.AnalyzeGarmentPhoto(filePath, services.FlashLite25)
	if err != nil {
		fmt.Printf("[Garment: %v] Vision error %v\n", garment.ID, err)
		sentry.CaptureException(fmt.Errorf("[Garment: %v] Vision error: %v", garment.ID, err))
		if strings.Contains(err.Error(), "content violation") {
			return nil
		}
		return err
	}

	var visionResult services.GarmentVisionResponse
	cleaned := cleanAIResponseText(llmResponse.Response)
	if err := json.Unmarshal([]byte(cleaned), &visionResult); err != nil {
		fmt.Printf("[Garment: %v] Malformed vision response: %v %s\n", garment.ID, err, cleaned)
		sentry.CaptureException(fmt.Errorf("[Garment: %v] Malformed vision response: %v", garment.ID, err))
		return err
	}

	// the model only fills what the user left blank, manual tags win
	if garment.Name == "" && visionResult.Name != "" {
		garment.Name = visionResult.Name
	}
	if visionResult.SecondaryColor != "" && garment.SecondaryColor == nil {
		garment.SecondaryColor = services.StrPointer(visionResult.SecondaryColor)
	}
	if visionResult.Pattern != "" && garment.Pattern == nil {
		garment.Pattern = services.StrPointer(visionResult.Pattern)
	}
	if visionResult.Material != "" && garment.Material == nil {
		garment.Material = services.StrPointer(visionResult.Material)
	}
	garment.ImageStatus = "uploaded"
	if err := db.Save(&garment).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[Garment: %v] Error saving tag result: %v", garment.ID, err))
		return err
	}
	fmt.Printf("[Garment: %v] Auto-tagging done: %s %s/%s\n", garment.ID, garment.Name, visionResult.Category, visionResult.Formality)
	return nil
}

// ScheduledDailyOutfitTask pushes an outfit-of-the-day suggestion to every
// opted-in user.
func ScheduledDailyOutfitTask(ctx context.Context, t *asynq.Task, db *gorm.DB, fbApp *firebase.App, profiles services.StyleProfileProvider) error {
	fmt.Printf("[Daily Outfit] Processing for all users\n")

	var users []models.UserAccount
	result := db.Where("banned = ? AND daily_outfit_enabled = ?", false, true).Find(&users)
	if result.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Daily Outfit] Error fetching users: %v", result.Error))
		return result.Error
	}
	fmt.Printf("[Daily Outfit] Found %d users to send suggestions\n", len(users))

	engine := recommender.NewEngine(recommender.DefaultWeights())
	for _, user := range users {
		err := sendDailyOutfitToUser(ctx, db, fbApp, engine, profiles, user.ID)
		if err != nil {
			fmt.Printf("[Daily Outfit] Failed to send to user %d: %v\n", user.ID, err)
			sentry.CaptureException(fmt.Errorf("[Daily Outfit] Failed to send to user %d: %v", user.ID, err))
			continue
		}
		time.Sleep(1 * time.Second) // To avoid hitting rate limits
	}
	return nil
}

func dailyOccasionTitle(now time.Time) (string, string) {
	switch {
	case now.Hour() < 12:
		return "Day out", "morning"
	case now.Hour() < 18:
		return "Day out", "afternoon"
	default:
		return "Evening out", "evening"
	}
}

func sendDailyOutfitToUser(ctx context.Context, db *gorm.DB, fbApp *firebase.App, engine *recommender.Engine, profiles services.StyleProfileProvider, userID uint) error {
	var garments []models.Garment
	if err := db.Where("owner_id = ? AND archived = false", userID).Find(&garments).Error; err != nil {
		return fmt.Errorf("error fetching garments: %v", err)
	}
	if len(garments) < 2 {
		fmt.Printf("[Daily Outfit] User %d has too few garments, skipping\n", userID)
		return nil
	}
	store, err := profiles.Load(db, userID)
	if err != nil {
		return fmt.Errorf("error loading style profile: %v", err)
	}

	now := time.Now()
	title, timeOfDay := dailyOccasionTitle(now)
	result, err := engine.RecommendDaily(ctx, recommender.RecommendInput{
		Occasion: recommender.Occasion{Title: title, TimeOfDay: timeOfDay},
		Garments: garments,
		Prefs:    store,
		Now:      now,
	}, now.YearDay())
	if err != nil {
		return err
	}
	if result.Confidence == 0 {
		fmt.Printf("[Daily Outfit] No confident suggestion for user %d, skipping\n", userID)
		return nil
	}
	if err := profiles.Save(db, userID, store.Data()); err != nil {
		fmt.Printf("[Daily Outfit] Failed saving profile for user %d: %v\n", userID, err)
	}

	garmentIds := make(pq.Int64Array, 0, len(result.GarmentIDs))
	for _, id := range result.GarmentIDs {
		garmentIds = append(garmentIds, int64(id))
	}
	record := models.RecommendationRecord{
		OwnerID:    userID,
		Occasion:   title,
		TimeOfDay:  timeOfDay,
		Verdict:    result.Verdict,
		Rationale:  result.Rationale,
		Confidence: result.Confidence,
		GarmentIDs: garmentIds,
		LookID:     result.BestLookID,
		StyleTags:  pq.StringArray(result.StyleTags),
	}
	if err := db.Create(&record).Error; err != nil {
		sentry.CaptureException(fmt.Errorf("[Daily Outfit] Error persisting suggestion for user %d: %v", userID, err))
	}

	message := result.Verdict
	if result.Suggestion != nil {
		message = fmt.Sprintf("%s: %s", result.Verdict, *result.Suggestion)
	}
	if len(message) > 100 {
		message = message[:97] + "..."
	}
	fmt.Println("[Daily Outfit] Sending suggestion to user", userID, "recommendation", record.ID)
	services.SendNotification(fbApp, db, userID, "Outfit of the day", message,
		map[string]string{"recommendation_id": fmt.Sprintf("%d", record.ID), "type": "daily_outfit"})
	return nil
}
