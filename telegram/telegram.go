package telegram

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"prismstyleapi/models"
	"prismstyleapi/recommender"
	"prismstyleapi/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"
)

var usernames string = os.Getenv("TG_ADMINS") //separated by comma from env

func EscapeMessage(message string) string {
	r := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return r.Replace(message)
}

// RunStyleBot answers quick recommendation queries from admin accounts.
// Message format: `<user_id> <occasion title>`, e.g. `42 office party`.
func RunStyleBot(db *gorm.DB, profiles services.StyleProfileProvider) {
	bot, err := tgbotapi.NewBotAPI(os.Getenv("TG_TOKEN"))
	if err != nil {
		println("Error tg bot init")
		log.Panic(err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := bot.GetUpdatesChan(u)
	engine := recommender.NewEngine(recommender.DefaultWeights())

	for update := range updates {
		if update.Message == nil {
			continue
		}
		if !slices.Contains(strings.Split(usernames, ","), update.Message.From.UserName) {
			continue
		}
		log.Printf("[%s] %s", update.Message.From.UserName, update.Message.Text)

		if update.Message.Command() == "start" {
			msg := tgbotapi.NewMessage(update.Message.Chat.ID, "Send `<user_id> <occasion>` to get an outfit suggestion for that user's wardrobe.\nExample:\n`42 office party`")
			msg.ParseMode = "markdown"
			bot.Send(msg)
			continue
		}

		input := strings.Fields(strings.TrimSpace(update.Message.Text))
		if len(input) < 2 {
			msg := tgbotapi.NewMessage(update.Message.Chat.ID, fmt.Sprintf("Bad request: '%s'\nSend `<user_id> <occasion>`", update.Message.Text))
			msg.ParseMode = "markdown"
			bot.Send(msg)
			continue
		}
		userID, err := strconv.Atoi(input[0])
		if err != nil || userID < 1 {
			msg := tgbotapi.NewMessage(update.Message.Chat.ID, "First word must be a user id")
			bot.Send(msg)
			continue
		}
		occasion := strings.Join(input[1:], " ")

		reply := recommendFor(db, profiles, engine, uint(userID), occasion)
		msg := tgbotapi.NewMessage(update.Message.Chat.ID, EscapeMessage(reply))
		msg.ReplyToMessageID = update.Message.MessageID
		bot.Send(msg)
	}
}

func recommendFor(db *gorm.DB, profiles services.StyleProfileProvider, engine *recommender.Engine, userID uint, occasion string) string {
	var garments []models.Garment
	if err := db.Where("owner_id = ? AND archived = false", userID).Find(&garments).Error; err != nil {
		return fmt.Sprintf("Failed to load wardrobe for user %v: %v", userID, err)
	}
	var looks []models.OutfitLook
	if err := db.Where("owner_id = ?", userID).Find(&looks).Error; err != nil {
		return fmt.Sprintf("Failed to load looks for user %v: %v", userID, err)
	}
	store, err := profiles.Load(db, userID)
	if err != nil {
		return fmt.Sprintf("Failed to load style profile for user %v: %v", userID, err)
	}

	result, err := engine.Recommend(context.Background(), recommender.RecommendInput{
		Occasion: recommender.Occasion{Title: occasion},
		Garments: garments,
		Looks:    looks,
		Prefs:    store,
		Now:      time.Now(),
	})
	if err != nil {
		return fmt.Sprintf("Recommendation failed: %v", err)
	}

	reply := strings.Builder{}
	reply.WriteString(fmt.Sprintf("%s\n%s\nConfidence: %.0f\n", result.Verdict, result.Rationale, result.Confidence))
	if result.Suggestion != nil {
		reply.WriteString(fmt.Sprintf("Outfit: %s\n", *result.Suggestion))
	}
	if len(result.GarmentIDs) > 0 {
		reply.WriteString(fmt.Sprintf("Garments: %v\n", result.GarmentIDs))
	}
	if result.BestLookID != nil {
		reply.WriteString(fmt.Sprintf("Matched look: #%v\n", *result.BestLookID))
	}
	return reply.String()
}
