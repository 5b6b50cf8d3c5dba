package main

import (
	"context"
	"log"
	"os"

	"prismstyleapi/dbhelper"
	"prismstyleapi/services"
	"prismstyleapi/tasks"

	firebase "firebase.google.com/go/v4"
	"github.com/hibiken/asynq"
)

func NewDailyOutfitTask() *asynq.Task {
	return asynq.NewTask("style:daily_outfit", []byte{})
}

func runScheduler() {
	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")}, &asynq.SchedulerOpts{
		LogLevel: asynq.InfoLevel,
	})

	scheduled := []struct {
		cron string
		task *asynq.Task
		desc string
	}{
		{
			cron: "0 8 * * *", // 8:00 AM daily
			task: NewDailyOutfitTask(),
			desc: "Outfit of the day notifications",
		},
	}

	for _, t := range scheduled {
		entryID, err := scheduler.Register(t.cron, t.task)
		if err != nil {
			log.Fatalf("Failed to register task '%s': %v", t.desc, err)
		}
		log.Printf("Registered task '%s' with ID: %s, cron: %s", t.desc, entryID, t.cron)
	}

	log.Println("Starting scheduler...")
	if err := scheduler.Run(); err != nil {
		log.Fatalf("Scheduler failed: %v", err)
	}
}

func main() {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")},
		asynq.Config{Concurrency: 10, Queues: map[string]int{
			"generate": 7,
			"default":  3,
		}},
	)
	awsService := &services.AWSService{}
	vision := services.GeminiVisionService{}
	err := awsService.InitPresignClient(context.Background())
	if err != nil {
		log.Fatal("[Queue] Failed to initialize AWS provider: S3")
	}
	app, err := firebase.NewApp(context.Background(), nil)
	if err != nil {
		log.Fatalf("error initializing firebase app: %v\n", err)
		return
	}
	profileRepo := services.NewStyleProfileRepository()

	mux := asynq.NewServeMux()
	db := dbhelper.SetupDB()
	mux.HandleFunc("generate:analyze_look", func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleAnalyzeLookTask(ctx, t, db, vision, awsService, app)
	})
	mux.HandleFunc("generate:analyze_garment", func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleAnalyzeGarmentTask(ctx, t, db, vision, awsService)
	})
	mux.HandleFunc("style:daily_outfit", func(ctx context.Context, t *asynq.Task) error {
		return tasks.ScheduledDailyOutfitTask(ctx, t, db, app, profileRepo)
	})

	go runScheduler()
	if err := srv.Run(mux); err != nil {
		log.Fatal(err)
	}
}
