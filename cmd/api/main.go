package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	fbauth "firebase.google.com/go/v4/auth"

	"github.com/soundbridge/remote-projects-backend/config"
	"github.com/soundbridge/remote-projects-backend/internal/auth"
	"github.com/soundbridge/remote-projects-backend/internal/bootstrap"
	filesdomain "github.com/soundbridge/remote-projects-backend/internal/files/domain"
	filesrepo "github.com/soundbridge/remote-projects-backend/internal/files/repository"
	filessvc "github.com/soundbridge/remote-projects-backend/internal/files/service"
	"github.com/soundbridge/remote-projects-backend/internal/files/storage"
	"github.com/soundbridge/remote-projects-backend/internal/files/uploadsession"
	"github.com/soundbridge/remote-projects-backend/internal/janitor"
	msgrepo "github.com/soundbridge/remote-projects-backend/internal/messages/repository"
	msgsvc "github.com/soundbridge/remote-projects-backend/internal/messages/service"
	"github.com/soundbridge/remote-projects-backend/internal/messages/unread"
	projrepo "github.com/soundbridge/remote-projects-backend/internal/projects/repository"
	projsvc "github.com/soundbridge/remote-projects-backend/internal/projects/service"
	"github.com/soundbridge/remote-projects-backend/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.OpenDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	var fbClient *fbauth.Client
	if cfg.Auth.FirebaseCredentialsFile != "" {
		fbClient, err = auth.InitializeFirebase(ctx, cfg.Auth.FirebaseCredentialsFile)
		if err != nil {
			log.Fatalf("firebase: %v", err)
		}
	} else {
		log.Println("[auth] firebase disabled, trusting X-User-Id header")
	}

	userRepo := users.NewRepo(db)
	projectRepo := projrepo.NewRepo(db)
	fileRepo := filesrepo.NewRepo(db)
	messageRepo := msgrepo.NewRepo(db)
	sessions := uploadsession.NewRepo(rdb)

	projectSvc := projsvc.NewProjectService(projectRepo)
	fileSvc := filessvc.NewFileService(projectRepo, fileRepo, sessions, objects, filesdomain.Policy{
		AcceptedExtensions: cfg.Uploads.AcceptedExtensions,
		MaxFileSizeMB:      cfg.Uploads.MaxFileSizeMB,
		MaxFilesPerType:    cfg.Uploads.MaxFilesPerType,
	})
	messageSvc := msgsvc.NewMessageService(projectRepo, messageRepo, unread.NewCounter(rdb))

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		Config:       cfg,
		DB:           db,
		Redis:        rdb,
		FirebaseAuth: fbClient,
		UserRepo:     userRepo,
		ProjectSvc:   projectSvc,
		FileSvc:      fileSvc,
		FileCounter:  fileRepo,
		MessageSvc:   messageSvc,
	})

	sched := janitor.NewScheduler(sessions, projectSvc, cfg.App.AutoCompleteAfterDays)
	if err := sched.Start(); err != nil {
		log.Fatalf("janitor: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s (%s)", cfg.Server.Port, cfg.App.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
