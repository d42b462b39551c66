package main

import (
	"os"
	"time"

	"github.com/Rishiupp/pettrack-api/internal/config"
	"github.com/Rishiupp/pettrack-api/internal/constants"
	"github.com/Rishiupp/pettrack-api/internal/logger"
	"github.com/Rishiupp/pettrack-api/internal/models"
	"github.com/Rishiupp/pettrack-api/internal/repository"
	"github.com/Rishiupp/pettrack-api/internal/service"
)

const seedQRPoolSize = 500

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("failed to migrate database: %v", err)
	}

	userRepo := repository.NewUserRepository(models.DB)
	qrRepo := repository.NewQRCodeRepository(models.DB)
	orderRepo := repository.NewOrderRepository(models.DB)

	// Demo pet owner account.
	seedPhone := os.Getenv("PT_SEED_USER_PHONE")
	if seedPhone == "" {
		seedPhone = "+919000000001"
	}
	seedPassword := os.Getenv("PT_SEED_USER_PASSWORD")
	if seedPassword == "" {
		seedPassword = "pettrack-demo"
	}
	existing, err := userRepo.GetByPhone(seedPhone)
	if err != nil {
		stdLog.Fatalf("failed to look up seed user: %v", err)
	}
	if existing == nil {
		hash, err := service.HashPassword(seedPassword)
		if err != nil {
			stdLog.Fatalf("failed to hash seed password: %v", err)
		}
		now := time.Now()
		user := &models.User{
			Phone:        seedPhone,
			PasswordHash: hash,
			DisplayName:  "Demo Pet Owner",
			Role:         constants.UserRolePetOwner,
			Status:       constants.UserStatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := userRepo.Create(user); err != nil {
			stdLog.Fatalf("failed to create seed user: %v", err)
		}
		stdLog.Printf("created seed user: %s", seedPhone)
	} else {
		stdLog.Printf("seed user already exists: %s", seedPhone)
	}

	// Top up the pooled QR inventory.
	pooled, err := qrRepo.CountPooled()
	if err != nil {
		stdLog.Fatalf("failed to count pooled qr codes: %v", err)
	}
	if pooled < seedQRPoolSize {
		qrService := service.NewQRService(qrRepo, orderRepo)
		codes, err := qrService.GenerateBatch(seedQRPoolSize - int(pooled))
		if err != nil {
			stdLog.Fatalf("failed to generate qr pool: %v", err)
		}
		stdLog.Printf("minted %d pooled qr codes", len(codes))
	} else {
		stdLog.Printf("qr pool already holds %d codes", pooled)
	}
}
