package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go-pos-inventory/config"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/internal/service"
	"go-pos-inventory/pkg/database"
	"go-pos-inventory/pkg/jwt"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	username := flag.String("username", "", "store account to reset")
	password := flag.String("password", "", "new password (min 6 characters)")
	flag.Parse()

	if *username == "" || *password == "" {
		log.Fatal("usage: reset-password -username <name> -password <new password>")
	}

	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}
	cfg := config.LoadEnv()

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.Database)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	zlog, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("❌ Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// 3. Reset password and revoke existing sessions
	auth := service.NewAuthService(repository.NewUserRepo(db), jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTL), zlog)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := auth.ResetPassword(ctx, *username, *password); err != nil {
		log.Fatalf("❌ Failed to reset password for %s: %v", *username, err)
	}

	log.Printf("✅ Success! Password for %s has been reset; existing sessions were signed out", *username)
}
