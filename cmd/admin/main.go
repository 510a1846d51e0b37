package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"fanlink/backend/internal/config"
	"fanlink/backend/internal/models"
	"fanlink/backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	storageSvc := storage.NewStorageService(db, rdb)

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		fmt.Println("Commands: create-user, suspend, unsuspend, list-users")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "create-user":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin create-user <username> [display_name]")
			os.Exit(1)
		}
		displayName := os.Args[2]
		if len(os.Args) > 3 {
			displayName = os.Args[3]
		}
		user := &models.User{
			Username:        os.Args[2],
			DisplayName:     displayName,
			ReputationScore: config.InitialReputation,
		}
		if err := storageSvc.SaveUser(user); err != nil {
			log.Fatalf("Error creating user: %v", err)
		}
		fmt.Printf("User %s created with id %s.\n", user.Username, user.ID)

	case "suspend":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin suspend <user_id> [duration_in_hours]")
			os.Exit(1)
		}
		hours := 24
		if len(os.Args) > 3 {
			hours, err = strconv.Atoi(os.Args[3])
			if err != nil {
				fmt.Println("Invalid duration. Please provide an integer.")
				os.Exit(1)
			}
		}
		if err := storageSvc.SuspendUser(os.Args[2], time.Duration(hours)*time.Hour); err != nil {
			log.Fatalf("Error suspending user: %v", err)
		}
		fmt.Printf("User %s suspended for %dh.\n", os.Args[2], hours)

	case "unsuspend":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin unsuspend <user_id>")
			os.Exit(1)
		}
		if err := storageSvc.LiftSuspension(os.Args[2]); err != nil {
			log.Fatalf("Error lifting suspension: %v", err)
		}
		fmt.Printf("Suspension lifted for user %s.\n", os.Args[2])

	case "list-users":
		var users []models.User
		if err := db.Order("username asc").Find(&users).Error; err != nil {
			log.Fatalf("Error listing users: %v", err)
		}
		for _, u := range users {
			suspended, _ := storageSvc.IsUserSuspended(u.ID)
			flag := ""
			if suspended {
				flag = " [suspended]"
			}
			fmt.Printf("%s  %s  rep=%d%s\n", u.ID, u.Username, u.ReputationScore, flag)
		}

	default:
		fmt.Printf("Unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}
