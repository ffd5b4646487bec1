//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/uniflow/uniflow/internal/auth"
	"github.com/uniflow/uniflow/internal/database"
	"github.com/uniflow/uniflow/internal/database/models"
	"github.com/uniflow/uniflow/pkg/config"
	"github.com/uniflow/uniflow/pkg/util"
)

// Seeds a demo organization: an owner plus two department reviewers and one
// sample proposal, so the submit fan-out has somewhere to go.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" {
		email = "admin@example.com"
	}
	if password == "" {
		password = "admin123!"
	}

	owner, err := authService.Register(context.Background(), auth.RegisterInput{
		Email:    email,
		Password: password,
		Name:     "Admin",
		OrgName:  "Demo Municipality",
		OrgTaxID: "NIF-500100200",
	})
	if err != nil {
		if err == auth.ErrUserExists {
			fmt.Printf("Admin user already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to create admin user: %v", err)
	}

	reviewers := []auth.RegisterInput{
		{Email: "legal@example.com", Name: "Legal Reviewer", Department: "Legal"},
		{Email: "finance@example.com", Name: "Finance Reviewer", Department: "Finance"},
	}
	for _, r := range reviewers {
		r.Password = password
		r.OrgTaxID = "NIF-500100200"
		resp, err := authService.Register(context.Background(), r)
		if err != nil {
			log.Fatalf("failed to create %s: %v", r.Email, err)
		}
		// Reviewers join as viewers; promote them so they can work revisions.
		if err := db.Model(resp.User).Update("role", models.RoleEditor).Error; err != nil {
			log.Fatalf("failed to promote %s: %v", r.Email, err)
		}
	}

	proposal := models.Proposal{
		UserID:  owner.User.ID,
		Title:   "Road Maintenance Programme 2026",
		Content: "# Road Maintenance Programme 2026\n\nInitial problem statement: recurring potholes on the northern ring road.",
		Status:  models.ProposalStatusDraft,
	}
	if err := db.Create(&proposal).Error; err != nil {
		log.Fatalf("failed to create sample proposal: %v", err)
	}

	fmt.Printf("Seeded demo organization.\n")
	fmt.Printf("Owner: %s / %s\n", email, password)
	fmt.Printf("Token: %s\n", owner.Token)
}
