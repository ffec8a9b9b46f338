package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"marinova/internal/config"
	"marinova/internal/db"
	"marinova/internal/repository"
)

const (
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorReset = "\033[0m"
)

// Recorre contra un servidor en marcha el camino completo de un usuario nuevo:
// registro, verificación, créditos gratuitos agotados, suscripción y logout.
// El token de verificación se lee del mismo almacenamiento que usa la API.
func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.StoreDriver == "memory" {
		log.Fatal("e2e check needs a shared store, STORE_DRIVER=memory lives inside the server process")
	}

	baseURL := os.Getenv("E2E_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + cfg.HTTPPort + cfg.APIPrefix
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	users, closeStore, err := db.OpenUserStore(ctx, db.StoreOptions{
		Driver:        cfg.StoreDriver,
		DatabaseURL:   cfg.DatabaseURL,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()

	emailAddr := fmt.Sprintf("alice.%s@%s", uuid.NewString()[:8], cfg.AllowedEmailDomain)
	fmt.Printf("%s[Target]%s %s as %s\n", colorCyan, colorReset, baseURL, emailAddr)

	if err := journey(ctx, newAPIClient(baseURL), users, emailAddr, cfg.FreeCredits); err != nil {
		fmt.Printf("%sFAIL%s %v\n", colorRed, colorReset, err)
		os.Exit(1)
	}
	fmt.Printf("%sPASS%s journey completed\n", colorGreen, colorReset)
}

func journey(ctx context.Context, client *apiClient, users repository.UserRepository, emailAddr string, freeCredits int) error {
	free := strconv.Itoa(freeCredits)

	res, err := client.run(ctx, step{
		Name:   "register",
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body:   map[string]string{"fullName": "Alice", "email": emailAddr, "password": "secret123"},
		Status: http.StatusCreated,
		Expect: map[string]string{
			"user.usageCredits":       free,
			"user.isEmailVerified":    "false",
			"user.subscriptionStatus": "free",
		},
	})
	if err != nil {
		return err
	}
	client.token = res.Body.Get("token").String()
	report("register")

	steps := []step{
		{
			Name: "credits before verification", Method: http.MethodGet, Path: "/usage/credits", Status: http.StatusOK,
			Expect: map[string]string{"usageCredits": free, "isEmailVerified": "false"},
		},
		{
			Name: "track while unverified", Method: http.MethodPost, Path: "/usage/track", Status: http.StatusForbidden,
			Body:   map[string]string{"feature": "forecast"},
			Expect: map[string]string{"requiresVerification": "true"},
		},
	}
	if err := runAll(ctx, client, steps); err != nil {
		return err
	}

	user, err := users.GetByEmail(ctx, strings.ToLower(emailAddr))
	if err != nil {
		return fmt.Errorf("load user from store: %w", err)
	}
	if user.VerificationToken == nil {
		return errors.New("user has no pending verification token")
	}

	steps = []step{
		{
			Name: "verify email", Method: http.MethodPost, Path: "/auth/verify-email", Status: http.StatusOK,
			Body:   map[string]string{"token": *user.VerificationToken},
			Expect: map[string]string{"user.isEmailVerified": "true"},
		},
		{
			Name: "chat on free plan", Method: http.MethodPost, Path: "/usage/track", Status: http.StatusForbidden,
			Body:   map[string]string{"feature": "chat"},
			Expect: map[string]string{"requiresSubscription": "true"},
		},
	}
	for left := freeCredits - 1; left >= 0; left-- {
		steps = append(steps, step{
			Name: fmt.Sprintf("track forecast (%d left)", left), Method: http.MethodPost, Path: "/usage/track", Status: http.StatusOK,
			Body:   map[string]string{"feature": "forecast"},
			Expect: map[string]string{"usageCredits": strconv.Itoa(left)},
		})
	}
	steps = append(steps,
		step{
			Name: "track with credits exhausted", Method: http.MethodPost, Path: "/usage/track", Status: http.StatusForbidden,
			Body:   map[string]string{"feature": "forecast"},
			Expect: map[string]string{"requiresSubscription": "true", "usageCredits": "0"},
		},
		step{
			Name: "subscribe international", Method: http.MethodPut, Path: "/usage/subscribe", Status: http.StatusOK,
			Body:   map[string]string{"plan": "international"},
			Expect: map[string]string{"subscriptionStatus": "international"},
		},
		step{
			Name: "chat on paid plan", Method: http.MethodPost, Path: "/usage/track", Status: http.StatusOK,
			Body:   map[string]string{"feature": "chat"},
			Expect: map[string]string{"subscriptionStatus": "international"},
		},
		step{
			Name: "me", Method: http.MethodGet, Path: "/auth/me", Status: http.StatusOK,
			Expect: map[string]string{"user.email": strings.ToLower(emailAddr)},
		},
		step{Name: "logout", Method: http.MethodPost, Path: "/auth/logout", Status: http.StatusOK},
		step{Name: "me after logout", Method: http.MethodGet, Path: "/auth/me", Status: http.StatusUnauthorized},
	)
	return runAll(ctx, client, steps)
}

func runAll(ctx context.Context, client *apiClient, steps []step) error {
	for _, s := range steps {
		if _, err := client.run(ctx, s); err != nil {
			return err
		}
		report(s.Name)
	}
	return nil
}

func report(name string) {
	fmt.Printf("%s[ok]%s %s\n", colorGreen, colorReset, name)
}
