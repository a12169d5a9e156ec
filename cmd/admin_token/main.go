// Mints an admin bearer token for the migrate/cleanup endpoints.
//
// Usage: go run ./cmd/admin_token [subject]
package main

import (
	"fmt"
	"os"

	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/config"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}

	subject := "ops"
	if len(os.Args) > 1 {
		subject = os.Args[1]
	}

	token, err := utils.GenerateToken(subject, true, cfg.JWTSecret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
