// Command token mints an operator access token for the /v1 API using the
// same JWT settings as the api process.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ivr-platform/internal/auth"
	"ivr-platform/internal/config"
	"ivr-platform/pkg/logger"
)

func main() {
	var id auth.Identity
	flag.StringVar(&id.UserID, "user", "", "operator user id")
	flag.StringVar(&id.WorkspaceID, "workspace", "", "workspace id the token is scoped to")
	flag.StringVar(&id.Role, "role", "analyst", "operator role")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.App.Env)

	m, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}
	tok, err := m.Issue(time.Now(), id)
	if err != nil {
		log.Error("issue failed", "err", err)
		os.Exit(2)
	}
	fmt.Println(tok)
}
