// Command issue_token signs a development JWT for exercising the protected
// endpoints locally. It reads the same configuration as the API so tokens
// verify against the running server.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/noah-isme/sma-presensi-api/internal/models"
	"github.com/noah-isme/sma-presensi-api/internal/service"
	"github.com/noah-isme/sma-presensi-api/pkg/config"
)

func main() {
	var (
		userID string
		name   string
		role   string
	)

	flag.StringVar(&userID, "user", "dev-user", "user ID claim")
	flag.StringVar(&name, "name", "Developer", "display name claim")
	flag.StringVar(&role, "role", string(models.RoleAdmin), "role claim (admin|teacher|student)")
	flag.Parse()

	switch models.UserRole(role) {
	case models.RoleAdmin, models.RoleTeacher, models.RoleStudent:
	default:
		log.Fatalf("unknown role %q", role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	token, err := service.NewAuthService(cfg.JWT).IssueToken(userID, name, models.UserRole(role))
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}

	fmt.Println(token)
}
