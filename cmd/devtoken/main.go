// devtoken prints an access token signed with the configured private key, for
// calling a local API by hand.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"duka-service/internal/config"
	"duka-service/internal/pkg/jwt"

	"github.com/joho/godotenv"
)

func main() {
	userID := flag.Int64("user", 1, "user id")
	role := flag.String("role", jwt.RoleOwner, "owner, employee or super_admin")
	shopID := flag.Int64("shop", 0, "shop id, employees only")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	if cfg.JWT.PrivPath == "" {
		log.Fatal("JWT_PRIVATE_KEY_PATH is not set")
	}

	m, err := jwt.LoadAndBuild(cfg.JWT)
	if err != nil {
		log.Fatalf("failed to load keys: %v", err)
	}

	switch *role {
	case jwt.RoleOwner, jwt.RoleEmployee, jwt.RoleSuperAdmin:
	default:
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	token, _, err := m.Generator.GenerateAccessToken(*userID, *role, *shopID)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Println(token)
}
