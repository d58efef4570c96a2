// Command devtoken prints an access token for local testing. Tokens are
// normally issued by the HRIS auth service.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/cmlabs-hris/attendance-backend-go/internal/config"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/jwt"
)

func main() {
	employeeID := flag.String("employee", "", "employee ID to put in the token")
	role := flag.String("role", string(auth.RoleEmployee), "owner, manager or employee")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}
	if cfg.JWT.Secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET_KEY is required")
		os.Exit(1)
	}
	if *employeeID == "" || !auth.Role(*role).Valid() {
		flag.Usage()
		os.Exit(2)
	}

	token, _, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration).
		GenerateAccessToken(*employeeID, auth.Role(*role))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error generating token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
