// Command tokengen prints a bearer token for the task service, signed with
// the server's JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dmehra2102/todokeeper/internal/infrastructure/config"
	"github.com/dmehra2102/todokeeper/pkg/auth"
)

func main() {
	subject := flag.String("subject", "owner", "token subject")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to JWT_EXPIRATION)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = cfg.JWTExpiration
	}

	token, err := auth.NewToken(cfg.JWTSecret, *subject, lifetime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
