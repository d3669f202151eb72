// Command admintoken issues an admin bearer JWT signed with the configured
// admin token secret.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/equihome/launchpad/internal/auth"
	"github.com/equihome/launchpad/internal/config"
)

func main() {
	email := flag.String("email", "", "admin email recorded as approver")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	if *email == "" {
		log.Fatal("-email is required")
	}

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	token, err := auth.NewManager(cfg.Admin.TokenSecret).IssueToken(*email, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
