// Package main provides a CLI tool for issuing development access tokens.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"restock/internal/core/actor"
	"restock/internal/core/id"
	"restock/internal/core/security"
)

func main() {
	userFlag := flag.String("user", "", "user ID (uuid, generated when empty)")
	businessFlag := flag.String("business", "", "business ID (uuid, required)")
	branchFlag := flag.String("branch", "", "branch ID (uuid, optional)")
	roleFlag := flag.String("role", string(actor.RoleManager), "role: owner, manager or staff")
	businessesFlag := flag.String("businesses", "", "comma-separated accessible business IDs (owners only)")
	ttlFlag := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fail("JWT_SECRET environment variable is required")
	}
	if *businessFlag == "" {
		fail("-business is required")
	}

	businessID, err := id.Parse(*businessFlag)
	if err != nil {
		fail("invalid business ID: %v", err)
	}

	userID := id.New()
	if *userFlag != "" {
		if userID, err = id.Parse(*userFlag); err != nil {
			fail("invalid user ID: %v", err)
		}
	}

	act := &actor.Context{
		UserID:     userID,
		BusinessID: businessID,
		Role:       actor.Role(*roleFlag),
	}

	if *branchFlag != "" {
		branchID, err := id.Parse(*branchFlag)
		if err != nil {
			fail("invalid branch ID: %v", err)
		}
		act.BranchID = &branchID
	}

	if *businessesFlag != "" {
		for _, raw := range strings.Split(*businessesFlag, ",") {
			bid, err := id.Parse(strings.TrimSpace(raw))
			if err != nil {
				fail("invalid accessible business ID %q: %v", raw, err)
			}
			act.AccessibleBusinessIDs = append(act.AccessibleBusinessIDs, bid)
		}
	}

	cfg := security.DefaultJWTConfig(secret)
	cfg.AccessTokenTTL = *ttlFlag

	token, expiresAt, err := security.NewJWTService(cfg).GenerateAccessToken(act)
	if err != nil {
		fail("generate token: %v", err)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "user=%s business=%s role=%s expires=%s\n",
		userID, businessID, act.Role, expiresAt.Format(time.RFC3339))
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
