package identity

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/innkeeplabs/innkeep-backend/pkg/config"
)

func TestMintAndParseHolderToken(t *testing.T) {
	cfg := config.IdentityConfig{
		JWTSecret: "secret",
		JWTIssuer: "innkeep-identity",
	}
	now := time.Now().UTC()
	holderID := uuid.New()
	propertyID := uuid.New()

	token, err := MintHolderToken(cfg, now, time.Hour, HolderClaims{
		HolderID:   holderID,
		PropertyID: &propertyID,
	})
	if err != nil {
		t.Fatalf("mint holder token: %v", err)
	}

	claims, err := ParseHolderToken(cfg, token)
	if err != nil {
		t.Fatalf("parse holder token: %v", err)
	}

	if claims.HolderID != holderID {
		t.Fatalf("expected holder_id %s, got %s", holderID, claims.HolderID)
	}
	if claims.PropertyID == nil || *claims.PropertyID != propertyID {
		t.Fatalf("property id not preserved")
	}
	if claims.Issuer != cfg.JWTIssuer {
		t.Fatalf("expected issuer %s, got %s", cfg.JWTIssuer, claims.Issuer)
	}
}

func TestParseHolderTokenRejectsWrongIssuer(t *testing.T) {
	minted, err := MintHolderToken(config.IdentityConfig{
		JWTSecret: "secret",
		JWTIssuer: "someone-else",
	}, time.Now(), time.Hour, HolderClaims{HolderID: uuid.New()})
	if err != nil {
		t.Fatalf("mint holder token: %v", err)
	}

	_, err = ParseHolderToken(config.IdentityConfig{
		JWTSecret: "secret",
		JWTIssuer: "innkeep-identity",
	}, minted)
	if err == nil || !strings.Contains(err.Error(), "issuer") {
		t.Fatalf("expected issuer error, got %v", err)
	}
}

func TestParseHolderTokenRejectsTamperedSignature(t *testing.T) {
	cfg := config.IdentityConfig{JWTSecret: "secret", JWTIssuer: "innkeep-identity"}
	minted, err := MintHolderToken(cfg, time.Now(), time.Hour, HolderClaims{HolderID: uuid.New()})
	if err != nil {
		t.Fatalf("mint holder token: %v", err)
	}

	other := config.IdentityConfig{JWTSecret: "different", JWTIssuer: cfg.JWTIssuer}
	if _, err := ParseHolderToken(other, minted); err == nil {
		t.Fatal("expected signature validation to fail")
	}
}
