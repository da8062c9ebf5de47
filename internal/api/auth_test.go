package api

import (
	"context"
	"strings"
	"testing"

	"github.com/clanktank/judge-engine/pkg/models"
)

func TestSignAndParseSessionRoundTrips(t *testing.T) {
	a := NewAuth(nil, nil, "id", "secret", "redirect", "", "", "test-signing-key", "", false)
	token, err := a.signSession(models.User{DiscordID: "42", Username: "alice"})
	if err != nil {
		t.Fatalf("signSession: %v", err)
	}

	claims, err := a.parseSession(token)
	if err != nil {
		t.Fatalf("parseSession: %v", err)
	}
	if claims.DiscordID != "42" || claims.Username != "alice" {
		t.Errorf("claims = %+v, want discord_id=42 username=alice", claims)
	}
}

func TestParseSessionRejectsWrongKey(t *testing.T) {
	a := NewAuth(nil, nil, "id", "secret", "redirect", "", "", "key-one", "", false)
	token, err := a.signSession(models.User{DiscordID: "7", Username: "bob"})
	if err != nil {
		t.Fatalf("signSession: %v", err)
	}

	b := NewAuth(nil, nil, "id", "secret", "redirect", "", "", "key-two", "", false)
	if _, err := b.parseSession(token); err == nil {
		t.Error("expected parseSession with a different signing key to fail")
	}
}

func TestAuthenticatedUserAcceptsTestTokenOutsideProduction(t *testing.T) {
	a := NewAuth(nil, nil, "id", "secret", "redirect", "", "", "key", "shared-test-token", false)
	user, err := a.AuthenticatedUser(context.Background(), "shared-test-token")
	if err != nil {
		t.Fatalf("AuthenticatedUser: %v", err)
	}
	if user.DiscordID != "1234567890" {
		t.Errorf("DiscordID = %q, want the fixed test identity", user.DiscordID)
	}
}

func TestAuthenticatedUserRejectsTestTokenInProduction(t *testing.T) {
	a := NewAuth(nil, nil, "id", "secret", "redirect", "", "", "key", "shared-test-token", true)
	if _, err := a.AuthenticatedUser(context.Background(), "shared-test-token"); err == nil {
		t.Error("expected the test token to be rejected in production")
	}
}

func TestLoginURLIncludesClientID(t *testing.T) {
	a := NewAuth(nil, nil, "my-client-id", "secret", "http://localhost/cb", "", "", "key", "", false)
	url := a.LoginURL()
	if !strings.Contains(url, "client_id=my-client-id") {
		t.Errorf("LoginURL() = %q, want it to contain the client id", url)
	}
}

func TestIsSyntheticEnabledFollowsProductionFlag(t *testing.T) {
	if IsSyntheticEnabled(true) {
		t.Error("expected synthetic mode disabled in production")
	}
	if !IsSyntheticEnabled(false) {
		t.Error("expected synthetic mode enabled outside production")
	}
}
