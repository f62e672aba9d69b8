package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/FrankovDmutro/Store-inventory-system/internal/store/memory"
)

func TestParseTokenRoundTrip(t *testing.T) {
	auth := NewAuthManager("unit-secret", time.Hour, memory.NewSeeded())

	token, err := auth.sign("manager", "manager", time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	actor, err := auth.ParseToken(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if actor.Username != "manager" || actor.Role != "manager" {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	auth := NewAuthManager("unit-secret", time.Hour, nil)

	token, err := auth.sign("cashier", "cashier", time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := auth.ParseToken(tampered); err == nil {
		t.Fatalf("expected tampered token to be rejected")
	}

	other := NewAuthManager("different-secret", time.Hour, nil)
	if _, err := other.ParseToken(token); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	auth := NewAuthManager("unit-secret", time.Hour, nil)

	token, err := auth.sign("cashier", "cashier", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestAttemptLimiterWindow(t *testing.T) {
	limiter := newAttemptLimiter(3, time.Hour)
	for i := 0; i < 3; i++ {
		if !limiter.Allow("1.2.3.4") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatalf("fourth attempt should be blocked")
	}
	if !limiter.Allow("5.6.7.8") {
		t.Fatalf("other clients must not be affected")
	}
}

func TestLoginRateLimitedOverHTTP(t *testing.T) {
	server := newTestServer(t)

	sawTooMany := false
	for i := 0; i < 7; i++ {
		body := fmt.Sprintf(`{"username":"admin","password":"wrong-%d"}`, i)
		resp, err := http.Post(server.URL+"/api/v1/auth/login", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("login request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			sawTooMany = true
			break
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 for bad credentials, got %d", resp.StatusCode)
		}
	}
	if !sawTooMany {
		t.Fatalf("expected rate limiter to kick in")
	}
}
