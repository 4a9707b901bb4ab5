package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "streamvault-test-secret"

func TestIssueAndValidateToken(t *testing.T) {
	a := New(testSecret, time.Hour)
	tok, err := a.IssueToken("user-1", "alice", true)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := a.ValidateToken(tok)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "user-1" || claims.Username != "alice" || !claims.IsAdmin {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateToken_expired(t *testing.T) {
	a := New(testSecret, -time.Minute)
	tok, err := a.IssueToken("user-1", "alice", false)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	_, err = a.ValidateToken(tok)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("err = %v; want ErrTokenExpired", err)
	}
}

func TestValidateToken_invalid(t *testing.T) {
	a := New(testSecret, time.Hour)

	cases := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := a.ValidateToken(tc.token); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("err = %v; want ErrTokenInvalid", err)
			}
		})
	}
}

func TestValidateToken_wrongSecret(t *testing.T) {
	tok, err := New("secret-one", time.Hour).IssueToken("u", "bob", false)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := New("secret-two", time.Hour).ValidateToken(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("err = %v; want ErrTokenInvalid", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter2" {
		t.Error("hash equals plaintext")
	}
	if !CheckPassword("hunter2", hash) {
		t.Error("CheckPassword rejected the correct password")
	}
	if CheckPassword("wrong", hash) {
		t.Error("CheckPassword accepted a wrong password")
	}
}
