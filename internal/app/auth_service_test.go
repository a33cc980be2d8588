package app

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oakline/ledger-service/internal/domain"
	"github.com/oakline/ledger-service/internal/store"
)

const testJWTSecret = "test-secret"

func TestRegister_HashesPasswordAndPersistsUser(t *testing.T) {
	repo := newFakeRepo()
	svc := NewAuthService(repo, nil, testJWTSecret)

	user, err := svc.Register(context.Background(), "alice01", "Str0ngPass", "alice@example.com", "5550001234", false)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.PasswordHash == "" || user.PasswordHash == "Str0ngPass" {
		t.Fatal("password must be stored as a hash")
	}

	stored, err := repo.FindUserByUsername(context.Background(), "alice01")
	if err != nil {
		t.Fatalf("user was not persisted: %v", err)
	}
	if stored.IsAdmin {
		t.Fatal("self-registered user must not be admin")
	}
}

func TestRegister_RejectsInvalidInput(t *testing.T) {
	repo := newFakeRepo()
	svc := NewAuthService(repo, nil, testJWTSecret)

	cases := []struct {
		name     string
		username string
		password string
		email    string
		phone    string
	}{
		{"short username", "ab", "Str0ngPass", "a@example.com", "5550001234"},
		{"weak password", "alice01", "password", "a@example.com", "5550001234"},
		{"bad email", "alice01", "Str0ngPass", "not-an-email", "5550001234"},
		{"bad phone", "alice01", "Str0ngPass", "a@example.com", "123"},
	}
	for _, tc := range cases {
		if _, err := svc.Register(context.Background(), tc.username, tc.password, tc.email, tc.phone, false); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
	if len(repo.users) != 0 {
		t.Fatalf("expected no users persisted, got %d", len(repo.users))
	}
}

func TestRegister_DuplicateUsernameFails(t *testing.T) {
	repo := newFakeRepo()
	svc := NewAuthService(repo, nil, testJWTSecret)

	if _, err := svc.Register(context.Background(), "alice01", "Str0ngPass", "a@example.com", "5550001234", false); err != nil {
		t.Fatalf("first registration returned error: %v", err)
	}
	if _, err := svc.Register(context.Background(), "alice01", "Str0ngPass", "b@example.com", "5550005678", false); !errors.Is(err, store.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	repo := newFakeRepo()
	svc := NewAuthService(repo, nil, testJWTSecret)

	registered, err := svc.Register(context.Background(), "alice01", "Str0ngPass", "alice@example.com", "5550001234", true)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	user, token, err := svc.Login(context.Background(), "alice01", "Str0ngPass")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatal("login returned a different user")
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("unexpected claims type")
	}
	if claims["sub"] != registered.ID.String() {
		t.Fatalf("unexpected sub claim %v", claims["sub"])
	}
	if claims["admin"] != true {
		t.Fatalf("unexpected admin claim %v", claims["admin"])
	}
}

func TestLogin_WrongPasswordAndUnknownUserLookTheSame(t *testing.T) {
	repo := newFakeRepo()
	svc := NewAuthService(repo, nil, testJWTSecret)

	if _, err := svc.Register(context.Background(), "alice01", "Str0ngPass", "alice@example.com", "5550001234", false); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "alice01", "WrongPass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody99", "Str0ngPass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
}
