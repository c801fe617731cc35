package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shoplane/api/internal/auth"
	"github.com/shoplane/api/internal/database"
	"github.com/shoplane/api/internal/enum"
	"github.com/shoplane/api/internal/handler"
	"github.com/shoplane/api/internal/middleware"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock store ---

type mockAuthStore struct {
	users map[uuid.UUID]database.User
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{users: make(map[uuid.UUID]database.User)}
}

func (m *mockAuthStore) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	for _, u := range m.users {
		if u.Email == arg.Email {
			return database.User{}, &pgconn.PgError{Code: "23505"}
		}
	}
	now := pgtype.Timestamptz{Time: time.Now(), Valid: true}
	u := database.User{
		ID:             uuid.New(),
		Name:           arg.Name,
		Email:          arg.Email,
		HashedPassword: arg.HashedPassword,
		Role:           arg.Role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockAuthStore) GetUserByEmail(_ context.Context, email string) (database.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return database.User{}, pgx.ErrNoRows
}

func (m *mockAuthStore) GetUserByID(_ context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.users[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthStore) seed(t *testing.T, name, email, password string) database.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := database.User{
		ID:             uuid.New(),
		Name:           name,
		Email:          email,
		HashedPassword: string(hashed),
		Role:           enum.RoleAdmin,
	}
	m.users[u.ID] = u
	return u
}

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, testJWTSecret)
	r := chi.NewRouter()
	r.Group(h.RegisterRoutes)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		h.RegisterProtectedRoutes(r)
	})
	return r
}

// --- Tests ---

func TestStaffRegister(t *testing.T) {
	store := newMockAuthStore()
	router := setupAuthRouter(store)

	body := map[string]string{"name": "Amira", "email": "amira@shop.test", "password": "s3cret"}
	rr := doRequest(t, router, http.MethodPost, "/auth/register", body)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeJSON(t, rr)
	if resp["access_token"] == "" || resp["refresh_token"] == "" {
		t.Error("expected both tokens in response")
	}
	user, ok := resp["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("user missing from response: %v", resp)
	}
	if user["role"] != enum.RoleAdmin {
		t.Errorf("role: got %v, want %s", user["role"], enum.RoleAdmin)
	}
}

func TestStaffRegisterDuplicateEmail(t *testing.T) {
	store := newMockAuthStore()
	store.seed(t, "Amira", "amira@shop.test", "s3cret")
	router := setupAuthRouter(store)

	body := map[string]string{"name": "Other", "email": "amira@shop.test", "password": "x"}
	rr := doRequest(t, router, http.MethodPost, "/auth/register", body)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rr.Code)
	}
}

func TestStaffRegisterMissingFields(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())

	rr := doRequest(t, router, http.MethodPost, "/auth/register", map[string]string{"email": "a@b.c"})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestStaffLogin(t *testing.T) {
	store := newMockAuthStore()
	store.seed(t, "Amira", "amira@shop.test", "s3cret")
	router := setupAuthRouter(store)

	body := map[string]string{"email": "amira@shop.test", "password": "s3cret"}
	rr := doRequest(t, router, http.MethodPost, "/auth/login", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeJSON(t, rr)
	token, _ := resp["access_token"].(string)
	claims, err := auth.ValidateToken(testJWTSecret, token)
	if err != nil {
		t.Fatalf("returned token invalid: %v", err)
	}
	if claims.Role != enum.RoleAdmin {
		t.Errorf("token role: got %s", claims.Role)
	}
}

func TestStaffLoginWrongPassword(t *testing.T) {
	store := newMockAuthStore()
	store.seed(t, "Amira", "amira@shop.test", "s3cret")
	router := setupAuthRouter(store)

	body := map[string]string{"email": "amira@shop.test", "password": "wrong"}
	rr := doRequest(t, router, http.MethodPost, "/auth/login", body)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestStaffLoginUnknownEmail(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())

	body := map[string]string{"email": "ghost@shop.test", "password": "x"}
	rr := doRequest(t, router, http.MethodPost, "/auth/login", body)

	// Unknown email and wrong password are indistinguishable to the caller.
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestRefresh(t *testing.T) {
	store := newMockAuthStore()
	user := store.seed(t, "Amira", "amira@shop.test", "s3cret")
	router := setupAuthRouter(store)

	refresh, err := auth.GenerateRefreshToken(testJWTSecret, user.ID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := doRequest(t, router, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": refresh})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeJSON(t, rr)
	if resp["access_token"] == "" {
		t.Error("expected new access token")
	}
}

func TestRefreshInvalidToken(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())

	rr := doRequest(t, router, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": "garbage"})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestProfile(t *testing.T) {
	store := newMockAuthStore()
	user := store.seed(t, "Amira", "amira@shop.test", "s3cret")
	router := setupAuthRouter(store)

	rr := doAuthRequest(t, router, http.MethodGet, "/auth/profile", nil,
		&auth.Claims{UserID: user.ID, Role: enum.RoleAdmin})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeJSON(t, rr)
	if resp["email"] != "amira@shop.test" {
		t.Errorf("email: got %v", resp["email"])
	}
	if _, ok := resp["hashed_password"]; ok {
		t.Error("response must not leak the password hash")
	}
}

func TestProfileUnauthenticated(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())

	rr := doRequest(t, router, http.MethodGet, "/auth/profile", nil)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}
