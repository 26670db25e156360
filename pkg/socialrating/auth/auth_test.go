package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db)
	handler.RegisterRoutes(r.Group("/auth"))
	return r
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRegisterCreatesUserAndActor(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	resp := postJSON(router, "/auth/register", RegisterRequest{
		Email:    "new@example.com",
		Password: "password123",
		Name:     "New User",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response AuthResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Token == "" {
		t.Error("Expected a token")
	}
	if response.User.ActorUUID == "" {
		t.Error("Expected an actor to be created with the user")
	}

	var actorCount int64
	db.Model(&models.Actor{}).Count(&actorCount)
	if actorCount != 1 {
		t.Errorf("Expected 1 actor, got %d", actorCount)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	body := RegisterRequest{Email: "dup@example.com", Password: "password123", Name: "First"}
	if resp := postJSON(router, "/auth/register", body); resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.Code)
	}
	if resp := postJSON(router, "/auth/register", body); resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for duplicate email, got %d", resp.Code)
	}
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	postJSON(router, "/auth/register", RegisterRequest{
		Email: "login@example.com", Password: "password123", Name: "User",
	})

	resp := postJSON(router, "/auth/login", LoginRequest{
		Email: "login@example.com", Password: "password123",
	})
	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = postJSON(router, "/auth/login", LoginRequest{
		Email: "login@example.com", Password: "wrong-password",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for wrong password, got %d", resp.Code)
	}
}

func TestLoginInactiveUserRejected(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	postJSON(router, "/auth/register", RegisterRequest{
		Email: "gone@example.com", Password: "password123", Name: "User",
	})
	db.Model(&models.User{}).Where("email = ?", "gone@example.com").Update("active", false)

	resp := postJSON(router, "/auth/login", LoginRequest{
		Email: "gone@example.com", Password: "password123",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for inactive user, got %d", resp.Code)
	}
}

func TestMe(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	resp := postJSON(router, "/auth/register", RegisterRequest{
		Email: "me@example.com", Password: "password123", Name: "Me",
	})
	var auth AuthResponse
	json.Unmarshal(resp.Body.Bytes(), &auth)

	req, _ := http.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+auth.Token)
	meResp := httptest.NewRecorder()
	router.ServeHTTP(meResp, req)

	if meResp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", meResp.Code)
	}
	var user UserResponse
	json.Unmarshal(meResp.Body.Bytes(), &user)
	if user.Email != "me@example.com" {
		t.Errorf("Expected the current user, got %q", user.Email)
	}

	// no token means no identity
	req, _ = http.NewRequest("GET", "/auth/me", nil)
	anonResp := httptest.NewRecorder()
	router.ServeHTTP(anonResp, req)
	if anonResp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without a token, got %d", anonResp.Code)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "user@example.com", true)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "user@example.com" || !claims.Superuser {
		t.Errorf("Unexpected claims %+v", claims)
	}

	if _, err := ValidateToken(token + "tampered"); err == nil {
		t.Error("Expected a tampered token to fail validation")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret-password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !CheckPassword("secret-password", hash) {
		t.Error("Expected the correct password to verify")
	}
	if CheckPassword("wrong", hash) {
		t.Error("Expected a wrong password to fail")
	}
}
