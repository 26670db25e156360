package reviews

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/auth"
	"github.com/socialrating/socialrating/pkg/socialrating/models"
	"github.com/socialrating/socialrating/pkg/socialrating/perms"
	"github.com/socialrating/socialrating/pkg/socialrating/policy"
	"github.com/socialrating/socialrating/pkg/socialrating/resolver"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := perms.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db)

	protected := r.Group("", auth.AuthMiddleware(), auth.ActorMiddleware(db))
	itemGroup := protected.Group(
		"/teams/:team_slug/categories/:category_slug/items/:item_slug",
		resolver.Middleware(db, resolver.TeamStep, resolver.CategoryStep, resolver.ItemStep))
	handler.RegisterRoutes(itemGroup.Group("/reviews"))

	reviewGroup := itemGroup.Group("/reviews/:review_uuid",
		resolver.Middleware(db, resolver.ReviewStep))
	handler.RegisterReviewRoutes(reviewGroup)

	return r
}

type fixture struct {
	db     *gorm.DB
	router *gin.Engine
	admin  models.User
	member models.User
	team   *models.Team
	item   *models.Item
}

// setupFixture builds a team with one category and item, an admin founder
// and a plain member
func setupFixture(t *testing.T) *fixture {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	admin := createTestUser(t, db, "admin@example.com")
	member := createTestUser(t, db, "member@example.com")
	adminActor := actorFor(t, db, admin)
	memberActor := actorFor(t, db, member)

	var team *models.Team
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		team, err = policy.SetupTeam(tx, "Beer Club", "", adminActor)
		return err
	})
	if err != nil {
		t.Fatalf("SetupTeam failed: %v", err)
	}

	membership := models.Membership{ActorID: memberActor.ID, TeamID: team.ID}
	if err := db.Create(&membership).Error; err != nil {
		t.Fatalf("Failed to create membership: %v", err)
	}
	if err := policy.SyncMembership(db, &membership); err != nil {
		t.Fatalf("SyncMembership failed: %v", err)
	}

	category := models.Category{TeamID: team.ID, Name: "Pubs"}
	if err := policy.Save(db, adminActor, &category, "create", ""); err != nil {
		t.Fatalf("Failed to save category: %v", err)
	}
	item := models.Item{CategoryID: category.ID, Name: "The Anchor"}
	if err := policy.Save(db, adminActor, &item, "create", ""); err != nil {
		t.Fatalf("Failed to save item: %v", err)
	}

	return &fixture{db: db, router: router, admin: admin, member: member, team: team, item: &item}
}

func createTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	user := models.User{Email: email, Name: "Test User", Active: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	if _, err := models.EnsureActor(db, &user); err != nil {
		t.Fatalf("Failed to create actor: %v", err)
	}
	return user
}

func actorFor(t *testing.T, db *gorm.DB, user models.User) *models.Actor {
	var actor models.Actor
	if err := db.Where("user_id = ?", user.ID).First(&actor).Error; err != nil {
		t.Fatalf("Failed to load actor: %v", err)
	}
	return &actor
}

func doJSON(router *gin.Engine, method, path string, body interface{}, user models.User) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	token, _ := auth.GenerateToken(user.ID, user.Email, user.Superuser)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

const reviewsPath = "/teams/beer-club/categories/pubs/items/the-anchor/reviews"

func TestMemberCreatesReview(t *testing.T) {
	f := setupFixture(t)

	resp := doJSON(f.router, "POST", reviewsPath,
		CreateReviewRequest{Headline: "Great place", Body: "Lovely ales"}, f.member)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var review ReviewResponse
	json.Unmarshal(resp.Body.Bytes(), &review)
	if review.UUID == "" {
		t.Error("Expected a review UUID")
	}

	// the author immediately holds self-service grants on their review
	memberActor := actorFor(t, f.db, f.member)
	var stored models.Review
	f.db.Where("uuid = ?", review.UUID).First(&stored)
	ok, _ := perms.Can(f.db, memberActor, "change_review", &stored)
	if !ok {
		t.Error("Expected the author to hold change_review")
	}
}

func TestCreateReviewAppliesDefaultContext(t *testing.T) {
	f := setupFixture(t)
	adminActor := actorFor(t, f.db, f.admin)

	context := models.Context{TeamID: f.team.ID, Name: "Summer Festival"}
	if err := policy.Save(f.db, adminActor, &context, "create", ""); err != nil {
		t.Fatalf("Failed to save context: %v", err)
	}
	f.db.Model(&models.Category{}).Where("team_id = ?", f.team.ID).
		Update("default_context_id", context.ID)

	resp := doJSON(f.router, "POST", reviewsPath,
		CreateReviewRequest{Headline: "Great place"}, f.member)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var review ReviewResponse
	json.Unmarshal(resp.Body.Bytes(), &review)
	if review.ContextID == nil || *review.ContextID != context.ID {
		t.Errorf("Expected the category's default context to apply, got %v", review.ContextID)
	}
}

func TestSecondReviewConflicts(t *testing.T) {
	f := setupFixture(t)

	resp := doJSON(f.router, "POST", reviewsPath, CreateReviewRequest{Headline: "First"}, f.member)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.Code)
	}
	resp = doJSON(f.router, "POST", reviewsPath, CreateReviewRequest{Headline: "Second"}, f.member)
	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for a second review of the same item, got %d: %s",
			resp.Code, resp.Body.String())
	}
}

func TestNonAuthorCannotUpdateReview(t *testing.T) {
	f := setupFixture(t)

	resp := doJSON(f.router, "POST", reviewsPath, CreateReviewRequest{Headline: "Original"}, f.member)
	var review ReviewResponse
	json.Unmarshal(resp.Body.Bytes(), &review)

	// even the team admin cannot edit someone else's words
	resp = doJSON(f.router, "PUT", reviewsPath+"/"+review.UUID,
		UpdateReviewRequest{Headline: "Vandalized"}, f.admin)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for non-author update, got %d", resp.Code)
	}
}

func TestAdminDeletesReview(t *testing.T) {
	f := setupFixture(t)

	resp := doJSON(f.router, "POST", reviewsPath, CreateReviewRequest{Headline: "Unwanted"}, f.member)
	var review ReviewResponse
	json.Unmarshal(resp.Body.Bytes(), &review)

	resp = doJSON(f.router, "DELETE", reviewsPath+"/"+review.UUID, nil, f.admin)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected team admin to delete the review, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	f.db.Model(&models.Review{}).Count(&count)
	if count != 0 {
		t.Error("Expected the review to be gone")
	}
}

func TestNonMemberNeverSeesTheItem(t *testing.T) {
	f := setupFixture(t)
	outsider := createTestUser(t, f.db, "outsider@example.com")

	resp := doJSON(f.router, "GET", reviewsPath, nil, outsider)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 at the team boundary, got %d", resp.Code)
	}
}

func TestDeleteThenReReview(t *testing.T) {
	f := setupFixture(t)

	resp := doJSON(f.router, "POST", reviewsPath, CreateReviewRequest{Headline: "First take"}, f.member)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.Code)
	}
	var review ReviewResponse
	json.Unmarshal(resp.Body.Bytes(), &review)

	resp = doJSON(f.router, "DELETE", reviewsPath+"/"+review.UUID, nil, f.member)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected the author to delete their review, got %d: %s", resp.Code, resp.Body.String())
	}

	// the one-review-per-actor-and-item slot is free again
	resp = doJSON(f.router, "POST", reviewsPath, CreateReviewRequest{Headline: "Second take"}, f.member)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected a fresh review after deleting the old one, got %d: %s",
			resp.Code, resp.Body.String())
	}
}
