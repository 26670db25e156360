package votes

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
	reviewGroup := protected.Group(
		"/teams/:team_slug/categories/:category_slug/items/:item_slug/reviews/:review_uuid",
		resolver.Middleware(db,
			resolver.TeamStep, resolver.CategoryStep, resolver.ItemStep, resolver.ReviewStep))
	handler.RegisterRoutes(reviewGroup.Group("/votes"))

	voteGroup := reviewGroup.Group("/votes/:vote_uuid", resolver.Middleware(db, resolver.VoteStep))
	handler.RegisterVoteRoutes(voteGroup)

	return r
}

type fixture struct {
	db     *gorm.DB
	router *gin.Engine
	admin  models.User
	author models.User
	rating *models.Rating
	review *models.Review
}

func setupFixture(t *testing.T) *fixture {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	admin := createTestUser(t, db, "admin@example.com")
	author := createTestUser(t, db, "author@example.com")
	adminActor := actorFor(t, db, admin)
	authorActor := actorFor(t, db, author)

	var team *models.Team
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		team, err = policy.SetupTeam(tx, "Beer Club", "", adminActor)
		return err
	})
	if err != nil {
		t.Fatalf("SetupTeam failed: %v", err)
	}

	membership := models.Membership{ActorID: authorActor.ID, TeamID: team.ID}
	db.Create(&membership)
	if err := policy.SyncMembership(db, &membership); err != nil {
		t.Fatalf("SyncMembership failed: %v", err)
	}

	category := models.Category{TeamID: team.ID, Name: "Pubs"}
	if err := policy.Save(db, adminActor, &category, "create", ""); err != nil {
		t.Fatalf("Failed to save category: %v", err)
	}
	rating := models.Rating{CategoryID: category.ID, Name: "Atmosphere", MaxRating: 5}
	if err := policy.Save(db, adminActor, &rating, "create", ""); err != nil {
		t.Fatalf("Failed to save rating: %v", err)
	}
	item := models.Item{CategoryID: category.ID, Name: "The Anchor"}
	if err := policy.Save(db, adminActor, &item, "create", ""); err != nil {
		t.Fatalf("Failed to save item: %v", err)
	}
	review := models.Review{ItemID: item.ID, ActorID: authorActor.ID, Headline: "Nice"}
	if err := policy.Save(db, authorActor, &review, "create", ""); err != nil {
		t.Fatalf("Failed to save review: %v", err)
	}

	return &fixture{db: db, router: router, admin: admin, author: author, rating: &rating, review: &review}
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

func (f *fixture) votesPath() string {
	return "/teams/beer-club/categories/pubs/items/the-anchor/reviews/" + f.review.UUID + "/votes"
}

func TestAuthorVotes(t *testing.T) {
	f := setupFixture(t)

	resp := doJSON(f.router, "POST", f.votesPath(),
		CreateVoteRequest{RatingID: f.rating.ID, Vote: 4, Comment: "cosy"}, f.author)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var vote VoteResponse
	json.Unmarshal(resp.Body.Bytes(), &vote)
	if vote.Vote != 4 || vote.UUID == "" {
		t.Errorf("Unexpected vote response %+v", vote)
	}
}

func TestVoteOutOfBoundsRejected(t *testing.T) {
	f := setupFixture(t)

	resp := doJSON(f.router, "POST", f.votesPath(),
		CreateVoteRequest{RatingID: f.rating.ID, Vote: 6}, f.author)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for an out-of-range vote, got %d: %s", resp.Code, resp.Body.String())
	}

	// nothing was written
	var count int64
	f.db.Model(&models.Vote{}).Count(&count)
	if count != 0 {
		t.Error("Expected no vote rows after a rejected vote")
	}
}

func TestOnlyAuthorMayVote(t *testing.T) {
	f := setupFixture(t)

	// the team admin holds delete_review but not add_vote
	resp := doJSON(f.router, "POST", f.votesPath(),
		CreateVoteRequest{RatingID: f.rating.ID, Vote: 3}, f.admin)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for a non-author vote, got %d", resp.Code)
	}
}

func TestSecondVoteOnRatingConflicts(t *testing.T) {
	f := setupFixture(t)

	resp := doJSON(f.router, "POST", f.votesPath(),
		CreateVoteRequest{RatingID: f.rating.ID, Vote: 4}, f.author)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.Code)
	}
	resp = doJSON(f.router, "POST", f.votesPath(),
		CreateVoteRequest{RatingID: f.rating.ID, Vote: 2}, f.author)
	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for a second vote on the same rating, got %d: %s",
			resp.Code, resp.Body.String())
	}
}

func TestAuthorUpdatesVoteAdminDeletes(t *testing.T) {
	f := setupFixture(t)

	resp := doJSON(f.router, "POST", f.votesPath(),
		CreateVoteRequest{RatingID: f.rating.ID, Vote: 4}, f.author)
	var vote VoteResponse
	json.Unmarshal(resp.Body.Bytes(), &vote)

	resp = doJSON(f.router, "PUT", f.votesPath()+"/"+vote.UUID,
		UpdateVoteRequest{Vote: 5}, f.author)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected the author to update their vote, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(f.router, "PUT", f.votesPath()+"/"+vote.UUID,
		UpdateVoteRequest{Vote: 1}, f.admin)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected the admin to be denied change_vote, got %d", resp.Code)
	}

	resp = doJSON(f.router, "DELETE", f.votesPath()+"/"+vote.UUID, nil, f.admin)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected the admin to delete the vote, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestDeleteThenRevote(t *testing.T) {
	f := setupFixture(t)

	resp := doJSON(f.router, "POST", f.votesPath(),
		CreateVoteRequest{RatingID: f.rating.ID, Vote: 4}, f.author)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.Code)
	}
	var vote VoteResponse
	json.Unmarshal(resp.Body.Bytes(), &vote)

	resp = doJSON(f.router, "DELETE", f.votesPath()+"/"+vote.UUID, nil, f.author)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected the author to delete their vote, got %d: %s", resp.Code, resp.Body.String())
	}

	// the (review, rating) pair is free again
	resp = doJSON(f.router, "POST", f.votesPath(),
		CreateVoteRequest{RatingID: f.rating.ID, Vote: 2}, f.author)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected a fresh vote after deleting the old one, got %d: %s",
			resp.Code, resp.Body.String())
	}

	var count int64
	f.db.Model(&models.Vote{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected exactly 1 vote row, got %d", count)
	}
}
