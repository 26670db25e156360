package comments

import (
	"bytes"
	"encoding/json"
	"fmt"
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

// the comments handler serves several parents; the test router registers
// it under a thread, where the locked flag matters
func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db)

	protected := r.Group("", auth.AuthMiddleware(), auth.ActorMiddleware(db))
	threadGroup := protected.Group(
		"/teams/:team_slug/forums/:forum_slug/threads/:thread_slug",
		resolver.Middleware(db, resolver.TeamStep, resolver.ForumStep, resolver.ThreadStep))
	handler.RegisterRoutes(threadGroup.Group("/comments"))

	commentGroup := threadGroup.Group("/comments/:comment_id",
		resolver.Middleware(db, resolver.CommentStep))
	handler.RegisterCommentRoutes(commentGroup)

	return r
}

type fixture struct {
	db     *gorm.DB
	router *gin.Engine
	admin  models.User
	member models.User
	thread *models.Thread
}

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
	db.Create(&membership)
	if err := policy.SyncMembership(db, &membership); err != nil {
		t.Fatalf("SyncMembership failed: %v", err)
	}

	forum := models.Forum{TeamID: team.ID, Name: "General"}
	if err := policy.Save(db, adminActor, &forum, "create", ""); err != nil {
		t.Fatalf("Failed to save forum: %v", err)
	}
	thread := models.Thread{ForumID: forum.ID, ActorID: memberActor.ID, Subject: "First Post"}
	if err := policy.Save(db, memberActor, &thread, "create", ""); err != nil {
		t.Fatalf("Failed to save thread: %v", err)
	}

	return &fixture{db: db, router: router, admin: admin, member: member, thread: &thread}
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

const commentsPath = "/teams/beer-club/forums/general/threads/first-post/comments"

func TestMemberCommentsOnThread(t *testing.T) {
	f := setupFixture(t)

	resp := doJSON(f.router, "POST", commentsPath,
		CreateCommentRequest{Body: "Welcome aboard"}, f.member)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var comment CommentResponse
	json.Unmarshal(resp.Body.Bytes(), &comment)
	if comment.TargetType != "thread" || comment.TargetID != f.thread.ID {
		t.Errorf("Expected the comment attached to the thread, got %+v", comment)
	}
}

func TestLockedThreadRejectsComments(t *testing.T) {
	f := setupFixture(t)

	f.db.Model(f.thread).Update("locked", true)

	resp := doJSON(f.router, "POST", commentsPath,
		CreateCommentRequest{Body: "Too late"}, f.member)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 on a locked thread, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestReplyThreading(t *testing.T) {
	f := setupFixture(t)

	resp := doJSON(f.router, "POST", commentsPath,
		CreateCommentRequest{Body: "Parent"}, f.member)
	var parent CommentResponse
	json.Unmarshal(resp.Body.Bytes(), &parent)

	resp = doJSON(f.router, "POST", commentsPath,
		CreateCommentRequest{Body: "Child", ReplyToID: &parent.ID}, f.admin)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 for a reply, got %d: %s", resp.Code, resp.Body.String())
	}

	var child CommentResponse
	json.Unmarshal(resp.Body.Bytes(), &child)
	if child.ReplyToID == nil || *child.ReplyToID != parent.ID {
		t.Errorf("Expected the reply to reference its parent, got %+v", child)
	}
}

func TestAuthorEditsAdminDeletes(t *testing.T) {
	f := setupFixture(t)

	resp := doJSON(f.router, "POST", commentsPath,
		CreateCommentRequest{Body: "Original"}, f.member)
	var comment CommentResponse
	json.Unmarshal(resp.Body.Bytes(), &comment)
	path := fmt.Sprintf("%s/%d", commentsPath, comment.ID)

	// only the author edits
	resp = doJSON(f.router, "PUT", path, UpdateCommentRequest{Body: "Edited"}, f.admin)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected the admin to be denied change_comment, got %d", resp.Code)
	}
	resp = doJSON(f.router, "PUT", path, UpdateCommentRequest{Body: "Edited"}, f.member)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected the author to edit, got %d: %s", resp.Code, resp.Body.String())
	}

	// the admin may remove it
	resp = doJSON(f.router, "DELETE", path, nil, f.admin)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected the admin to delete, got %d: %s", resp.Code, resp.Body.String())
	}
}
