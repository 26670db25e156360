package perms

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) (*models.User, *models.Actor) {
	user := models.User{Email: email, Name: "Test User", Active: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	actor, err := models.EnsureActor(db, &user)
	if err != nil {
		t.Fatalf("Failed to create actor: %v", err)
	}
	return &user, actor
}

func TestAssignIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	user, _ := createTestUser(t, db, "one@example.com")

	for i := 0; i < 3; i++ {
		if err := Assign(db, SubjectUser, user.ID, "view_team", "team", 1); err != nil {
			t.Fatalf("Assign run %d failed: %v", i, err)
		}
	}

	var count int64
	db.Model(&Grant{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected exactly 1 grant row, got %d", count)
	}
}

func TestHasPermissionDirectGrant(t *testing.T) {
	db := setupTestDB(t)
	user, _ := createTestUser(t, db, "one@example.com")

	if err := Assign(db, SubjectUser, user.ID, "change_review", "review", 7); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	ok, err := HasPermission(db, user, "change_review", "review", 7)
	if err != nil {
		t.Fatalf("HasPermission failed: %v", err)
	}
	if !ok {
		t.Error("Expected direct grant to allow")
	}

	ok, _ = HasPermission(db, user, "change_review", "review", 8)
	if ok {
		t.Error("Expected grant on a different object to deny")
	}
	ok, _ = HasPermission(db, user, "delete_review", "review", 7)
	if ok {
		t.Error("Expected a different permission to deny")
	}
}

func TestHasPermissionViaGroup(t *testing.T) {
	db := setupTestDB(t)
	member, _ := createTestUser(t, db, "member@example.com")
	outsider, _ := createTestUser(t, db, "outsider@example.com")

	group := Group{Name: "team-demo-members"}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	if err := EnsureGroupMember(db, group.ID, member.ID); err != nil {
		t.Fatalf("EnsureGroupMember failed: %v", err)
	}
	if err := Assign(db, SubjectGroup, group.ID, "view_team", "team", 1); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	ok, _ := HasPermission(db, member, "view_team", "team", 1)
	if !ok {
		t.Error("Expected group member to hold the group's grant")
	}

	ok, _ = HasPermission(db, outsider, "view_team", "team", 1)
	if ok {
		t.Error("Expected non-member to be denied")
	}
}

func TestHasPermissionClassLevelGrant(t *testing.T) {
	db := setupTestDB(t)
	user, _ := createTestUser(t, db, "one@example.com")

	// object_id 0 is the class-level wildcard
	if err := Assign(db, SubjectUser, user.ID, "view_context", "context", 0); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	for _, id := range []uint{1, 42, 999} {
		ok, _ := HasPermission(db, user, "view_context", "context", id)
		if !ok {
			t.Errorf("Expected class-level grant to cover context %d", id)
		}
	}
}

func TestSuperuserBypass(t *testing.T) {
	db := setupTestDB(t)
	user, _ := createTestUser(t, db, "root@example.com")
	user.Superuser = true
	db.Save(user)

	ok, err := HasPermission(db, user, "delete_team", "team", 123)
	if err != nil {
		t.Fatalf("HasPermission failed: %v", err)
	}
	if !ok {
		t.Error("Expected superuser to bypass all checks")
	}
}

func TestCanNilActorDenied(t *testing.T) {
	db := setupTestDB(t)

	ok, err := Can(db, nil, "view_team", &models.Team{})
	if err != nil {
		t.Fatalf("Can failed: %v", err)
	}
	if ok {
		t.Error("Expected anonymous (nil actor) to be denied")
	}
}

func TestEnsureGroupMemberIdempotent(t *testing.T) {
	db := setupTestDB(t)
	user, _ := createTestUser(t, db, "one@example.com")

	group := Group{Name: "team-demo-admins"}
	db.Create(&group)

	for i := 0; i < 3; i++ {
		if err := EnsureGroupMember(db, group.ID, user.ID); err != nil {
			t.Fatalf("EnsureGroupMember run %d failed: %v", i, err)
		}
	}

	var count int64
	db.Model(&GroupMember{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected exactly 1 membership row, got %d", count)
	}
}

func TestGrantsForCombinesSources(t *testing.T) {
	db := setupTestDB(t)
	user, _ := createTestUser(t, db, "one@example.com")

	group := Group{Name: "team-demo-members"}
	db.Create(&group)
	EnsureGroupMember(db, group.ID, user.ID)

	team := models.Team{Name: "Demo", Slug: "demo", FounderID: 1, GroupID: group.ID, AdminGroupID: group.ID}
	db.Create(&team)

	Assign(db, SubjectGroup, group.ID, "view_team", "team", team.ID)
	Assign(db, SubjectUser, user.ID, "change_team", "team", team.ID)

	grants, err := GrantsFor(db, user, &team)
	if err != nil {
		t.Fatalf("GrantsFor failed: %v", err)
	}
	if !grants["view_team"] || !grants["change_team"] {
		t.Errorf("Expected both grant sources present, got %v", grants)
	}
}
