package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/admin"
	"github.com/socialrating/socialrating/pkg/socialrating/attachments"
	"github.com/socialrating/socialrating/pkg/socialrating/auth"
	"github.com/socialrating/socialrating/pkg/socialrating/categories"
	"github.com/socialrating/socialrating/pkg/socialrating/comments"
	"github.com/socialrating/socialrating/pkg/socialrating/contexts"
	"github.com/socialrating/socialrating/pkg/socialrating/database"
	"github.com/socialrating/socialrating/pkg/socialrating/facts"
	"github.com/socialrating/socialrating/pkg/socialrating/forums"
	"github.com/socialrating/socialrating/pkg/socialrating/items"
	"github.com/socialrating/socialrating/pkg/socialrating/models"
	"github.com/socialrating/socialrating/pkg/socialrating/perms"
	"github.com/socialrating/socialrating/pkg/socialrating/ratings"
	"github.com/socialrating/socialrating/pkg/socialrating/resolver"
	"github.com/socialrating/socialrating/pkg/socialrating/reviews"
	"github.com/socialrating/socialrating/pkg/socialrating/teams"
	"github.com/socialrating/socialrating/pkg/socialrating/threads"
	"github.com/socialrating/socialrating/pkg/socialrating/votes"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	dbPath := os.Getenv("SOCIALRATING_DB_PATH")
	if dbPath == "" {
		dbPath = "socialrating.db"
	}

	if err := database.Connect(dbPath); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	db := database.GetDB()

	if err := perms.Migrate(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}
	logrus.Info("Database migrations completed")

	if _, err := models.SentinelUser(db); err != nil {
		logrus.WithError(err).Fatal("Failed to ensure sentinel user exists")
	}
	if err := ensureSuperuserExists(db); err != nil {
		logrus.WithError(err).Fatal("Failed to ensure superuser exists")
	}

	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok", "service": "socialrating"})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Everything below requires a valid token and an active user
		protected := api.Group("", auth.AuthMiddleware(), auth.ActorMiddleware(db))

		registerTeamTree(db, protected)

		// Admin routes (superuser only)
		adminHandler := admin.NewHandler(db)
		adminGroup := protected.Group("/admin")
		adminGroup.Use(auth.RequireSuperuser())
		adminHandler.RegisterRoutes(adminGroup)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logrus.WithField("port", port).Info("Starting socialrating server")
	if err := r.Run(":" + port); err != nil {
		logrus.WithError(err).Fatal("Failed to start server")
	}
}

// registerTeamTree wires the nested entity routes. Each nested group runs
// the resolver middleware for exactly one more ancestor, so every request
// resolves and authorizes its full path before any handler runs.
func registerTeamTree(db *gorm.DB, rg *gin.RouterGroup) {
	teamsHandler := teams.NewHandler(db)
	categoriesHandler := categories.NewHandler(db)
	contextsHandler := contexts.NewHandler(db)
	itemsHandler := items.NewHandler(db)
	ratingsHandler := ratings.NewHandler(db)
	factsHandler := facts.NewHandler(db)
	reviewsHandler := reviews.NewHandler(db)
	votesHandler := votes.NewHandler(db)
	forumsHandler := forums.NewHandler(db)
	threadsHandler := threads.NewHandler(db)
	commentsHandler := comments.NewHandler(db)
	attachmentsHandler := attachments.NewHandler(db)

	// registerAttached hangs comment and attachment routes off a resolved
	// entity group; they resolve against whatever that group's subject is
	registerAttached := func(parent *gin.RouterGroup) {
		commentsHandler.RegisterRoutes(parent.Group("/comments"))
		commentGroup := parent.Group("/comments/:comment_id",
			resolver.Middleware(db, resolver.CommentStep))
		commentsHandler.RegisterCommentRoutes(commentGroup)

		attachmentsHandler.RegisterRoutes(parent.Group("/attachments"))
		attachmentGroup := parent.Group("/attachments/:attachment_id",
			resolver.Middleware(db, resolver.AttachmentStep))
		attachmentsHandler.RegisterAttachmentRoutes(attachmentGroup)
	}

	teamsHandler.RegisterRoutes(rg.Group("/teams"))

	teamGroup := rg.Group("/teams/:team_slug", resolver.Middleware(db, resolver.TeamStep))
	teamsHandler.RegisterTeamRoutes(teamGroup)
	teamsHandler.RegisterMemberRoutes(teamGroup)

	// Categories and their children
	categoriesHandler.RegisterRoutes(teamGroup.Group("/categories"))
	categoryGroup := teamGroup.Group("/categories/:category_slug",
		resolver.Middleware(db, resolver.CategoryStep))
	categoriesHandler.RegisterCategoryRoutes(categoryGroup)

	ratingsHandler.RegisterRoutes(categoryGroup.Group("/ratings"))
	ratingGroup := categoryGroup.Group("/ratings/:rating_slug",
		resolver.Middleware(db, resolver.RatingStep))
	ratingsHandler.RegisterRatingRoutes(ratingGroup)

	factsHandler.RegisterRoutes(categoryGroup.Group("/facts"))
	factGroup := categoryGroup.Group("/facts/:fact_slug",
		resolver.Middleware(db, resolver.FactStep))
	factsHandler.RegisterFactRoutes(factGroup)

	itemsHandler.RegisterRoutes(categoryGroup.Group("/items"))
	itemGroup := categoryGroup.Group("/items/:item_slug",
		resolver.Middleware(db, resolver.ItemStep))
	itemsHandler.RegisterItemRoutes(itemGroup)
	registerAttached(itemGroup)

	reviewsHandler.RegisterRoutes(itemGroup.Group("/reviews"))
	reviewGroup := itemGroup.Group("/reviews/:review_uuid",
		resolver.Middleware(db, resolver.ReviewStep))
	reviewsHandler.RegisterReviewRoutes(reviewGroup)
	registerAttached(reviewGroup)

	votesHandler.RegisterRoutes(reviewGroup.Group("/votes"))
	voteGroup := reviewGroup.Group("/votes/:vote_uuid",
		resolver.Middleware(db, resolver.VoteStep))
	votesHandler.RegisterVoteRoutes(voteGroup)

	// Contexts
	contextsHandler.RegisterRoutes(teamGroup.Group("/contexts"))
	contextGroup := teamGroup.Group("/contexts/:context_slug",
		resolver.Middleware(db, resolver.ContextStep))
	contextsHandler.RegisterContextRoutes(contextGroup)

	// Forums and threads
	forumsHandler.RegisterRoutes(teamGroup.Group("/forums"))
	forumGroup := teamGroup.Group("/forums/:forum_slug",
		resolver.Middleware(db, resolver.ForumStep))
	forumsHandler.RegisterForumRoutes(forumGroup)

	threadsHandler.RegisterRoutes(forumGroup.Group("/threads"))
	threadGroup := forumGroup.Group("/threads/:thread_slug",
		resolver.Middleware(db, resolver.ThreadStep))
	threadsHandler.RegisterThreadRoutes(threadGroup)
	registerAttached(threadGroup)
}

// ensureSuperuserExists creates a default superuser when none exists
func ensureSuperuserExists(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("superuser = ?", true).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := auth.HashPassword("changeme")
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		superuser := models.User{
			Email:        "admin@socialrating.local",
			Name:         "Admin",
			PasswordHash: hashed,
			Active:       true,
			Superuser:    true,
		}
		if err := tx.Create(&superuser).Error; err != nil {
			return err
		}
		if _, err := models.EnsureActor(tx, &superuser); err != nil {
			return err
		}
		logrus.WithField("email", superuser.Email).
			Info("Created default superuser (password: changeme)")
		return nil
	})
}
