package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/recruitlink/internal/api/handlers"
	"github.com/yoockh/recruitlink/internal/api/middleware"
	"github.com/yoockh/recruitlink/internal/models"
)

type Deps struct {
	Auth         gin.HandlerFunc // defaults to middleware.JWTAuth()
	Proposal     *handlers.ProposalHandler
	CV           *handlers.CVHandler
	Access       *handlers.AccessHandler
	Profile      *handlers.ProfileHandler
	Review       *handlers.ReviewHandler
	Notification *handlers.NotificationHandler
	WS           *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	authMW := d.Auth
	if authMW == nil {
		authMW = middleware.JWTAuth()
	}

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(authMW)

	parties := middleware.RequireRole(models.RoleCompany, models.RoleRecruiter)
	recruiter := middleware.RequireRecruiter()
	company := middleware.RequireCompany()

	auth.POST("/proposals", recruiter, d.Proposal.Create)
	auth.GET("/proposals/:id", parties, d.Proposal.Get)
	auth.GET("/proposals/:id/contact", parties, d.Proposal.Contact)
	auth.GET("/proposals/:id/cv/status", parties, d.Proposal.CVStatus)

	auth.POST("/proposals/:id/cv", recruiter, d.CV.UploadForProposal)
	auth.POST("/cv/upload", recruiter, d.CV.Upload)

	auth.POST("/proposals/:id/access-requests", company, d.Access.Request)
	auth.PUT("/proposals/:id/access-level", recruiter, d.Access.SetLevel)

	auth.GET("/profile/me", d.Profile.Me)
	auth.PUT("/profile/update", d.Profile.Update)
	auth.POST("/profile/avatar", d.Profile.UploadAvatar)
	auth.GET("/profiles/lookup", d.Profile.Lookup)

	auth.POST("/recruiters/:id/reviews", company, d.Review.Leave)
	auth.GET("/recruiters/:id/rating", d.Review.Rating)

	auth.GET("/notifications", d.Notification.List)
	auth.POST("/notifications/:id/read", d.Notification.MarkRead)

	// WebSocket
	if d.WS != nil {
		auth.GET("/ws/proposals/:id/cv-status", parties, d.WS.CVStatusWS)
		auth.GET("/ws/notifications", d.WS.NotificationsWS)
	}
}
