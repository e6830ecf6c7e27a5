package webserver

import (
	"crypto/rsa"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ltyyb/surveybot/src/actions/moderation/lifecycle"
	"github.com/ltyyb/surveybot/src/config"
	"github.com/ltyyb/surveybot/src/data/store"
	"github.com/ltyyb/surveybot/src/surveypkg"
)

// Deps are the collaborators behind the HTTP endpoints. RSAKey and Limiter may be nil.
type Deps struct {
	Lifecycle *lifecycle.Lifecycle
	Responses *store.ResponseStore
	Votes     *store.VoteTally
	Resolver  *store.Resolver
	Users     *store.Users
	Links     *store.Links
	Surveys   *surveypkg.Provider
	RSAKey    *rsa.PrivateKey
	Limiter   Limiter
}

// New builds the gin engine serving the survey web form and admin API.
func New(cfg config.APIConfig, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	attachRoutes(r, cfg, deps)
	return r
}

func attachRoutes(r *gin.Engine, cfg config.APIConfig, deps Deps) {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", headerRequestID, headerUserID},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	secret := []byte(cfg.JWTSecret)
	surveyH := NewSurvey(deps.Lifecycle, deps.Users, deps.Links, deps.Surveys)
	userH := NewUsers(deps.Users, deps.RSAKey)
	adminH := NewAdmin(deps.Lifecycle, deps.Responses, deps.Votes, deps.Resolver, cfg.AdminPasswordHash, secret)

	api := r.Group("/api")
	if deps.Limiter != nil {
		api.Use(RateLimitMiddleware(deps.Limiter))
	}
	{
		api.GET("/survey/entr", surveyH.Entr)
		api.POST("/survey/submit", surveyH.Submit)
		api.POST("/survey/response", surveyH.Response)

		api.POST("/user/register", userH.Register)
		api.GET("/user/check/:userId", userH.Check)

		api.POST("/admin/login", adminH.Login)
	}

	admin := api.Group("/admin")
	admin.Use(JWTMiddleware(secret), AdminMiddleware())
	{
		admin.GET("/responses/:id", adminH.Response)
		admin.GET("/pending", adminH.Pending)
	}
}
