package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/jagnani73/daoscape-sub001/src/api/config"
	"github.com/jagnani73/daoscape-sub001/src/api/governance"
	"github.com/jagnani73/daoscape-sub001/src/api/merits"
)

func New(cfg config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	attachRoutes(r, cfg, db, rdb)
	return r
}

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "https://daoscape.xyz"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	limiter := NewRateLimiter(60, time.Minute)
	r.Use(RateLimitMiddleware(limiter))

	var meritsClient *merits.Client
	if cfg.MeritsURL != "" {
		meritsClient = merits.NewClient(cfg.MeritsURL, cfg.MeritsAPIKey)
	}
	locks := governance.NewLocks()

	authH := NewAuth(rdb, []byte(cfg.JWTSecret))
	daoH := NewDaos(db)
	memberH := NewMembers(db)
	membershipH := NewMemberships(db)
	proposalH := NewProposals(db, rdb, meritsClient, locks, cfg.ColdStorageURL)
	voteH := NewVotes(db, locks)
	questH := NewQuests(db, meritsClient)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/challenge", authH.Challenge)
		v1.POST("/auth/verify", authH.Verify)

		v1.POST("/dao/create", daoH.Create)
		v1.GET("/daos", daoH.List)
		v1.GET("/daos/:id", daoH.Get)
		v1.GET("/daos/:id/members", membershipH.ListByDAO)
		v1.GET("/daos/:id/proposals", proposalH.ListByDAO)

		v1.POST("/member/create", memberH.Create)
		v1.GET("/members/:address", memberH.Get)

		v1.POST("/membership/join", membershipH.Join)

		v1.POST("/proposal/create", proposalH.Create)
		v1.POST("/proposal/conclude", proposalH.Conclude)
		v1.GET("/proposals/:id", proposalH.Get)
		v1.GET("/proposals/:id/votes", voteH.ListByProposal)

		v1.POST("/vote", voteH.Cast)

		v1.POST("/quest/create", questH.Create)
		v1.POST("/quest-participant/join", questH.Join)
		v1.PATCH("/quest-participant/quest/:quest_id/member/:member_id/completion", questH.UpdateCompletion)

		secured := v1.Group("")
		secured.Use(JWTMiddleware([]byte(cfg.JWTSecret)))
		secured.GET("/me", memberH.Me)
	}
}
