package rest

import (
	"github.com/dmitrijs2005/accountsvc/internal/common"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.HandleMethodNotAllowed = false

	r.Use(requestID(), requestLogger(s.logger), recovery(s.logger), limitBody(maxBodyBytes))

	if s.opts.Development {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders: []string{
				"Origin", "X-Requested-With", "Content-Type", "Accept",
				common.AccessTokenHeaderName,
			},
		}))
	}

	r.GET("/", s.index)

	users := r.Group("/users")
	users.POST("", s.createUser)
	users.POST("/", s.createUser)
	users.POST("/authenticate", s.authenticate)
	users.POST("/refresh-token", s.guard.Protect(s.refreshToken))
	users.GET("", s.guard.Protect(s.listUsers))
	users.GET("/", s.guard.Protect(s.listUsers))
	users.GET("/:id", s.guard.Protect(s.getUser))

	return r
}
