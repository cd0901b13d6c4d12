// Package httpserver exposes the REST API: authentication, account
// management, library browsing and audio streaming.
package httpserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/avolkhov/melodeon/internal/library"
	"github.com/avolkhov/melodeon/internal/service"
	"github.com/avolkhov/melodeon/internal/token"
)

// Server wires services into HTTP handlers.
type Server struct {
	auth      service.AuthService
	codec     *token.Codec
	lib       *library.Library
	usersFile string
	version   string
	log       *zap.Logger
}

// New constructs the HTTP server with injected services.
func New(auth service.AuthService, codec *token.Codec, lib *library.Library, usersFile, version string, log *zap.Logger) *Server {
	return &Server{
		auth:      auth,
		codec:     codec,
		lib:       lib,
		usersFile: usersFile,
		version:   version,
		log:       log,
	}
}

// Router builds the gin engine with middleware and all routes.
func (s *Server) Router(corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(
		Recovery(s.log),
		AccessLog(s.log),
		cors.New(corsConfig(corsOrigins)),
	)

	r.GET("/health", s.health)
	r.GET("/ready", s.ready)

	auth := r.Group("/auth")
	{
		auth.POST("/register", s.register)
		auth.POST("/login", s.login)
		auth.GET("/me", RequireAuth(s.codec), s.me)

		users := auth.Group("/users", RequireAuth(s.codec), RequireAdmin())
		users.GET("", s.listAccounts)
		users.DELETE("/:id", s.deleteAccount)
	}

	music := r.Group("/api/music", RequireAuth(s.codec))
	{
		music.GET("/list", s.listSongs)
		music.GET("/stream/:filename", s.stream)
		music.GET("/cover/:filename", s.cover)
		music.GET("/artists", s.artists)
		music.GET("/albums", s.albums)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Accept", "Content-Type"},
		MaxAge:       time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
