package httpserver

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Service string `json:"service"`
}

type readyResponse struct {
	Status      string `json:"status"`
	MusicFolder bool   `json:"music_folder"`
	UsersFile   bool   `json:"users_file"`
}

// health handles GET /health: liveness only.
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:  "healthy",
		Version: s.version,
		Service: "melodeon",
	})
}

// ready handles GET /ready: checks that required resources are accessible.
func (s *Server) ready(c *gin.Context) {
	musicOK := false
	if info, err := os.Stat(s.lib.Root()); err == nil && info.IsDir() {
		musicOK = true
	}

	usersOK := true
	if dir := filepath.Dir(s.usersFile); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			usersOK = false
		}
	}

	resp := readyResponse{Status: "ready", MusicFolder: musicOK, UsersFile: usersOK}
	if !musicOK || !usersOK {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
