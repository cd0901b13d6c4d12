package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avolkhov/melodeon/internal/library"
)

// listSongs handles GET /api/music/list with filtering, sorting and
// pagination.
func (s *Server) listSongs(c *gin.Context) {
	var q library.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	songs, err := s.lib.Scan()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q.Apply(songs))
}

// stream handles GET /api/music/stream/:filename. Range requests are served
// for seeking.
func (s *Server) stream(c *gin.Context) {
	path, err := s.lib.Resolve(c.Param("filename"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.File(path)
}

// cover handles GET /api/music/cover/:filename: embedded front-cover art.
func (s *Server) cover(c *gin.Context) {
	mime, data, err := s.lib.Cover(c.Param("filename"))
	if err != nil {
		writeError(c, err)
		return
	}
	// Cover art rarely changes; let clients cache it for a day.
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, mime, data)
}

// artists handles GET /api/music/artists.
func (s *Server) artists(c *gin.Context) {
	names, err := s.lib.Artists()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

// albums handles GET /api/music/albums.
func (s *Server) albums(c *gin.Context) {
	names, err := s.lib.Albums()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}
