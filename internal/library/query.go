package library

import (
	"sort"
	"strings"

	"github.com/avolkhov/melodeon/internal/model"
)

// Query filters, sorts and paginates a song listing. Field tags match the
// HTTP query parameters.
type Query struct {
	Q       string `form:"q"`
	Artist  string `form:"artist"`
	Album   string `form:"album"`
	Genre   string `form:"genre"`
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
	Sort    string `form:"sort"`  // title|artist|album|year|duration
	Order   string `form:"order"` // asc|desc
}

const (
	defaultPerPage = 50
	maxPerPage     = 100
)

// Apply runs the query against a scanned song list.
func (q Query) Apply(songs []model.Song) model.Page[model.Song] {
	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	songs = q.filter(songs)
	q.sortSongs(songs)

	total := len(songs)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return model.NewPage(songs[start:end], page, perPage, total)
}

func (q Query) filter(songs []model.Song) []model.Song {
	out := songs[:0:0]
	for _, s := range songs {
		if q.Q != "" {
			needle := strings.ToLower(q.Q)
			if !strings.Contains(strings.ToLower(s.Title), needle) &&
				!strings.Contains(strings.ToLower(s.Artist), needle) &&
				!strings.Contains(strings.ToLower(s.Album), needle) {
				continue
			}
		}
		if q.Artist != "" && !strings.Contains(strings.ToLower(s.Artist), strings.ToLower(q.Artist)) {
			continue
		}
		if q.Album != "" && !strings.Contains(strings.ToLower(s.Album), strings.ToLower(q.Album)) {
			continue
		}
		if q.Genre != "" {
			if s.Genre == nil || !strings.Contains(strings.ToLower(*s.Genre), strings.ToLower(q.Genre)) {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

func (q Query) sortSongs(songs []model.Song) {
	less := func(a, b model.Song) bool {
		switch q.Sort {
		case "artist":
			return strings.ToLower(a.Artist) < strings.ToLower(b.Artist)
		case "album":
			return strings.ToLower(a.Album) < strings.ToLower(b.Album)
		case "year":
			return intOrZero(a.Year) < intOrZero(b.Year)
		case "duration":
			return intOrZero(a.Duration) < intOrZero(b.Duration)
		default: // title
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	}
	sort.SliceStable(songs, func(i, j int) bool {
		if q.Order == "desc" {
			return less(songs[j], songs[i])
		}
		return less(songs[i], songs[j])
	})
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
