// Package library scans the music folder and extracts audio metadata.
package library

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhowden/tag"
	"go.uber.org/zap"

	"github.com/avolkhov/melodeon/internal/errs"
	"github.com/avolkhov/melodeon/internal/model"
)

// supportedExtensions lists audio formats the scanner picks up.
var supportedExtensions = map[string]bool{
	".mp3": true, ".flac": true, ".ogg": true, ".wav": true, ".m4a": true,
	".aac": true, ".wma": true, ".opus": true, ".aiff": true, ".ape": true,
}

// Library reads songs from a single music folder.
type Library struct {
	root string
	log  *zap.Logger
}

// New constructs a Library over the given folder.
func New(root string, log *zap.Logger) *Library {
	return &Library{root: root, log: log}
}

// Root returns the music folder path.
func (l *Library) Root() string { return l.root }

// Scan lists all readable audio files in the music folder (non-recursive).
// Files whose tags cannot be read are skipped.
func (l *Library) Scan() ([]model.Song, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("read music folder %s: %w", l.root, err)
	}

	songs := make([]model.Song, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsAudioFile(entry.Name()) {
			continue
		}
		path := filepath.Join(l.root, entry.Name())
		song, err := extractMetadata(path)
		if err != nil {
			l.log.Debug("skipping unreadable audio file",
				zap.String("file", entry.Name()),
				zap.Error(err),
			)
			continue
		}
		songs = append(songs, *song)
	}
	return songs, nil
}

// Artists returns the unique, sorted artist names in the library.
func (l *Library) Artists() ([]string, error) {
	return l.uniqueField(func(s model.Song) string { return s.Artist })
}

// Albums returns the unique, sorted album names in the library.
func (l *Library) Albums() ([]string, error) {
	return l.uniqueField(func(s model.Song) string { return s.Album })
}

func (l *Library) uniqueField(field func(model.Song) string) ([]string, error) {
	songs, err := l.Scan()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(songs))
	out := make([]string, 0, len(songs))
	for _, s := range songs {
		v := field(s)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// Cover returns the embedded front-cover art of a track.
func (l *Library) Cover(filename string) (mime string, data []byte, err error) {
	path, err := l.Resolve(filename)
	if err != nil {
		return "", nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("song %s: %w", filename, errs.ErrNotFound)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return "", nil, fmt.Errorf("song %s: %w", filename, errs.ErrNotFound)
	}
	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return "", nil, fmt.Errorf("no cover art: %w", errs.ErrNotFound)
	}
	mime = pic.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return mime, pic.Data, nil
}

// Resolve sanitizes filename and returns the absolute path of the track,
// guaranteed to stay inside the music folder.
func (l *Library) Resolve(filename string) (string, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	full := filepath.Join(l.root, name)
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("song %s: %w", name, errs.ErrNotFound)
	}

	// Containment check on resolved paths; symlinks must not escape the root.
	canonical, err := filepath.EvalSymlinks(full)
	if err != nil {
		return "", fmt.Errorf("song %s: %w", name, errs.ErrNotFound)
	}
	rootCanonical, err := filepath.EvalSymlinks(l.root)
	if err != nil {
		return "", fmt.Errorf("music folder: %w", err)
	}
	if canonical != rootCanonical && !strings.HasPrefix(canonical, rootCanonical+string(os.PathSeparator)) {
		l.log.Warn("path escape attempt blocked",
			zap.String("requested", canonical),
			zap.String("root", rootCanonical),
		)
		return "", fmt.Errorf("%w: path traversal not allowed", errs.ErrValidation)
	}
	return full, nil
}

// SanitizeFilename rejects empty names, path separators, traversal sequences
// and absolute or drive-prefixed paths.
func SanitizeFilename(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("%w: filename cannot be empty", errs.ErrValidation)
	}
	if strings.Contains(filename, "..") ||
		strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("%w: path traversal not allowed", errs.ErrValidation)
	}
	if len(filename) > 1 && filename[1] == ':' {
		return "", fmt.Errorf("%w: path traversal not allowed", errs.ErrValidation)
	}
	return filename, nil
}

// IsAudioFile reports whether the filename has a supported audio extension.
func IsAudioFile(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// SongID derives a stable identifier from a file path.
func SongID(path string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	return fmt.Sprintf("%016x", h.Sum64())
}

func extractMetadata(path string) (*model.Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(path)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	song := &model.Song{
		ID:       SongID(path),
		Title:    m.Title(),
		Artist:   m.Artist(),
		Album:    m.Album(),
		Format:   ext,
		File:     filename,
		HasCover: m.Picture() != nil,
	}
	if song.Title == "" {
		song.Title = filename
	}
	if song.Artist == "" {
		song.Artist = "Unknown Artist"
	}
	if song.Album == "" {
		song.Album = "Unknown Album"
	}
	if year := m.Year(); year != 0 {
		song.Year = &year
	}
	if track, _ := m.Track(); track != 0 {
		song.TrackNumber = &track
	}
	if genre := m.Genre(); genre != "" {
		song.Genre = &genre
	}
	// TODO: fill Duration; the tag headers alone do not carry it, decoding
	// the audio stream is needed.
	return song, nil
}
