package session

import (
	"errors"

	"go.uber.org/zap"

	"github.com/spigell/matchdeck/internal/profiles"
)

var ErrEmptyShortlist = errors.New("shortlist is empty")

// Shortlist returns the accepted profiles in the order they were accepted.
func (s *Session) Shortlist() []profiles.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]profiles.Profile, len(s.shortlist))
	copy(out, s.shortlist)
	return out
}

// ExportShortlist writes the shortlist as JSON into a temp file and returns
// its name.
func (s *Session) ExportShortlist() (string, error) {
	items := s.Shortlist()
	if len(items) == 0 {
		return "", ErrEmptyShortlist
	}

	list := &profiles.Profiles{Items: items}
	filename, err := list.DumpToTmpFile("matchdeck-shortlist-*.json")
	if err != nil {
		return "", err
	}

	s.logger.Info("dumping shortlist to file", zap.String("filename", filename), zap.Int("count", len(items)))
	return filename, nil
}
