package recommend

import "context"

// SongCatalog supplies the user-scoped song catalog the engine scores over.
// Implementations must return only songs owned by userID; the engine performs
// no ownership filtering of its own.
type SongCatalog interface {
	SongsForUser(ctx context.Context, userID int64) ([]Song, error)
}

// Service ranks a user's catalog against a reference song. It is stateless:
// every call fetches the catalog fresh, and nothing is cached or written back.
type Service struct {
	catalog SongCatalog
}

// NewService wires a Service to the given catalog.
func NewService(catalog SongCatalog) *Service {
	return &Service{catalog: catalog}
}

// NextSongs returns the user's best follow-up candidates for the given song.
// An unknown currentSongID (wrong ID, or a song the user does not own) is a
// normal outcome and yields an empty list, not an error. The current song is
// always excluded from its own recommendations, on top of any caller-supplied
// exclusions. Catalog fetch failures are returned unmodified.
func (s *Service) NextSongs(ctx context.Context, userID, currentSongID int64, excludeIDs []int64, maxResults int) ([]Result, error) {
	songs, err := s.catalog.SongsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var reference *Song
	for i := range songs {
		if songs[i].ID == currentSongID {
			reference = &songs[i]
			break
		}
	}
	if reference == nil {
		return []Result{}, nil
	}

	exclude := make(map[int64]struct{}, len(excludeIDs)+1)
	for _, id := range excludeIDs {
		exclude[id] = struct{}{}
	}
	exclude[currentSongID] = struct{}{}

	return Rank(*reference, songs, exclude, maxResults), nil
}
