package catalog

import (
	"context"
	"strings"

	"resona/model"
)

// searchLimit 搜索结果上限
const searchLimit = 20

// Search matches songs by title, artist name, album title or the textual
// HH:MM:SS form of their duration. An empty query returns no results.
// Results are capped at 20 songs.
func (s *Service) Search(ctx context.Context, query string) ([]*model.SongView, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []*model.SongView{}, nil
	}

	matches, err := s.songs.SearchByText(ctx, q, searchLimit)
	if err != nil {
		return nil, err
	}

	// 时长以 HH:MM:SS 文本匹配，数据库里存的是秒数，
	// 所以这一段在应用层完成
	if len(matches) < searchLimit {
		withDuration, err := s.songs.ListSongsWithDuration(ctx)
		if err != nil {
			return nil, err
		}
		seen := make(map[int64]bool, len(matches))
		for _, song := range matches {
			seen[song.ID] = true
		}
		for _, song := range withDuration {
			if len(matches) >= searchLimit {
				break
			}
			if seen[song.ID] || !strings.Contains(song.Duration.String(), q) {
				continue
			}
			seen[song.ID] = true
			matches = append(matches, song)
		}
	}

	return s.SongViews(ctx, matches)
}
