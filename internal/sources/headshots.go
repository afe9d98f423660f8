package sources

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"broadcast/internal/cache"
	"broadcast/internal/script"
)

// Headshots maps player ids and display names to downloaded portraits. It
// satisfies the renderer's resolver.
type Headshots struct {
	byID   map[string]string
	byName map[string]string
}

// NewHeadshots returns an empty headshot set.
func NewHeadshots() *Headshots {
	return &Headshots{byID: map[string]string{}, byName: map[string]string{}}
}

// Add records path for ref under both its id and its name.
func (h *Headshots) Add(ref script.PlayerRef, path string) {
	if id := strings.TrimSpace(string(ref.MLBID)); id != "" {
		h.byID[id] = path
	}
	if name := nameKey(ref.Name); name != "" {
		h.byName[name] = path
	}
}

// Resolve looks ref up by id, then by name.
func (h *Headshots) Resolve(ref script.PlayerRef) (string, bool) {
	if h == nil {
		return "", false
	}
	if id := strings.TrimSpace(string(ref.MLBID)); id != "" {
		if p, ok := h.byID[id]; ok {
			return p, true
		}
	}
	if name := nameKey(ref.Name); name != "" {
		if p, ok := h.byName[name]; ok {
			return p, true
		}
	}
	return "", false
}

// Len is the number of distinct player ids with a portrait.
func (h *Headshots) Len() int {
	if h == nil {
		return 0
	}
	return len(h.byID)
}

func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// HeadshotURL expands the configured template for a player id.
func HeadshotURL(template string, id script.PlayerID) string {
	return strings.ReplaceAll(template, "{id}", string(id))
}

// PrefetchHeadshots downloads a portrait for every distinct player id the
// slides mention. Players without an id, and downloads that fail, are left
// out; the renderer then draws a text-only layout.
func (s *Sourcer) PrefetchHeadshots(ctx context.Context, slides []script.Slide) (*Headshots, error) {
	shots := NewHeadshots()
	if s.Cache == nil {
		return shots, nil
	}
	doc := script.Script{Slides: slides}
	refs := doc.PlayerRefs()

	httpClient := cache.DefaultHTTPClient
	if s.Client != nil && s.Client.HTTP != nil {
		httpClient = s.Client.HTTP
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.Concurrency))
	for _, ref := range refs {
		if ref.MLBID == "" {
			continue
		}
		g.Go(func() error {
			url := HeadshotURL(s.HeadshotURL, ref.MLBID)
			path, err := s.Cache.FetchOrGet(gctx, cache.KindHeadshot, string(ref.MLBID), cache.FetchURL(httpClient, url))
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.Logger.Printf("headshot %s (%s): %v", ref.MLBID, ref.Name, err)
				return nil
			}
			s.Cache.Label(gctx, cache.KindHeadshot, string(ref.MLBID), ref.Name)
			mu.Lock()
			shots.Add(ref, path)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return shots, err
	}
	s.Logger.Printf("headshots: %d of %d players resolved", shots.Len(), len(refs))
	return shots, nil
}
