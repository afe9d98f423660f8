package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"broadcast/internal/cache"
	"broadcast/internal/config"
	"broadcast/internal/logx"
)

// Game is one national-team fixture from the schedule.
type Game struct {
	PK   int    `json:"game_pk"`
	Away string `json:"away"`
	Home string `json:"home"`
	Date string `json:"date"`
}

// Label describes the fixture for cache catalog entries and listings.
func (g Game) Label() string {
	return fmt.Sprintf("%s vs %s", g.Away, g.Home)
}

// Highlight is a downloadable highlight from a game's content feed. Index is
// its position among the game's playable highlights; index 0 is the recap.
type Highlight struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
}

// Client reads the MLB Stats API. Schedule and highlight responses are
// memoized for the client's lifetime.
type Client struct {
	BaseURL string
	Season  int
	SportID int
	HTTP    *http.Client
	Logger  logx.Logger

	mu         sync.Mutex
	schedule   []Game
	highlights map[int][]Highlight
}

// NewClient builds a client from the sources configuration.
func NewClient(cfg config.Config, httpClient *http.Client, logger logx.Logger) *Client {
	if httpClient == nil {
		timeout := time.Duration(cfg.Sources.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		BaseURL:    strings.TrimRight(cfg.Sources.StatsBaseURL, "/"),
		Season:     cfg.Sources.Season,
		SportID:    cfg.Sources.SportID,
		HTTP:       httpClient,
		Logger:     logx.OrDiscard(logger),
		highlights: map[int][]Highlight{},
	}
}

type scheduleResponse struct {
	Dates []struct {
		Date  string `json:"date"`
		Games []struct {
			GamePK int `json:"gamePk"`
			Teams  struct {
				Away scheduleSide `json:"away"`
				Home scheduleSide `json:"home"`
			} `json:"teams"`
		} `json:"games"`
	} `json:"dates"`
}

type scheduleSide struct {
	Team struct {
		Name string `json:"name"`
	} `json:"team"`
}

type contentResponse struct {
	Highlights struct {
		Highlights struct {
			Items []struct {
				Title       string `json:"title"`
				Headline    string `json:"headline"`
				Description string `json:"description"`
				Playbacks   []struct {
					Name string `json:"name"`
					URL  string `json:"url"`
				} `json:"playbacks"`
			} `json:"items"`
		} `json:"highlights"`
	} `json:"highlights"`
}

// Schedule returns the season's games between national teams, in schedule
// order.
func (c *Client) Schedule(ctx context.Context) ([]Game, error) {
	c.mu.Lock()
	cached := c.schedule
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	url := fmt.Sprintf("%s/api/v1/schedule?sportId=%d&season=%d", c.BaseURL, c.SportID, c.Season)
	var resp scheduleResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("fetch schedule: %w", err)
	}

	games := []Game{}
	for _, date := range resp.Dates {
		for _, g := range date.Games {
			away := strings.ToLower(strings.TrimSpace(g.Teams.Away.Team.Name))
			home := strings.ToLower(strings.TrimSpace(g.Teams.Home.Team.Name))
			if !IsNationalTeam(away) || !IsNationalTeam(home) {
				continue
			}
			games = append(games, Game{PK: g.GamePK, Away: away, Home: home, Date: date.Date})
		}
	}
	c.Logger.Printf("schedule season=%d: %d national-team games", c.Season, len(games))

	c.mu.Lock()
	c.schedule = games
	c.mu.Unlock()
	return games, nil
}

// Highlights returns the playable highlights for a game. Items without an MP4
// playback are dropped before indexing.
func (c *Client) Highlights(ctx context.Context, gamePK int) ([]Highlight, error) {
	c.mu.Lock()
	cached, ok := c.highlights[gamePK]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	url := fmt.Sprintf("%s/api/v1/game/%d/content", c.BaseURL, gamePK)
	var resp contentResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("fetch game %d content: %w", gamePK, err)
	}

	var out []Highlight
	for _, item := range resp.Highlights.Highlights.Items {
		url := ""
		for _, p := range item.Playbacks {
			if p.Name == "mp4Avc" && p.URL != "" {
				url = p.URL
				break
			}
		}
		if url == "" {
			for _, p := range item.Playbacks {
				if strings.HasSuffix(p.URL, ".mp4") {
					url = p.URL
					break
				}
			}
		}
		if url == "" {
			continue
		}
		title := firstNonEmpty(item.Title, item.Headline, "Highlight")
		out = append(out, Highlight{Index: len(out), Title: title, Description: item.Description, URL: url})
	}

	c.mu.Lock()
	c.highlights[gamePK] = out
	c.mu.Unlock()
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	var buf bytes.Buffer
	if err := cache.FetchURL(c.HTTP, url)(ctx, &buf); err != nil {
		return err
	}
	if err := json.Unmarshal(buf.Bytes(), v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
