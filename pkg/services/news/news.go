package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/common"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

const (
	defaultTTL      = 20 * time.Minute
	defaultLimit    = 10
	maxLimit        = 50
	maxItemsPerFeed = 15
	maxFeedBytes    = 2 << 20
)

var defaultFeeds = []string{
	"https://feeds.bbci.co.uk/news/world/rss.xml",
	"https://apnews.com/hub/world-news/rss",
	"https://feeds.reuters.com/reuters/topNews",
}

// Service aggregates headlines from a set of RSS feeds. Feeds are fetched
// concurrently; one broken feed degrades the result instead of failing it.
type Service struct {
	upstream *common.UpstreamClient
	cache    *common.TTLCache[[]types.NewsItem]
	feeds    []string
}

// NewService creates the news service
func NewService(upstream *common.UpstreamClient, cfg types.NewsConfig) *Service {
	feeds := cfg.Feeds
	if len(feeds) == 0 {
		feeds = defaultFeeds
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}
	return &Service{
		upstream: upstream,
		cache:    common.NewTTLCache[[]types.NewsItem](1, ttl),
		feeds:    feeds,
	}
}

// Headlines returns the newest items across all feeds, newest first
func (s *Service) Headlines(ctx context.Context, limit int) ([]types.NewsItem, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		return nil, &types.ErrInvalidParams{Reason: fmt.Sprintf("limit must be at most %d", maxLimit)}
	}

	items, err := s.cache.GetOrLoad(common.Keys.CacheNews(), func() ([]types.NewsItem, error) {
		return s.fetchAll(ctx)
	})
	if err != nil {
		return nil, err
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// fetchAll pulls every feed concurrently and merges the results. It fails only
// when every feed fails.
func (s *Service) fetchAll(ctx context.Context) ([]types.NewsItem, error) {
	var mu sync.Mutex
	var items []types.NewsItem
	var failed int

	var wg sync.WaitGroup
	for _, feedURL := range s.feeds {
		wg.Add(1)
		go func(feedURL string) {
			defer wg.Done()

			feedItems, err := s.fetchFeed(ctx, feedURL)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn().Err(err).Str("feed", feedURL).Msg("news feed fetch failed")
				failed++
				return
			}
			items = append(items, feedItems...)
		}(feedURL)
	}
	wg.Wait()

	if failed == len(s.feeds) {
		return nil, fmt.Errorf("all %d news feeds failed", failed)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	return items, nil
}

func (s *Service) fetchFeed(ctx context.Context, feedURL string) ([]types.NewsItem, error) {
	resp, err := s.upstream.Get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, err
	}
	return parseFeed(body)
}

type rssFeed struct {
	Channel struct {
		Title string `xml:"title"`
		Items []struct {
			Title       string `xml:"title"`
			Link        string `xml:"link"`
			Description string `xml:"description"`
			PubDate     string `xml:"pubDate"`
		} `xml:"item"`
	} `xml:"channel"`
}

// pubDateLayouts covers the date formats seen across common RSS feeds
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

func parseFeed(body []byte) ([]types.NewsItem, error) {
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	source := strings.TrimSpace(feed.Channel.Title)
	items := make([]types.NewsItem, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		if len(items) == maxItemsPerFeed {
			break
		}
		items = append(items, types.NewsItem{
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			Source:      source,
			Summary:     strings.TrimSpace(item.Description),
			PublishedAt: parsePubDate(item.PubDate),
		})
	}
	return items, nil
}

func parsePubDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range pubDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}
