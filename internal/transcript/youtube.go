package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"knowledge-base-platform/internal/config"
	"knowledge-base-platform/internal/logger"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// minUsefulTranscript is the shortest caption text worth keeping; anything
// below it is treated as noise from a partially available track.
const minUsefulTranscript = 100

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:123.0) Gecko/20100101 Firefox/123.0",
}

// Service retrieves video transcripts. Acquisition walks a ladder of
// sources: YouTube's timedtext endpoint, then Invidious instances, then the
// video description as a last resort. Results are cached by video id since
// transcript acquisition is by far the most expensive extraction path.
type Service struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *redis.Client
	cacheTTL   time.Duration
	instances  []string
}

// NewService creates the transcript collaborator. cache may be nil, in
// which case every call walks the ladder.
func NewService(cfg *config.Config, cache *redis.Client) *Service {
	return &Service{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(cfg.TranscriptRateLimit), 1),
		cache:      cache,
		cacheTTL:   cfg.TranscriptCacheTTL,
		instances:  cfg.InvidiousInstances,
	}
}

// FetchContent returns the transcript text and video metadata for the
// given video URL, or an error when every acquisition method fails.
func (s *Service) FetchContent(ctx context.Context, videoURL string) (string, map[string]any, error) {
	videoID, err := ExtractVideoID(videoURL)
	if err != nil {
		return "", nil, err
	}

	meta := map[string]any{
		"video_id":   videoID,
		"source_url": videoURL,
	}

	if cached := s.cacheGet(ctx, videoID); cached != "" {
		logger.Debug("Transcript cache hit", "video_id", videoID)
		meta["from_cache"] = true
		return cached, meta, nil
	}

	// Method 1: YouTube timedtext captions
	if text, err := s.fetchTimedText(ctx, videoID); err == nil && len(text) >= minUsefulTranscript {
		s.cacheSet(ctx, videoID, text)
		return text, meta, nil
	} else if err != nil {
		logger.Debug("Timedtext fetch failed", "video_id", videoID, "error", err)
	}

	// Method 2: Invidious caption tracks, rotating instances
	text, vidMeta, invErr := s.fetchFromInvidious(ctx, videoID)
	for k, v := range vidMeta {
		meta[k] = v
	}
	if invErr == nil && len(text) >= minUsefulTranscript {
		s.cacheSet(ctx, videoID, text)
		return text, meta, nil
	}
	if invErr != nil {
		logger.Debug("Invidious fetch failed", "video_id", videoID, "error", invErr)
	}

	// Method 3: description fallback when it carries real content
	if desc, ok := vidMeta["description"].(string); ok && len(desc) > 200 {
		title, _ := vidMeta["title"].(string)
		fallback := fmt.Sprintf("Title: %s\n\nDescription: %s", title, desc)
		s.cacheSet(ctx, videoID, fallback)
		meta["description_fallback"] = true
		return fallback, meta, nil
	}

	return "", meta, fmt.Errorf("no transcript available for video %s", videoID)
}

// ExtractVideoID pulls the video id out of the known YouTube URL shapes.
func ExtractVideoID(videoURL string) (string, error) {
	trim := func(s string) string {
		if i := strings.IndexAny(s, "?&/"); i >= 0 {
			s = s[:i]
		}
		return s
	}

	switch {
	case strings.Contains(videoURL, "youtu.be/"):
		rest := strings.SplitN(videoURL, "youtu.be/", 2)[1]
		if id := trim(rest); id != "" {
			return id, nil
		}
	case strings.Contains(videoURL, "youtube.com/watch"):
		if u, err := url.Parse(videoURL); err == nil {
			if id := u.Query().Get("v"); id != "" {
				return id, nil
			}
		}
	case strings.Contains(videoURL, "youtube.com/embed/"):
		rest := strings.SplitN(videoURL, "embed/", 2)[1]
		if id := trim(rest); id != "" {
			return id, nil
		}
	case strings.Contains(videoURL, "youtube.com/v/"):
		rest := strings.SplitN(videoURL, "/v/", 2)[1]
		if id := trim(rest); id != "" {
			return id, nil
		}
	case strings.Contains(videoURL, "youtube.com/shorts/"):
		rest := strings.SplitN(videoURL, "shorts/", 2)[1]
		if id := trim(rest); id != "" {
			return id, nil
		}
	}

	return "", fmt.Errorf("could not extract video id from URL %q", videoURL)
}

// fetchTimedText queries YouTube's caption endpoint directly.
func (s *Service) fetchTimedText(ctx context.Context, videoID string) (string, error) {
	endpoint := fmt.Sprintf("https://video.google.com/timedtext?lang=en&v=%s", url.QueryEscape(videoID))
	body, err := s.get(ctx, endpoint, "")
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", fmt.Errorf("no timedtext track for %s", videoID)
	}
	return ParseTimedText(body)
}

type invidiousCaption struct {
	Label        string `json:"label"`
	LanguageCode string `json:"languageCode"`
	URL          string `json:"url"`
}

type invidiousVideo struct {
	Title       string             `json:"title"`
	Author      string             `json:"author"`
	Description string             `json:"description"`
	Captions    []invidiousCaption `json:"captions"`
}

// fetchFromInvidious tries each configured instance in turn. English
// tracks are preferred; any track beats none. Video metadata is returned
// even when captions fail so the caller can fall back to the description.
func (s *Service) fetchFromInvidious(ctx context.Context, videoID string) (string, map[string]any, error) {
	meta := map[string]any{}
	var lastErr error

	for _, instance := range s.instances {
		instance = strings.TrimRight(strings.TrimSpace(instance), "/")
		if instance == "" {
			continue
		}
		ua := userAgents[rand.Intn(len(userAgents))]

		body, err := s.get(ctx, fmt.Sprintf("%s/api/v1/videos/%s", instance, videoID), ua)
		if err != nil {
			lastErr = err
			continue
		}

		var video invidiousVideo
		if err := json.Unmarshal(body, &video); err != nil {
			lastErr = fmt.Errorf("decode video response from %s: %w", instance, err)
			continue
		}

		if video.Title != "" {
			meta["title"] = video.Title
		}
		if video.Author != "" {
			meta["author"] = video.Author
		}
		if video.Description != "" {
			meta["description"] = video.Description
		}

		captions := preferEnglish(video.Captions)
		for _, track := range captions {
			capURL := track.URL
			if strings.HasPrefix(capURL, "/") {
				capURL = instance + capURL
			}

			capBody, err := s.get(ctx, capURL, ua)
			if err != nil {
				lastErr = err
				continue
			}

			text := ParseCaptionPayload(capURL, string(capBody))
			if len(text) >= minUsefulTranscript {
				return text, meta, nil
			}
		}

		if len(captions) > 0 {
			lastErr = fmt.Errorf("caption tracks at %s too short to use", instance)
		} else {
			lastErr = fmt.Errorf("no caption tracks at %s", instance)
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no invidious instances configured")
	}
	return "", meta, lastErr
}

func preferEnglish(captions []invidiousCaption) []invidiousCaption {
	var english []invidiousCaption
	for _, c := range captions {
		if strings.HasPrefix(c.LanguageCode, "en") {
			english = append(english, c)
		}
	}
	if len(english) > 0 {
		return english
	}
	return captions
}

// get performs a rate-limited GET with a browser-like user agent.
func (s *Service) get(ctx context.Context, rawURL, userAgent string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if userAgent == "" {
		userAgent = userAgents[rand.Intn(len(userAgents))]
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %d", rawURL, resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

func (s *Service) cacheKey(videoID string) string {
	return "transcript:" + videoID
}

func (s *Service) cacheGet(ctx context.Context, videoID string) string {
	if s.cache == nil {
		return ""
	}
	val, err := s.cache.Get(ctx, s.cacheKey(videoID)).Result()
	if err != nil {
		return ""
	}
	return val
}

func (s *Service) cacheSet(ctx context.Context, videoID, text string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(videoID), text, s.cacheTTL).Err(); err != nil {
		logger.Warn("Failed to cache transcript", "video_id", videoID, "error", err)
	}
}
