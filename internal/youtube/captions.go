package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultBaseURL   = "https://www.youtube.com"
	playerRespMarker = "ytInitialPlayerResponse = "
	userAgent        = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// NoTranscriptError means the video has captions, but none in a requested language.
type NoTranscriptError struct {
	VideoID   string
	Requested []string
	Available []string
}

func (e *NoTranscriptError) Error() string {
	return fmt.Sprintf("no transcript for video %s in %v (available: %v)", e.VideoID, e.Requested, e.Available)
}

// ErrNoCaptions is returned for videos that expose no caption tracks at all.
var ErrNoCaptions = errors.New("video has no captions")

type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

type timedText struct {
	Lines []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

// CaptionFetcher scrapes caption tracks from the public watch page.
type CaptionFetcher struct {
	HTTPClient *http.Client
	BaseURL    string
}

// NewCaptionFetcher creates a fetcher against baseURL (empty = youtube.com).
func NewCaptionFetcher(baseURL string) *CaptionFetcher {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &CaptionFetcher{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Fetch returns the caption text of videoID, one caption segment per line.
// The first language in languages that has a track wins; within a language a
// manually authored track is preferred over an auto-generated one.
func (f *CaptionFetcher) Fetch(ctx context.Context, videoID string, languages []string) (string, error) {
	if len(languages) == 0 {
		languages = []string{"en"}
	}

	watchURL := f.BaseURL + "/watch?v=" + url.QueryEscape(videoID)
	body, err := f.get(ctx, watchURL)
	if err != nil {
		return "", fmt.Errorf("watch page: %w", err)
	}

	player, err := parsePlayerResponse(body)
	if err != nil {
		return "", err
	}
	if player.Captions == nil || len(player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks) == 0 {
		if player.PlayabilityStatus != nil && player.PlayabilityStatus.Reason != "" {
			return "", fmt.Errorf("%w: %s", ErrNoCaptions, player.PlayabilityStatus.Reason)
		}
		return "", ErrNoCaptions
	}
	tracks := player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks

	track, ok := pickTrack(tracks, languages)
	if !ok {
		available := make([]string, 0, len(tracks))
		for _, t := range tracks {
			available = append(available, t.LanguageCode)
		}
		return "", &NoTranscriptError{VideoID: videoID, Requested: languages, Available: available}
	}

	trackURL, err := f.resolve(track.BaseURL)
	if err != nil {
		return "", err
	}
	slog.Debug("fetching caption track", slog.String("video", videoID), slog.String("lang", track.LanguageCode), slog.String("kind", track.Kind))

	xmlBody, err := f.get(ctx, trackURL)
	if err != nil {
		return "", fmt.Errorf("timedtext: %w", err)
	}
	return parseTimedText(xmlBody)
}

func (f *CaptionFetcher) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, target)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8*1024*1024))
}

func (f *CaptionFetcher) resolve(ref string) (string, error) {
	base, err := url.Parse(f.BaseURL + "/")
	if err != nil {
		return "", err
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("bad caption track URL: %w", err)
	}
	return base.ResolveReference(u).String(), nil
}

// parsePlayerResponse finds the inline script assigning ytInitialPlayerResponse
// and decodes the object literal that follows the marker.
func parsePlayerResponse(page []byte) (*playerResponse, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse watch page: %w", err)
	}

	var raw []byte
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, playerRespMarker)
		if idx < 0 {
			return true
		}
		raw = extractJSON([]byte(text[idx+len(playerRespMarker):]))
		return raw == nil
	})
	if raw == nil {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}

	var player playerResponse
	if err := json.Unmarshal(raw, &player); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &player, nil
}

// extractJSON returns the complete object starting at b[0] == '{'.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

func pickTrack(tracks []captionTrack, languages []string) (captionTrack, bool) {
	for _, lang := range languages {
		var generated *captionTrack
		for i, t := range tracks {
			if t.LanguageCode != lang {
				continue
			}
			if t.Kind != "asr" {
				return t, true
			}
			if generated == nil {
				generated = &tracks[i]
			}
		}
		if generated != nil {
			return *generated, true
		}
	}
	return captionTrack{}, false
}

func parseTimedText(body []byte) (string, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("parse timedtext XML: %w", err)
	}
	lines := make([]string, 0, len(tt.Lines))
	for _, l := range tt.Lines {
		// captions are HTML-escaped a second time inside the XML
		text := strings.TrimSpace(html.UnescapeString(l.Text))
		if text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}
