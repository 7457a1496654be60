package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/denizkarakus123/EventHive-backend/app/cfg"
)

var (
	ErrAccountInvalid = errors.New("account does not exist")
	ErrAccountPrivate = errors.New("account is private")
)

const (
	instagramAppID  = "936619743392459"
	timelineQueryID = "17888483320059182"
)

// Fetcher walks an account's timeline through the scraping proxy, one
// cursor-paginated page at a time.
type Fetcher struct {
	httpClient *http.Client
	parser     *Parser
	apiKey     string
	baseURL    string
	userAgent  string
	pageSize   int
}

func NewFetcher(httpClient *http.Client, parser *Parser) *Fetcher {
	cfg := cfg.Get()

	return &Fetcher{
		httpClient: httpClient,
		parser:     parser,
		apiKey:     cfg.ScraperAPIKey,
		baseURL:    cfg.ScraperBaseURL,
		userAgent:  cfg.UserAgent,
		pageSize:   cfg.PageSize,
	}
}

// Fetch resolves the account once, then follows the timeline's continuation
// cursor until the source reports no further pages. It returns the
// concatenation of all pages' posts newer than the watermark, in page order.
// Any transport or decode failure aborts the whole fetch; no partial results
// are returned.
func (f *Fetcher) Fetch(ctx context.Context, username string, watermark time.Time) (*FetchResult, error) {
	userID, err := f.resolveAccount(ctx, username)
	if err != nil {
		return nil, err
	}

	var posts []Post
	cursor := ""
	seenCursors := make(map[string]struct{})
	pages := 0

	for {
		data, err := f.fetchTimelinePage(ctx, userID, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch timeline page %d: %w", pages+1, err)
		}

		pagePosts, pageInfo, err := f.parser.ParseTimeline(data, watermark)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timeline page %d: %w", pages+1, err)
		}

		posts = append(posts, pagePosts...)
		pages++

		if pageInfo.EndCursor == "" {
			break
		}
		if _, seen := seenCursors[pageInfo.EndCursor]; seen {
			slog.Warn("Timeline cursor repeated, stopping pagination", "account", username, "cursor", pageInfo.EndCursor)
			break
		}
		seenCursors[pageInfo.EndCursor] = struct{}{}
		cursor = pageInfo.EndCursor
	}

	slog.Debug("Timeline fetch completed", "account", username, "pages", pages, "posts", len(posts))

	return &FetchResult{UserID: userID, Posts: posts}, nil
}

// resolveAccount validates the account and returns its opaque remote id.
// Only public, resolvable accounts are polled.
func (f *Fetcher) resolveAccount(ctx context.Context, username string) (string, error) {
	headers, err := json.Marshal(map[string]string{"x-ig-app-id": instagramAppID})
	if err != nil {
		return "", fmt.Errorf("failed to encode profile headers: %w", err)
	}

	target := fmt.Sprintf("https://i.instagram.com/api/v1/users/web_profile_info/?username=%s", url.QueryEscape(username))

	data, err := f.proxyRequest(ctx, target, string(headers))
	if err != nil {
		return "", fmt.Errorf("failed to fetch profile for %s: %w", username, err)
	}

	profile, err := f.parser.ParseProfile(data)
	if err != nil {
		return "", fmt.Errorf("failed to parse profile for %s: %w", username, err)
	}

	if profile == nil {
		return "", fmt.Errorf("account %q: %w", username, ErrAccountInvalid)
	}
	if profile.IsPrivate {
		return "", fmt.Errorf("account %q: %w", username, ErrAccountPrivate)
	}

	return profile.UserID, nil
}

func (f *Fetcher) fetchTimelinePage(ctx context.Context, userID, cursor string) ([]byte, error) {
	target := fmt.Sprintf("https://instagram.com/graphql/query/?query_id=%s&id=%s&first=%d",
		timelineQueryID, userID, f.pageSize)
	if cursor != "" {
		target += "&after=" + url.QueryEscape(cursor)
	}

	return f.proxyRequest(ctx, target, "")
}

// proxyRequest issues one GET through the scraping proxy for the given
// target URL.
func (f *Fetcher) proxyRequest(ctx context.Context, target, headers string) ([]byte, error) {
	params := url.Values{}
	params.Set("api_key", f.apiKey)
	params.Set("url", target)
	if headers != "" {
		params.Set("headers", headers)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", f.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
