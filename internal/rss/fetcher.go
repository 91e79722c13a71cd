package rss

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"podcast-app/internal/apperr"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
)

const userAgent = "podcast-app-rss-importer/1.0"

// FeedParser is the subset of gofeed.Parser the fetcher needs.
type FeedParser interface {
	ParseURLWithContext(feedURL string, ctx context.Context) (*gofeed.Feed, error)
}

type Fetcher struct {
	parser  FeedParser
	timeout time.Duration
}

// NewFetcher returns a fetcher whose requests give up after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	p := gofeed.NewParser()
	p.UserAgent = userAgent
	p.Client = &http.Client{Timeout: timeout}
	return &Fetcher{parser: p, timeout: timeout}
}

func NewFetcherWithParser(parser FeedParser, timeout time.Duration) *Fetcher {
	return &Fetcher{parser: parser, timeout: timeout}
}

// Fetch downloads and normalizes a feed. Nothing is persisted.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Feed, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, apperr.Validation("Invalid RSS URL")
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	parsed, err := f.parser.ParseURLWithContext(rawURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, apperr.Wrap(err, apperr.KindFetch, "Failed to fetch RSS feed: "+httpErr.Status)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Wrap(err, apperr.KindFetch, "Timed out fetching RSS feed")
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, apperr.Wrap(err, apperr.KindFetch, "Failed to fetch RSS feed")
		}
		return nil, apperr.Wrap(err, apperr.KindValidation, "Failed to parse RSS feed")
	}

	feed, err := FromGofeed(parsed)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindValidation, "RSS feed must have a title")
	}
	return feed, nil
}
