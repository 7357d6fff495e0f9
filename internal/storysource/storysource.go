// Package storysource fetches and loads compiled story bundles: an opaque
// compiled-ink-style JSON blob plus the metadata a session needs to seed
// its KnownChats allowlist and default locale. The bundle's compiled
// contents stay opaque here — constructing a story.Interpreter from them
// is the external collaborator's job, not this package's.
package storysource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-resty/resty/v2"
)

// Bundle is one loadable story, identified by StoryID.
type Bundle struct {
	StoryID       string          `json:"storyId"`
	Title         string          `json:"title"`
	DefaultLocale string          `json:"defaultLocale"`
	KnownChats    []string        `json:"knownChats"`
	Compiled      json.RawMessage `json:"compiled"`
}

// Source loads a story bundle by id.
type Source interface {
	Load(ctx context.Context, storyID string) (*Bundle, error)
}

// LocalSource reads bundles from a directory of "<storyID>.json" files —
// the default for self-hosted story content.
type LocalSource struct {
	dir string
}

func NewLocalSource(dir string) *LocalSource {
	return &LocalSource{dir: dir}
}

func (l *LocalSource) Load(ctx context.Context, storyID string) (*Bundle, error) {
	path := filepath.Join(l.dir, storyID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storysource: reading bundle %q: %w", storyID, err)
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("storysource: decoding bundle %q: %w", storyID, err)
	}
	if bundle.StoryID == "" {
		bundle.StoryID = storyID
	}

	return &bundle, nil
}

// RemoteSource fetches bundles from an HTTP story registry, grounded on
// the teacher's resty client setup (timeout + retry-on-5xx).
type RemoteSource struct {
	client  *resty.Client
	baseURL string
}

func NewRemoteSource(baseURL string) *RemoteSource {
	client := resty.New()
	client.SetTimeout(defaultTimeout)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(defaultRetryWait)
	client.SetRetryMaxWaitTime(defaultRetryMaxWait)
	client.SetHeader("Accept", "application/json")

	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() >= 500
	})

	client.SetBaseURL(baseURL)

	return &RemoteSource{client: client, baseURL: baseURL}
}

func (r *RemoteSource) Load(ctx context.Context, storyID string) (*Bundle, error) {
	bundle := &Bundle{}

	resp, err := r.client.R().
		SetContext(ctx).
		SetResult(bundle).
		Get("/stories/" + url.PathEscape(storyID))

	if err != nil {
		return nil, fmt.Errorf("storysource: fetching bundle %q from %s: %w", storyID, r.baseURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("storysource: bundle %q fetch failed: status %d", storyID, resp.StatusCode())
	}
	if bundle.StoryID == "" {
		bundle.StoryID = storyID
	}

	return bundle, nil
}

// PrefetchAll warms a cache of bundles concurrently, bounded by a
// semaphore the way the teacher's ArticleFetcher.FetchMultiple limits
// concurrent outbound requests.
func PrefetchAll(ctx context.Context, src Source, storyIDs []string, maxConcurrent int) (map[string]*Bundle, []error) {
	if len(storyIDs) == 0 {
		return nil, nil
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}

	type result struct {
		id     string
		bundle *Bundle
		err    error
	}

	resultChan := make(chan result, len(storyIDs))
	semaphore := make(chan struct{}, maxConcurrent)

	for _, id := range storyIDs {
		go func(storyID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			bundle, err := src.Load(ctx, storyID)
			resultChan <- result{id: storyID, bundle: bundle, err: err}
		}(id)
	}

	bundles := make(map[string]*Bundle, len(storyIDs))
	var errs []error
	for i := 0; i < len(storyIDs); i++ {
		select {
		case res := <-resultChan:
			if res.err != nil {
				errs = append(errs, res.err)
				continue
			}
			bundles[res.id] = res.bundle
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
			return bundles, errs
		}
	}

	return bundles, errs
}
