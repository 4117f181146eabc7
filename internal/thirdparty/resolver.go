// Package thirdparty verifies third-party collection items, through the
// provider's resolver API for legacy items and on chain for linked ones.
package thirdparty

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emperorhan/ownership-indexer/internal/metrics"
)

const (
	DefaultTimeout = 5 * time.Second
	maxPages       = 50
)

type AssetURN struct {
	Decentraland string `json:"decentraland"`
}

// Asset is one entry a resolver reports as held by the owner.
type Asset struct {
	ID     string   `json:"id"`
	Amount int      `json:"amount"`
	URN    AssetURN `json:"urn"`
}

type assetsPage struct {
	Assets []Asset `json:"assets"`
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Next   string  `json:"next,omitempty"`
}

// AssetLister lists the assets a resolver knows for one owner.
type AssetLister interface {
	OwnedAssets(ctx context.Context, registryID, owner string) ([]Asset, error)
}

// Resolver talks to one third-party provider's resolver API.
type Resolver struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	logger     *slog.Logger
}

func NewResolver(baseURL string, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base := strings.TrimRight(baseURL, "/")
	return &Resolver{
		httpClient: &http.Client{},
		baseURL:    base,
		timeout:    timeout,
		logger:     logger.With("component", "thirdparty_resolver", "base_url", base),
	}
}

// OwnedAssets follows next links until the last page. A non-OK page ends the
// walk and returns what was collected so far without an error; transport
// failures and timeouts are returned.
func (r *Resolver) OwnedAssets(ctx context.Context, registryID, owner string) ([]Asset, error) {
	next := fmt.Sprintf("%s/registry/%s/address/%s/assets",
		r.baseURL, url.PathEscape(registryID), url.PathEscape(strings.ToLower(owner)))

	assets := make([]Asset, 0)
	seen := make(map[string]struct{})
	for pages := 0; next != "" && pages < maxPages; pages++ {
		if _, loop := seen[next]; loop {
			break
		}
		seen[next] = struct{}{}

		page, status, err := r.fetchPage(ctx, next)
		if err != nil {
			metrics.ResolverRequests.WithLabelValues("error").Inc()
			return assets, fmt.Errorf("resolver %s: %w", registryID, err)
		}
		metrics.ResolverRequests.WithLabelValues(fmt.Sprint(status)).Inc()
		if status != http.StatusOK {
			r.logger.Warn("resolver page failed, returning partial assets",
				"registry", registryID,
				"owner", owner,
				"status", status,
				"assets", len(assets),
			)
			return assets, nil
		}
		assets = append(assets, page.Assets...)

		next, err = r.resolveNext(next, page.Next)
		if err != nil {
			r.logger.Warn("invalid next link", "registry", registryID, "next", page.Next, "error", err)
			return assets, nil
		}
	}
	return assets, nil
}

func (r *Resolver) fetchPage(ctx context.Context, pageURL string) (*assetsPage, int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	var page assetsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, 0, fmt.Errorf("decode page: %w", err)
	}
	return &page, resp.StatusCode, nil
}

// resolveNext accepts absolute next links as well as ones relative to the
// current page.
func (r *Resolver) resolveNext(current, next string) (string, error) {
	if next == "" {
		return "", nil
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
