// Package sources holds the adapters for each upstream doctor directory.
package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"doctor_reputation/internal/domain"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

func jsonHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      browserUA,
		"Accept":          "application/json",
		"Accept-Language": "en-US,en;q=0.9",
	}
}

func htmlHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      browserUA,
		"Accept":          "text/html,application/xhtml+xml",
		"Accept-Language": "en-GB,en;q=0.9",
	}
}

// fetchOK fetches u and classifies transport failures and non-2xx statuses as SourceUnavailable.
func fetchOK(ctx context.Context, f domain.Fetcher, u string, headers map[string]string) ([]byte, error) {
	doc, err := f.Fetch(ctx, u, headers)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.E(domain.KindSourceUnavailable, "fetch "+u, err)
	}
	if doc.Status < 200 || doc.Status > 299 {
		return nil, domain.E(domain.KindSourceUnavailable, fmt.Sprintf("status %d from %s", doc.Status, u), nil)
	}
	return doc.Body, nil
}

func getJSON(ctx context.Context, f domain.Fetcher, u string) (map[string]any, error) {
	body, err := fetchOK(ctx, f, u, jsonHeaders())
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, domain.E(domain.KindSourceMalformed, "decode "+u, err)
	}
	return out, nil
}

func getHTML(ctx context.Context, f domain.Fetcher, u string) (*goquery.Document, error) {
	body, err := fetchOK(ctx, f, u, htmlHeaders())
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, domain.E(domain.KindSourceMalformed, "parse "+u, err)
	}
	return doc, nil
}
