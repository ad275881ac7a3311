// Package media issues delete calls against the external media store for
// file references left behind by removed messages.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Config holds media store connection settings.
type Config struct {
	BaseURL string `env:"MEDIA_BASE_URL"`
	APIKey  string `env:"MEDIA_API_KEY"`
}

// Deleter removes stored media objects by their reference ids.
type Deleter interface {
	DeleteMany(ctx context.Context, ids []string) error
}

// HTTPDeleter implements Deleter against the media store REST API.
type HTTPDeleter struct {
	cfg        Config
	httpClient *http.Client
}

func NewHTTPDeleter(cfg Config) *HTTPDeleter {
	return &HTTPDeleter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// DeleteMany deletes each referenced object. It keeps going on individual
// failures and reports the first error encountered.
func (d *HTTPDeleter) DeleteMany(ctx context.Context, ids []string) error {
	var firstErr error
	for _, id := range ids {
		if err := d.deleteOne(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (d *HTTPDeleter) deleteOne(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		d.cfg.BaseURL+"/files/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("media store returned %d for file %s", resp.StatusCode, id)
	}

	return nil
}

// Nop is a Deleter that does nothing. Used when no media store is configured.
type Nop struct{}

func (Nop) DeleteMany(context.Context, []string) error { return nil }
