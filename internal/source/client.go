// Package source loads memory records from the remote read-only data
// source. Records are fetched once at session start; there is no write
// path.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/memorylane/recall/quiz"
)

// ErrLoadFailed is returned when the record source cannot be queried.
// It is recoverable: the caller shows an error state and the user
// retries on relaunch.
var ErrLoadFailed = errors.New("unable to load memory records")

// Config holds the record source configuration.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client queries the record source.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a source client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// wireRecord is the JSON shape the source returns, newest first.
type wireRecord struct {
	ID         string `json:"id"`
	PersonName string `json:"person_name"`
	Location   string `json:"location"`
	Event      string `json:"event"`
	AssetURL   string `json:"asset_url"`
	VoiceID    string `json:"voice_id"`
}

// Recent fetches up to limit records ordered by recency. Records
// without an asset URL are dropped here, and empty display fields are
// normalized, so callers only ever see quiz-eligible records.
func (c *Client) Recent(ctx context.Context, limit int) ([]quiz.MemoryRecord, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad source URL: %v", ErrLoadFailed, err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("order", "recency")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP status %d", ErrLoadFailed, resp.StatusCode)
	}

	var wire []wireRecord
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	records := make([]quiz.MemoryRecord, 0, len(wire))
	for _, w := range wire {
		if w.AssetURL == "" {
			log.Debug("dropping record without asset", "id", w.ID)
			continue
		}
		records = append(records, quiz.MemoryRecord{
			ID:         w.ID,
			PersonName: w.PersonName,
			Location:   w.Location,
			Event:      w.Event,
			AssetURL:   w.AssetURL,
			VoiceID:    w.VoiceID,
		}.Normalize())
	}
	log.Debug("loaded memory records", "total", len(wire), "eligible", len(records))
	return records, nil
}
