package models

import "time"

// Page is the raw outcome of fetching a URL.
type Page struct {
	URL         string    `json:"url"`
	FinalURL    string    `json:"final_url"`
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	HTML        string    `json:"-"`
	HTMLHash    string    `json:"html_hash"`
	RenderMS    int       `json:"render_ms"`
	FetchedAt   time.Time `json:"fetched_at"`
}
