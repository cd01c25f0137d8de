package domain

import (
	"strings"
	"time"
)

// ProductSource tells where a catalog entry came from.
type ProductSource string

const (
	SourceDatabase ProductSource = "database"
	SourceConfig   ProductSource = "config"
	SourceDemo     ProductSource = "demo"
)

// Product is a catalog entry. Matching treats it as read-only input.
type Product struct {
	ID          int64         `json:"id,omitempty"`
	BusinessID  int64         `json:"business_id,omitempty"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       *float64      `json:"price,omitempty"`
	ImageURL    string        `json:"image_url,omitempty"`
	VideoURL    string        `json:"video_url,omitempty"`
	Gallery     []string      `json:"gallery,omitempty"`
	Tags        string        `json:"tags,omitempty"`
	URL         string        `json:"url,omitempty"`
	Source      ProductSource `json:"source,omitempty"`
	CreatedAt   time.Time     `json:"created_at,omitempty"`
}

// TagList splits the comma-separated tag field, dropping blanks.
func (p Product) TagList() []string {
	if p.Tags == "" {
		return nil
	}
	parts := strings.Split(p.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, t := range parts {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Visual returns the image url, falling back to the video url.
func (p Product) Visual() string {
	if p.ImageURL != "" {
		return p.ImageURL
	}
	return p.VideoURL
}

// ProductSummary is the listing shape used for "what do you sell" answers.
type ProductSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
}

// MatchResult is the single best product for a message.
type MatchResult struct {
	Product Product `json:"product"`
	Score   int     `json:"score"`
}

// ProductInput is the writable part of a product.
type ProductInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	ImageURL    string   `json:"image_url"`
	VideoURL    string   `json:"video_url"`
	Gallery     []string `json:"gallery"`
	Tags        string   `json:"tags"`
	URL         string   `json:"url"`
}
