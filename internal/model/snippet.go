// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Snippet lifecycle states. A draft is visible only to its author; published
// snippets show up in public listings (if visibility is public); archived
// snippets are kept but hidden from every listing.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Snippet visibility. Private snippets never appear outside the author's
// dashboard, regardless of status.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Snippet represents a stored code snippet.
//
// The `json:"..."` tags tell Go's encoding/json package how to serialize
// this struct to/from JSON in API responses.
//
// MetaTitle/MetaDescription/MetaKeywords are SEO fields — optional, either
// typed in by the author or produced by the AI metadata generator.
type Snippet struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description"`
	Content         string    `json:"content"`
	Language        string    `json:"language"`
	Status          string    `json:"status"`
	Visibility      string    `json:"visibility"`
	ViewCount       int64     `json:"viewCount"`
	MetaTitle       string    `json:"metaTitle,omitempty"`
	MetaDescription string    `json:"metaDescription,omitempty"`
	MetaKeywords    []string  `json:"metaKeywords,omitempty"`
	AuthorID        string    `json:"authorId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// TagRef is the flat {name, slug} pair attached to snippet view models.
type TagRef struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Tag is a stored tag row. Tags are global (not per-user) and created lazily
// the first time any snippet uses them. UsageCount is an ordering hint for
// the popular-tags endpoint, counted from the live associations when read.
type Tag struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	UsageCount int64  `json:"usageCount"`
}

// Author is the subset of a profile shown next to a snippet.
type Author struct {
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl"`
}

// JoinedSnippet is the nested shape a snippet read query produces before
// flattening: the snippet row plus its joined author, the raw tag join rows,
// and the aggregate counts as count arrays (zero or one element each).
//
// This mirrors how the store hands back a multi-table join. View code never
// sees this shape — service.Flatten collapses it into a SnippetCard.
type JoinedSnippet struct {
	Snippet
	Author         *Author
	DocumentTags   []TagRef
	LikeCounts     []int64
	BookmarkCounts []int64
}

// SnippetCard is the flat view model consumed by pages: joined tags as a
// plain list, aggregate counts collapsed to scalars.
type SnippetCard struct {
	Snippet
	Author    *Author  `json:"author"`
	Tags      []TagRef `json:"tags"`
	Likes     int64    `json:"likes"`
	Bookmarks int64    `json:"bookmarks"`
}

// SearchResult is a page of snippet cards plus the exact total row count
// (independent of page/limit), for building pagination controls.
type SearchResult struct {
	Snippets []SnippetCard `json:"snippets"`
	Total    int64         `json:"total"`
}

// DashboardStats summarises a user's snippets for the dashboard header.
type DashboardStats struct {
	TotalSnippets int64 `json:"totalSnippets"`
	TotalViews    int64 `json:"totalViews"`
	TotalLikes    int64 `json:"totalLikes"`
}
