package registry

import (
	"time"

	"parcel/internal/project"
)

// Record is one registered publish.
type Record struct {
	ID              int64
	Context         project.Context
	Name            string
	Path            string
	Version         int
	PublishType     string
	ThumbnailPath   string
	DependencyPaths []string
	Fields          map[string]any
	CreatedAt       time.Time
}

// Filter narrows List queries. Zero-valued fields match everything.
type Filter struct {
	Project string
	Entity  string
	Step    string
	Task    string
	Name    string
	Type    string
	Path    string
}

// RegisterRequest carries everything needed to record a publish.
type RegisterRequest struct {
	Context         project.Context
	Name            string
	Path            string
	Version         int
	PublishType     string
	ThumbnailPath   string
	DependencyPaths []string
	Fields          map[string]any
}
