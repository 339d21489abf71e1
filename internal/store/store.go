// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists review projects. The engine never touches storage;
// the calling workflow loads a project, runs iterations and saves the
// result, and review status changes travel the same path.
// Implements: docs/ARCHITECTURE § Project Store.
package store

import (
	"context"
	"errors"

	"github.com/pdiddy/snowball/pkg/types"
)

// ErrNoProject indicates the store holds no project yet.
var ErrNoProject = errors.New("no project found")

// Storage loads and saves one review project. Save must be atomic: a failed
// save leaves the previous state intact.
type Storage interface {
	Load(ctx context.Context) (*types.ReviewProject, error)
	Save(ctx context.Context, project *types.ReviewProject) error
	Close() error
}
