package repository

import (
	"errors"

	"github.com/twobeats/worldcup/internal/domain/model"
)

// Sentinel kinds for repository errors.
var (
	ErrNotFound          = model.ErrNotFound
	ErrInvalidLimit      = errors.New("invalid leaderboard limit")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)
