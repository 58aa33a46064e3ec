package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/twobeats/worldcup/internal/domain/model"
)

// Catalog reads tournament candidates from the tracks table.
type Catalog struct {
	db *gorm.DB
}

// NewCatalog wraps an open database.
func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// ListEligible returns every track matching f. Genre and tag filters are ANDed.
func (c *Catalog) ListEligible(ctx context.Context, f model.Filter) ([]model.Candidate, error) {
	db := c.db.WithContext(ctx)
	q := db.Model(&Track{}).Preload("Tags")
	if f.Genre != "" {
		q = q.Where("genre = ?", string(f.Genre))
	}
	if tag := strings.TrimSpace(f.Tag); tag != "" {
		tagged := db.Table("track_tags").
			Select("track_tags.track_id").
			Joins("JOIN tags ON tags.id = track_tags.tag_id").
			Where("tags.name = ?", tag)
		q = q.Where("id IN (?)", tagged)
	}

	var tracks []Track
	if err := q.Order("id").Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("list eligible: %w", err)
	}
	out := make([]model.Candidate, len(tracks))
	for i, t := range tracks {
		out[i] = t.toModel()
	}
	return out, nil
}

// Track returns one catalog entry.
func (c *Catalog) Track(ctx context.Context, id model.CandidateID) (model.Candidate, error) {
	var t Track
	err := c.db.WithContext(ctx).Preload("Tags").Take(&t, uint64(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Candidate{}, fmt.Errorf("track %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Candidate{}, fmt.Errorf("track %d: %w", id, err)
	}
	return t.toModel(), nil
}

// Seed inserts tracks not already present (matched by title and artist) and
// returns how many were created.
func (c *Catalog) Seed(ctx context.Context, tracks []model.Candidate) (int, error) {
	created := 0
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, cand := range tracks {
			var n int64
			if err := tx.Model(&Track{}).
				Where("title = ? AND artist = ?", cand.Title, cand.Artist).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}

			tags := make([]Tag, 0, len(cand.Tags))
			for _, name := range cand.Tags {
				tag := Tag{Name: name}
				if err := tx.Where(Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
					return fmt.Errorf("tag %q: %w", name, err)
				}
				tags = append(tags, tag)
			}

			t := Track{
				ID:           uint64(cand.ID),
				Title:        cand.Title,
				Artist:       cand.Artist,
				Genre:        string(cand.Genre),
				ThumbnailURL: cand.ThumbnailURL,
				FileURL:      cand.FileURL,
				Tags:         tags,
			}
			if err := tx.Create(&t).Error; err != nil {
				return fmt.Errorf("track %q: %w", cand.Title, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	return created, nil
}

func (t Track) toModel() model.Candidate {
	tags := make([]string, len(t.Tags))
	for i, tg := range t.Tags {
		tags[i] = tg.Name
	}
	return model.Candidate{
		ID:           model.CandidateID(t.ID),
		Title:        t.Title,
		Artist:       t.Artist,
		Genre:        model.Genre(t.Genre),
		Tags:         tags,
		ThumbnailURL: t.ThumbnailURL,
		FileURL:      t.FileURL,
	}
}
