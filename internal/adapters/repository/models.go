package repository

import "time"

// Track is a catalog row.
type Track struct {
	ID           uint64 `gorm:"primaryKey"`
	Title        string `gorm:"size:200;not null;index:idx_tracks_title_artist"`
	Artist       string `gorm:"size:200;not null;index:idx_tracks_title_artist"`
	Genre        string `gorm:"size:20;not null;index"`
	ThumbnailURL string `gorm:"size:500"`
	FileURL      string `gorm:"size:500"`
	Tags         []Tag  `gorm:"many2many:track_tags;"`
	CreatedAt    time.Time
}

// Tag is a free-form track label.
type Tag struct {
	ID   uint64 `gorm:"primaryKey"`
	Name string `gorm:"size:50;not null;uniqueIndex"`
}

// WorldcupGame is the committed header of a tournament. BracketID is unique,
// which makes the insert the exactly-once gate.
type WorldcupGame struct {
	ID          uint64  `gorm:"primaryKey"`
	BracketID   string  `gorm:"size:36;not null;uniqueIndex"`
	UserID      *string `gorm:"size:64;index;check:chk_worldcup_games_participant,(user_id IS NOT NULL AND anon_id IS NULL) OR (user_id IS NULL AND anon_id IS NOT NULL)"`
	AnonID      *string `gorm:"size:64;index"`
	Size        int     `gorm:"not null"`
	TotalRounds int     `gorm:"not null"`
	ChampionID  uint64  `gorm:"not null;index"`
	CreatedAt   time.Time
}

// WorldcupEntry is one ranked candidate of a committed tournament.
type WorldcupEntry struct {
	ID          uint64 `gorm:"primaryKey"`
	BracketID   string `gorm:"size:36;not null;index"`
	CandidateID uint64 `gorm:"not null;index"`
	Rank        int    `gorm:"not null"`
}

// CandidateStat holds the lifetime aggregate of a candidate.
type CandidateStat struct {
	CandidateID uint64 `gorm:"primaryKey;autoIncrement:false"`
	Appearances int64  `gorm:"not null"`
	Wins        int64  `gorm:"not null"`
	BestFinish  int    `gorm:"not null"`
	UpdatedAt   time.Time
}

func (WorldcupGame) TableName() string  { return "worldcup_games" }
func (WorldcupEntry) TableName() string { return "worldcup_entries" }
func (CandidateStat) TableName() string { return "candidate_stats" }

func allModels() []any {
	return []any{&Track{}, &Tag{}, &WorldcupGame{}, &WorldcupEntry{}, &CandidateStat{}}
}
