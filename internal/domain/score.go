package domain

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rachelandtim/wedding-api/internal/utils"
)

type GameScore struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// LeaderboardEntry is a scored row with its computed rank.
type LeaderboardEntry struct {
	ID        int64     `json:"id"`
	Rank      int       `json:"rank"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	ScoreNameMin = 2
	ScoreNameMax = 50

	// MaxGameScore caps submissions; anything above is treated as cheating.
	MaxGameScore = 9999

	LeaderboardSize = 10
)

type SubmitScoreRequest struct {
	Name  string `json:"name"`
	Score *int   `json:"score"`
}

func (r *SubmitScoreRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(r.Name) < ScoreNameMin {
		return fmt.Errorf("name must be at least %d characters", ScoreNameMin)
	}
	if utf8.RuneCountInString(r.Name) > ScoreNameMax {
		return fmt.Errorf("name must be less than %d characters", ScoreNameMax)
	}
	if r.Score == nil || *r.Score < 0 {
		return fmt.Errorf("valid score is required")
	}
	if *r.Score > MaxGameScore {
		return fmt.Errorf("score seems too high, play fairly")
	}
	return nil
}

func (r *SubmitScoreRequest) Normalize() {
	r.Name = utils.Sanitize(r.Name)
}
