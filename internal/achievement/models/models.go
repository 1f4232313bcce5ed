// Package models defines achievements, the badge classes credentials
// attest to.
package models

import "time"

// Criteria states what must be done to earn an achievement.
type Criteria struct {
	Narrative string `json:"narrative,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Alignment links an achievement to a node in an external skills framework.
type Alignment struct {
	TargetName  string `json:"targetName"`
	TargetURL   string `json:"targetUrl"`
	TargetType  string `json:"targetType,omitempty"`
	Description string `json:"targetDescription,omitempty"`
}

// Achievement is a badge class owned by an issuer profile. AchievementID
// is the externally visible identifier; ID is the storage primary key.
type Achievement struct {
	ID              int64
	AchievementID   string
	Name            string
	Description     string
	AchievementType string
	Criteria        Criteria
	Alignments      []Alignment
	Skills          []string
	ImageURL        string
	CreatorID       int64
	Published       bool
	Tags            []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
