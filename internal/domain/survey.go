package domain

import "time"

// SmokingSurvey captures a user's smoking habits at intake.
type SmokingSurvey struct {
	ID               int64
	UserID           int64
	CigarettesPerDay int
	PricePerPack     int64
	SmokingYears     int
	QuitAttempts     int
	Motivation       string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
