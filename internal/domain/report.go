package domain

import "time"

// MatchResult is the reported result relative to side 0 of the report.
type MatchResult int

const (
	Side0Won MatchResult = iota
	Side1Won
	Draw
)

func (r MatchResult) String() string {
	switch r {
	case Side0Won:
		return "side0_won"
	case Side1Won:
		return "side1_won"
	default:
		return "draw"
	}
}

// Participant is one side of a reported match, identified by installation
// fingerprint, not by profile.
type Participant struct {
	Fingerprint     string `validate:"required"`
	ProfileName     string
	AvatarURL       string
	Faction         string `validate:"required"`
	SelectedFaction string `validate:"required"`
}

// MatchReport is the validated input record handed to the coordinator by
// the report source. Side order carries no meaning beyond tying each
// participant to its faction and the result.
type MatchReport struct {
	Participant0 Participant `validate:"required"`
	Participant1 Participant `validate:"required"`
	Result       MatchResult `validate:"min=0,max=2"`
	StartTime    time.Time   `validate:"required"`
	EndTime      time.Time   `validate:"required"`
	Filename     string
	MapUID       string `validate:"required"`
	MapTitle     string
}
