package domain

import (
	"time"

	"github.com/google/uuid"
)

type Chapter struct {
	ID        uuid.UUID
	Name      string
	Region    string
	Published bool
	CreatedAt time.Time
}

// Volunteer is a member acting in an organisational capacity. Board roles
// are always held by volunteers, never by members directly.
type Volunteer struct {
	ID        uuid.UUID
	MemberID  uuid.UUID
	Name      string
	Email     string
	Active    bool
	CreatedAt time.Time
}

// BoardMember is one seat on a chapter board. Rows are never deleted on
// removal; they are deactivated with an end date so the board history stays
// reconstructable.
type BoardMember struct {
	ID          uuid.UUID
	ChapterID   uuid.UUID
	VolunteerID uuid.UUID
	Role        string
	UniqueRole  bool // at most one active holder per chapter (chair, treasurer)
	FromDate    time.Time
	ToDate      *time.Time
	IsActive    bool
	Notes       *string
	CreatedAt   time.Time
}

// ChapterMember links a member to a chapter. Board appointments add this
// link automatically; a member can belong to several chapters.
type ChapterMember struct {
	ChapterID uuid.UUID
	MemberID  uuid.UUID
	JoinedAt  time.Time
	CreatedAt time.Time
}

type AssignmentStatus string

const (
	AssignmentStatusActive    AssignmentStatus = "active"
	AssignmentStatusCompleted AssignmentStatus = "completed"
)

// VolunteerAssignment mirrors a board seat (or other role) on the
// volunteer's own history. Closed, never removed, when the seat ends.
type VolunteerAssignment struct {
	ID          uuid.UUID
	VolunteerID uuid.UUID
	ChapterID   uuid.UUID
	Role        string
	StartDate   time.Time
	EndDate     *time.Time
	Status      AssignmentStatus
	Reason      *string
	CreatedAt   time.Time
}
