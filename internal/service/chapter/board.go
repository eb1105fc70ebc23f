package chapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verenigingen/backend/internal/domain"
	"github.com/verenigingen/backend/internal/logging"
)

type chapterRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Chapter, error)
	GetVolunteer(ctx context.Context, id uuid.UUID) (*domain.Volunteer, error)
	CreateBoardMember(ctx context.Context, tx *sql.Tx, bm *domain.BoardMember) error
	AddMember(ctx context.Context, tx *sql.Tx, cm *domain.ChapterMember) error
	GetActiveBoardMember(ctx context.Context, chapterID, volunteerID uuid.UUID) (*domain.BoardMember, error)
	GetActiveRoleHolder(ctx context.Context, chapterID uuid.UUID, role string) (*domain.BoardMember, error)
	ListBoardMembers(ctx context.Context, chapterID uuid.UUID, includeInactive bool) ([]domain.BoardMember, error)
	DeactivateBoardMember(ctx context.Context, tx *sql.Tx, id uuid.UUID, endDate time.Time, notes *string) error
	CreateAssignment(ctx context.Context, tx *sql.Tx, a *domain.VolunteerAssignment) error
	CloseAssignment(ctx context.Context, tx *sql.Tx, volunteerID, chapterID uuid.UUID, role string, startDate, endDate time.Time, reason *string) error
	ListAssignments(ctx context.Context, volunteerID uuid.UUID) ([]domain.VolunteerAssignment, error)
}

// Service manages chapter board composition. Every change keeps the board
// row history and the volunteer's assignment history in step, inside one
// transaction.
type Service struct {
	chapters chapterRepo
	db       *sql.DB
}

func NewService(chapters chapterRepo, db *sql.DB) *Service {
	return &Service{chapters: chapters, db: db}
}

// AddBoardMember appoints a volunteer to a board role from the given date.
// When the role is unique and already held, the sitting holder is ended on
// the same date before the new seat is created.
func (s *Service) AddBoardMember(ctx context.Context, chapterID, volunteerID uuid.UUID, role string, uniqueRole bool, fromDate time.Time) (*domain.BoardMember, error) {
	log := logging.FromContext(ctx)

	if _, err := s.chapters.GetByID(ctx, chapterID); err != nil {
		return nil, fmt.Errorf("AddBoardMember: %w", err)
	}
	vol, err := s.chapters.GetVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("AddBoardMember: %w", err)
	}
	if !vol.Active {
		return nil, fmt.Errorf("AddBoardMember: volunteer %s: %w", volunteerID, domain.ErrVolunteerNotFound)
	}

	var displaced *domain.BoardMember
	if uniqueRole {
		holder, err := s.chapters.GetActiveRoleHolder(ctx, chapterID, role)
		switch {
		case err == nil && holder.VolunteerID == volunteerID:
			return nil, fmt.Errorf("AddBoardMember: %w", domain.ErrRoleOccupied)
		case err == nil:
			displaced = holder
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("AddBoardMember: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("AddBoardMember: begin: %w", err)
	}
	defer tx.Rollback()

	if displaced != nil {
		note := fmt.Sprintf("Role %s transferred on %s", role, fromDate.Format("2006-01-02"))
		if err := s.endSeat(ctx, tx, displaced, fromDate, &note); err != nil {
			return nil, fmt.Errorf("AddBoardMember: %w", err)
		}
		log.Info("displaced sitting role holder",
			"chapter_id", chapterID,
			"role", role,
			"previous_volunteer", displaced.VolunteerID,
		)
	}

	now := time.Now().UTC()
	bm := &domain.BoardMember{
		ID:          uuid.New(),
		ChapterID:   chapterID,
		VolunteerID: volunteerID,
		Role:        role,
		UniqueRole:  uniqueRole,
		FromDate:    fromDate,
		IsActive:    true,
		CreatedAt:   now,
	}
	if err := s.chapters.CreateBoardMember(ctx, tx, bm); err != nil {
		return nil, fmt.Errorf("AddBoardMember: %w", err)
	}

	assignment := &domain.VolunteerAssignment{
		ID:          uuid.New(),
		VolunteerID: volunteerID,
		ChapterID:   chapterID,
		Role:        role,
		StartDate:   fromDate,
		Status:      domain.AssignmentStatusActive,
		CreatedAt:   now,
	}
	if err := s.chapters.CreateAssignment(ctx, tx, assignment); err != nil {
		return nil, fmt.Errorf("AddBoardMember: %w", err)
	}

	// Board service implies chapter membership.
	membership := &domain.ChapterMember{
		ChapterID: chapterID,
		MemberID:  vol.MemberID,
		JoinedAt:  fromDate,
		CreatedAt: now,
	}
	if err := s.chapters.AddMember(ctx, tx, membership); err != nil {
		return nil, fmt.Errorf("AddBoardMember: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("AddBoardMember: commit: %w", err)
	}

	log.Info("board member added",
		"chapter_id", chapterID,
		"volunteer_id", volunteerID,
		"role", role,
	)
	return bm, nil
}

// RemoveBoardMember ends a volunteer's active seat. The board row and the
// assignment are both closed; nothing is deleted.
func (s *Service) RemoveBoardMember(ctx context.Context, chapterID, volunteerID uuid.UUID, endDate time.Time, reason *string) error {
	seat, err := s.chapters.GetActiveBoardMember(ctx, chapterID, volunteerID)
	if err != nil {
		return fmt.Errorf("RemoveBoardMember: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("RemoveBoardMember: begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.endSeat(ctx, tx, seat, endDate, reason); err != nil {
		return fmt.Errorf("RemoveBoardMember: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("RemoveBoardMember: commit: %w", err)
	}

	logging.FromContext(ctx).Info("board member removed",
		"chapter_id", chapterID,
		"volunteer_id", volunteerID,
		"role", seat.Role,
	)
	return nil
}

// TransitionRole moves a sitting board member to a new role on the given
// date. The old seat is closed and the new one opened atomically.
func (s *Service) TransitionRole(ctx context.Context, chapterID, volunteerID uuid.UUID, newRole string, uniqueRole bool, date time.Time) (*domain.BoardMember, error) {
	seat, err := s.chapters.GetActiveBoardMember(ctx, chapterID, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("TransitionRole: %w", err)
	}
	if seat.Role == newRole {
		return nil, fmt.Errorf("TransitionRole: %w", domain.ErrRoleOccupied)
	}

	var displaced *domain.BoardMember
	if uniqueRole {
		holder, err := s.chapters.GetActiveRoleHolder(ctx, chapterID, newRole)
		switch {
		case err == nil:
			displaced = holder
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("TransitionRole: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("TransitionRole: begin: %w", err)
	}
	defer tx.Rollback()

	note := fmt.Sprintf("Transitioned to %s on %s", newRole, date.Format("2006-01-02"))
	if err := s.endSeat(ctx, tx, seat, date, &note); err != nil {
		return nil, fmt.Errorf("TransitionRole: %w", err)
	}
	if displaced != nil {
		displacedNote := fmt.Sprintf("Role %s transferred on %s", newRole, date.Format("2006-01-02"))
		if err := s.endSeat(ctx, tx, displaced, date, &displacedNote); err != nil {
			return nil, fmt.Errorf("TransitionRole: %w", err)
		}
	}

	now := time.Now().UTC()
	bm := &domain.BoardMember{
		ID:          uuid.New(),
		ChapterID:   chapterID,
		VolunteerID: volunteerID,
		Role:        newRole,
		UniqueRole:  uniqueRole,
		FromDate:    date,
		IsActive:    true,
		CreatedAt:   now,
	}
	if err := s.chapters.CreateBoardMember(ctx, tx, bm); err != nil {
		return nil, fmt.Errorf("TransitionRole: %w", err)
	}
	assignment := &domain.VolunteerAssignment{
		ID:          uuid.New(),
		VolunteerID: volunteerID,
		ChapterID:   chapterID,
		Role:        newRole,
		StartDate:   date,
		Status:      domain.AssignmentStatusActive,
		CreatedAt:   now,
	}
	if err := s.chapters.CreateAssignment(ctx, tx, assignment); err != nil {
		return nil, fmt.Errorf("TransitionRole: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("TransitionRole: commit: %w", err)
	}

	logging.FromContext(ctx).Info("board role transitioned",
		"chapter_id", chapterID,
		"volunteer_id", volunteerID,
		"from_role", seat.Role,
		"to_role", newRole,
	)
	return bm, nil
}

// ListBoard returns the chapter's board, optionally including past seats.
func (s *Service) ListBoard(ctx context.Context, chapterID uuid.UUID, includeInactive bool) ([]domain.BoardMember, error) {
	if _, err := s.chapters.GetByID(ctx, chapterID); err != nil {
		return nil, fmt.Errorf("ListBoard: %w", err)
	}
	members, err := s.chapters.ListBoardMembers(ctx, chapterID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("ListBoard: %w", err)
	}
	return members, nil
}

// ListAssignments returns a volunteer's full role history across chapters.
func (s *Service) ListAssignments(ctx context.Context, volunteerID uuid.UUID) ([]domain.VolunteerAssignment, error) {
	if _, err := s.chapters.GetVolunteer(ctx, volunteerID); err != nil {
		return nil, fmt.Errorf("ListAssignments: %w", err)
	}
	assignments, err := s.chapters.ListAssignments(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("ListAssignments: %w", err)
	}
	return assignments, nil
}

// endSeat deactivates a board row and completes the matching assignment.
func (s *Service) endSeat(ctx context.Context, tx *sql.Tx, seat *domain.BoardMember, endDate time.Time, reason *string) error {
	if err := s.chapters.DeactivateBoardMember(ctx, tx, seat.ID, endDate, reason); err != nil {
		return err
	}
	return s.chapters.CloseAssignment(ctx, tx,
		seat.VolunteerID, seat.ChapterID, seat.Role, seat.FromDate, endDate, reason)
}
