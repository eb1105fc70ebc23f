package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verenigingen/backend/internal/domain"
)

const chapterColumns = `id, name, region, published, created_at`

const boardMemberColumns = `id, chapter_id, volunteer_id, role, unique_role,
	from_date, to_date, is_active, notes, created_at`

const volunteerColumns = `id, member_id, name, email, active, created_at`

const assignmentColumns = `id, volunteer_id, chapter_id, role, start_date,
	end_date, status, reason, created_at`

type ChapterRepository struct {
	db *sql.DB
}

func NewChapterRepository(db *sql.DB) *ChapterRepository {
	return &ChapterRepository{db: db}
}

func (r *ChapterRepository) Create(ctx context.Context, c *domain.Chapter) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chapters (id, name, region, published, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.Region, c.Published, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ChapterRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Chapter, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE id = $1`, id,
	)
	var c domain.Chapter
	if err := row.Scan(&c.ID, &c.Name, &c.Region, &c.Published, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrChapterNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return &c, nil
}

func (r *ChapterRepository) GetVolunteer(ctx context.Context, id uuid.UUID) (*domain.Volunteer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+volunteerColumns+` FROM volunteers WHERE id = $1`, id,
	)
	var v domain.Volunteer
	if err := row.Scan(&v.ID, &v.MemberID, &v.Name, &v.Email, &v.Active, &v.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetVolunteer: %w", domain.ErrVolunteerNotFound)
		}
		return nil, fmt.Errorf("GetVolunteer: %w", err)
	}
	return &v, nil
}

func (r *ChapterRepository) CreateVolunteer(ctx context.Context, v *domain.Volunteer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO volunteers (id, member_id, name, email, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ID, v.MemberID, v.Name, v.Email, v.Active, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("CreateVolunteer: %w", err)
	}
	return nil
}

func (r *ChapterRepository) CreateBoardMember(ctx context.Context, tx *sql.Tx, bm *domain.BoardMember) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO board_members (
			id, chapter_id, volunteer_id, role, unique_role,
			from_date, to_date, is_active, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		bm.ID, bm.ChapterID, bm.VolunteerID, bm.Role, bm.UniqueRole,
		bm.FromDate, bm.ToDate, bm.IsActive, bm.Notes, bm.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("CreateBoardMember: %w", err)
	}
	return nil
}

func (r *ChapterRepository) GetActiveBoardMember(ctx context.Context, chapterID, volunteerID uuid.UUID) (*domain.BoardMember, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+boardMemberColumns+` FROM board_members
		WHERE chapter_id = $1 AND volunteer_id = $2 AND is_active = true`,
		chapterID, volunteerID,
	)
	bm, err := scanBoardMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetActiveBoardMember: %w", domain.ErrNotBoardMember)
		}
		return nil, fmt.Errorf("GetActiveBoardMember: %w", err)
	}
	return bm, nil
}

func (r *ChapterRepository) GetActiveRoleHolder(ctx context.Context, chapterID uuid.UUID, role string) (*domain.BoardMember, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+boardMemberColumns+` FROM board_members
		WHERE chapter_id = $1 AND role = $2 AND is_active = true
		ORDER BY from_date DESC LIMIT 1`,
		chapterID, role,
	)
	bm, err := scanBoardMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetActiveRoleHolder: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetActiveRoleHolder: %w", err)
	}
	return bm, nil
}

func (r *ChapterRepository) ListBoardMembers(ctx context.Context, chapterID uuid.UUID, includeInactive bool) ([]domain.BoardMember, error) {
	query := `SELECT ` + boardMemberColumns + ` FROM board_members WHERE chapter_id = $1`
	if !includeInactive {
		query += ` AND is_active = true`
	}
	query += ` ORDER BY from_date, created_at`

	rows, err := r.db.QueryContext(ctx, query, chapterID)
	if err != nil {
		return nil, fmt.Errorf("ListBoardMembers: %w", err)
	}
	defer rows.Close()

	var members []domain.BoardMember
	for rows.Next() {
		bm, err := scanBoardMember(rows)
		if err != nil {
			return nil, fmt.Errorf("ListBoardMembers: scan: %w", err)
		}
		members = append(members, *bm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListBoardMembers: rows: %w", err)
	}
	return members, nil
}

func (r *ChapterRepository) DeactivateBoardMember(ctx context.Context, tx *sql.Tx, id uuid.UUID, endDate time.Time, notes *string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE board_members SET is_active = false, to_date = $1,
		 notes = COALESCE($2, notes)
		WHERE id = $3 AND is_active = true`,
		endDate, notes, id,
	)
	if err != nil {
		return fmt.Errorf("DeactivateBoardMember: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeactivateBoardMember: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("DeactivateBoardMember: %w", domain.ErrNotBoardMember)
	}
	return nil
}

func (r *ChapterRepository) CreateAssignment(ctx context.Context, tx *sql.Tx, a *domain.VolunteerAssignment) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO volunteer_assignments (
			id, volunteer_id, chapter_id, role, start_date,
			end_date, status, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.VolunteerID, a.ChapterID, a.Role, a.StartDate,
		a.EndDate, a.Status, a.Reason, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("CreateAssignment: %w", err)
	}
	return nil
}

// CloseAssignment completes the active assignment matching the seat. The
// start date disambiguates repeat appointments to the same role.
func (r *ChapterRepository) CloseAssignment(ctx context.Context, tx *sql.Tx, volunteerID, chapterID uuid.UUID, role string, startDate, endDate time.Time, reason *string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE volunteer_assignments
		SET status = $1, end_date = $2, reason = COALESCE($3, reason)
		WHERE volunteer_id = $4 AND chapter_id = $5 AND role = $6
		  AND start_date = $7 AND status = $8`,
		domain.AssignmentStatusCompleted, endDate, reason,
		volunteerID, chapterID, role, startDate, domain.AssignmentStatusActive,
	)
	if err != nil {
		return fmt.Errorf("CloseAssignment: %w", err)
	}
	return nil
}

func (r *ChapterRepository) ListAssignments(ctx context.Context, volunteerID uuid.UUID) ([]domain.VolunteerAssignment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+assignmentColumns+` FROM volunteer_assignments
		WHERE volunteer_id = $1 ORDER BY start_date, created_at`, volunteerID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListAssignments: %w", err)
	}
	defer rows.Close()

	var assignments []domain.VolunteerAssignment
	for rows.Next() {
		var a domain.VolunteerAssignment
		err := rows.Scan(
			&a.ID, &a.VolunteerID, &a.ChapterID, &a.Role, &a.StartDate,
			&a.EndDate, &a.Status, &a.Reason, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ListAssignments: scan: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAssignments: rows: %w", err)
	}
	return assignments, nil
}

// AddMember links a member to a chapter. Re-adding is a no-op so board
// appointments can call this unconditionally.
func (r *ChapterRepository) AddMember(ctx context.Context, tx *sql.Tx, cm *domain.ChapterMember) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO chapter_members (chapter_id, member_id, joined_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chapter_id, member_id) DO NOTHING`,
		cm.ChapterID, cm.MemberID, cm.JoinedAt, cm.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("AddMember: %w", err)
	}
	return nil
}

func (r *ChapterRepository) ListMembers(ctx context.Context, chapterID uuid.UUID) ([]domain.ChapterMember, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT chapter_id, member_id, joined_at, created_at
		FROM chapter_members WHERE chapter_id = $1 ORDER BY joined_at`,
		chapterID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListMembers: %w", err)
	}
	defer rows.Close()

	var members []domain.ChapterMember
	for rows.Next() {
		var cm domain.ChapterMember
		if err := rows.Scan(&cm.ChapterID, &cm.MemberID, &cm.JoinedAt, &cm.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListMembers: scan: %w", err)
		}
		members = append(members, cm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListMembers: rows: %w", err)
	}
	return members, nil
}

func scanBoardMember(s scanner) (*domain.BoardMember, error) {
	var bm domain.BoardMember
	err := s.Scan(
		&bm.ID, &bm.ChapterID, &bm.VolunteerID, &bm.Role, &bm.UniqueRole,
		&bm.FromDate, &bm.ToDate, &bm.IsActive, &bm.Notes, &bm.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &bm, nil
}
