package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/verenigingen/backend/internal/domain"
)

type boardService interface {
	AddBoardMember(ctx context.Context, chapterID, volunteerID uuid.UUID, role string, uniqueRole bool, fromDate time.Time) (*domain.BoardMember, error)
	RemoveBoardMember(ctx context.Context, chapterID, volunteerID uuid.UUID, endDate time.Time, reason *string) error
	TransitionRole(ctx context.Context, chapterID, volunteerID uuid.UUID, newRole string, uniqueRole bool, date time.Time) (*domain.BoardMember, error)
	ListBoard(ctx context.Context, chapterID uuid.UUID, includeInactive bool) ([]domain.BoardMember, error)
	ListAssignments(ctx context.Context, volunteerID uuid.UUID) ([]domain.VolunteerAssignment, error)
}

type chapterStore interface {
	Create(ctx context.Context, c *domain.Chapter) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Chapter, error)
	CreateVolunteer(ctx context.Context, v *domain.Volunteer) error
	ListMembers(ctx context.Context, chapterID uuid.UUID) ([]domain.ChapterMember, error)
}

type ChapterHandler struct {
	board    boardService
	chapters chapterStore
}

func NewChapterHandler(board boardService, chapters chapterStore) *ChapterHandler {
	return &ChapterHandler{board: board, chapters: chapters}
}

type createChapterRequest struct {
	Name      string `json:"name"`
	Region    string `json:"region"`
	Published bool   `json:"published"`
}

func (r createChapterRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}
	return errs
}

type chapterDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Region    string    `json:"region"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *ChapterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createChapterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	c := &domain.Chapter{
		ID:        uuid.New(),
		Name:      req.Name,
		Region:    req.Region,
		Published: req.Published,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.chapters.Create(r.Context(), c); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, chapterDTO{
		ID: c.ID, Name: c.Name, Region: c.Region, Published: c.Published, CreatedAt: c.CreatedAt,
	})
}

func (h *ChapterHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}
	c, err := h.chapters.GetByID(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, chapterDTO{
		ID: c.ID, Name: c.Name, Region: c.Region, Published: c.Published, CreatedAt: c.CreatedAt,
	})
}

type createVolunteerRequest struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

func (r createVolunteerRequest) Validate() []FieldError {
	var errs []FieldError
	if r.MemberID == "" {
		errs = append(errs, FieldError{Field: "member_id", Message: "required"})
	} else if _, err := uuid.Parse(r.MemberID); err != nil {
		errs = append(errs, FieldError{Field: "member_id", Message: "must be a uuid"})
	}
	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}
	return errs
}

func (h *ChapterHandler) CreateVolunteer(w http.ResponseWriter, r *http.Request) {
	var req createVolunteerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	v := &domain.Volunteer{
		ID:        uuid.New(),
		MemberID:  uuid.MustParse(req.MemberID),
		Name:      req.Name,
		Email:     req.Email,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.chapters.CreateVolunteer(r.Context(), v); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, map[string]any{
		"id":        v.ID,
		"member_id": v.MemberID,
		"name":      v.Name,
		"email":     v.Email,
		"active":    v.Active,
	})
}

type boardMemberRequest struct {
	VolunteerID string `json:"volunteer_id"`
	Role        string `json:"role"`
	UniqueRole  bool   `json:"unique_role"`
	FromDate    string `json:"from_date"` // YYYY-MM-DD
}

func (r boardMemberRequest) Validate() []FieldError {
	var errs []FieldError
	if r.VolunteerID == "" {
		errs = append(errs, FieldError{Field: "volunteer_id", Message: "required"})
	} else if _, err := uuid.Parse(r.VolunteerID); err != nil {
		errs = append(errs, FieldError{Field: "volunteer_id", Message: "must be a uuid"})
	}
	if r.Role == "" {
		errs = append(errs, FieldError{Field: "role", Message: "required"})
	}
	if r.FromDate != "" {
		if _, err := time.Parse("2006-01-02", r.FromDate); err != nil {
			errs = append(errs, FieldError{Field: "from_date", Message: "must be YYYY-MM-DD"})
		}
	}
	return errs
}

type boardMemberDTO struct {
	ID          uuid.UUID  `json:"id"`
	ChapterID   uuid.UUID  `json:"chapter_id"`
	VolunteerID uuid.UUID  `json:"volunteer_id"`
	Role        string     `json:"role"`
	UniqueRole  bool       `json:"unique_role"`
	FromDate    time.Time  `json:"from_date"`
	ToDate      *time.Time `json:"to_date,omitempty"`
	IsActive    bool       `json:"is_active"`
	Notes       *string    `json:"notes,omitempty"`
}

func toBoardMemberDTO(bm *domain.BoardMember) boardMemberDTO {
	return boardMemberDTO{
		ID:          bm.ID,
		ChapterID:   bm.ChapterID,
		VolunteerID: bm.VolunteerID,
		Role:        bm.Role,
		UniqueRole:  bm.UniqueRole,
		FromDate:    bm.FromDate,
		ToDate:      bm.ToDate,
		IsActive:    bm.IsActive,
		Notes:       bm.Notes,
	}
}

func (h *ChapterHandler) AddBoardMember(w http.ResponseWriter, r *http.Request) {
	chapterID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req boardMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	fromDate := time.Now().UTC().Truncate(24 * time.Hour)
	if req.FromDate != "" {
		fromDate, _ = time.Parse("2006-01-02", req.FromDate)
	}

	bm, err := h.board.AddBoardMember(r.Context(), chapterID,
		uuid.MustParse(req.VolunteerID), req.Role, req.UniqueRole, fromDate)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toBoardMemberDTO(bm))
}

type removeBoardMemberRequest struct {
	VolunteerID string  `json:"volunteer_id"`
	EndDate     string  `json:"end_date"` // YYYY-MM-DD
	Reason      *string `json:"reason"`
}

func (h *ChapterHandler) RemoveBoardMember(w http.ResponseWriter, r *http.Request) {
	chapterID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req removeBoardMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	volunteerID, err := uuid.Parse(req.VolunteerID)
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "volunteer_id", Message: "must be a uuid"}})
		return
	}

	endDate := time.Now().UTC().Truncate(24 * time.Hour)
	if req.EndDate != "" {
		endDate, err = time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			RespondValidationError(w, []FieldError{{Field: "end_date", Message: "must be YYYY-MM-DD"}})
			return
		}
	}

	if err := h.board.RemoveBoardMember(r.Context(), chapterID, volunteerID, endDate, req.Reason); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]string{"status": "removed"})
}

type transitionRoleRequest struct {
	VolunteerID string `json:"volunteer_id"`
	NewRole     string `json:"new_role"`
	UniqueRole  bool   `json:"unique_role"`
	Date        string `json:"date"` // YYYY-MM-DD
}

func (h *ChapterHandler) TransitionRole(w http.ResponseWriter, r *http.Request) {
	chapterID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req transitionRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	volunteerID, err := uuid.Parse(req.VolunteerID)
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "volunteer_id", Message: "must be a uuid"}})
		return
	}
	if req.NewRole == "" {
		RespondValidationError(w, []FieldError{{Field: "new_role", Message: "required"}})
		return
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			RespondValidationError(w, []FieldError{{Field: "date", Message: "must be YYYY-MM-DD"}})
			return
		}
	}

	bm, err := h.board.TransitionRole(r.Context(), chapterID, volunteerID, req.NewRole, req.UniqueRole, date)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toBoardMemberDTO(bm))
}

func (h *ChapterHandler) ListBoard(w http.ResponseWriter, r *http.Request) {
	chapterID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	members, err := h.board.ListBoard(r.Context(), chapterID, includeInactive)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	items := make([]boardMemberDTO, 0, len(members))
	for i := range members {
		items = append(items, toBoardMemberDTO(&members[i]))
	}
	RespondSuccess(w, http.StatusOK, map[string]any{"items": items})
}

func (h *ChapterHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	chapterID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}
	if _, err := h.chapters.GetByID(r.Context(), chapterID); err != nil {
		RespondDomainError(w, err)
		return
	}

	members, err := h.chapters.ListMembers(r.Context(), chapterID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	type chapterMemberDTO struct {
		MemberID uuid.UUID `json:"member_id"`
		JoinedAt time.Time `json:"joined_at"`
	}
	items := make([]chapterMemberDTO, 0, len(members))
	for _, cm := range members {
		items = append(items, chapterMemberDTO{MemberID: cm.MemberID, JoinedAt: cm.JoinedAt})
	}
	RespondSuccess(w, http.StatusOK, map[string]any{"items": items})
}

func (h *ChapterHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	volunteerID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	assignments, err := h.board.ListAssignments(r.Context(), volunteerID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	type assignmentDTO struct {
		ID        uuid.UUID  `json:"id"`
		ChapterID uuid.UUID  `json:"chapter_id"`
		Role      string     `json:"role"`
		StartDate time.Time  `json:"start_date"`
		EndDate   *time.Time `json:"end_date,omitempty"`
		Status    string     `json:"status"`
		Reason    *string    `json:"reason,omitempty"`
	}
	items := make([]assignmentDTO, 0, len(assignments))
	for _, a := range assignments {
		items = append(items, assignmentDTO{
			ID:        a.ID,
			ChapterID: a.ChapterID,
			Role:      a.Role,
			StartDate: a.StartDate,
			EndDate:   a.EndDate,
			Status:    string(a.Status),
			Reason:    a.Reason,
		})
	}
	RespondSuccess(w, http.StatusOK, map[string]any{"items": items})
}
