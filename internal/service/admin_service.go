package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "weddingsite/internal/errors"
	"weddingsite/internal/model"
	"weddingsite/internal/repository"
)

// AdminPageSize is the number of rows per admin page.
const AdminPageSize = 25

// RSVPStats are aggregate counts over every record, independent of search.
type RSVPStats struct {
	Attending    int `json:"attending"`
	NotAttending int `json:"not_attending"`
	PlusOnes     int `json:"plus_ones"`
	Children     int `json:"children"`
	Total        int `json:"total"`
}

// AdminOverview is one page of the filtered record set plus global stats.
type AdminOverview struct {
	Rows       []model.RSVP `json:"rows"`
	Query      string       `json:"query"`
	Page       int          `json:"page"`
	TotalPages int          `json:"total_pages"`
	Matched    int          `json:"matched"`
	Stats      RSVPStats    `json:"stats"`
}

// AdminEdit carries the fields an admin may change. Nil fields are kept.
type AdminEdit struct {
	FullName  *string `json:"full_name"`
	Attending *bool   `json:"attending"`
	Dietary   *string `json:"dietary"`
	Songs     *string `json:"songs"`
}

// AdminService is the reporting view over all RSVP records.
type AdminService interface {
	Overview(ctx context.Context, query string, page int) (*AdminOverview, error)
	Update(ctx context.Context, id uuid.UUID, edit AdminEdit) (*model.RSVP, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ExportCSV(ctx context.Context, query string, w io.Writer) error
}

type adminService struct {
	repo  repository.RSVPRepository
	rsvps RSVPService
}

// NewAdminService creates a new admin service. Writes go through rsvps so the
// same normalization and field stripping apply.
func NewAdminService(repo repository.RSVPRepository, rsvps RSVPService) AdminService {
	return &adminService{repo: repo, rsvps: rsvps}
}

// Filter keeps rows whose name, email, dietary and songs text contains query,
// case-insensitively. A blank query keeps everything.
func Filter(rows []model.RSVP, query string) []model.RSVP {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return rows
	}
	out := make([]model.RSVP, 0, len(rows))
	for _, r := range rows {
		haystack := strings.ToLower(strings.Join([]string{r.FullName, r.Email, r.Dietary, r.Songs}, " "))
		if strings.Contains(haystack, needle) {
			out = append(out, r)
		}
	}
	return out
}

// Paginate returns page (1-based, clamped) of rows and the page count, which
// is never less than one.
func Paginate(rows []model.RSVP, page, size int) ([]model.RSVP, int, int) {
	totalPages := (len(rows) + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * size
	if start >= len(rows) {
		return []model.RSVP{}, page, totalPages
	}
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], page, totalPages
}

// Summarize counts attendance, plus-ones and children in one pass.
func Summarize(rows []model.RSVP) RSVPStats {
	var s RSVPStats
	for _, r := range rows {
		if r.Attending {
			s.Attending++
		} else {
			s.NotAttending++
		}
		if r.HasPlusOne {
			s.PlusOnes++
		}
		s.Children += len(r.Children)
	}
	s.Total = len(rows)
	return s
}

func (s *adminService) Overview(ctx context.Context, query string, page int) (*AdminOverview, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rsvps: %w", err)
	}
	filtered := Filter(rows, query)
	current, page, totalPages := Paginate(filtered, page, AdminPageSize)

	return &AdminOverview{
		Rows:       current,
		Query:      strings.TrimSpace(query),
		Page:       page,
		TotalPages: totalPages,
		Matched:    len(filtered),
		Stats:      Summarize(rows),
	}, nil
}

// Update overlays edit onto the stored record and writes it back.
func (s *adminService) Update(ctx context.Context, id uuid.UUID, edit AdminEdit) (*model.RSVP, error) {
	current, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrRSVPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find rsvp: %w", err)
	}

	draft := RSVPDraft{
		FullName:       current.FullName,
		Attending:      current.Attending,
		Dietary:        current.Dietary,
		Songs:          current.Songs,
		HasPlusOne:     current.HasPlusOne,
		PlusOneName:    current.PlusOneName,
		PlusOneDietary: current.PlusOneDietary,
		HasChildren:    current.HasChildren,
		Children:       current.Children,
	}
	if edit.FullName != nil {
		draft.FullName = *edit.FullName
	}
	if edit.Attending != nil {
		draft.Attending = *edit.Attending
	}
	if edit.Dietary != nil {
		draft.Dietary = *edit.Dietary
	}
	if edit.Songs != nil {
		draft.Songs = *edit.Songs
	}
	return s.rsvps.UpdateRecord(ctx, id, draft)
}

func (s *adminService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.rsvps.Delete(ctx, id)
}

var csvHeader = []string{
	"id", "created_at", "full_name", "email", "attending", "dietary", "songs",
	"has_plus_one", "plus_one_name", "plus_one_dietary", "has_children", "children",
	"submitted_by", "user_id",
}

// ExportCSV writes every record matching query, newest first.
func (s *adminService) ExportCSV(ctx context.Context, query string, w io.Writer) error {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list rsvps: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range Filter(rows, query) {
		children, err := json.Marshal(r.Children)
		if err != nil {
			return fmt.Errorf("encode children: %w", err)
		}
		userID := ""
		if r.UserID != nil {
			userID = r.UserID.String()
		}
		if err := cw.Write([]string{
			r.ID.String(),
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.FullName,
			r.Email,
			strconv.FormatBool(r.Attending),
			r.Dietary,
			r.Songs,
			strconv.FormatBool(r.HasPlusOne),
			r.PlusOneName,
			r.PlusOneDietary,
			strconv.FormatBool(r.HasChildren),
			string(children),
			r.SubmittedBy,
			userID,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
