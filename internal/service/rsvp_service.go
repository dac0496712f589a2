package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	apperrors "weddingsite/internal/errors"
	"weddingsite/internal/events"
	"weddingsite/internal/metrics"
	"weddingsite/internal/model"
	"weddingsite/internal/repository"
)

// BlockedFields can never be written by an update, whatever the caller sends.
var BlockedFields = []string{"id", "created_at", "user_id", "submitted_by", "email"}

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// RSVPDraft is the client-editable shape of an RSVP. The provenance fields are
// accepted so that a full record can be posted back, but they are dropped
// before any write.
type RSVPDraft struct {
	ID          *uuid.UUID `json:"id,omitempty"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	Email       string     `json:"email,omitempty"`
	SubmittedBy string     `json:"submitted_by,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`

	FullName       string         `json:"full_name"`
	Attending      bool           `json:"attending"`
	Dietary        string         `json:"dietary"`
	Songs          string         `json:"songs"`
	HasPlusOne     bool           `json:"has_plus_one"`
	PlusOneName    string         `json:"plus_one_name"`
	PlusOneDietary string         `json:"plus_one_dietary"`
	HasChildren    bool           `json:"has_children"`
	Children       model.Children `json:"children"`
}

// GuestDraft is an RSVP submitted on behalf of someone without an account.
type GuestDraft struct {
	FullName  string `json:"full_name"`
	Attending bool   `json:"attending"`
	Dietary   string `json:"dietary"`
	Songs     string `json:"songs"`
}

// RSVPForm is what the RSVP page shows: the existing record, or a create form.
type RSVPForm struct {
	Mode        string      `json:"mode"`
	Record      *model.RSVP `json:"record,omitempty"`
	Draft       *RSVPDraft  `json:"draft,omitempty"`
	Email       string      `json:"email"`
	EmailLocked bool        `json:"email_locked"`
}

// Form modes.
const (
	FormModeView   = "view"
	FormModeCreate = "create"
)

// SubmitResult reports what a page submission wrote. Guests holds the
// on-behalf rows that were inserted before any failure.
type SubmitResult struct {
	Record *model.RSVP  `json:"record"`
	Guests []model.RSVP `json:"guests"`
}

// Normalize trims the name and clears dependent fields whose flag is off.
func Normalize(d RSVPDraft) RSVPDraft {
	d.FullName = strings.TrimSpace(d.FullName)
	if !d.HasPlusOne {
		d.PlusOneName = ""
		d.PlusOneDietary = ""
	}
	if !d.HasChildren || d.Children == nil {
		d.Children = model.Children{}
	}
	return d
}

// StripBlocked removes every blocked key from cols and returns it.
func StripBlocked(cols map[string]interface{}) map[string]interface{} {
	for _, k := range BlockedFields {
		delete(cols, k)
	}
	return cols
}

// UpdatePayload is the column set an update of d may write.
func UpdatePayload(d RSVPDraft) map[string]interface{} {
	return StripBlocked(columns(Normalize(d)))
}

func columns(d RSVPDraft) map[string]interface{} {
	cols := map[string]interface{}{
		"full_name":        d.FullName,
		"attending":        d.Attending,
		"dietary":          d.Dietary,
		"songs":            d.Songs,
		"has_plus_one":     d.HasPlusOne,
		"plus_one_name":    d.PlusOneName,
		"plus_one_dietary": d.PlusOneDietary,
		"has_children":     d.HasChildren,
		"children":         d.Children,
	}
	if d.ID != nil {
		cols["id"] = *d.ID
	}
	if d.UserID != nil {
		cols["user_id"] = *d.UserID
	}
	if d.Email != "" {
		cols["email"] = d.Email
	}
	if d.SubmittedBy != "" {
		cols["submitted_by"] = d.SubmittedBy
	}
	if d.CreatedAt != nil {
		cols["created_at"] = *d.CreatedAt
	}
	return cols
}

// ValidEmail reports whether email looks like an address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// RSVPService manages the RSVP record lifecycle.
type RSVPService interface {
	LoadForIdentity(ctx context.Context, identity *model.Identity) (*model.RSVP, error)
	CreateRecord(ctx context.Context, identity *model.Identity, draft RSVPDraft) (*model.RSVP, error)
	UpdateRecord(ctx context.Context, id uuid.UUID, draft RSVPDraft) (*model.RSVP, error)
	CreateOnBehalf(ctx context.Context, actor *model.Identity, guests []GuestDraft) ([]model.RSVP, error)
	Form(ctx context.Context, identity *model.Identity) (*RSVPForm, error)
	Save(ctx context.Context, identity *model.Identity, draft RSVPDraft) (*model.RSVP, error)
	Submit(ctx context.Context, identity *model.Identity, draft RSVPDraft, guests []GuestDraft) (*SubmitResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type rsvpService struct {
	repo    repository.RSVPRepository
	emitter *events.Emitter
	log     zerolog.Logger
}

// NewRSVPService creates a new RSVP service.
func NewRSVPService(repo repository.RSVPRepository, emitter *events.Emitter, log zerolog.Logger) RSVPService {
	return &rsvpService{repo: repo, emitter: emitter, log: log}
}

// LoadForIdentity returns the newest record owned by identity. Rows submitted
// on behalf of others are never returned here.
func (s *rsvpService) LoadForIdentity(ctx context.Context, identity *model.Identity) (*model.RSVP, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	rec, err := s.repo.FindLatestByUserID(ctx, identity.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrRSVPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load rsvp: %w", err)
	}
	return rec, nil
}

// CreateRecord inserts identity's own record. Email and provenance always come
// from the identity, never from the draft.
func (s *rsvpService) CreateRecord(ctx context.Context, identity *model.Identity, draft RSVPDraft) (*model.RSVP, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	d := Normalize(draft)
	if d.FullName == "" {
		return nil, apperrors.ErrFullNameRequired
	}
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if !ValidEmail(email) {
		return nil, apperrors.ErrInvalidEmail
	}

	userID := identity.ID
	rec := recordFrom(d)
	rec.UserID = &userID
	rec.Email = email
	rec.SubmittedBy = email

	err := s.repo.Create(ctx, rec)
	metrics.RSVPWrites.WithLabelValues("create", metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("create rsvp: %w", err)
	}
	s.emit(ctx, events.RSVPCreated, rec)
	return rec, nil
}

// UpdateRecord rewrites the editable fields of record id.
func (s *rsvpService) UpdateRecord(ctx context.Context, id uuid.UUID, draft RSVPDraft) (*model.RSVP, error) {
	if strings.TrimSpace(draft.FullName) == "" {
		return nil, apperrors.ErrFullNameRequired
	}
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}

	err := s.repo.UpdateColumns(ctx, id, UpdatePayload(draft))
	metrics.RSVPWrites.WithLabelValues("update", metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("update rsvp: %w", err)
	}

	rec, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.RSVPUpdated, rec)
	return rec, nil
}

// CreateOnBehalf inserts one record per named guest, in order. Each insert is
// independent: the first failure stops the loop and earlier rows are kept.
func (s *rsvpService) CreateOnBehalf(ctx context.Context, actor *model.Identity, guests []GuestDraft) ([]model.RSVP, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	email := strings.ToLower(strings.TrimSpace(actor.Email))

	created := make([]model.RSVP, 0, len(guests))
	for i, g := range guests {
		name := strings.TrimSpace(g.FullName)
		if name == "" {
			continue
		}
		rec := &model.RSVP{
			UserID:      nil,
			Email:       email,
			SubmittedBy: email,
			FullName:    name,
			Attending:   g.Attending,
			Dietary:     g.Dietary,
			Songs:       g.Songs,
			Children:    model.Children{},
		}
		err := s.repo.Create(ctx, rec)
		metrics.RSVPWrites.WithLabelValues("create_on_behalf", metrics.Result(err)).Inc()
		if err != nil {
			s.log.Warn().Err(err).Int("guest", i).Int("written", len(created)).Msg("on-behalf insert failed, remaining guests skipped")
			return created, fmt.Errorf("create rsvp for guest %q: %w", name, err)
		}
		s.emit(ctx, events.RSVPCreated, rec)
		created = append(created, *rec)
	}
	return created, nil
}

// Form returns the existing record in view mode, or a create draft seeded
// with the identity's locked email and attending=true.
func (s *rsvpService) Form(ctx context.Context, identity *model.Identity) (*RSVPForm, error) {
	rec, err := s.LoadForIdentity(ctx, identity)
	email := ""
	if identity != nil {
		email = strings.ToLower(strings.TrimSpace(identity.Email))
	}
	switch {
	case err == nil:
		return &RSVPForm{Mode: FormModeView, Record: rec, Email: email, EmailLocked: true}, nil
	case errors.Is(err, apperrors.ErrRSVPNotFound):
		return &RSVPForm{
			Mode: FormModeCreate,
			Draft: &RSVPDraft{
				Email:     email,
				FullName:  identity.Metadata.String("full_name"),
				Attending: true,
				Children:  model.Children{},
			},
			Email:       email,
			EmailLocked: true,
		}, nil
	default:
		return nil, err
	}
}

// Save creates identity's record or updates the existing one.
func (s *rsvpService) Save(ctx context.Context, identity *model.Identity, draft RSVPDraft) (*model.RSVP, error) {
	existing, err := s.LoadForIdentity(ctx, identity)
	if errors.Is(err, apperrors.ErrRSVPNotFound) {
		return s.CreateRecord(ctx, identity, draft)
	}
	if err != nil {
		return nil, err
	}
	return s.UpdateRecord(ctx, existing.ID, draft)
}

// Submit saves identity's own record, then the on-behalf guests.
func (s *rsvpService) Submit(ctx context.Context, identity *model.Identity, draft RSVPDraft, guests []GuestDraft) (*SubmitResult, error) {
	rec, err := s.Save(ctx, identity, draft)
	if err != nil {
		return nil, err
	}
	created, err := s.CreateOnBehalf(ctx, identity, guests)
	return &SubmitResult{Record: rec, Guests: created}, err
}

// Delete removes record id.
func (s *rsvpService) Delete(ctx context.Context, id uuid.UUID) error {
	rec, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	err = s.repo.Delete(ctx, id)
	metrics.RSVPWrites.WithLabelValues("delete", metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("delete rsvp: %w", err)
	}
	s.emit(ctx, events.RSVPDeleted, rec)
	return nil
}

func (s *rsvpService) find(ctx context.Context, id uuid.UUID) (*model.RSVP, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrRSVPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find rsvp: %w", err)
	}
	return rec, nil
}

func (s *rsvpService) emit(ctx context.Context, typ string, rec *model.RSVP) {
	ev := events.RSVPEvent{
		Type:        typ,
		RSVPID:      rec.ID.String(),
		SubmittedBy: rec.SubmittedBy,
	}
	if typ != events.RSVPDeleted {
		attending := rec.Attending
		ev.Attending = &attending
	}
	if rec.UserID != nil {
		ev.UserID = rec.UserID.String()
	}
	s.emitter.RSVP(ctx, ev)
}

func recordFrom(d RSVPDraft) *model.RSVP {
	return &model.RSVP{
		FullName:       d.FullName,
		Attending:      d.Attending,
		Dietary:        d.Dietary,
		Songs:          d.Songs,
		HasPlusOne:     d.HasPlusOne,
		PlusOneName:    d.PlusOneName,
		PlusOneDietary: d.PlusOneDietary,
		HasChildren:    d.HasChildren,
		Children:       d.Children,
	}
}
