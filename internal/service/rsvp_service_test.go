package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "weddingsite/internal/errors"
	"weddingsite/internal/events"
	"weddingsite/internal/model"
)

func newTestRSVPService(repo *MockRSVPRepository) RSVPService {
	return NewRSVPService(repo, events.NewEmitter(nil, zerolog.Nop()), zerolog.Nop())
}

func testIdentity() *model.Identity {
	return &model.Identity{ID: uuid.New(), Email: "Jane@Example.com", Metadata: model.Metadata{"full_name": "Jane Doe"}}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		draft RSVPDraft
		check func(*testing.T, RSVPDraft)
	}{
		{
			name:  "plus-one cleared when flag off",
			draft: RSVPDraft{FullName: "Jane", HasPlusOne: false, PlusOneName: "John", PlusOneDietary: "vegan"},
			check: func(t *testing.T, d RSVPDraft) {
				assert.Empty(t, d.PlusOneName)
				assert.Empty(t, d.PlusOneDietary)
			},
		},
		{
			name:  "plus-one kept when flag on",
			draft: RSVPDraft{FullName: "Jane", HasPlusOne: true, PlusOneName: "John"},
			check: func(t *testing.T, d RSVPDraft) {
				assert.Equal(t, "John", d.PlusOneName)
			},
		},
		{
			name: "stray children dropped when flag off",
			draft: RSVPDraft{
				FullName: "Jane Doe", Attending: true, HasPlusOne: true, PlusOneName: "John",
				HasChildren: false, Children: model.Children{{Name: "X"}},
			},
			check: func(t *testing.T, d RSVPDraft) {
				assert.Equal(t, model.Children{}, d.Children)
				assert.Equal(t, "John", d.PlusOneName)
			},
		},
		{
			name:  "nil children become empty list",
			draft: RSVPDraft{FullName: "Jane", HasChildren: true},
			check: func(t *testing.T, d RSVPDraft) {
				assert.NotNil(t, d.Children)
				assert.Empty(t, d.Children)
			},
		},
		{
			name:  "name trimmed",
			draft: RSVPDraft{FullName: "  Jane  "},
			check: func(t *testing.T, d RSVPDraft) {
				assert.Equal(t, "Jane", d.FullName)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Normalize(tt.draft))
		})
	}
}

func TestUpdatePayload_StripsBlockedFields(t *testing.T) {
	id := uuid.New()
	userID := uuid.New()
	created := time.Now()

	payload := UpdatePayload(RSVPDraft{
		ID:          &id,
		UserID:      &userID,
		Email:       "attacker@example.com",
		SubmittedBy: "attacker@example.com",
		CreatedAt:   &created,
		FullName:    "Jane",
	})

	for _, k := range BlockedFields {
		assert.NotContains(t, payload, k)
	}
	assert.Equal(t, "Jane", payload["full_name"])
	assert.Equal(t, model.Children{}, payload["children"])
}

func TestRSVPService_LoadForIdentity(t *testing.T) {
	identity := testIdentity()
	existing := &model.RSVP{ID: uuid.New(), UserID: &identity.ID, FullName: "Jane"}

	t.Run("found and repeatable", func(t *testing.T) {
		repo := new(MockRSVPRepository)
		repo.On("FindLatestByUserID", mock.Anything, identity.ID).Return(existing, nil)
		svc := newTestRSVPService(repo)

		first, err := svc.LoadForIdentity(context.Background(), identity)
		require.NoError(t, err)
		second, err := svc.LoadForIdentity(context.Background(), identity)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		repo.AssertNumberOfCalls(t, "FindLatestByUserID", 2)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(MockRSVPRepository)
		repo.On("FindLatestByUserID", mock.Anything, identity.ID).Return(nil, gorm.ErrRecordNotFound)
		svc := newTestRSVPService(repo)

		_, err := svc.LoadForIdentity(context.Background(), identity)
		assert.ErrorIs(t, err, apperrors.ErrRSVPNotFound)
	})

	t.Run("no identity", func(t *testing.T) {
		svc := newTestRSVPService(new(MockRSVPRepository))
		_, err := svc.LoadForIdentity(context.Background(), nil)
		assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	})
}

func TestRSVPService_CreateRecord(t *testing.T) {
	tests := []struct {
		name      string
		identity  *model.Identity
		draft     RSVPDraft
		setupMock func(*MockRSVPRepository)
		wantErr   error
		check     func(*testing.T, *model.RSVP)
	}{
		{
			name:     "provenance comes from identity",
			identity: testIdentity(),
			draft: RSVPDraft{
				Email: "other@example.com", SubmittedBy: "other@example.com",
				FullName: " Jane Doe ", Attending: true, HasPlusOne: false, PlusOneName: "ghost",
				HasChildren: false, Children: model.Children{{Name: "X"}},
			},
			setupMock: func(m *MockRSVPRepository) {
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.RSVP")).Return(nil)
			},
			check: func(t *testing.T, rec *model.RSVP) {
				assert.Equal(t, "jane@example.com", rec.Email)
				assert.Equal(t, "jane@example.com", rec.SubmittedBy)
				require.NotNil(t, rec.UserID)
				assert.Equal(t, "Jane Doe", rec.FullName)
				assert.Empty(t, rec.PlusOneName)
				assert.Equal(t, model.Children{}, rec.Children)
			},
		},
		{
			name:      "blank name",
			identity:  testIdentity(),
			draft:     RSVPDraft{FullName: "   "},
			setupMock: func(m *MockRSVPRepository) {},
			wantErr:   apperrors.ErrFullNameRequired,
		},
		{
			name:      "malformed identity email",
			identity:  &model.Identity{ID: uuid.New(), Email: "not-an-email"},
			draft:     RSVPDraft{FullName: "Jane"},
			setupMock: func(m *MockRSVPRepository) {},
			wantErr:   apperrors.ErrInvalidEmail,
		},
		{
			name:     "storage failure surfaces",
			identity: testIdentity(),
			draft:    RSVPDraft{FullName: "Jane"},
			setupMock: func(m *MockRSVPRepository) {
				m.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
			},
			wantErr: errors.New("create rsvp: connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRSVPRepository)
			tt.setupMock(repo)
			svc := newTestRSVPService(repo)

			rec, err := svc.CreateRecord(context.Background(), tt.identity, tt.draft)

			if tt.wantErr != nil {
				assert.Error(t, err)
				assert.EqualError(t, err, tt.wantErr.Error())
				assert.Nil(t, rec)
			} else {
				require.NoError(t, err)
				tt.check(t, rec)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestRSVPService_UpdateRecord(t *testing.T) {
	id := uuid.New()
	owner := uuid.New()
	stored := &model.RSVP{ID: id, UserID: &owner, Email: "jane@example.com", SubmittedBy: "jane@example.com", FullName: "Jane"}

	t.Run("blocked fields never reach storage", func(t *testing.T) {
		repo := new(MockRSVPRepository)
		repo.On("FindByID", mock.Anything, id).Return(stored, nil)
		var written map[string]interface{}
		repo.On("UpdateColumns", mock.Anything, id, mock.Anything).
			Run(func(args mock.Arguments) { written = args.Get(2).(map[string]interface{}) }).
			Return(nil)
		svc := newTestRSVPService(repo)

		other := uuid.New()
		_, err := svc.UpdateRecord(context.Background(), id, RSVPDraft{
			ID: &other, UserID: &other, Email: "x@y.z", SubmittedBy: "x@y.z",
			FullName: "Jane Doe", HasPlusOne: false, PlusOneName: "John",
		})
		require.NoError(t, err)

		for _, k := range BlockedFields {
			assert.NotContains(t, written, k)
		}
		assert.Equal(t, "", written["plus_one_name"])
		assert.Equal(t, "Jane Doe", written["full_name"])
	})

	t.Run("missing record", func(t *testing.T) {
		repo := new(MockRSVPRepository)
		repo.On("FindByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)
		svc := newTestRSVPService(repo)

		_, err := svc.UpdateRecord(context.Background(), id, RSVPDraft{FullName: "Jane"})
		assert.ErrorIs(t, err, apperrors.ErrRSVPNotFound)
		repo.AssertNotCalled(t, "UpdateColumns", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("blank name rejected before any call", func(t *testing.T) {
		repo := new(MockRSVPRepository)
		svc := newTestRSVPService(repo)

		_, err := svc.UpdateRecord(context.Background(), id, RSVPDraft{FullName: ""})
		assert.ErrorIs(t, err, apperrors.ErrFullNameRequired)
		repo.AssertExpectations(t)
	})
}

func TestRSVPService_CreateOnBehalf(t *testing.T) {
	actor := testIdentity()

	t.Run("blank names skipped", func(t *testing.T) {
		repo := new(MockRSVPRepository)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*model.RSVP")).Return(nil)
		svc := newTestRSVPService(repo)

		rows, err := svc.CreateOnBehalf(context.Background(), actor, []GuestDraft{
			{FullName: ""},
			{FullName: "Bob", Attending: false},
		})

		require.NoError(t, err)
		require.Len(t, rows, 1)
		repo.AssertNumberOfCalls(t, "Create", 1)

		bob := rows[0]
		assert.Equal(t, "Bob", bob.FullName)
		assert.False(t, bob.Attending)
		assert.Nil(t, bob.UserID)
		assert.Equal(t, "jane@example.com", bob.Email)
		assert.Equal(t, "jane@example.com", bob.SubmittedBy)
	})

	t.Run("failure aborts remaining rows and keeps earlier ones", func(t *testing.T) {
		repo := new(MockRSVPRepository)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(r *model.RSVP) bool { return r.FullName == "Ann" })).Return(nil)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(r *model.RSVP) bool { return r.FullName == "Ben" })).Return(errors.New("insert failed"))
		svc := newTestRSVPService(repo)

		rows, err := svc.CreateOnBehalf(context.Background(), actor, []GuestDraft{
			{FullName: "Ann"}, {FullName: "Ben"}, {FullName: "Cat"},
		})

		assert.Error(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Ann", rows[0].FullName)
		repo.AssertNumberOfCalls(t, "Create", 2)
	})
}

func TestRSVPService_Form(t *testing.T) {
	identity := testIdentity()

	t.Run("create mode when no record", func(t *testing.T) {
		repo := new(MockRSVPRepository)
		repo.On("FindLatestByUserID", mock.Anything, identity.ID).Return(nil, gorm.ErrRecordNotFound)
		svc := newTestRSVPService(repo)

		form, err := svc.Form(context.Background(), identity)
		require.NoError(t, err)

		assert.Equal(t, FormModeCreate, form.Mode)
		assert.True(t, form.EmailLocked)
		assert.Equal(t, "jane@example.com", form.Email)
		require.NotNil(t, form.Draft)
		assert.True(t, form.Draft.Attending)
		assert.Equal(t, "jane@example.com", form.Draft.Email)
		assert.Nil(t, form.Record)
	})

	t.Run("view mode when record exists", func(t *testing.T) {
		rec := &model.RSVP{ID: uuid.New(), UserID: &identity.ID, FullName: "Jane"}
		repo := new(MockRSVPRepository)
		repo.On("FindLatestByUserID", mock.Anything, identity.ID).Return(rec, nil)
		svc := newTestRSVPService(repo)

		form, err := svc.Form(context.Background(), identity)
		require.NoError(t, err)

		assert.Equal(t, FormModeView, form.Mode)
		assert.Equal(t, rec, form.Record)
		assert.Nil(t, form.Draft)
	})
}

func TestRSVPService_Save(t *testing.T) {
	identity := testIdentity()

	t.Run("inserts when none exists", func(t *testing.T) {
		repo := new(MockRSVPRepository)
		repo.On("FindLatestByUserID", mock.Anything, identity.ID).Return(nil, gorm.ErrRecordNotFound)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*model.RSVP")).Return(nil)
		svc := newTestRSVPService(repo)

		rec, err := svc.Save(context.Background(), identity, RSVPDraft{FullName: "Jane"})
		require.NoError(t, err)
		assert.Equal(t, "Jane", rec.FullName)
		repo.AssertNotCalled(t, "UpdateColumns", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("updates the existing record", func(t *testing.T) {
		existing := &model.RSVP{ID: uuid.New(), UserID: &identity.ID, FullName: "Jane"}
		repo := new(MockRSVPRepository)
		repo.On("FindLatestByUserID", mock.Anything, identity.ID).Return(existing, nil)
		repo.On("FindByID", mock.Anything, existing.ID).Return(existing, nil)
		repo.On("UpdateColumns", mock.Anything, existing.ID, mock.Anything).Return(nil)
		svc := newTestRSVPService(repo)

		_, err := svc.Save(context.Background(), identity, RSVPDraft{FullName: "Jane Doe"})
		require.NoError(t, err)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestRSVPService_Submit(t *testing.T) {
	identity := testIdentity()
	repo := new(MockRSVPRepository)
	repo.On("FindLatestByUserID", mock.Anything, identity.ID).Return(nil, gorm.ErrRecordNotFound)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*model.RSVP")).Return(nil)
	svc := newTestRSVPService(repo)

	res, err := svc.Submit(context.Background(), identity, RSVPDraft{FullName: "Jane", Attending: true}, []GuestDraft{
		{FullName: ""}, {FullName: "Bob"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Jane", res.Record.FullName)
	require.Len(t, res.Guests, 1)
	assert.Equal(t, "Bob", res.Guests[0].FullName)
	repo.AssertNumberOfCalls(t, "Create", 2)
}

func TestRSVPService_Delete(t *testing.T) {
	id := uuid.New()

	repo := new(MockRSVPRepository)
	repo.On("FindByID", mock.Anything, id).Return(&model.RSVP{ID: id}, nil)
	repo.On("Delete", mock.Anything, id).Return(nil)
	svc := newTestRSVPService(repo)

	require.NoError(t, svc.Delete(context.Background(), id))
	repo.AssertExpectations(t)

	missing := new(MockRSVPRepository)
	missing.On("FindByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)
	svc = newTestRSVPService(missing)
	assert.ErrorIs(t, svc.Delete(context.Background(), id), apperrors.ErrRSVPNotFound)
}
