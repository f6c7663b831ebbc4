package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/liminalhq/liminal/internal/access"
	"github.com/liminalhq/liminal/internal/cache"
	"github.com/liminalhq/liminal/internal/domain"
	"github.com/liminalhq/liminal/internal/mocks"
	"github.com/liminalhq/liminal/internal/model"
	"github.com/liminalhq/liminal/internal/repository"
	"github.com/liminalhq/liminal/internal/scope"
	"github.com/liminalhq/liminal/internal/service"
	"github.com/liminalhq/liminal/internal/tenancy"
)

// fakeEntryStore keeps rows in memory and mirrors the repository's scoping
// behavior, with an optional hook that runs during List to simulate a context
// switch while a query is in flight.
type fakeEntryStore struct {
	kind    model.Kind
	rows    []model.Entry
	created []model.Entry
	onList  func()
}

func (s *fakeEntryStore) Kind() model.Kind { return s.kind }

func (s *fakeEntryStore) List(_ context.Context, f scope.Filter) ([]model.Entry, error) {
	if s.onList != nil {
		s.onList()
	}
	out := []model.Entry{}
	for _, e := range s.rows {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeEntryStore) Find(_ context.Context, f scope.Filter, id uuid.UUID) (model.Entry, error) {
	for _, e := range s.rows {
		if e.GetID() == id && f.Matches(e) {
			return e, nil
		}
	}
	return nil, domain.ErrEntryNotFound
}

func (s *fakeEntryStore) Create(_ context.Context, f scope.Filter, e model.Entry) error {
	if !f.Writable() {
		return domain.ErrNotAMember
	}
	f.Stamp(e)
	s.rows = append(s.rows, e)
	s.created = append(s.created, e)
	return nil
}

func (s *fakeEntryStore) Save(_ context.Context, e model.Entry) error { return nil }

func (s *fakeEntryStore) Delete(_ context.Context, f scope.Filter, id uuid.UUID) error {
	for i, e := range s.rows {
		if e.GetID() == id && f.Matches(e) {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return domain.ErrEntryNotFound
}

func newEntryFixture(t *testing.T, ctrl *gomock.Controller, memberships []model.Membership) (
	*service.EntryService, *fakeEntryStore, *tenancy.Manager, *mocks.MockOrganizationRepositoryIface, uuid.UUID,
) {
	t.Helper()
	userID := uuid.New()
	for i := range memberships {
		memberships[i].UserID = userID
	}

	source := mocks.NewMockMembershipSource(ctrl)
	source.EXPECT().MembershipsByUser(gomock.Any(), userID).Return(memberships, nil).AnyTimes()

	selStore := mocks.NewMockSelectionStore(ctrl)
	selStore.EXPECT().Load(gomock.Any(), userID).Return(nil, domain.ErrNotFound).AnyTimes()
	selStore.EXPECT().Save(gomock.Any(), userID, gomock.Any()).Return(nil).AnyTimes()
	selStore.EXPECT().Clear(gomock.Any(), userID).Return(nil).AnyTimes()

	tenants := tenancy.NewManager(source, selStore, nil)
	orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)

	store := &fakeEntryStore{kind: model.KindThreshold}
	stores := map[model.Kind]repository.EntryStore{model.KindThreshold: store}

	svc := service.NewEntryService(stores, orgRepo, tenants, cache.NewInMemoryCache(time.Minute, time.Minute))
	return svc, store, tenants, orgRepo, userID
}

func TestEntryCreateStampsPersonalScope(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, store, _, _, userID := newEntryFixture(t, ctrl, nil)

	e, err := svc.Create(context.Background(), userID, model.KindThreshold, []byte(`{"title":"crossed over"}`))
	assert.NoError(t, err)
	assert.Equal(t, userID, e.OwnerID())
	assert.Nil(t, e.OrgID())
	assert.Len(t, store.created, 1)
}

func TestEntryCreateStampsOrganizationScope(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orgID := uuid.New()
	m := model.Membership{OrganizationID: orgID, Role: access.RoleMember}
	svc, _, tenants, orgRepo, userID := newEntryFixture(t, ctrl, []model.Membership{m})

	r, err := tenants.Resolver(context.Background(), userID)
	assert.NoError(t, err)
	_, err = r.Switch(context.Background(), &orgID)
	assert.NoError(t, err)

	orgRepo.EXPECT().
		FindMembership(gomock.Any(), orgID, userID).
		Return(&model.Membership{OrganizationID: orgID, UserID: userID, Role: access.RoleMember}, nil).
		AnyTimes()

	// Tenancy columns supplied by the client are ignored; the stamp wins.
	body := []byte(`{"title":"shared","organization_id":"` + uuid.NewString() + `"}`)
	e, err := svc.Create(context.Background(), userID, model.KindThreshold, body)
	assert.NoError(t, err)
	assert.Equal(t, userID, e.OwnerID())
	assert.NotNil(t, e.OrgID())
	assert.Equal(t, orgID, *e.OrgID())
}

func TestEntryListDiscardsStaleResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orgID := uuid.New()
	m := model.Membership{OrganizationID: orgID, Role: access.RoleMember}
	svc, store, tenants, orgRepo, userID := newEntryFixture(t, ctrl, []model.Membership{m})

	personal := &model.Threshold{Tenanted: model.Tenanted{ID: uuid.New()}}
	personal.SetTenant(userID, nil)
	shared := &model.Threshold{Tenanted: model.Tenanted{ID: uuid.New()}}
	shared.SetTenant(uuid.New(), &orgID)
	store.rows = []model.Entry{personal, shared}

	r, err := tenants.Resolver(context.Background(), userID)
	assert.NoError(t, err)
	_, err = r.Switch(context.Background(), &orgID)
	assert.NoError(t, err)

	orgRepo.EXPECT().
		FindMembership(gomock.Any(), orgID, userID).
		Return(&model.Membership{OrganizationID: orgID, UserID: userID, Role: access.RoleMember}, nil).
		AnyTimes()

	// Switch back to personal while the first query is in flight. The
	// organization-scoped result is stale and must be discarded; the retry
	// runs under the personal scope.
	switched := false
	store.onList = func() {
		if !switched {
			switched = true
			_, err := r.Switch(context.Background(), nil)
			assert.NoError(t, err)
		}
	}

	rows, err := svc.List(context.Background(), userID, model.KindThreshold)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, personal.GetID(), rows[0].GetID())
}

func TestEntryListFailsClosedOnRevokedMembership(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orgID := uuid.New()
	m := model.Membership{OrganizationID: orgID, Role: access.RoleMember}
	svc, store, tenants, orgRepo, userID := newEntryFixture(t, ctrl, []model.Membership{m})

	shared := &model.Threshold{Tenanted: model.Tenanted{ID: uuid.New()}}
	shared.SetTenant(uuid.New(), &orgID)
	store.rows = []model.Entry{shared}

	r, err := tenants.Resolver(context.Background(), userID)
	assert.NoError(t, err)
	_, err = r.Switch(context.Background(), &orgID)
	assert.NoError(t, err)

	// The database says the membership is gone, even though the resolver
	// still points at the organization. The query must return nothing
	// rather than the organization's rows.
	orgRepo.EXPECT().
		FindMembership(gomock.Any(), orgID, userID).
		Return(nil, domain.ErrMembershipNotFound).
		AnyTimes()

	rows, err := svc.List(context.Background(), userID, model.KindThreshold)
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEntryRowsDemotedToPersonalStayVisible(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, store, _, _, userID := newEntryFixture(t, ctrl, nil)

	// When an organization is deleted the entry tables set organization_id
	// NULL, so each author keeps their rows as personal rows. Simulate the
	// demotion for one of the author's rows and one belonging to somebody
	// else.
	orgID := uuid.New()
	mine := &model.Threshold{Tenanted: model.Tenanted{ID: uuid.New()}}
	mine.SetTenant(userID, &orgID)
	theirs := &model.Threshold{Tenanted: model.Tenanted{ID: uuid.New()}}
	theirs.SetTenant(uuid.New(), &orgID)
	store.rows = []model.Entry{mine, theirs}

	mine.SetTenant(userID, nil)
	theirs.SetTenant(theirs.OwnerID(), nil)

	rows, err := svc.List(context.Background(), userID, model.KindThreshold)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, mine.GetID(), rows[0].GetID())
}

func TestEntryUnknownKind(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, _, _, _, userID := newEntryFixture(t, ctrl, nil)

	_, err := svc.List(context.Background(), userID, model.Kind("moments"))
	assert.ErrorIs(t, err, domain.ErrUnknownEntryKind)
}

func TestEntryUpdateKeepsTenancyColumns(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, store, _, _, userID := newEntryFixture(t, ctrl, nil)

	existing := &model.Threshold{Tenanted: model.Tenanted{ID: uuid.New()}, Title: "before"}
	existing.SetTenant(userID, nil)
	store.rows = []model.Entry{existing}

	body := []byte(`{"title":"after","user_id":"` + uuid.NewString() + `"}`)
	e, err := svc.Update(context.Background(), userID, model.KindThreshold, existing.ID, body)
	assert.NoError(t, err)
	assert.Equal(t, "after", e.(*model.Threshold).Title)
	assert.Equal(t, userID, e.OwnerID())
	assert.Nil(t, e.OrgID())
}
