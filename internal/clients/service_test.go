package clients

import (
	"context"
	"testing"

	"partner-portal/internal/apperr"
	"partner-portal/internal/bitrix"
	"partner-portal/internal/commission"
	"partner-portal/internal/store"
	"partner-portal/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

type fakeClientRepo struct {
	store.ClientRepository
	created    *models.Client
	byID       map[int64]*models.Client
	lastSkip   int
	lastLimit  int
	webhookSet bool
	lastUpdate models.ClientPaymentUpdate
}

func (f *fakeClientRepo) UpdatePayment(ctx context.Context, id int64, upd models.ClientPaymentUpdate) error {
	f.lastUpdate = upd
	return nil
}

func (f *fakeClientRepo) Create(ctx context.Context, c *models.Client) error {
	c.ID = 1
	f.created = c
	return nil
}

func (f *fakeClientRepo) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, apperr.NotFound("клиент не найден")
}

func (f *fakeClientRepo) List(ctx context.Context, partnerID int64, skip, limit int) ([]*models.Client, error) {
	f.lastSkip, f.lastLimit = skip, limit
	return nil, nil
}

func (f *fakeClientRepo) SetWebhookResult(ctx context.Context, id int64, sent bool, response string, externalID *string) error {
	f.webhookSet = true
	return nil
}

type fakePartnerRepo struct {
	store.PartnerRepository
	partner *models.Partner
}

func (f *fakePartnerRepo) GetByID(ctx context.Context, id int64) (*models.Partner, error) {
	return f.partner, nil
}

type fakeStore struct {
	store.Store
	client  *fakeClientRepo
	partner *fakePartnerRepo
}

func (f *fakeStore) Client() store.ClientRepository   { return f.client }
func (f *fakeStore) Partner() store.PartnerRepository { return f.partner }

type fakeCRM struct {
	called bool
	resp   *bitrix.CreateLeadResponse
}

func (f *fakeCRM) CreateLead(ctx context.Context, workflowID int64, lead *bitrix.CreateLeadRequest) (*bitrix.CreateLeadResponse, error) {
	f.called = true
	return f.resp, nil
}

func newTestService(st *fakeStore, crm LeadCreator) *Service {
	comm := commission.NewService(st, decimal.NewFromInt(10), zap.NewNop())
	return NewService(st, crm, comm, zap.NewNop())
}

func TestCreateManualValidation(t *testing.T) {
	svc := newTestService(&fakeStore{client: &fakeClientRepo{}}, &fakeCRM{})
	ctx := context.Background()

	_, err := svc.CreateManual(ctx, 1, &models.CreateClientRequest{Name: ""})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	// без телефона и email заявка не принимается
	_, err = svc.CreateManual(ctx, 1, &models.CreateClientRequest{Name: "Иван"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.CreateManual(ctx, 1, &models.CreateClientRequest{Name: "Иван", Phone: strPtr("  ")})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCreateManualForwardsLead(t *testing.T) {
	wf := int64(3)
	repo := &fakeClientRepo{}
	crm := &fakeCRM{resp: &bitrix.CreateLeadResponse{ID: 555}}
	st := &fakeStore{
		client:  repo,
		partner: &fakePartnerRepo{partner: &models.Partner{ID: 1, PartnerCode: "abc", WorkflowID: &wf}},
	}
	svc := newTestService(st, crm)

	client, err := svc.CreateManual(context.Background(), 1, &models.CreateClientRequest{
		Name:  "Иван",
		Phone: strPtr("+79990001122"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ClientSourceManual, client.Source)
	assert.True(t, crm.called)
	assert.True(t, repo.webhookSet)
	require.NotNil(t, client.ExternalID)
	assert.Equal(t, "555", *client.ExternalID)
}

func TestCreateManualWithoutWorkflow(t *testing.T) {
	repo := &fakeClientRepo{}
	crm := &fakeCRM{}
	st := &fakeStore{
		client:  repo,
		partner: &fakePartnerRepo{partner: &models.Partner{ID: 1, PartnerCode: "abc"}},
	}
	svc := newTestService(st, crm)

	// клиент создается даже без настроенной воронки CRM
	client, err := svc.CreateManual(context.Background(), 1, &models.CreateClientRequest{
		Name:  "Иван",
		Email: strPtr("ivan@example.com"),
	})
	require.NoError(t, err)
	assert.False(t, crm.called)
	assert.True(t, repo.webhookSet)
	assert.False(t, client.WebhookSent)
}

func TestListClampsPagination(t *testing.T) {
	repo := &fakeClientRepo{}
	svc := newTestService(&fakeStore{client: repo}, &fakeCRM{})
	ctx := context.Background()

	_, err := svc.List(ctx, 1, -5, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, repo.lastSkip)
	assert.Equal(t, defaultPageSize, repo.lastLimit)

	_, err = svc.List(ctx, 1, 10, 100000)
	require.NoError(t, err)
	assert.Equal(t, 10, repo.lastSkip)
	assert.Equal(t, maxPageSize, repo.lastLimit)
}

func TestGetChecksOwnership(t *testing.T) {
	repo := &fakeClientRepo{byID: map[int64]*models.Client{
		5: {ID: 5, PartnerID: 2},
	}}
	svc := newTestService(&fakeStore{client: repo}, &fakeCRM{})

	// чужой клиент неотличим от несуществующего
	_, err := svc.Get(context.Background(), 1, 5)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	client, err := svc.Get(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), client.ID)
}

func TestUpdatePaymentValidation(t *testing.T) {
	svc := newTestService(&fakeStore{client: &fakeClientRepo{}}, &fakeCRM{})
	ctx := context.Background()

	_, err := svc.UpdatePayment(ctx, 1, models.ClientPaymentUpdate{})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	negative := decimal.NewFromInt(-10)
	_, err = svc.UpdatePayment(ctx, 1, models.ClientPaymentUpdate{DealAmount: &negative})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestUpdatePaymentSuggestsReward(t *testing.T) {
	pct := decimal.NewFromInt(20)
	manual := decimal.NewFromInt(500)
	repo := &fakeClientRepo{byID: map[int64]*models.Client{
		7: {ID: 7, PartnerID: 1},
		8: {ID: 8, PartnerID: 1, PartnerReward: &manual},
	}}
	st := &fakeStore{
		client:  repo,
		partner: &fakePartnerRepo{partner: &models.Partner{ID: 1, RewardPercentage: &pct}},
	}
	svc := newTestService(st, &fakeCRM{})
	amount := decimal.NewFromInt(5000)

	// Сумма без вознаграждения — вознаграждение рассчитывается по проценту
	_, err := svc.UpdatePayment(context.Background(), 7, models.ClientPaymentUpdate{DealAmount: &amount})
	require.NoError(t, err)
	require.NotNil(t, repo.lastUpdate.PartnerReward)
	assert.True(t, repo.lastUpdate.PartnerReward.Equal(decimal.NewFromInt(1000)))

	// Вручную назначенное вознаграждение не пересчитывается
	_, err = svc.UpdatePayment(context.Background(), 8, models.ClientPaymentUpdate{DealAmount: &amount})
	require.NoError(t, err)
	assert.Nil(t, repo.lastUpdate.PartnerReward)
}

func TestBulkUpdatePaymentValidation(t *testing.T) {
	svc := newTestService(&fakeStore{client: &fakeClientRepo{}}, &fakeCRM{})
	ctx := context.Background()

	paid := true
	err := svc.BulkUpdatePayment(ctx, &models.BulkClientPaymentUpdate{
		ClientPaymentUpdate: models.ClientPaymentUpdate{IsPaid: &paid},
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	err = svc.BulkUpdatePayment(ctx, &models.BulkClientPaymentUpdate{ClientIDs: []int64{1, 2}})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}
