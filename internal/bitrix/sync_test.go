package bitrix

import (
	"context"
	"errors"
	"testing"

	"partner-portal/internal/commission"
	"partner-portal/internal/store"
	"partner-portal/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	deals []models.RemoteDeal
	err   error
}

func (f *fakeFetcher) FetchDeals(ctx context.Context, workflowID int64) ([]models.RemoteDeal, error) {
	return f.deals, f.err
}

type fakeClientRepo struct {
	store.ClientRepository
	existing map[string]bool // external_id -> существует
	upserts  []*models.Client
	failFor  string
}

func (f *fakeClientRepo) Upsert(ctx context.Context, client *models.Client) (bool, error) {
	if client.ExternalID != nil && *client.ExternalID == f.failFor {
		return false, errors.New("ошибка базы данных")
	}
	f.upserts = append(f.upserts, client)
	if client.ExternalID != nil && f.existing[*client.ExternalID] {
		return false, nil
	}
	return true, nil
}

type fakeSettingsRepo struct {
	store.SettingsRepository
}

func (f *fakeSettingsRepo) Current(ctx context.Context) (*models.RewardSetting, error) {
	return nil, nil
}

type fakeStore struct {
	store.Store
	client   *fakeClientRepo
	settings store.SettingsRepository
}

func (f *fakeStore) Client() store.ClientRepository     { return f.client }
func (f *fakeStore) Settings() store.SettingsRepository { return f.settings }

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func workflowPartner(pct *decimal.Decimal) *models.Partner {
	wf := int64(7)
	return &models.Partner{ID: 1, WorkflowID: &wf, RewardPercentage: pct}
}

func newTestSync(st store.Store, fetcher DealFetcher) *SyncService {
	comm := commission.NewService(st, dec("10"), zap.NewNop())
	return NewSyncService(st, fetcher, comm, 2, zap.NewNop())
}

func TestSyncPartner(t *testing.T) {
	st := &fakeStore{
		client:   &fakeClientRepo{existing: map[string]bool{"200": true}},
		settings: &fakeSettingsRepo{},
	}
	fetcher := &fakeFetcher{deals: []models.RemoteDeal{
		{ExternalID: "100", Name: "Новая сделка", Amount: dec("1000"), SemanticID: models.SemanticInProgress},
		{ExternalID: "200", Name: "Известная сделка", Amount: dec("500")},
		{Name: "Сделка без идентификатора"},
	}}

	report, err := newTestSync(st, fetcher).SyncPartner(context.Background(), workflowPartner(nil))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, report.Errors, 1)
	assert.True(t, dec("1500").Equal(report.TotalAmount))

	// вознаграждение рассчитано по глобальному проценту
	first := st.client.upserts[0]
	require.NotNil(t, first.PartnerReward)
	assert.True(t, dec("100").Equal(*first.PartnerReward))
}

func TestSyncPartnerIndividualPercentage(t *testing.T) {
	st := &fakeStore{client: &fakeClientRepo{}, settings: &fakeSettingsRepo{}}
	fetcher := &fakeFetcher{deals: []models.RemoteDeal{
		{ExternalID: "300", Name: "Сделка", Amount: dec("1000")},
	}}
	override := dec("25")

	_, err := newTestSync(st, fetcher).SyncPartner(context.Background(), workflowPartner(&override))
	require.NoError(t, err)

	require.Len(t, st.client.upserts, 1)
	require.NotNil(t, st.client.upserts[0].PartnerReward)
	assert.True(t, dec("250").Equal(*st.client.upserts[0].PartnerReward))
}

func TestSyncPartnerCollectsErrors(t *testing.T) {
	st := &fakeStore{
		client:   &fakeClientRepo{failFor: "bad"},
		settings: &fakeSettingsRepo{},
	}
	fetcher := &fakeFetcher{deals: []models.RemoteDeal{
		{ExternalID: "bad", Name: "Проблемная сделка"},
		{ExternalID: "ok", Name: "Нормальная сделка"},
	}}

	report, err := newTestSync(st, fetcher).SyncPartner(context.Background(), workflowPartner(nil))
	require.NoError(t, err)

	// ошибка одной сделки не прерывает обработку остальных
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Created)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "bad", report.Errors[0].ExternalID)
}

func TestSyncPartnerNoWorkflow(t *testing.T) {
	st := &fakeStore{client: &fakeClientRepo{}, settings: &fakeSettingsRepo{}}
	_, err := newTestSync(st, &fakeFetcher{}).SyncPartner(context.Background(), &models.Partner{ID: 1})
	assert.Error(t, err)
}

func TestSyncPartnerNoRewardWithoutAmount(t *testing.T) {
	st := &fakeStore{client: &fakeClientRepo{}, settings: &fakeSettingsRepo{}}
	fetcher := &fakeFetcher{deals: []models.RemoteDeal{
		{ExternalID: "400", Name: "Сделка без суммы"},
	}}

	_, err := newTestSync(st, fetcher).SyncPartner(context.Background(), workflowPartner(nil))
	require.NoError(t, err)

	require.Len(t, st.client.upserts, 1)
	assert.Nil(t, st.client.upserts[0].DealAmount)
	assert.Nil(t, st.client.upserts[0].PartnerReward)
}
