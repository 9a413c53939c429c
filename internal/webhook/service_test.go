package webhook

import (
	"context"
	"testing"

	"partner-portal/internal/apperr"
	"partner-portal/internal/commission"
	"partner-portal/internal/store"
	"partner-portal/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

type fakePartnerRepo struct {
	store.PartnerRepository
	byToken map[string]*models.Partner
}

func (f *fakePartnerRepo) GetByWebhookToken(ctx context.Context, token string) (*models.Partner, error) {
	if p, ok := f.byToken[token]; ok {
		return p, nil
	}
	return nil, apperr.NotFound("партнер не найден")
}

type fakeClientRepo struct {
	store.ClientRepository
	byExternal map[string]*models.Client

	appliedID     int64
	appliedUpdate *models.CRMClientUpdate
	appliedReward *decimal.Decimal
}

func (f *fakeClientRepo) GetByExternalID(ctx context.Context, partnerID int64, externalID string) (*models.Client, error) {
	if c, ok := f.byExternal[externalID]; ok {
		return c, nil
	}
	return nil, apperr.NotFound("клиент не найден")
}

func (f *fakeClientRepo) ApplyCRMUpdate(ctx context.Context, id int64, upd *models.CRMClientUpdate, reward *decimal.Decimal) error {
	f.appliedID = id
	f.appliedUpdate = upd
	f.appliedReward = reward
	return nil
}

type fakeNotificationRepo struct {
	store.NotificationRepository
	created []*models.Notification
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	f.created = append(f.created, n)
	return nil
}

type fakeSettingsRepo struct {
	store.SettingsRepository
}

func (f *fakeSettingsRepo) Current(ctx context.Context) (*models.RewardSetting, error) {
	return nil, nil
}

type fakeStore struct {
	store.Store
	partner      *fakePartnerRepo
	client       *fakeClientRepo
	notification *fakeNotificationRepo
	settings     store.SettingsRepository
}

func (f *fakeStore) Partner() store.PartnerRepository           { return f.partner }
func (f *fakeStore) Client() store.ClientRepository             { return f.client }
func (f *fakeStore) Notification() store.NotificationRepository { return f.notification }
func (f *fakeStore) Settings() store.SettingsRepository         { return f.settings }

func newTestStore() *fakeStore {
	return &fakeStore{
		partner: &fakePartnerRepo{byToken: map[string]*models.Partner{
			"token123": {ID: 1, Name: "Партнер", WebhookToken: strPtr("token123")},
		}},
		client: &fakeClientRepo{byExternal: map[string]*models.Client{
			"500": {ID: 9, PartnerID: 1, Name: "Иван"},
		}},
		notification: &fakeNotificationRepo{},
		settings:     &fakeSettingsRepo{},
	}
}

func newTestService(st *fakeStore) *Service {
	comm := commission.NewService(st, dec("10"), zap.NewNop())
	return NewService(st, comm, zap.NewNop())
}

func TestHandleLeadUpdate(t *testing.T) {
	st := newTestStore()
	svc := newTestService(st)

	applied, err := svc.HandleLeadUpdate(context.Background(), "token123", &models.WebhookLeadUpdate{
		Bitrix24LeadID:   "500",
		Status:           strPtr("WON"),
		StatusName:       strPtr("Сделка заключена"),
		StatusSemanticID: strPtr("S"),
		Opportunity:      strPtr("1000"),
	})
	require.NoError(t, err)
	assert.True(t, applied)

	assert.Equal(t, int64(9), st.client.appliedID)
	require.NotNil(t, st.client.appliedUpdate.DealAmount)
	assert.True(t, dec("1000").Equal(*st.client.appliedUpdate.DealAmount))
	require.NotNil(t, st.client.appliedReward)
	assert.True(t, dec("100").Equal(*st.client.appliedReward))

	// сделка стала успешной, партнер получил уведомление
	require.Len(t, st.notification.created, 1)
	require.NotNil(t, st.notification.created[0].TargetPartnerID)
	assert.Equal(t, int64(1), *st.notification.created[0].TargetPartnerID)
}

func TestHandleLeadUpdateBadToken(t *testing.T) {
	svc := newTestService(newTestStore())

	_, err := svc.HandleLeadUpdate(context.Background(), "wrong", &models.WebhookLeadUpdate{Bitrix24LeadID: "500"})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	_, err = svc.HandleLeadUpdate(context.Background(), "", &models.WebhookLeadUpdate{Bitrix24LeadID: "500"})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestHandleLeadUpdateTokenMismatch(t *testing.T) {
	st := newTestStore()
	// хранилище вернуло кандидата, но сохраненный токен не совпадает с присланным
	st.partner.byToken["stale"] = &models.Partner{ID: 1, Name: "Партнер", WebhookToken: strPtr("token123")}
	st.partner.byToken["anon"] = &models.Partner{ID: 2, Name: "Партнер без токена"}
	svc := newTestService(st)

	_, err := svc.HandleLeadUpdate(context.Background(), "stale", &models.WebhookLeadUpdate{Bitrix24LeadID: "500"})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	_, err = svc.HandleLeadUpdate(context.Background(), "anon", &models.WebhookLeadUpdate{Bitrix24LeadID: "500"})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// ничего не применено
	assert.Zero(t, st.client.appliedID)
}

func TestHandleLeadUpdateUnknownDealIgnored(t *testing.T) {
	st := newTestStore()
	svc := newTestService(st)

	applied, err := svc.HandleLeadUpdate(context.Background(), "token123", &models.WebhookLeadUpdate{
		Bitrix24LeadID: "999",
	})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Empty(t, st.notification.created)
}

func TestHandleLeadUpdateInvalidAmount(t *testing.T) {
	svc := newTestService(newTestStore())

	_, err := svc.HandleLeadUpdate(context.Background(), "token123", &models.WebhookLeadUpdate{
		Bitrix24LeadID: "500",
		Opportunity:    strPtr("не число"),
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestHandleLeadUpdateNoRepeatNotification(t *testing.T) {
	st := newTestStore()
	successful := models.SemanticSuccess
	st.client.byExternal["500"].SemanticStatus = &successful
	svc := newTestService(st)

	// сделка уже была успешной, повторное уведомление не отправляется
	_, err := svc.HandleLeadUpdate(context.Background(), "token123", &models.WebhookLeadUpdate{
		Bitrix24LeadID:   "500",
		StatusSemanticID: strPtr("S"),
	})
	require.NoError(t, err)
	assert.Empty(t, st.notification.created)
}
