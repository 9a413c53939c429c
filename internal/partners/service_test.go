package partners

import (
	"context"
	"testing"
	"time"

	"partner-portal/internal/apperr"
	"partner-portal/internal/auth"
	"partner-portal/internal/config"
	"partner-portal/internal/store"
	"partner-portal/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePartnerRepo struct {
	store.PartnerRepository
	byEmail map[string]*models.Partner
	byID    map[int64]*models.Partner
	nextID  int64
	updated *models.Partner
}

func newFakePartnerRepo() *fakePartnerRepo {
	return &fakePartnerRepo{
		byEmail: make(map[string]*models.Partner),
		byID:    make(map[int64]*models.Partner),
		nextID:  1,
	}
}

func (f *fakePartnerRepo) Create(ctx context.Context, partner *models.Partner) error {
	if _, ok := f.byEmail[partner.Email]; ok {
		return apperr.Conflict("партнер с email %s уже существует", partner.Email)
	}
	partner.ID = f.nextID
	f.nextID++
	f.byEmail[partner.Email] = partner
	f.byID[partner.ID] = partner
	return nil
}

func (f *fakePartnerRepo) GetByID(ctx context.Context, id int64) (*models.Partner, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, apperr.NotFound("партнер %d не найден", id)
	}
	return p, nil
}

func (f *fakePartnerRepo) GetByEmail(ctx context.Context, email string) (*models.Partner, error) {
	p, ok := f.byEmail[email]
	if !ok {
		return nil, apperr.NotFound("партнер с email %s не найден", email)
	}
	return p, nil
}

func (f *fakePartnerRepo) GetByCode(ctx context.Context, code string) (*models.Partner, error) {
	return nil, apperr.NotFound("партнер с кодом %s не найден", code)
}

func (f *fakePartnerRepo) Update(ctx context.Context, partner *models.Partner) error {
	f.updated = partner
	f.byID[partner.ID] = partner
	return nil
}

type fakeStore struct {
	store.Store
	partners *fakePartnerRepo
}

func (f *fakeStore) Partner() store.PartnerRepository { return f.partners }

func newTestService(repo *fakePartnerRepo) *Service {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AccessTokenTTL = time.Minute
	cfg.Auth.RefreshTokenTTL = time.Hour
	tokens := auth.NewTokenManager(&cfg.Auth)
	return NewService(&fakeStore{partners: repo}, tokens, cfg, zap.NewNop())
}

func TestRegister(t *testing.T) {
	repo := newFakePartnerRepo()
	svc := newTestService(repo)

	partner, err := svc.Register(context.Background(), &models.RegisterRequest{
		Email:    "  Partner@Example.COM ",
		Password: "password123",
		Name:     "ООО Ромашка",
	})
	require.NoError(t, err)

	// Email нормализуется, аккаунт ждет одобрения
	assert.Equal(t, "partner@example.com", partner.Email)
	assert.Equal(t, models.ApprovalStatusPending, partner.ApprovalStatus)
	assert.Equal(t, models.RolePartner, partner.Role)
	assert.True(t, partner.IsActive)
	assert.Len(t, partner.PartnerCode, 8)
	require.NotNil(t, partner.WebhookToken)
	assert.Len(t, *partner.WebhookToken, 32)
	assert.NotEqual(t, "password123", partner.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService(newFakePartnerRepo())

	tests := []struct {
		name string
		req  models.RegisterRequest
	}{
		{"пустой email", models.RegisterRequest{Password: "password123", Name: "Имя"}},
		{"email без @", models.RegisterRequest{Email: "not-an-email", Password: "password123", Name: "Имя"}},
		{"короткий пароль", models.RegisterRequest{Email: "a@b.ru", Password: "short", Name: "Имя"}},
		{"пустое имя", models.RegisterRequest{Email: "a@b.ru", Password: "password123", Name: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), &tt.req)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindValidation))
		})
	}
}

func TestRegister_RejectedCanRetry(t *testing.T) {
	repo := newFakePartnerRepo()
	svc := newTestService(repo)
	partner := seedPartner(t, svc, repo)

	// Занятый email не допускает повторную регистрацию
	_, err := svc.Register(context.Background(), &models.RegisterRequest{
		Email:    "partner@example.com",
		Password: "password123",
		Name:     "Дубликат",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	// После отклонения заявка подается заново и возвращается на модерацию
	_, err = svc.Reject(context.Background(), partner.ID, "недостаточно данных")
	require.NoError(t, err)

	retried, err := svc.Register(context.Background(), &models.RegisterRequest{
		Email:    "partner@example.com",
		Password: "new-password-1",
		Name:     "Партнер (повторно)",
	})
	require.NoError(t, err)
	assert.Equal(t, partner.ID, retried.ID)
	assert.Equal(t, models.ApprovalStatusPending, retried.ApprovalStatus)
	assert.Nil(t, retried.RejectionReason)
	assert.Equal(t, "Партнер (повторно)", retried.Name)
}

func seedPartner(t *testing.T, svc *Service, repo *fakePartnerRepo) *models.Partner {
	t.Helper()
	partner, err := svc.Register(context.Background(), &models.RegisterRequest{
		Email:    "partner@example.com",
		Password: "password123",
		Name:     "Партнер",
	})
	require.NoError(t, err)
	return partner
}

func TestLogin(t *testing.T) {
	repo := newFakePartnerRepo()
	svc := newTestService(repo)
	partner := seedPartner(t, svc, repo)
	partner.ApprovalStatus = models.ApprovalStatusApproved

	pair, err := svc.Login(context.Background(), &models.LoginRequest{
		Email:    "partner@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "bearer", pair.TokenType)
}

func TestLogin_Denied(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *models.Partner)
		email string
		pass  string
	}{
		{
			name:  "неизвестный email",
			setup: func(p *models.Partner) { p.ApprovalStatus = models.ApprovalStatusApproved },
			email: "other@example.com",
			pass:  "password123",
		},
		{
			name:  "неверный пароль",
			setup: func(p *models.Partner) { p.ApprovalStatus = models.ApprovalStatusApproved },
			email: "partner@example.com",
			pass:  "wrong-password",
		},
		{
			name:  "заявка не одобрена",
			setup: func(p *models.Partner) {},
			email: "partner@example.com",
			pass:  "password123",
		},
		{
			name:  "заявка отклонена",
			setup: func(p *models.Partner) { p.ApprovalStatus = models.ApprovalStatusRejected },
			email: "partner@example.com",
			pass:  "password123",
		},
		{
			name: "аккаунт заблокирован",
			setup: func(p *models.Partner) {
				p.ApprovalStatus = models.ApprovalStatusApproved
				p.IsActive = false
			},
			email: "partner@example.com",
			pass:  "password123",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakePartnerRepo()
			svc := newTestService(repo)
			partner := seedPartner(t, svc, repo)
			tt.setup(partner)

			_, err := svc.Login(context.Background(), &models.LoginRequest{Email: tt.email, Password: tt.pass})
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
		})
	}
}

func TestRefresh(t *testing.T) {
	repo := newFakePartnerRepo()
	svc := newTestService(repo)
	partner := seedPartner(t, svc, repo)
	partner.ApprovalStatus = models.ApprovalStatusApproved

	pair, err := svc.Login(context.Background(), &models.LoginRequest{
		Email:    "partner@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	// Access-токен не годится для обновления
	_, err = svc.Refresh(context.Background(), pair.AccessToken)
	require.Error(t, err)
}

func TestApproveAndReject(t *testing.T) {
	repo := newFakePartnerRepo()
	svc := newTestService(repo)
	partner := seedPartner(t, svc, repo)

	approved, err := svc.Approve(context.Background(), partner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, approved.ApprovalStatus)

	// Повторное одобрение и отклонение одобренного запрещены
	_, err = svc.Approve(context.Background(), partner.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	_, err = svc.Reject(context.Background(), partner.ID, "причина")
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestReject(t *testing.T) {
	repo := newFakePartnerRepo()
	svc := newTestService(repo)
	partner := seedPartner(t, svc, repo)

	rejected, err := svc.Reject(context.Background(), partner.ID, "недостоверные данные")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusRejected, rejected.ApprovalStatus)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "недостоверные данные", *rejected.RejectionReason)
}

func TestSetActive_AdminProtected(t *testing.T) {
	repo := newFakePartnerRepo()
	svc := newTestService(repo)

	admin := &models.Partner{Email: "admin@example.com", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, repo.Create(context.Background(), admin))

	_, err := svc.SetActive(context.Background(), admin.ID, false)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestSetRewardPercentage(t *testing.T) {
	repo := newFakePartnerRepo()
	svc := newTestService(repo)
	partner := seedPartner(t, svc, repo)

	pct := decimal.NewFromInt(15)
	updated, err := svc.SetRewardPercentage(context.Background(), partner.ID, &pct)
	require.NoError(t, err)
	require.NotNil(t, updated.RewardPercentage)
	assert.True(t, updated.RewardPercentage.Equal(pct))

	// nil возвращает партнера на глобальный процент
	updated, err = svc.SetRewardPercentage(context.Background(), partner.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, updated.RewardPercentage)

	bad := decimal.NewFromInt(150)
	_, err = svc.SetRewardPercentage(context.Background(), partner.ID, &bad)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestEnsureAdmin(t *testing.T) {
	repo := newFakePartnerRepo()
	svc := newTestService(repo)
	svc.cfg.Auth.AdminEmail = "admin@example.com"
	svc.cfg.Auth.AdminPassword = "admin-password"

	require.NoError(t, svc.EnsureAdmin(context.Background()))

	admin, err := repo.GetByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, models.ApprovalStatusApproved, admin.ApprovalStatus)

	// Повторный запуск не создает дубликат
	require.NoError(t, svc.EnsureAdmin(context.Background()))
}
