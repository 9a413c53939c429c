package links

import (
	"context"
	"testing"

	"partner-portal/internal/apperr"
	"partner-portal/internal/store"
	"partner-portal/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func TestBuildURLWithUTM(t *testing.T) {
	link := &models.Link{
		UTMSource:   strPtr("partner"),
		UTMCampaign: strPtr("spring"),
	}

	got := buildURLWithUTM("https://example.com/page", link)
	assert.Contains(t, got, "utm_source=partner")
	assert.Contains(t, got, "utm_campaign=spring")

	// существующие параметры сохраняются
	got = buildURLWithUTM("https://example.com/page?ref=abc", link)
	assert.Contains(t, got, "ref=abc")
	assert.Contains(t, got, "utm_source=partner")
}

func TestBuildURLWithUTMNoParams(t *testing.T) {
	link := &models.Link{}
	got := buildURLWithUTM("https://example.com/page", link)
	assert.Equal(t, "https://example.com/page", got)
}

// fakeLinkRepo реализует только нужные тестам методы
type fakeLinkRepo struct {
	store.LinkRepository
	byCode map[string]*models.Link
	stats  []*models.LinkStats
}

func (f *fakeLinkRepo) GetByCode(ctx context.Context, code string) (*models.Link, error) {
	if link, ok := f.byCode[code]; ok {
		return link, nil
	}
	return nil, apperr.NotFound("ссылка не найдена")
}

func (f *fakeLinkRepo) Stats(ctx context.Context, partnerID int64) ([]*models.LinkStats, error) {
	return f.stats, nil
}

type fakeStore struct {
	store.Store
	link store.LinkRepository
}

func (f *fakeStore) Link() store.LinkRepository { return f.link }

func TestResolve(t *testing.T) {
	st := &fakeStore{link: &fakeLinkRepo{byCode: map[string]*models.Link{
		"active1234": {
			ID:        1,
			LinkType:  models.LinkTypeDirect,
			LinkCode:  "active1234",
			TargetURL: strPtr("https://example.com/lp"),
			UTMSource: strPtr("partner"),
			IsActive:  true,
		},
		"gone567890": {
			ID:       2,
			LinkType: models.LinkTypeDirect,
			LinkCode: "gone567890",
			IsActive: false,
		},
		"iframe1234": {
			ID:       3,
			LinkType: models.LinkTypeIframe,
			LinkCode: "iframe1234",
			IsActive: true,
		},
	}}}
	svc := NewService(st, "https://portal.example.com", zap.NewNop())

	res, err := svc.Resolve(context.Background(), "active1234")
	require.NoError(t, err)
	assert.Contains(t, res.RedirectURL, "https://example.com/lp")
	assert.Contains(t, res.RedirectURL, "utm_source=partner")

	// деактивированный код неотличим от несуществующего
	_, err = svc.Resolve(context.Background(), "gone567890")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = svc.Resolve(context.Background(), "missing123")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	// iframe-ссылка показывает форму вместо редиректа
	res, err = svc.Resolve(context.Background(), "iframe1234")
	require.NoError(t, err)
	assert.Empty(t, res.RedirectURL)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(&fakeStore{}, "https://portal.example.com", zap.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, &models.CreateLinkRequest{Title: "", LinkType: models.LinkTypeDirect})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.Create(ctx, 1, &models.CreateLinkRequest{Title: "Ссылка", LinkType: "banner"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	// прямая ссылка без целевого URL
	_, err = svc.Create(ctx, 1, &models.CreateLinkRequest{Title: "Ссылка", LinkType: models.LinkTypeDirect})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.Create(ctx, 1, &models.CreateLinkRequest{
		Title:     "Ссылка",
		LinkType:  models.LinkTypeDirect,
		TargetURL: strPtr("not a url"),
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestStatsComputesConversion(t *testing.T) {
	st := &fakeStore{link: &fakeLinkRepo{stats: []*models.LinkStats{
		{LinkID: 1, ClicksCount: 5, ClientsCount: 2},
		{LinkID: 2, ClicksCount: 3, ClientsCount: 1},
		{LinkID: 3, ClicksCount: 0, ClientsCount: 0},
	}}}
	svc := NewService(st, "https://portal.example.com", zap.NewNop())

	stats, err := svc.Stats(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, stats, 3)

	assert.Equal(t, 40.0, stats[0].ConversionRate)
	assert.Equal(t, 33.33, stats[1].ConversionRate)
	// без кликов конверсия нулевая, а не NaN
	assert.Equal(t, 0.0, stats[2].ConversionRate)
}

func TestPublicURL(t *testing.T) {
	svc := NewService(&fakeStore{}, "https://portal.example.com/", zap.NewNop())
	assert.Equal(t, "https://portal.example.com/api/public/r/abc123", svc.PublicURL("abc123"))
}
