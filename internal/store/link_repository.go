package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"partner-portal/internal/apperr"
	"partner-portal/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// LinkRepository определяет интерфейс для работы со ссылками и кликами
type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	GetByID(ctx context.Context, id int64) (*models.Link, error)
	GetByCode(ctx context.Context, linkCode string) (*models.Link, error)
	CodeExists(ctx context.Context, linkCode string) (bool, error)
	ListByPartner(ctx context.Context, partnerID int64) ([]*models.Link, error)
	Update(ctx context.Context, link *models.Link) error
	Deactivate(ctx context.Context, id int64) error
	RecordClick(ctx context.Context, click *models.Click) error
	ClicksByDay(ctx context.Context, linkID int64, since time.Time) (map[string]int, error)
	Stats(ctx context.Context, partnerID int64) ([]*models.LinkStats, error)
	CountClicksByPartner(ctx context.Context, partnerID int64, from, to *time.Time) (int, error)
	CountAllClicks(ctx context.Context, from, to *time.Time) (int, error)
}

// PostgresLinkRepository реализует LinkRepository для PostgreSQL
type PostgresLinkRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewLinkRepository создает новый репозиторий ссылок
func NewLinkRepository(db *pgxpool.Pool, logger *zap.Logger) LinkRepository {
	return &PostgresLinkRepository{
		db:     db,
		logger: logger,
	}
}

const linkColumns = `id, partner_id, title, link_type, link_code, target_url, landing_id,
	utm_source, utm_medium, utm_campaign, utm_content, utm_term, is_active, created_at`

func scanLink(row pgx.Row) (*models.Link, error) {
	l := &models.Link{}
	err := row.Scan(
		&l.ID,
		&l.PartnerID,
		&l.Title,
		&l.LinkType,
		&l.LinkCode,
		&l.TargetURL,
		&l.LandingID,
		&l.UTMSource,
		&l.UTMMedium,
		&l.UTMCampaign,
		&l.UTMContent,
		&l.UTMTerm,
		&l.IsActive,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Create создает новую ссылку
func (r *PostgresLinkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO partner_links (partner_id, title, link_type, link_code, target_url,
			landing_id, utm_source, utm_medium, utm_campaign, utm_content, utm_term, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE)
		RETURNING id, is_active, created_at`

	err := r.db.QueryRow(ctx, query,
		link.PartnerID,
		link.Title,
		link.LinkType,
		link.LinkCode,
		link.TargetURL,
		link.LandingID,
		link.UTMSource,
		link.UTMMedium,
		link.UTMCampaign,
		link.UTMContent,
		link.UTMTerm,
	).Scan(&link.ID, &link.IsActive, &link.CreatedAt)

	if err != nil {
		return fmt.Errorf("ошибка создания ссылки: %w", err)
	}
	return nil
}

// GetByID получает ссылку по ID
func (r *PostgresLinkRepository) GetByID(ctx context.Context, id int64) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM partner_links WHERE id = $1`
	l, err := scanLink(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("ссылка не найдена")
		}
		return nil, fmt.Errorf("ошибка получения ссылки: %w", err)
	}
	return l, nil
}

// GetByCode получает ссылку по коду
func (r *PostgresLinkRepository) GetByCode(ctx context.Context, linkCode string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM partner_links WHERE link_code = $1`
	l, err := scanLink(r.db.QueryRow(ctx, query, linkCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("ссылка не найдена")
		}
		return nil, fmt.Errorf("ошибка получения ссылки по коду: %w", err)
	}
	return l, nil
}

// CodeExists проверяет, занят ли код ссылки.
// Коды не переиспользуются даже после деактивации ссылки.
func (r *PostgresLinkRepository) CodeExists(ctx context.Context, linkCode string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM partner_links WHERE link_code = $1)`
	if err := r.db.QueryRow(ctx, query, linkCode).Scan(&exists); err != nil {
		return false, fmt.Errorf("ошибка проверки кода ссылки: %w", err)
	}
	return exists, nil
}

// ListByPartner получает все ссылки партнера со счетчиками кликов и клиентов
func (r *PostgresLinkRepository) ListByPartner(ctx context.Context, partnerID int64) ([]*models.Link, error) {
	query := `
		SELECT ` + linkColumns + `,
			(SELECT COUNT(id) FROM link_clicks WHERE link_id = partner_links.id) AS clicks_count,
			(SELECT COUNT(id) FROM clients WHERE link_id = partner_links.id) AS clients_count
		FROM partner_links
		WHERE partner_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, partnerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки ссылок: %w", err)
	}
	defer rows.Close()

	var links []*models.Link
	for rows.Next() {
		l := &models.Link{}
		err := rows.Scan(
			&l.ID, &l.PartnerID, &l.Title, &l.LinkType, &l.LinkCode, &l.TargetURL, &l.LandingID,
			&l.UTMSource, &l.UTMMedium, &l.UTMCampaign, &l.UTMContent, &l.UTMTerm,
			&l.IsActive, &l.CreatedAt,
			&l.ClicksCount, &l.ClientsCount,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения ссылки: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// Update обновляет ссылку
func (r *PostgresLinkRepository) Update(ctx context.Context, link *models.Link) error {
	query := `
		UPDATE partner_links
		SET title = $2, target_url = $3, utm_source = $4, utm_medium = $5,
			utm_campaign = $6, utm_content = $7, utm_term = $8, is_active = $9
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		link.ID,
		link.Title,
		link.TargetURL,
		link.UTMSource,
		link.UTMMedium,
		link.UTMCampaign,
		link.UTMContent,
		link.UTMTerm,
		link.IsActive,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления ссылки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("ссылка не найдена")
	}
	return nil
}

// Deactivate выполняет логическое удаление ссылки. Идемпотентно.
func (r *PostgresLinkRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE partner_links SET is_active = FALSE WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ошибка деактивации ссылки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("ссылка не найдена")
	}
	return nil
}

// RecordClick записывает клик по ссылке. Клики неизменяемы.
func (r *PostgresLinkRepository) RecordClick(ctx context.Context, click *models.Click) error {
	query := `
		INSERT INTO link_clicks (link_id, ip_address, user_agent, referer)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		click.LinkID,
		click.IPAddress,
		click.UserAgent,
		click.Referer,
	).Scan(&click.ID, &click.CreatedAt)

	if err != nil {
		return fmt.Errorf("ошибка записи клика: %w", err)
	}
	return nil
}

// ClicksByDay возвращает количество кликов по дням начиная с указанной даты
func (r *PostgresLinkRepository) ClicksByDay(ctx context.Context, linkID int64, since time.Time) (map[string]int, error) {
	query := `
		SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD') AS click_date, COUNT(id)
		FROM link_clicks
		WHERE link_id = $1 AND created_at::date >= $2::date
		GROUP BY created_at::date`

	rows, err := r.db.Query(ctx, query, linkID, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки кликов по дням: %w", err)
	}
	defer rows.Close()

	byDay := make(map[string]int)
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("ошибка чтения кликов по дням: %w", err)
		}
		byDay[day] = count
	}
	return byDay, rows.Err()
}

// Stats возвращает статистику по всем ссылкам партнера
func (r *PostgresLinkRepository) Stats(ctx context.Context, partnerID int64) ([]*models.LinkStats, error) {
	query := `
		SELECT pl.id, pl.title, pl.link_type, pl.link_code,
			COALESCE(ck.cnt, 0) AS clicks_count,
			COALESCE(c.cnt, 0) AS clients_count
		FROM partner_links pl
		LEFT JOIN (
			SELECT link_id, COUNT(id) AS cnt FROM link_clicks GROUP BY link_id
		) ck ON ck.link_id = pl.id
		LEFT JOIN (
			SELECT link_id, COUNT(id) AS cnt FROM clients WHERE link_id IS NOT NULL GROUP BY link_id
		) c ON c.link_id = pl.id
		WHERE pl.partner_id = $1
		ORDER BY COALESCE(ck.cnt, 0) DESC`

	rows, err := r.db.Query(ctx, query, partnerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки статистики ссылок: %w", err)
	}
	defer rows.Close()

	var stats []*models.LinkStats
	for rows.Next() {
		s := &models.LinkStats{}
		if err := rows.Scan(&s.LinkID, &s.Title, &s.LinkType, &s.LinkCode, &s.ClicksCount, &s.ClientsCount); err != nil {
			return nil, fmt.Errorf("ошибка чтения статистики ссылки: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func clickDateFilter(base string, from, to *time.Time, args []any) (string, []any) {
	if from != nil {
		args = append(args, *from)
		base += fmt.Sprintf(" AND lc.created_at::date >= $%d::date", len(args))
	}
	if to != nil {
		args = append(args, *to)
		base += fmt.Sprintf(" AND lc.created_at::date <= $%d::date", len(args))
	}
	return base, args
}

// CountClicksByPartner возвращает количество кликов по всем ссылкам партнера
func (r *PostgresLinkRepository) CountClicksByPartner(ctx context.Context, partnerID int64, from, to *time.Time) (int, error) {
	query := `
		SELECT COUNT(lc.id)
		FROM link_clicks lc
		JOIN partner_links pl ON pl.id = lc.link_id
		WHERE pl.partner_id = $1`
	args := []any{partnerID}
	query, args = clickDateFilter(query, from, to, args)

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета кликов партнера: %w", err)
	}
	return count, nil
}

// CountAllClicks возвращает количество кликов по всем партнерам
func (r *PostgresLinkRepository) CountAllClicks(ctx context.Context, from, to *time.Time) (int, error) {
	query := `SELECT COUNT(lc.id) FROM link_clicks lc WHERE TRUE`
	args := []any{}
	query, args = clickDateFilter(query, from, to, args)

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета кликов: %w", err)
	}
	return count, nil
}
