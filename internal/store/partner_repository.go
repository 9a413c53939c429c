package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"partner-portal/internal/apperr"
	"partner-portal/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PartnerRepository определяет интерфейс для работы с партнерами
type PartnerRepository interface {
	Create(ctx context.Context, partner *models.Partner) error
	GetByID(ctx context.Context, id int64) (*models.Partner, error)
	GetByEmail(ctx context.Context, email string) (*models.Partner, error)
	GetByCode(ctx context.Context, partnerCode string) (*models.Partner, error)
	GetByWebhookToken(ctx context.Context, token string) (*models.Partner, error)
	Update(ctx context.Context, partner *models.Partner) error
	List(ctx context.Context, role string) ([]*models.Partner, error)
	ListPending(ctx context.Context) ([]*models.Partner, error)
	CountPending(ctx context.Context) (int, error)
	ListWithWorkflow(ctx context.Context) ([]*models.Partner, error)
	Stats(ctx context.Context) ([]*models.PartnerStats, error)
}

// PostgresPartnerRepository реализует PartnerRepository для PostgreSQL
type PostgresPartnerRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPartnerRepository создает новый репозиторий партнеров
func NewPartnerRepository(db *pgxpool.Pool, logger *zap.Logger) PartnerRepository {
	return &PostgresPartnerRepository{
		db:     db,
		logger: logger,
	}
}

const partnerColumns = `id, email, password_hash, name, company, partner_code, role,
	is_active, approval_status, rejection_reason, reward_percentage,
	payment_details, workflow_id, webhook_token, created_at`

func scanPartner(row pgx.Row) (*models.Partner, error) {
	p := &models.Partner{}
	var paymentDetails []byte
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.PasswordHash,
		&p.Name,
		&p.Company,
		&p.PartnerCode,
		&p.Role,
		&p.IsActive,
		&p.ApprovalStatus,
		&p.RejectionReason,
		&p.RewardPercentage,
		&paymentDetails,
		&p.WorkflowID,
		&p.WebhookToken,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(paymentDetails) > 0 {
		if err := json.Unmarshal(paymentDetails, &p.PaymentMethods); err != nil {
			// Битый JSON не должен ронять выборку
			p.PaymentMethods = nil
		}
	}
	return p, nil
}

func marshalPaymentMethods(methods []models.PaymentMethod) ([]byte, error) {
	if len(methods) == 0 {
		return nil, nil
	}
	return json.Marshal(methods)
}

// Create создает нового партнера
func (r *PostgresPartnerRepository) Create(ctx context.Context, partner *models.Partner) error {
	paymentDetails, err := marshalPaymentMethods(partner.PaymentMethods)
	if err != nil {
		return fmt.Errorf("ошибка сериализации способов выплаты: %w", err)
	}

	query := `
		INSERT INTO partners (email, password_hash, name, company, partner_code, role,
			is_active, approval_status, reward_percentage, payment_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err = r.db.QueryRow(ctx, query,
		partner.Email,
		partner.PasswordHash,
		partner.Name,
		partner.Company,
		partner.PartnerCode,
		partner.Role,
		partner.IsActive,
		partner.ApprovalStatus,
		partner.RewardPercentage,
		paymentDetails,
	).Scan(&partner.ID, &partner.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("партнер с таким email уже зарегистрирован")
		}
		return fmt.Errorf("ошибка создания партнера: %w", err)
	}
	return nil
}

// GetByID получает партнера по ID
func (r *PostgresPartnerRepository) GetByID(ctx context.Context, id int64) (*models.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE id = $1`
	p, err := scanPartner(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("партнер не найден")
		}
		return nil, fmt.Errorf("ошибка получения партнера: %w", err)
	}
	return p, nil
}

// GetByEmail получает партнера по email
func (r *PostgresPartnerRepository) GetByEmail(ctx context.Context, email string) (*models.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE email = $1`
	p, err := scanPartner(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("партнер не найден")
		}
		return nil, fmt.Errorf("ошибка получения партнера по email: %w", err)
	}
	return p, nil
}

// GetByCode получает партнера по партнерскому коду
func (r *PostgresPartnerRepository) GetByCode(ctx context.Context, partnerCode string) (*models.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE partner_code = $1`
	p, err := scanPartner(r.db.QueryRow(ctx, query, partnerCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("партнер не найден")
		}
		return nil, fmt.Errorf("ошибка получения партнера по коду: %w", err)
	}
	return p, nil
}

// GetByWebhookToken получает партнера по токену вебхука
func (r *PostgresPartnerRepository) GetByWebhookToken(ctx context.Context, token string) (*models.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE webhook_token = $1`
	p, err := scanPartner(r.db.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("партнер не найден")
		}
		return nil, fmt.Errorf("ошибка получения партнера по токену: %w", err)
	}
	return p, nil
}

// Update обновляет партнера
func (r *PostgresPartnerRepository) Update(ctx context.Context, partner *models.Partner) error {
	paymentDetails, err := marshalPaymentMethods(partner.PaymentMethods)
	if err != nil {
		return fmt.Errorf("ошибка сериализации способов выплаты: %w", err)
	}

	query := `
		UPDATE partners
		SET email = $2, password_hash = $3, name = $4, company = $5,
			role = $6, is_active = $7, approval_status = $8, rejection_reason = $9,
			reward_percentage = $10, payment_details = $11, workflow_id = $12, webhook_token = $13
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		partner.ID,
		partner.Email,
		partner.PasswordHash,
		partner.Name,
		partner.Company,
		partner.Role,
		partner.IsActive,
		partner.ApprovalStatus,
		partner.RejectionReason,
		partner.RewardPercentage,
		paymentDetails,
		partner.WorkflowID,
		partner.WebhookToken,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления партнера: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("партнер не найден")
	}
	return nil
}

func (r *PostgresPartnerRepository) queryPartners(ctx context.Context, query string, args ...any) ([]*models.Partner, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки партнеров: %w", err)
	}
	defer rows.Close()

	var partners []*models.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения партнера: %w", err)
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

// List получает всех партнеров с указанной ролью
func (r *PostgresPartnerRepository) List(ctx context.Context, role string) ([]*models.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE role = $1 ORDER BY created_at DESC`
	return r.queryPartners(ctx, query, role)
}

// ListPending получает необработанные заявки на регистрацию
func (r *PostgresPartnerRepository) ListPending(ctx context.Context) ([]*models.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners
		WHERE approval_status = 'pending' AND role = 'partner'
		ORDER BY created_at DESC`
	return r.queryPartners(ctx, query)
}

// CountPending возвращает количество необработанных заявок
func (r *PostgresPartnerRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(id) FROM partners WHERE approval_status = 'pending' AND role = 'partner'`
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета заявок: %w", err)
	}
	return count, nil
}

// ListWithWorkflow получает активных партнеров с настроенной интеграцией CRM
func (r *PostgresPartnerRepository) ListWithWorkflow(ctx context.Context) ([]*models.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners
		WHERE workflow_id IS NOT NULL AND is_active = TRUE
		ORDER BY id`
	return r.queryPartners(ctx, query)
}

// Stats возвращает сводку по всем партнерам для админки
func (r *PostgresPartnerRepository) Stats(ctx context.Context) ([]*models.PartnerStats, error) {
	query := `
		SELECT p.id, p.email, p.name, p.company, p.partner_code, p.is_active,
			p.reward_percentage, p.created_at,
			COALESCE(l.cnt, 0) AS links_count,
			COALESCE(ck.cnt, 0) AS clicks_count,
			COALESCE(c.cnt, 0) AS clients_count,
			COALESCE(paid.amount, 0) AS paid_amount,
			COALESCE(unpaid.amount, 0) AS unpaid_amount
		FROM partners p
		LEFT JOIN (
			SELECT partner_id, COUNT(id) AS cnt FROM partner_links GROUP BY partner_id
		) l ON l.partner_id = p.id
		LEFT JOIN (
			SELECT pl.partner_id, COUNT(lc.id) AS cnt
			FROM partner_links pl
			JOIN link_clicks lc ON lc.link_id = pl.id
			GROUP BY pl.partner_id
		) ck ON ck.partner_id = p.id
		LEFT JOIN (
			SELECT partner_id, COUNT(id) AS cnt FROM clients GROUP BY partner_id
		) c ON c.partner_id = p.id
		LEFT JOIN (
			SELECT partner_id, SUM(partner_reward) AS amount FROM clients
			WHERE is_paid = TRUE AND partner_reward IS NOT NULL GROUP BY partner_id
		) paid ON paid.partner_id = p.id
		LEFT JOIN (
			SELECT partner_id, SUM(partner_reward) AS amount FROM clients
			WHERE is_paid = FALSE AND partner_reward IS NOT NULL GROUP BY partner_id
		) unpaid ON unpaid.partner_id = p.id
		WHERE p.role = 'partner'
		ORDER BY p.created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки статистики партнеров: %w", err)
	}
	defer rows.Close()

	var stats []*models.PartnerStats
	for rows.Next() {
		s := &models.PartnerStats{}
		err := rows.Scan(
			&s.ID, &s.Email, &s.Name, &s.Company, &s.PartnerCode, &s.IsActive,
			&s.RewardPercentage, &s.CreatedAt,
			&s.LinksCount, &s.ClicksCount, &s.ClientsCount,
			&s.PaidAmount, &s.UnpaidAmount,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения статистики партнера: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
