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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ClientPaymentPatch связывает клиента с частичным обновлением платежных полей
type ClientPaymentPatch struct {
	ClientID int64
	Update   models.ClientPaymentUpdate
}

// ClientRepository определяет интерфейс для работы с клиентами
type ClientRepository interface {
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, id int64) (*models.Client, error)
	GetByExternalID(ctx context.Context, partnerID int64, externalID string) (*models.Client, error)
	List(ctx context.Context, partnerID int64, skip, limit int) ([]*models.Client, error)
	ListAll(ctx context.Context, skip, limit int) ([]*models.Client, error)
	ListForReport(ctx context.Context, partnerID int64, from, to *time.Time) ([]*models.Client, error)
	GetMany(ctx context.Context, ids []int64) ([]*models.Client, error)
	Upsert(ctx context.Context, client *models.Client) (bool, error)
	UpdatePayment(ctx context.Context, id int64, upd models.ClientPaymentUpdate) error
	ApplyCRMUpdate(ctx context.Context, id int64, upd *models.CRMClientUpdate, suggestedReward *decimal.Decimal) error
	BulkUpdatePayment(ctx context.Context, patches []ClientPaymentPatch) error
	SetWebhookResult(ctx context.Context, id int64, sent bool, response string, externalID *string) error
	CountByPartner(ctx context.Context, partnerID int64, since *time.Time) (int, error)
	ClientsByDay(ctx context.Context, partnerID int64, since time.Time) ([]models.DailyClientStats, error)
}

// PostgresClientRepository реализует ClientRepository для PostgreSQL
type PostgresClientRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewClientRepository создает новый репозиторий клиентов
func NewClientRepository(db *pgxpool.Pool, logger *zap.Logger) ClientRepository {
	return &PostgresClientRepository{
		db:     db,
		logger: logger,
	}
}

const clientColumns = `id, partner_id, link_id, source, name, phone, email, company, comment,
	external_id, webhook_sent, webhook_response, deal_amount, partner_reward,
	is_paid, paid_at, payment_comment, deal_status, deal_status_name,
	semantic_status, assigned_by_name, created_at, updated_at`

func scanClient(row pgx.Row) (*models.Client, error) {
	c := &models.Client{}
	err := row.Scan(
		&c.ID,
		&c.PartnerID,
		&c.LinkID,
		&c.Source,
		&c.Name,
		&c.Phone,
		&c.Email,
		&c.Company,
		&c.Comment,
		&c.ExternalID,
		&c.WebhookSent,
		&c.WebhookResponse,
		&c.DealAmount,
		&c.PartnerReward,
		&c.IsPaid,
		&c.PaidAt,
		&c.PaymentComment,
		&c.DealStatus,
		&c.DealStatusName,
		&c.SemanticStatus,
		&c.AssignedByName,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresClientRepository) queryClients(ctx context.Context, query string, args ...any) ([]*models.Client, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки клиентов: %w", err)
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения клиента: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// Create создает нового клиента
func (r *PostgresClientRepository) Create(ctx context.Context, client *models.Client) error {
	query := `
		INSERT INTO clients (partner_id, link_id, source, name, phone, email, company, comment, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		client.PartnerID,
		client.LinkID,
		client.Source,
		client.Name,
		client.Phone,
		client.Email,
		client.Company,
		client.Comment,
		client.ExternalID,
	).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)

	if err != nil {
		return fmt.Errorf("ошибка создания клиента: %w", err)
	}
	return nil
}

// GetByID получает клиента по ID
func (r *PostgresClientRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	c, err := scanClient(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("клиент не найден")
		}
		return nil, fmt.Errorf("ошибка получения клиента: %w", err)
	}
	return c, nil
}

// GetByExternalID получает клиента партнера по внешнему идентификатору CRM
func (r *PostgresClientRepository) GetByExternalID(ctx context.Context, partnerID int64, externalID string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE partner_id = $1 AND external_id = $2`
	c, err := scanClient(r.db.QueryRow(ctx, query, partnerID, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("клиент не найден")
		}
		return nil, fmt.Errorf("ошибка получения клиента по external_id: %w", err)
	}
	return c, nil
}

// List получает клиентов партнера с пагинацией, новые первыми
func (r *PostgresClientRepository) List(ctx context.Context, partnerID int64, skip, limit int) ([]*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients
		WHERE partner_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`
	return r.queryClients(ctx, query, partnerID, skip, limit)
}

// ListAll получает клиентов всех партнеров с пагинацией
func (r *PostgresClientRepository) ListAll(ctx context.Context, skip, limit int) ([]*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`
	return r.queryClients(ctx, query, skip, limit)
}

// ListForReport получает клиентов партнера за период для отчета
func (r *PostgresClientRepository) ListForReport(ctx context.Context, partnerID int64, from, to *time.Time) ([]*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE partner_id = $1`
	args := []any{partnerID}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND created_at::date >= $%d::date", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND created_at::date <= $%d::date", len(args))
	}
	query += " ORDER BY created_at DESC"
	return r.queryClients(ctx, query, args...)
}

// GetMany получает клиентов по списку идентификаторов
func (r *PostgresClientRepository) GetMany(ctx context.Context, ids []int64) ([]*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = ANY($1) ORDER BY id`
	return r.queryClients(ctx, query, ids)
}

// Upsert выполняет идемпотентную вставку/обновление клиента по ключу
// (partner_id, external_id). Синхронизация обновляет только статусные поля;
// deal_amount и partner_reward заполняются лишь при отсутствии локального
// значения, is_paid не меняется никогда.
func (r *PostgresClientRepository) Upsert(ctx context.Context, client *models.Client) (bool, error) {
	query := `
		INSERT INTO clients (partner_id, link_id, source, name, phone, email, company, comment,
			external_id, deal_amount, partner_reward, deal_status, deal_status_name,
			semantic_status, assigned_by_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (partner_id, external_id) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), clients.name),
			phone = COALESCE(EXCLUDED.phone, clients.phone),
			email = COALESCE(EXCLUDED.email, clients.email),
			deal_status = COALESCE(EXCLUDED.deal_status, clients.deal_status),
			deal_status_name = COALESCE(EXCLUDED.deal_status_name, clients.deal_status_name),
			semantic_status = COALESCE(EXCLUDED.semantic_status, clients.semantic_status),
			assigned_by_name = COALESCE(EXCLUDED.assigned_by_name, clients.assigned_by_name),
			deal_amount = COALESCE(clients.deal_amount, EXCLUDED.deal_amount),
			partner_reward = COALESCE(clients.partner_reward, EXCLUDED.partner_reward),
			updated_at = NOW()
		RETURNING ` + clientColumns + `, (xmax = 0) AS inserted`

	row := r.db.QueryRow(ctx, query,
		client.PartnerID,
		client.LinkID,
		client.Source,
		client.Name,
		client.Phone,
		client.Email,
		client.Company,
		client.Comment,
		client.ExternalID,
		client.DealAmount,
		client.PartnerReward,
		client.DealStatus,
		client.DealStatusName,
		client.SemanticStatus,
		client.AssignedByName,
	)

	var inserted bool
	c := &models.Client{}
	err := row.Scan(
		&c.ID, &c.PartnerID, &c.LinkID, &c.Source, &c.Name, &c.Phone, &c.Email, &c.Company,
		&c.Comment, &c.ExternalID, &c.WebhookSent, &c.WebhookResponse, &c.DealAmount,
		&c.PartnerReward, &c.IsPaid, &c.PaidAt, &c.PaymentComment, &c.DealStatus,
		&c.DealStatusName, &c.SemanticStatus, &c.AssignedByName, &c.CreatedAt, &c.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return false, fmt.Errorf("ошибка идемпотентного обновления клиента: %w", err)
	}
	*client = *c
	return inserted, nil
}

const updatePaymentQuery = `
	UPDATE clients SET
		deal_amount = COALESCE($2, deal_amount),
		partner_reward = COALESCE($3, partner_reward),
		payment_comment = COALESCE($4, payment_comment),
		is_paid = COALESCE($5, is_paid),
		paid_at = CASE
			WHEN $5 IS TRUE AND paid_at IS NULL THEN NOW()
			WHEN $5 IS FALSE THEN NULL
			ELSE paid_at
		END,
		updated_at = NOW()
	WHERE id = $1`

// UpdatePayment применяет частичное обновление платежных полей клиента.
// Затрагиваются только поля с ненулевыми указателями.
func (r *PostgresClientRepository) UpdatePayment(ctx context.Context, id int64, upd models.ClientPaymentUpdate) error {
	tag, err := r.db.Exec(ctx, updatePaymentQuery,
		id, upd.DealAmount, upd.PartnerReward, upd.PaymentComment, upd.IsPaid)
	if err != nil {
		return fmt.Errorf("ошибка обновления платежных полей клиента: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("клиент не найден")
	}
	return nil
}

// BulkUpdatePayment применяет массовое обновление платежных полей в одной
// транзакции. Либо обновляются все клиенты, либо ни один.
func (r *PostgresClientRepository) BulkUpdatePayment(ctx context.Context, patches []ClientPaymentPatch) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range patches {
		tag, err := tx.Exec(ctx, updatePaymentQuery,
			p.ClientID, p.Update.DealAmount, p.Update.PartnerReward, p.Update.PaymentComment, p.Update.IsPaid)
		if err != nil {
			return fmt.Errorf("ошибка массового обновления клиента %d: %w", p.ClientID, err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("клиент %d не найден", p.ClientID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// ApplyCRMUpdate применяет событие CRM к клиенту. Статусные поля и сумма
// сделки перезаписываются, вознаграждение заполняется только при отсутствии
// локального значения, is_paid не меняется.
func (r *PostgresClientRepository) ApplyCRMUpdate(ctx context.Context, id int64, upd *models.CRMClientUpdate, suggestedReward *decimal.Decimal) error {
	query := `
		UPDATE clients SET
			name = COALESCE($2, name),
			phone = COALESCE($3, phone),
			email = COALESCE($4, email),
			deal_status = COALESCE($5, deal_status),
			deal_status_name = COALESCE($6, deal_status_name),
			semantic_status = COALESCE($7, semantic_status),
			deal_amount = COALESCE($8, deal_amount),
			partner_reward = COALESCE(partner_reward, $9),
			assigned_by_name = COALESCE($10, assigned_by_name),
			updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		id, upd.Name, upd.Phone, upd.Email, upd.DealStatus, upd.DealStatusName,
		upd.SemanticStatus, upd.DealAmount, suggestedReward, upd.AssignedByName)
	if err != nil {
		return fmt.Errorf("ошибка применения обновления из CRM: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("клиент не найден")
	}
	return nil
}

// SetWebhookResult сохраняет результат отправки лида в CRM
func (r *PostgresClientRepository) SetWebhookResult(ctx context.Context, id int64, sent bool, response string, externalID *string) error {
	query := `
		UPDATE clients
		SET webhook_sent = $2, webhook_response = $3,
			external_id = COALESCE($4, external_id), updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, sent, response, externalID)
	if err != nil {
		return fmt.Errorf("ошибка сохранения результата вебхука: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("клиент не найден")
	}
	return nil
}

// CountByPartner возвращает количество клиентов партнера.
// partnerID == 0 означает всех партнеров.
func (r *PostgresClientRepository) CountByPartner(ctx context.Context, partnerID int64, since *time.Time) (int, error) {
	query := `SELECT COUNT(id) FROM clients WHERE ($1 = 0 OR partner_id = $1)`
	args := []any{partnerID}
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета клиентов: %w", err)
	}
	return count, nil
}

// ClientsByDay возвращает количество клиентов по дням и источникам
func (r *PostgresClientRepository) ClientsByDay(ctx context.Context, partnerID int64, since time.Time) ([]models.DailyClientStats, error) {
	query := `
		SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD') AS client_date, source, COUNT(id)
		FROM clients
		WHERE partner_id = $1 AND created_at::date >= $2::date
		GROUP BY created_at::date, source
		ORDER BY client_date`

	rows, err := r.db.Query(ctx, query, partnerID, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки клиентов по дням: %w", err)
	}
	defer rows.Close()

	byDay := make(map[string]*models.DailyClientStats)
	var order []string
	for rows.Next() {
		var day string
		var source models.ClientSource
		var count int
		if err := rows.Scan(&day, &source, &count); err != nil {
			return nil, fmt.Errorf("ошибка чтения клиентов по дням: %w", err)
		}
		stat, ok := byDay[day]
		if !ok {
			stat = &models.DailyClientStats{Date: day}
			byDay[day] = stat
			order = append(order, day)
		}
		switch source {
		case models.ClientSourceForm:
			stat.FormCount = count
		case models.ClientSourceManual:
			stat.ManualCount = count
		}
		stat.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]models.DailyClientStats, 0, len(order))
	for _, day := range order {
		result = append(result, *byDay[day])
	}
	return result, nil
}
