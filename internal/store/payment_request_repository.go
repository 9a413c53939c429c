package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"partner-portal/internal/apperr"
	"partner-portal/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentRequestCounters представляет агрегаты по запросам партнера за период
type PaymentRequestCounters struct {
	Total          int
	Approved       int
	Rejected       int
	Pending        int
	Amount         decimal.Decimal // сумма по всем запросам периода
	ApprovedAmount decimal.Decimal
}

// PaymentRequestRepository определяет интерфейс для работы с запросами на выплату
type PaymentRequestRepository interface {
	Create(ctx context.Context, req *models.PaymentRequest) error
	GetByID(ctx context.Context, id int64) (*models.PaymentRequest, error)
	ListByPartner(ctx context.Context, partnerID int64) ([]*models.PaymentRequest, error)
	ListAll(ctx context.Context, status *models.PaymentRequestStatus) ([]*models.PaymentRequest, error)
	CountPending(ctx context.Context) (int, error)
	Process(ctx context.Context, id int64, input models.ProcessPaymentRequestInput, processedBy int64) (*models.PaymentRequest, error)
	Counters(ctx context.Context, partnerID int64, from, to *time.Time) (*PaymentRequestCounters, error)
}

// PostgresPaymentRequestRepository реализует PaymentRequestRepository для PostgreSQL
type PostgresPaymentRequestRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPaymentRequestRepository создает новый репозиторий запросов на выплату
func NewPaymentRequestRepository(db *pgxpool.Pool, logger *zap.Logger) PaymentRequestRepository {
	return &PostgresPaymentRequestRepository{
		db:     db,
		logger: logger,
	}
}

const paymentRequestColumns = `pr.id, pr.partner_id, p.name, pr.status, pr.total_amount,
	pr.comment, pr.payment_details, pr.admin_comment, pr.created_at, pr.processed_at, pr.processed_by`

func scanPaymentRequest(row pgx.Row) (*models.PaymentRequest, error) {
	pr := &models.PaymentRequest{}
	err := row.Scan(
		&pr.ID,
		&pr.PartnerID,
		&pr.PartnerName,
		&pr.Status,
		&pr.TotalAmount,
		&pr.Comment,
		&pr.PaymentDetails,
		&pr.AdminComment,
		&pr.CreatedAt,
		&pr.ProcessedAt,
		&pr.ProcessedBy,
	)
	if err != nil {
		return nil, err
	}
	return pr, nil
}

// Create создает запрос на выплату вместе со связями клиентов в одной
// транзакции. Частичный уникальный индекс на payment_request_clients
// блокирует включение клиента в две активные заявки одновременно.
func (r *PostgresPaymentRequestRepository) Create(ctx context.Context, req *models.PaymentRequest) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO payment_requests (partner_id, status, total_amount, comment, payment_details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err = tx.QueryRow(ctx, query,
		req.PartnerID,
		models.PaymentRequestStatusPending,
		req.TotalAmount,
		req.Comment,
		req.PaymentDetails,
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса на выплату: %w", err)
	}

	for _, clientID := range req.ClientIDs {
		_, err = tx.Exec(ctx,
			`INSERT INTO payment_request_clients (payment_request_id, client_id, active) VALUES ($1, $2, TRUE)`,
			req.ID, clientID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return apperr.Conflict("клиент %d уже включен в активный запрос на выплату", clientID)
			}
			return fmt.Errorf("ошибка привязки клиента %d к запросу: %w", clientID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	req.Status = models.PaymentRequestStatusPending
	return nil
}

// GetByID получает запрос на выплату со списком клиентов
func (r *PostgresPaymentRequestRepository) GetByID(ctx context.Context, id int64) (*models.PaymentRequest, error) {
	query := `SELECT ` + paymentRequestColumns + `
		FROM payment_requests pr
		JOIN partners p ON p.id = pr.partner_id
		WHERE pr.id = $1`

	pr, err := scanPaymentRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("запрос на выплату не найден")
		}
		return nil, fmt.Errorf("ошибка получения запроса на выплату: %w", err)
	}

	if err := r.attachClients(ctx, pr); err != nil {
		return nil, err
	}
	return pr, nil
}

func (r *PostgresPaymentRequestRepository) attachClients(ctx context.Context, pr *models.PaymentRequest) error {
	query := `
		SELECT c.id, c.name, c.email, c.phone, c.deal_amount, c.partner_reward
		FROM payment_request_clients prc
		JOIN clients c ON c.id = prc.client_id
		WHERE prc.payment_request_id = $1
		ORDER BY c.id`

	rows, err := r.db.Query(ctx, query, pr.ID)
	if err != nil {
		return fmt.Errorf("ошибка выборки клиентов запроса: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.PaymentRequestClient
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.DealAmount, &c.PartnerReward); err != nil {
			return fmt.Errorf("ошибка чтения клиента запроса: %w", err)
		}
		pr.Clients = append(pr.Clients, c)
		pr.ClientIDs = append(pr.ClientIDs, c.ID)
	}
	return rows.Err()
}

func (r *PostgresPaymentRequestRepository) queryRequests(ctx context.Context, query string, args ...any) ([]*models.PaymentRequest, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки запросов на выплату: %w", err)
	}
	defer rows.Close()

	var requests []*models.PaymentRequest
	for rows.Next() {
		pr, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения запроса на выплату: %w", err)
		}
		requests = append(requests, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, pr := range requests {
		if err := r.attachClients(ctx, pr); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

// ListByPartner получает запросы партнера, новые первыми
func (r *PostgresPaymentRequestRepository) ListByPartner(ctx context.Context, partnerID int64) ([]*models.PaymentRequest, error) {
	query := `SELECT ` + paymentRequestColumns + `
		FROM payment_requests pr
		JOIN partners p ON p.id = pr.partner_id
		WHERE pr.partner_id = $1
		ORDER BY pr.created_at DESC`
	return r.queryRequests(ctx, query, partnerID)
}

// ListAll получает запросы всех партнеров с необязательным фильтром по статусу
func (r *PostgresPaymentRequestRepository) ListAll(ctx context.Context, status *models.PaymentRequestStatus) ([]*models.PaymentRequest, error) {
	query := `SELECT ` + paymentRequestColumns + `
		FROM payment_requests pr
		JOIN partners p ON p.id = pr.partner_id
		WHERE ($1::text IS NULL OR pr.status = $1)
		ORDER BY pr.created_at DESC`
	return r.queryRequests(ctx, query, status)
}

// CountPending возвращает количество необработанных запросов
func (r *PostgresPaymentRequestRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(id) FROM payment_requests WHERE status = $1`,
		models.PaymentRequestStatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета необработанных запросов: %w", err)
	}
	return count, nil
}

// Process переводит запрос из pending в конечный статус. Одобрение помечает
// всех клиентов запроса оплаченными, отклонение снимает блокировку клиентов.
// Все изменения выполняются в одной транзакции под блокировкой строки запроса.
func (r *PostgresPaymentRequestRepository) Process(ctx context.Context, id int64, input models.ProcessPaymentRequestInput, processedBy int64) (*models.PaymentRequest, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var current models.PaymentRequestStatus
	err = tx.QueryRow(ctx,
		`SELECT status FROM payment_requests WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("запрос на выплату не найден")
		}
		return nil, fmt.Errorf("ошибка блокировки запроса на выплату: %w", err)
	}
	if current.IsTerminal() {
		return nil, apperr.Conflict("запрос уже обработан, статус %s изменить нельзя", current)
	}

	_, err = tx.Exec(ctx, `
		UPDATE payment_requests
		SET status = $2, admin_comment = $3, processed_at = NOW(), processed_by = $4
		WHERE id = $1`,
		id, input.Status, input.AdminComment, processedBy)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления запроса на выплату: %w", err)
	}

	switch input.Status {
	case models.PaymentRequestStatusApproved:
		_, err = tx.Exec(ctx, `
			UPDATE clients
			SET is_paid = TRUE, paid_at = NOW(), updated_at = NOW()
			WHERE id IN (
				SELECT client_id FROM payment_request_clients WHERE payment_request_id = $1
			)`, id)
		if err != nil {
			return nil, fmt.Errorf("ошибка отметки клиентов оплаченными: %w", err)
		}
	case models.PaymentRequestStatusRejected:
		_, err = tx.Exec(ctx,
			`UPDATE payment_request_clients SET active = FALSE WHERE payment_request_id = $1`, id)
		if err != nil {
			return nil, fmt.Errorf("ошибка освобождения клиентов запроса: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	r.logger.Info("запрос на выплату обработан",
		zap.Int64("request_id", id),
		zap.String("status", string(input.Status)),
		zap.Int64("processed_by", processedBy))

	return r.GetByID(ctx, id)
}

// Counters возвращает агрегаты по запросам партнера за период.
// partnerID == 0 означает всех партнеров.
func (r *PostgresPaymentRequestRepository) Counters(ctx context.Context, partnerID int64, from, to *time.Time) (*PaymentRequestCounters, error) {
	query := `
		SELECT COUNT(id),
			COUNT(id) FILTER (WHERE status = 'approved'),
			COUNT(id) FILTER (WHERE status = 'rejected'),
			COUNT(id) FILTER (WHERE status = 'pending'),
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE status = 'approved'), 0)
		FROM payment_requests
		WHERE ($1 = 0 OR partner_id = $1)`
	args := []any{partnerID}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND created_at::date >= $%d::date", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND created_at::date <= $%d::date", len(args))
	}

	c := &PaymentRequestCounters{}
	err := r.db.QueryRow(ctx, query, args...).Scan(&c.Total, &c.Approved, &c.Rejected, &c.Pending, &c.Amount, &c.ApprovedAmount)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета запросов на выплату: %w", err)
	}
	return c, nil
}
