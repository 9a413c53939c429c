package store

import (
	"context"
	"fmt"

	"partner-portal/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// NotificationRepository определяет интерфейс для уведомлений и чата с партнерами
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForPartner(ctx context.Context, partnerID int64) ([]*models.Notification, error)
	MarkRead(ctx context.Context, notificationID, partnerID int64) error
	CountUnread(ctx context.Context, partnerID int64) (int, error)

	CreateChatMessage(ctx context.Context, m *models.ChatMessage) error
	ListChatMessages(ctx context.Context, partnerID int64, limit int) ([]*models.ChatMessage, error)
	MarkChatRead(ctx context.Context, partnerID int64, fromAdmin bool) error
	CountUnreadChat(ctx context.Context, partnerID int64, fromAdmin bool) (int, error)
	ListChatThreads(ctx context.Context) ([]*models.ChatThread, error)
}

// PostgresNotificationRepository реализует NotificationRepository для PostgreSQL
type PostgresNotificationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewNotificationRepository создает новый репозиторий уведомлений
func NewNotificationRepository(db *pgxpool.Pool, logger *zap.Logger) NotificationRepository {
	return &PostgresNotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create создает уведомление. target_partner_id == nil означает рассылку всем.
func (r *PostgresNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (title, message, created_by, target_partner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, n.Title, n.Message, n.CreatedBy, n.TargetPartnerID).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания уведомления: %w", err)
	}
	return nil
}

// ListForPartner получает уведомления, адресованные партнеру или всем,
// с признаком прочтения
func (r *PostgresNotificationRepository) ListForPartner(ctx context.Context, partnerID int64) ([]*models.Notification, error) {
	query := `
		SELECT n.id, n.title, n.message, n.created_by, n.target_partner_id, n.created_at,
			(nr.notification_id IS NOT NULL) AS is_read
		FROM notifications n
		LEFT JOIN notification_reads nr ON nr.notification_id = n.id AND nr.partner_id = $1
		WHERE n.target_partner_id IS NULL OR n.target_partner_id = $1
		ORDER BY n.created_at DESC`

	rows, err := r.db.Query(ctx, query, partnerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки уведомлений: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.CreatedBy, &n.TargetPartnerID, &n.CreatedAt, &n.IsRead)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения уведомления: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead помечает уведомление прочитанным. Повторная отметка не является ошибкой.
func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, notificationID, partnerID int64) error {
	query := `
		INSERT INTO notification_reads (notification_id, partner_id)
		VALUES ($1, $2)
		ON CONFLICT (notification_id, partner_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, notificationID, partnerID); err != nil {
		return fmt.Errorf("ошибка отметки уведомления прочитанным: %w", err)
	}
	return nil
}

// CountUnread возвращает количество непрочитанных уведомлений партнера
func (r *PostgresNotificationRepository) CountUnread(ctx context.Context, partnerID int64) (int, error) {
	query := `
		SELECT COUNT(n.id)
		FROM notifications n
		LEFT JOIN notification_reads nr ON nr.notification_id = n.id AND nr.partner_id = $1
		WHERE (n.target_partner_id IS NULL OR n.target_partner_id = $1)
			AND nr.notification_id IS NULL`

	var count int
	if err := r.db.QueryRow(ctx, query, partnerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета непрочитанных уведомлений: %w", err)
	}
	return count, nil
}

// CreateChatMessage создает сообщение в переписке партнера с администратором
func (r *PostgresNotificationRepository) CreateChatMessage(ctx context.Context, m *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (partner_id, sender_id, is_from_admin, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, m.PartnerID, m.SenderID, m.IsFromAdmin, m.Message).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания сообщения чата: %w", err)
	}
	return nil
}

// ListChatMessages получает последние сообщения переписки в хронологическом порядке
func (r *PostgresNotificationRepository) ListChatMessages(ctx context.Context, partnerID int64, limit int) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, partner_id, sender_id, is_from_admin, message, is_read, created_at
		FROM (
			SELECT id, partner_id, sender_id, is_from_admin, message, is_read, created_at
			FROM chat_messages
			WHERE partner_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) last_messages
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, partnerID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки сообщений чата: %w", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		m := &models.ChatMessage{}
		err := rows.Scan(&m.ID, &m.PartnerID, &m.SenderID, &m.IsFromAdmin, &m.Message, &m.IsRead, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения сообщения чата: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkChatRead помечает прочитанными входящие сообщения указанной стороны
func (r *PostgresNotificationRepository) MarkChatRead(ctx context.Context, partnerID int64, fromAdmin bool) error {
	query := `
		UPDATE chat_messages
		SET is_read = TRUE
		WHERE partner_id = $1 AND is_from_admin = $2 AND is_read = FALSE`

	if _, err := r.db.Exec(ctx, query, partnerID, fromAdmin); err != nil {
		return fmt.Errorf("ошибка отметки сообщений прочитанными: %w", err)
	}
	return nil
}

// CountUnreadChat возвращает количество непрочитанных сообщений указанной стороны
func (r *PostgresNotificationRepository) CountUnreadChat(ctx context.Context, partnerID int64, fromAdmin bool) (int, error) {
	query := `
		SELECT COUNT(id) FROM chat_messages
		WHERE ($1 = 0 OR partner_id = $1) AND is_from_admin = $2 AND is_read = FALSE`

	var count int
	if err := r.db.QueryRow(ctx, query, partnerID, fromAdmin).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета непрочитанных сообщений: %w", err)
	}
	return count, nil
}

// ListChatThreads получает сводку переписок для админки, свежие первыми
func (r *PostgresNotificationRepository) ListChatThreads(ctx context.Context) ([]*models.ChatThread, error) {
	query := `
		SELECT p.id, p.name,
			(SELECT message FROM chat_messages WHERE partner_id = p.id ORDER BY created_at DESC LIMIT 1),
			(SELECT created_at FROM chat_messages WHERE partner_id = p.id ORDER BY created_at DESC LIMIT 1),
			(SELECT COUNT(id) FROM chat_messages
				WHERE partner_id = p.id AND is_from_admin = FALSE AND is_read = FALSE)
		FROM partners p
		WHERE p.role = 'partner'
			AND EXISTS (SELECT 1 FROM chat_messages WHERE partner_id = p.id)
		ORDER BY 4 DESC NULLS LAST`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки переписок: %w", err)
	}
	defer rows.Close()

	var threads []*models.ChatThread
	for rows.Next() {
		t := &models.ChatThread{}
		err := rows.Scan(&t.PartnerID, &t.PartnerName, &t.LastMessage, &t.LastMessageAt, &t.UnreadCount)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения переписки: %w", err)
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}
