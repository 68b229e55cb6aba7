package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"petshop-backend/internal/db"
	"petshop-backend/internal/domain"
)

type NotificationRepository struct {
	DB *db.Postgres
	Tx pgx.Tx
}

func (r NotificationRepository) Create(ctx context.Context, in domain.Notification) (*domain.Notification, error) {
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if in.Type == "" {
		in.Type = domain.NotificationInfo
	}
	var relKind pgtype.Text
	var relID pgtype.Int8
	if in.Related != nil {
		relKind = pgtype.Text{String: string(in.Related.Kind), Valid: true}
		relID = pgtype.Int8{Int64: in.Related.ID, Valid: true}
	}
	row := querier(r.DB, r.Tx).QueryRow(ctx, `
		INSERT INTO notifications (recipient_id, type, message, read, related_kind, related_id, created_at)
		VALUES ($1,$2,$3,false,$4,$5,$6)
		RETURNING id, recipient_id, type, message, read, related_kind, related_id, created_at
	`, in.RecipientID, string(in.Type), in.Message, relKind, relID, createdAt)
	return scanNotification(row)
}

func (r NotificationRepository) List(ctx context.Context, recipientID int64, limit int) ([]domain.Notification, error) {
	rows, err := querier(r.DB, r.Tx).Query(ctx, `
		SELECT id, recipient_id, type, message, read, related_kind, related_id, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *n)
	}
	return items, rows.Err()
}

func (r NotificationRepository) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	var n int
	err := querier(r.DB, r.Tx).QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE recipient_id=$1 AND NOT read
	`, recipientID).Scan(&n)
	return n, err
}

func (r NotificationRepository) MarkRead(ctx context.Context, recipientID, id int64) error {
	tag, err := querier(r.DB, r.Tx).Exec(ctx, `
		UPDATE notifications SET read = true WHERE id=$1 AND recipient_id=$2
	`, id, recipientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r NotificationRepository) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	tag, err := querier(r.DB, r.Tx).Exec(ctx, `
		UPDATE notifications SET read = true WHERE recipient_id=$1 AND NOT read
	`, recipientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var (
		n       domain.Notification
		typ     string
		relKind pgtype.Text
		relID   pgtype.Int8
	)
	if err := row.Scan(&n.ID, &n.RecipientID, &typ, &n.Message, &n.Read, &relKind, &relID, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Type = domain.NotificationType(typ)
	if relKind.Valid && relID.Valid {
		n.Related = &domain.RelatedRef{Kind: domain.RelatedKind(relKind.String), ID: relID.Int64}
	}
	return &n, nil
}
