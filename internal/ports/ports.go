package ports

import (
	"context"
	"time"

	"petshop-backend/internal/domain"
)

// HealthChecker is used to probe dependencies.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ServiceStore persists catalog entries.
type ServiceStore interface {
	Create(ctx context.Context, s domain.Service) (*domain.Service, error)
	GetByID(ctx context.Context, id int64) (*domain.Service, error)
	// GetByIDs returns the services among ids that belong to tenantID.
	GetByIDs(ctx context.Context, tenantID int64, ids []int64) ([]domain.Service, error)
	List(ctx context.Context, tenantID int64) ([]domain.Service, error)
	Update(ctx context.Context, s domain.Service) (*domain.Service, error)
	Delete(ctx context.Context, id int64) error
}

type AppointmentFilter struct {
	TenantID int64
	Search   string
	Status   domain.AppointmentStatus
	From     *time.Time
	To       *time.Time
	Sort     domain.SortOrder
	Limit    int
	Offset   int
}

// AppointmentStore persists appointments. Reads are not tenant-filtered by id.
type AppointmentStore interface {
	Create(ctx context.Context, a domain.Appointment) (*domain.Appointment, error)
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	List(ctx context.Context, f AppointmentFilter) ([]domain.Appointment, int, error)
	Update(ctx context.Context, a domain.Appointment) (*domain.Appointment, error)
	Delete(ctx context.Context, id int64) error
	BookedSlots(ctx context.Context, tenantID int64, date time.Time) ([]domain.BookedSlot, error)
	History(ctx context.Context, tenantID int64, ownerName, petName string, limit int) ([]domain.Appointment, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n domain.Notification) (*domain.Notification, error)
	List(ctx context.Context, recipientID int64, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, recipientID int64) (int, error)
	MarkRead(ctx context.Context, recipientID, id int64) error
	MarkAllRead(ctx context.Context, recipientID int64) (int64, error)
}

type TransactionStore interface {
	Create(ctx context.Context, t domain.Transaction) (*domain.Transaction, error)
	// RecordIncome books at most one income entry per appointment.
	RecordIncome(ctx context.Context, t domain.Transaction) (*domain.Transaction, bool, error)
}

type OutboxStore interface {
	Add(ctx context.Context, ev domain.OutboxEvent) error
}

type SettingsStore interface {
	Get(ctx context.Context, tenantID int64) (*domain.Settings, error)
	GetByHandle(ctx context.Context, handle string) (*domain.Settings, error)
}

type UserStore interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByInviteToken(ctx context.Context, token string) (*domain.User, error)
	AcceptInvite(ctx context.Context, id int64, name, passwordHash string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.User, error)
	Delete(ctx context.Context, id int64) error
}

// TxStores are repositories bound to one database transaction.
type TxStores struct {
	Appointments  AppointmentStore
	Notifications NotificationStore
	Transactions  TransactionStore
	Outbox        OutboxStore
}

// UnitOfWork runs fn inside a transaction. A non-nil error from fn rolls back.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s TxStores) error) error
}

// FileStore keeps uploaded import files until their job finishes.
type FileStore interface {
	Save(ctx context.Context, f domain.StoredFile) (int64, error)
	Load(ctx context.Context, id int64) (*domain.StoredFile, error)
	Delete(ctx context.Context, id int64) error
}

// JobQueue is the producer side of the import queue.
type JobQueue interface {
	Enqueue(ctx context.Context, job domain.ImportJob) (*domain.ImportJob, error)
	Get(ctx context.Context, id string) (*domain.ImportJob, error)
}
