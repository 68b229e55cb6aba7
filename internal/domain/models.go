package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Enumerations
const (
	RoleAdmin        UserRole = "admin"
	RoleCollaborator UserRole = "collaborator"

	SpeciesDog Species = "Dog"
	SpeciesCat Species = "Cat"

	SizeSmall  PetSize = "Small"
	SizeMedium PetSize = "Medium"
	SizeLarge  PetSize = "Large"

	StatusPending   AppointmentStatus = "Pending"
	StatusConfirmed AppointmentStatus = "Confirmed"
	StatusCanceled  AppointmentStatus = "Canceled"
	StatusCompleted AppointmentStatus = "Completed"

	TransactionIncome  TransactionKind = "income"
	TransactionExpense TransactionKind = "expense"

	TransactionPending TransactionStatus = "pending"
	TransactionPaid    TransactionStatus = "paid"
	TransactionOverdue TransactionStatus = "overdue"

	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentDebitCard  PaymentMethod = "debit_card"
	PaymentCash       PaymentMethod = "cash"
	PaymentPix        PaymentMethod = "pix"
	PaymentTransfer   PaymentMethod = "transfer"
	PaymentOther      PaymentMethod = "other"

	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"

	RelatedAppointment RelatedKind = "appointment"
	RelatedService     RelatedKind = "service"
	RelatedUser        RelatedKind = "user"

	JobQueued    JobState = "queued"
	JobActive    JobState = "active"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"

	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type UserRole string
type Species string
type PetSize string
type AppointmentStatus string
type TransactionKind string
type TransactionStatus string
type PaymentMethod string
type NotificationType string
type RelatedKind string
type JobState string
type SortOrder string

// Valid reports whether the method is one of the accepted payment methods.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCreditCard, PaymentDebitCard, PaymentCash, PaymentPix, PaymentTransfer, PaymentOther:
		return true
	}
	return false
}

type User struct {
	ID                int64
	Name              string
	Email             string
	Phone             string
	Role              UserRole
	OwnerID           *int64
	PasswordHash      *string
	InviteToken       *string
	InviteExpiresAt   *time.Time
	PendingInvitation bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TenantID is the admin account that owns the user's data.
func (u User) TenantID() int64 {
	if u.OwnerID != nil {
		return *u.OwnerID
	}
	return u.ID
}

// Service is a catalog entry. Extras are add-ons priced on top of a base service.
type Service struct {
	ID          int64
	TenantID    int64
	Name        string
	Description string
	Price       decimal.Decimal
	Duration    int
	IsExtra     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Appointment struct {
	ID              int64
	TenantID        int64
	PetName         string
	Species         Species
	Breed           string
	Notes           string
	Size            PetSize
	OwnerName       string
	OwnerPhone      string
	BaseServiceID   int64
	ExtraServiceIDs []int64
	Date            time.Time
	Time            string
	Status          AppointmentStatus
	Price           decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Expanded on read; dangling references are left out.
	BaseService   *Service
	ExtraServices []Service
}

// BookedSlot is the projection of an appointment used by the availability grid.
type BookedSlot struct {
	Time     string
	Status   AppointmentStatus
	Duration int
}

type Transaction struct {
	ID                   int64
	TenantID             int64
	Description          string
	Amount               decimal.Decimal
	Kind                 TransactionKind
	Category             string
	Date                 time.Time
	Status               TransactionStatus
	PaymentMethod        PaymentMethod
	RelatedAppointmentID *int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// RelatedRef points a notification at the entity it talks about.
type RelatedRef struct {
	Kind RelatedKind
	ID   int64
}

type Notification struct {
	ID          int64
	RecipientID int64
	Type        NotificationType
	Message     string
	Read        bool
	Related     *RelatedRef
	CreatedAt   time.Time
}

type Settings struct {
	TenantID              int64
	BusinessName          string
	BusinessPhone         string
	CustomURL             *string
	IsURLActive           bool
	SlotCapacity          int
	AppointmentsSortOrder SortOrder
	UpdatedAt             time.Time
}

type StoredFile struct {
	ID          int64
	TenantID    int64
	Filename    string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

type ImportFailure struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

type ImportResult struct {
	InsertedCount int             `json:"insertedCount"`
	IDs           []int64         `json:"ids"`
	Failures      []ImportFailure `json:"failures"`
}

type ImportJob struct {
	ID          string
	TenantID    int64
	FileID      int64
	State       JobState
	Progress    int
	Attempts    int
	MaxAttempts int
	Result      *ImportResult
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Finished reports whether the job reached a terminal state.
func (j ImportJob) Finished() bool {
	return j.State == JobCompleted || j.State == JobFailed
}

type OutboxEvent struct {
	ID            int64
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}
