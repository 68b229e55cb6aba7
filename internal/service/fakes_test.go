package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/ports"
	"petshop-backend/internal/repository"
)

// memDB is an in-memory stand-in for the Postgres tables the services use.
type memDB struct {
	mu            sync.Mutex
	nextID        int64
	services      map[int64]domain.Service
	appointments  map[int64]domain.Appointment
	notifications []domain.Notification
	transactions  map[int64]domain.Transaction
	outbox        []domain.OutboxEvent
	users         map[int64]domain.User
	settings      map[int64]domain.Settings

	failTransactions bool
	failOutbox       bool
}

func newMemDB() *memDB {
	return &memDB{
		nextID:       100,
		services:     map[int64]domain.Service{},
		appointments: map[int64]domain.Appointment{},
		transactions: map[int64]domain.Transaction{},
		users:        map[int64]domain.User{},
		settings:     map[int64]domain.Settings{},
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (db *memDB) addService(tenantID int64, name, price string, extra bool) domain.Service {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := domain.Service{ID: db.id(), TenantID: tenantID, Name: name, Price: mustDecimal(price), Duration: 30, IsExtra: extra}
	db.services[s.ID] = s
	return s
}

// services

type memServices struct{ db *memDB }

func (m memServices) Create(_ context.Context, s domain.Service) (*domain.Service, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	s.ID = m.db.id()
	m.db.services[s.ID] = s
	return &s, nil
}

func (m memServices) GetByID(_ context.Context, id int64) (*domain.Service, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	s, ok := m.db.services[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (m memServices) GetByIDs(_ context.Context, tenantID int64, ids []int64) ([]domain.Service, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []domain.Service
	seen := map[int64]bool{}
	for _, id := range ids {
		if s, ok := m.db.services[id]; ok && s.TenantID == tenantID && !seen[id] {
			seen[id] = true
			out = append(out, s)
		}
	}
	return out, nil
}

func (m memServices) List(_ context.Context, tenantID int64) ([]domain.Service, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []domain.Service
	for _, s := range m.db.services {
		if s.TenantID == tenantID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m memServices) Update(_ context.Context, s domain.Service) (*domain.Service, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.services[s.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	m.db.services[s.ID] = s
	return &s, nil
}

func (m memServices) Delete(_ context.Context, id int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.services[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.db.services, id)
	return nil
}

// appointments

type memAppointments struct{ db *memDB }

func (m memAppointments) Create(_ context.Context, a domain.Appointment) (*domain.Appointment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	a.ID = m.db.id()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.db.appointments[a.ID] = a
	return &a, nil
}

func (m memAppointments) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	a, ok := m.db.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (m memAppointments) List(_ context.Context, f ports.AppointmentFilter) ([]domain.Appointment, int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var all []domain.Appointment
	for _, a := range m.db.appointments {
		if a.TenantID != f.TenantID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Search != "" {
			q := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(a.PetName), q) && !strings.Contains(strings.ToLower(a.OwnerName), q) {
				continue
			}
		}
		if f.From != nil && a.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && a.Date.After(*f.To) {
			continue
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool {
		ki := all[i].Date.Format(dateLayout) + all[i].Time
		kj := all[j].Date.Format(dateLayout) + all[j].Time
		if f.Sort == domain.SortDesc {
			return ki > kj
		}
		return ki < kj
	})
	total := len(all)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return all[f.Offset:end], total, nil
}

func (m memAppointments) Update(_ context.Context, a domain.Appointment) (*domain.Appointment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.appointments[a.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	a.UpdatedAt = time.Now()
	m.db.appointments[a.ID] = a
	return &a, nil
}

func (m memAppointments) Delete(_ context.Context, id int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.appointments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.db.appointments, id)
	return nil
}

func (m memAppointments) BookedSlots(_ context.Context, tenantID int64, date time.Time) ([]domain.BookedSlot, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []domain.BookedSlot
	for _, a := range m.db.appointments {
		if a.TenantID == tenantID && a.Date.Equal(date) {
			out = append(out, domain.BookedSlot{Time: a.Time, Status: a.Status, Duration: 30})
		}
	}
	return out, nil
}

func (m memAppointments) History(_ context.Context, tenantID int64, ownerName, petName string, limit int) ([]domain.Appointment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []domain.Appointment
	for _, a := range m.db.appointments {
		if a.TenantID != tenantID {
			continue
		}
		if ownerName != "" && !strings.EqualFold(a.OwnerName, ownerName) {
			continue
		}
		if petName != "" && !strings.EqualFold(a.PetName, petName) {
			continue
		}
		out = append(out, a)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// tx-bound stores

type memNotifications struct{ db *memDB }

func (m memNotifications) Create(_ context.Context, n domain.Notification) (*domain.Notification, error) {
	n.ID = m.db.id()
	m.db.notifications = append(m.db.notifications, n)
	return &n, nil
}

func (m memNotifications) List(context.Context, int64, int) ([]domain.Notification, error) {
	return m.db.notifications, nil
}

func (m memNotifications) CountUnread(context.Context, int64) (int, error) {
	return len(m.db.notifications), nil
}

func (m memNotifications) MarkRead(context.Context, int64, int64) error { return nil }

func (m memNotifications) MarkAllRead(context.Context, int64) (int64, error) { return 0, nil }

type memTransactions struct{ db *memDB }

func (m memTransactions) Create(_ context.Context, t domain.Transaction) (*domain.Transaction, error) {
	if m.db.failTransactions {
		return nil, errors.New("transactions table is read-only")
	}
	t.ID = m.db.id()
	m.db.transactions[t.ID] = t
	return &t, nil
}

func (m memTransactions) RecordIncome(ctx context.Context, t domain.Transaction) (*domain.Transaction, bool, error) {
	if m.db.failTransactions {
		return nil, false, errors.New("transactions table is read-only")
	}
	for _, existing := range m.db.transactions {
		if existing.Kind == domain.TransactionIncome && existing.RelatedAppointmentID != nil &&
			t.RelatedAppointmentID != nil && *existing.RelatedAppointmentID == *t.RelatedAppointmentID {
			return &existing, false, nil
		}
	}
	t.Kind = domain.TransactionIncome
	created, err := m.Create(ctx, t)
	return created, err == nil, err
}

type memOutbox struct{ db *memDB }

func (m memOutbox) Add(_ context.Context, ev domain.OutboxEvent) error {
	if m.db.failOutbox {
		return errors.New("outbox unavailable")
	}
	ev.ID = m.db.id()
	m.db.outbox = append(m.db.outbox, ev)
	return nil
}

// memUoW snapshots the tables and restores them when fn fails.
type memUoW struct{ db *memDB }

func (u memUoW) InTx(ctx context.Context, fn func(ctx context.Context, s ports.TxStores) error) error {
	db := u.db
	appts := make(map[int64]domain.Appointment, len(db.appointments))
	for k, v := range db.appointments {
		appts[k] = v
	}
	txs := make(map[int64]domain.Transaction, len(db.transactions))
	for k, v := range db.transactions {
		txs[k] = v
	}
	notes := append([]domain.Notification(nil), db.notifications...)
	events := append([]domain.OutboxEvent(nil), db.outbox...)

	err := fn(ctx, ports.TxStores{
		Appointments:  memAppointments{db: db},
		Notifications: memNotifications{db: db},
		Transactions:  memTransactions{db: db},
		Outbox:        memOutbox{db: db},
	})
	if err != nil {
		db.appointments = appts
		db.transactions = txs
		db.notifications = notes
		db.outbox = events
	}
	return err
}

// settings

type memSettings struct{ db *memDB }

func (m memSettings) Get(_ context.Context, tenantID int64) (*domain.Settings, error) {
	if s, ok := m.db.settings[tenantID]; ok {
		return &s, nil
	}
	return &domain.Settings{TenantID: tenantID, SlotCapacity: 3, AppointmentsSortOrder: domain.SortAsc}, nil
}

func (m memSettings) GetByHandle(_ context.Context, handle string) (*domain.Settings, error) {
	for _, s := range m.db.settings {
		if s.CustomURL != nil && strings.EqualFold(*s.CustomURL, handle) && s.IsURLActive {
			return &s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memSettings) Save(_ context.Context, s domain.Settings) (*domain.Settings, error) {
	m.db.settings[s.TenantID] = s
	return &s, nil
}

// users

type memUsers struct{ db *memDB }

func (m memUsers) Create(_ context.Context, u domain.User) (*domain.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, existing := range m.db.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}
	u.ID = m.db.id()
	m.db.users[u.ID] = u
	return &u, nil
}

func (m memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u, ok := m.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, u := range m.db.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memUsers) GetByInviteToken(_ context.Context, token string) (*domain.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, u := range m.db.users {
		if u.InviteToken != nil && *u.InviteToken == token {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memUsers) AcceptInvite(_ context.Context, id int64, name, passwordHash string) (*domain.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u, ok := m.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Name = name
	u.PasswordHash = &passwordHash
	u.PendingInvitation = false
	u.InviteToken = nil
	u.InviteExpiresAt = nil
	m.db.users[id] = u
	return &u, nil
}

func (m memUsers) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u, ok := m.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = &passwordHash
	m.db.users[id] = u
	return nil
}

func (m memUsers) ListByOwner(_ context.Context, ownerID int64) ([]domain.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []domain.User
	for _, u := range m.db.users {
		if u.OwnerID != nil && *u.OwnerID == ownerID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m memUsers) Delete(_ context.Context, id int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.db.users, id)
	return nil
}
