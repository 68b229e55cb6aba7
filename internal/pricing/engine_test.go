package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petshop-backend/internal/domain"
)

type memCatalog []domain.Service

func (c memCatalog) GetByIDs(_ context.Context, tenantID int64, ids []int64) ([]domain.Service, error) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Service
	for _, s := range c {
		if s.TenantID == tenantID && want[s.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func svc(id, tenant int64, price string) domain.Service {
	return domain.Service{ID: id, TenantID: tenant, Name: "svc", Price: decimal.RequireFromString(price), Duration: 30}
}

func TestEngine_Compute(t *testing.T) {
	cat := memCatalog{
		svc(1, 10, "50.00"),
		svc(2, 10, "10.00"),
		svc(3, 10, "5.50"),
		svc(4, 20, "99.00"),
		svc(5, 10, "0.005"),
		{ID: 6, TenantID: 10, Name: "Perfume", Price: decimal.RequireFromString("7.25"), Duration: 5, IsExtra: true},
	}
	e := Engine{Catalog: cat}

	tests := []struct {
		name      string
		base      int64
		extras    []int64
		wantTotal string
		wantIDs   []int64
		wantErr   error
	}{
		{name: "base only", base: 1, wantTotal: "50", wantIDs: []int64{}},
		{name: "base and extras", base: 1, extras: []int64{2, 3}, wantTotal: "65.5", wantIDs: []int64{2, 3}},
		{name: "unknown extra dropped", base: 1, extras: []int64{2, 999}, wantTotal: "60", wantIDs: []int64{2}},
		{name: "foreign tenant extra dropped", base: 1, extras: []int64{4}, wantTotal: "50", wantIDs: []int64{}},
		{name: "duplicate extras counted once", base: 1, extras: []int64{2, 2}, wantTotal: "60", wantIDs: []int64{2}},
		{name: "flagged and unflagged extras both priced", base: 1, extras: []int64{6, 2}, wantTotal: "67.25", wantIDs: []int64{6, 2}},
		{name: "half-up rounding", base: 1, extras: []int64{5}, wantTotal: "50.01", wantIDs: []int64{5}},
		{name: "missing base", base: 999, wantErr: ErrServiceNotFound},
		{name: "foreign tenant base", base: 4, wantErr: ErrServiceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := e.Compute(context.Background(), 10, tt.base, tt.extras)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.wantTotal).Equal(q.Total), "total %s", q.Total)
			assert.Equal(t, tt.wantIDs, q.ExtraIDs())
		})
	}
}

func TestEngine_Compute_CatalogError(t *testing.T) {
	e := Engine{Catalog: failingCatalog{}}
	_, err := e.Compute(context.Background(), 1, 1, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrServiceNotFound))
}

type failingCatalog struct{}

func (failingCatalog) GetByIDs(context.Context, int64, []int64) ([]domain.Service, error) {
	return nil, errors.New("db down")
}
