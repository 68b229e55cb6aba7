package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petshop-backend/internal/domain"
	mocks "petshop-backend/internal/mocks/handler"
	"petshop-backend/internal/service"
)

func setupServiceHandler(t *testing.T) (ServiceHandler, *mocks.MockcatalogService) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockcatalogService(ctrl)
	return ServiceHandler{Catalog: svc}, svc
}

func TestServiceHandler_Create(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		price string
	}{
		{name: "number price", body: `{"name":"Banho","price":45.5,"duration":60}`, price: "45.5"},
		{name: "string price", body: `{"name":"Banho","price":"45.50","duration":60}`, price: "45.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc := setupServiceHandler(t)
			svc.EXPECT().
				Create(gomock.Any(), int64(7), gomock.Any()).
				DoAndReturn(func(_ any, _ int64, in service.ServiceInput) (*domain.Service, error) {
					assert.True(t, in.Price.Equal(decimal.RequireFromString(tt.price)))
					return &domain.Service{ID: 1, TenantID: 7, Name: in.Name, Price: in.Price, Duration: in.Duration}, nil
				})

			w := serve(h.RegisterRoutes, httptest.NewRequest(http.MethodPost, "/services", bytes.NewBufferString(tt.body)))

			require.Equal(t, http.StatusCreated, w.Code)
			data := decodeEnvelope(t, w).Data.(map[string]any)
			assert.Equal(t, "45.50", data["price"])
		})
	}
}

func TestServiceHandler_Create_BadPrice(t *testing.T) {
	h, _ := setupServiceHandler(t)

	w := serve(h.RegisterRoutes, httptest.NewRequest(http.MethodPost, "/services", bytes.NewBufferString(`{"name":"Banho","price":"abc"}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServiceHandler_List(t *testing.T) {
	h, svc := setupServiceHandler(t)
	svc.EXPECT().List(gomock.Any(), int64(7)).Return([]domain.Service{
		{ID: 1, Name: "Banho", Price: decimal.NewFromInt(40)},
		{ID: 2, Name: "Hidratação", Price: decimal.NewFromInt(15), IsExtra: true},
	}, nil)

	w := serve(h.RegisterRoutes, httptest.NewRequest(http.MethodGet, "/services", nil))

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w).Data.([]any)
	require.Len(t, data, 2)
	assert.Equal(t, true, data[1].(map[string]any)["extra"])
}

func TestServiceHandler_Update_Forbidden(t *testing.T) {
	h, svc := setupServiceHandler(t)
	svc.EXPECT().
		Update(gomock.Any(), int64(7), int64(3), gomock.Any()).
		Return(nil, service.ErrForbidden)

	w := serve(h.RegisterRoutes, httptest.NewRequest(http.MethodPut, "/services/3", bytes.NewBufferString(`{"name":"Tosa","price":30}`)))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestServiceHandler_Delete_NotFound(t *testing.T) {
	h, svc := setupServiceHandler(t)
	svc.EXPECT().Delete(gomock.Any(), int64(7), int64(3)).Return(service.ErrNotFound)

	w := serve(h.RegisterRoutes, httptest.NewRequest(http.MethodDelete, "/services/3", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
