package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petshop-backend/internal/domain"
	mocks "petshop-backend/internal/mocks/handler"
	"petshop-backend/internal/server/authctx"
	"petshop-backend/internal/service"
)

var testUser = authctx.CurrentUser{ID: 9, TenantID: 7, Email: "admin@shop.test", Role: domain.RoleAdmin}

// serve routes req through a chi router with testUser attached.
func serve(register func(chi.Router), req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req.WithContext(authctx.WithCurrentUser(req.Context(), testUser)))
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var out apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func setupAppointmentHandler(t *testing.T) (AppointmentHandler, *mocks.MockappointmentService) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockappointmentService(ctrl)
	return AppointmentHandler{Service: svc}, svc
}

func sampleAppointment() domain.Appointment {
	return domain.Appointment{
		ID:              41,
		TenantID:        7,
		PetName:         "Rex",
		Species:         domain.SpeciesDog,
		Size:            domain.SizeMedium,
		OwnerName:       "Ana",
		OwnerPhone:      "11999990000",
		BaseServiceID:   1,
		ExtraServiceIDs: []int64{2},
		Date:            time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		Time:            "10:30",
		Status:          domain.StatusPending,
		Price:           decimal.RequireFromString("65.5"),
	}
}

func TestAppointmentHandler_Create_Success(t *testing.T) {
	h, svc := setupAppointmentHandler(t)

	body := `{"petName":"Rex","species":"Dog","size":"Medium","ownerName":"Ana","ownerPhone":"11999990000",
		"baseService":"1","extraServices":[2,"3"],"date":"2024-05-10","time":"10:30"}`
	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString(body))

	svc.EXPECT().
		Create(gomock.Any(), int64(7), gomock.Any()).
		DoAndReturn(func(_ any, _ int64, in service.CreateAppointmentInput) (*domain.Appointment, error) {
			assert.Equal(t, int64(1), in.BaseServiceID)
			assert.Equal(t, []int64{2, 3}, in.ExtraServiceIDs)
			assert.Equal(t, "2024-05-10", in.Date.Format(dateLayout))
			a := sampleAppointment()
			return &a, nil
		})

	w := serve(h.RegisterRoutes, req)

	require.Equal(t, http.StatusCreated, w.Code)
	data := decodeEnvelope(t, w).Data.(map[string]any)
	assert.Equal(t, "65.50", data["price"])
	assert.Equal(t, "2024-05-10", data["date"])
}

func TestAppointmentHandler_Create_ValidationError(t *testing.T) {
	h, svc := setupAppointmentHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString(`{"petName":""}`))

	svc.EXPECT().
		Create(gomock.Any(), int64(7), gomock.Any()).
		Return(nil, &service.ValidationError{Field: "petName", Message: "petName is required"})

	w := serve(h.RegisterRoutes, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	out := decodeEnvelope(t, w)
	assert.Equal(t, "petName is required", out.Message)
}

func TestAppointmentHandler_Create_BadDate(t *testing.T) {
	h, _ := setupAppointmentHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString(`{"date":"10/05/2024"}`))

	w := serve(h.RegisterRoutes, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandler_List_PassesFilters(t *testing.T) {
	h, svc := setupAppointmentHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/appointments?search=rex&status=Pending&range=week&page=2&limit=5&sort=DESC", nil)

	svc.EXPECT().
		List(gomock.Any(), int64(7), service.ListAppointmentsInput{
			Search: "rex",
			Status: domain.StatusPending,
			Range:  "week",
			Page:   2,
			Limit:  5,
			Sort:   domain.SortDesc,
		}).
		Return(&service.AppointmentPage{
			Data:       []domain.Appointment{sampleAppointment()},
			Pagination: service.Pagination{CurrentPage: 2, TotalPages: 3, TotalItems: 11, Limit: 5},
		}, nil)

	w := serve(h.RegisterRoutes, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w).Data.(map[string]any)
	assert.Len(t, data["data"], 1)
	pagination := data["pagination"].(map[string]any)
	assert.EqualValues(t, 11, pagination["totalItems"])
}

func TestAppointmentHandler_Get_NotFound(t *testing.T) {
	h, svc := setupAppointmentHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/appointments/99", nil)

	svc.EXPECT().Get(gomock.Any(), int64(7), int64(99)).Return(nil, service.ErrNotFound)

	w := serve(h.RegisterRoutes, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAppointmentHandler_Get_InvalidID(t *testing.T) {
	h, _ := setupAppointmentHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/appointments/abc", nil)

	w := serve(h.RegisterRoutes, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandler_Update_OnlySentFields(t *testing.T) {
	h, svc := setupAppointmentHandler(t)
	req := httptest.NewRequest(http.MethodPut, "/appointments/41", bytes.NewBufferString(`{"status":"Completed","id":5,"tenantId":3}`))

	svc.EXPECT().
		Update(gomock.Any(), int64(7), int64(41), gomock.Any()).
		DoAndReturn(func(_ any, _ int64, _ int64, p service.AppointmentPatch) (*domain.Appointment, error) {
			require.NotNil(t, p.Status)
			assert.Equal(t, domain.StatusCompleted, *p.Status)
			assert.Nil(t, p.PetName)
			assert.Nil(t, p.Date)
			assert.Nil(t, p.ExtraServiceIDs)
			a := sampleAppointment()
			a.Status = domain.StatusCompleted
			return &a, nil
		})

	w := serve(h.RegisterRoutes, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w).Data.(map[string]any)
	assert.Equal(t, "Completed", data["status"])
}

func TestAppointmentHandler_Update_StatusConflict(t *testing.T) {
	h, svc := setupAppointmentHandler(t)
	req := httptest.NewRequest(http.MethodPut, "/appointments/41", bytes.NewBufferString(`{"status":"Pending"}`))

	svc.EXPECT().
		Update(gomock.Any(), int64(7), int64(41), gomock.Any()).
		Return(nil, service.ErrConflict)

	w := serve(h.RegisterRoutes, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAppointmentHandler_Delete(t *testing.T) {
	h, svc := setupAppointmentHandler(t)
	req := httptest.NewRequest(http.MethodDelete, "/appointments/41", nil)

	svc.EXPECT().Delete(gomock.Any(), int64(7), int64(41)).Return(nil)

	w := serve(h.RegisterRoutes, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAppointmentHandler_Unauthenticated(t *testing.T) {
	h, _ := setupAppointmentHandler(t)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/appointments", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
