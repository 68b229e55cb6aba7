package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petshop-backend/internal/domain"
	mocks "petshop-backend/internal/mocks/handler"
	"petshop-backend/internal/service"
)

func setupImportHandler(t *testing.T, maxBytes int64) (ImportHandler, *mocks.MockimportService) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockimportService(ctrl)
	return ImportHandler{Imports: svc, MaxBytes: maxBytes}, svc
}

func multipartUpload(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/appointments/import", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportHandler_Upload_Accepted(t *testing.T) {
	h, svc := setupImportHandler(t, 1<<20)
	csv := []byte("Nome do Pet;Espécie\nRex;Dog\n")

	svc.EXPECT().
		Enqueue(gomock.Any(), int64(7), gomock.Any()).
		DoAndReturn(func(_ any, _ int64, up service.Upload) (*domain.ImportJob, error) {
			assert.Equal(t, "agenda.csv", up.Filename)
			assert.Equal(t, csv, up.Data)
			return &domain.ImportJob{ID: "job-1", State: domain.JobQueued}, nil
		})

	w := serve(h.RegisterRoutes, multipartUpload(t, "file", "agenda.csv", csv))

	require.Equal(t, http.StatusAccepted, w.Code)
	data := decodeEnvelope(t, w).Data.(map[string]any)
	assert.Equal(t, "job-1", data["jobId"])
	assert.Equal(t, "queued", data["state"])
}

func TestImportHandler_Upload_MissingFile(t *testing.T) {
	h, _ := setupImportHandler(t, 1<<20)

	w := serve(h.RegisterRoutes, multipartUpload(t, "other", "agenda.csv", []byte("x")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportHandler_Upload_TooLarge(t *testing.T) {
	h, _ := setupImportHandler(t, 16)

	w := serve(h.RegisterRoutes, multipartUpload(t, "file", "agenda.csv", bytes.Repeat([]byte("a"), 64)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestImportHandler_Upload_QueueDown(t *testing.T) {
	h, svc := setupImportHandler(t, 1<<20)

	svc.EXPECT().
		Enqueue(gomock.Any(), int64(7), gomock.Any()).
		Return(nil, service.ErrUpstream)

	w := serve(h.RegisterRoutes, multipartUpload(t, "file", "agenda.csv", []byte("a;b\n")))

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestImportHandler_Status_Completed(t *testing.T) {
	h, svc := setupImportHandler(t, 0)
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	svc.EXPECT().
		Status(gomock.Any(), int64(7), "job-1").
		Return(&domain.ImportJob{
			ID:       "job-1",
			TenantID: 7,
			State:    domain.JobCompleted,
			Progress: 100,
			Attempts: 1,
			Result: &domain.ImportResult{
				InsertedCount: 2,
				IDs:           []int64{100, 101},
				Failures:      []domain.ImportFailure{{Line: 3, Error: "base service not found"}},
			},
			CreatedAt: now,
			UpdatedAt: now,
		}, nil)

	w := serve(h.RegisterRoutes, httptest.NewRequest(http.MethodGet, "/appointments/import/job-1/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w).Data.(map[string]any)
	assert.Equal(t, "completed", data["state"])
	assert.EqualValues(t, 100, data["progress"])
	result := data["result"].(map[string]any)
	assert.EqualValues(t, 2, result["insertedCount"])
	assert.Len(t, result["failures"], 1)
}

func TestImportHandler_Status_OtherTenant(t *testing.T) {
	h, svc := setupImportHandler(t, 0)

	svc.EXPECT().Status(gomock.Any(), int64(7), "job-2").Return(nil, service.ErrNotFound)

	w := serve(h.RegisterRoutes, httptest.NewRequest(http.MethodGet, "/appointments/import/job-2/status", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
