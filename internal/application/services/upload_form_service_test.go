package services

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryon-storefront/internal/domain/entities"
)

func multipartRequest(t *testing.T, field, fileName, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadFormService_ParseFromRequest(t *testing.T) {
	service := NewUploadFormService(0)
	req := multipartRequest(t, "image", "me.png", "image/png", []byte("\x89PNG\r\n\x1a\nrest"))

	candidate, err := service.ParseFromRequest(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, "me.png", candidate.FileName)
	assert.Equal(t, "image/png", candidate.ContentType)
	assert.EqualValues(t, 12, candidate.Size)
	assert.Len(t, candidate.Data, 12)
}

func TestUploadFormService_MissingField(t *testing.T) {
	service := NewUploadFormService(0)
	req := multipartRequest(t, "photo", "me.png", "image/png", []byte("x"))

	_, err := service.ParseFromRequest(httptest.NewRecorder(), req)
	var verr *entities.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, entities.EmptyFile, verr.Kind)
}

func TestUploadFormService_OversizedBody(t *testing.T) {
	service := NewUploadFormService(1024)
	req := multipartRequest(t, "image", "big.png", "image/png", bytes.Repeat([]byte("a"), 3<<20))

	_, err := service.ParseFromRequest(httptest.NewRecorder(), req)
	var verr *entities.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, entities.TooLarge, verr.Kind)
}
