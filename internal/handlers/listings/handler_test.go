package listings

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"marketplace/internal/auth"
	"marketplace/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	ListingsService

	createReq *CreateListingRequest
	createErr error
}

func (s *stubService) CreateListing(ctx context.Context, userInfo auth.UserInfo, req *CreateListingRequest) (*ListingResponse, error) {
	s.createReq = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &ListingResponse{ID: listingUUID, Title: req.Title, Status: "draft"}, nil
}

func testConstraint() ImageConstraint {
	return ImageConstraint{
		MaxSize:          1 << 20,
		AllowedMimeTypes: []string{"image/jpeg", "image/png"},
	}
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	for key, content := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+key+`"; filename="photo.jpg"`)
		header.Set("Content-Type", "image/jpeg")
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return &body, w.FormDataContentType()
}

func TestCreateListingHandler_ParsesMultipart(t *testing.T) {
	stub := &stubService{}
	handler := NewListingsHandler(stub, testConstraint())

	body, contentType := multipartBody(t,
		map[string]string{
			"title":          "Oak chair",
			"price_min_unit": "4500",
			"category":       "CHAIR",
			"image_updates":  `[{"order": 1, "file_key": "photo_front"}]`,
		},
		map[string][]byte{
			"photo_front": []byte("jpeg bytes"),
		},
	)

	req := httptest.NewRequest(http.MethodPost, "/listings", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(auth.WithUserInfo(req.Context(), sellerInfo()))

	rec := httptest.NewRecorder()
	handler.CreateListing(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, stub.createReq)

	assert.Equal(t, "Oak chair", stub.createReq.Title)
	require.NotNil(t, stub.createReq.PriceMinUnit)
	assert.Equal(t, int64(4500), *stub.createReq.PriceMinUnit)
	require.Len(t, stub.createReq.Directives, 1)
	assert.Equal(t, CreateImage{Position: 1, FileKey: "photo_front"}, stub.createReq.Directives[0])
	require.Contains(t, stub.createReq.Uploads, "photo_front")
	assert.Equal(t, "image/jpeg", stub.createReq.Uploads["photo_front"].ContentType)

	var resp ListingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, listingUUID, resp.ID)
}

func TestCreateListingHandler_RejectsOversizedUpload(t *testing.T) {
	stub := &stubService{}
	handler := NewListingsHandler(stub, ImageConstraint{
		MaxSize:          4,
		AllowedMimeTypes: []string{"image/jpeg"},
	})

	body, contentType := multipartBody(t,
		map[string]string{
			"title":  "Oak chair",
			"image_updates": `[{"order": 1, "file_key": "photo_front"}]`,
		},
		map[string][]byte{
			"photo_front": []byte("way more than four bytes"),
		},
	)

	req := httptest.NewRequest(http.MethodPost, "/listings", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(auth.WithUserInfo(req.Context(), sellerInfo()))

	rec := httptest.NewRecorder()
	handler.CreateListing(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, stub.createReq)
}

func TestCreateListingHandler_RequiresAuth(t *testing.T) {
	handler := NewListingsHandler(&stubService{}, testConstraint())

	body, contentType := multipartBody(t, map[string]string{"title": "Oak chair"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/listings", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.CreateListing(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateListingHandler_ServiceErrorShape(t *testing.T) {
	stub := &stubService{
		createErr: errors.New(errors.ErrBusinessRule, "Something domain-shaped went wrong", nil),
	}
	handler := NewListingsHandler(stub, testConstraint())

	body, contentType := multipartBody(t, map[string]string{"title": "Oak chair"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/listings", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(auth.WithUserInfo(req.Context(), sellerInfo()))

	rec := httptest.NewRecorder()
	handler.CreateListing(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(errors.ErrBusinessRule), resp["error_code"])
	assert.Equal(t, "Something domain-shaped went wrong", resp["message"])
}
