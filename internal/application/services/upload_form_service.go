package services

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"tryon-storefront/internal/domain/entities"
	domainservices "tryon-storefront/internal/domain/services"
)

const (
	imageField = "image"
	// multipart overhead on top of the image itself
	formOverhead = 1 << 20
)

var ErrInvalidForm = errors.New("invalid multipart form")

// UploadFormService reads the try-on image out of a multipart request.
type UploadFormService struct {
	maxBytes int64
}

func NewUploadFormService(maxBytes int64) *UploadFormService {
	if maxBytes <= 0 {
		maxBytes = domainservices.DefaultMaxUploadBytes
	}
	return &UploadFormService{maxBytes: maxBytes}
}

// ParseFromRequest returns the candidate file without validating it. An
// oversized body is reported as a TooLarge validation error.
func (s *UploadFormService) ParseFromRequest(w http.ResponseWriter, r *http.Request) (domainservices.Candidate, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes+formOverhead)
	if err := r.ParseMultipartForm(s.maxBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return domainservices.Candidate{}, domainservices.TooLargeError(s.maxBytes)
		}
		return domainservices.Candidate{}, fmt.Errorf("%w: %w", ErrInvalidForm, err)
	}

	file, header, err := r.FormFile(imageField)
	if err != nil {
		return domainservices.Candidate{}, &entities.ValidationError{
			Kind:    entities.EmptyFile,
			Message: "Please select an image to upload",
		}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return domainservices.Candidate{}, fmt.Errorf("failed to read uploaded image: %w", err)
	}

	return domainservices.Candidate{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
	}, nil
}
