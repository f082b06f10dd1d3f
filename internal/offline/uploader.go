// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

package offline

import (
	stdctx "context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/davitran/aperture/internal/platform/apperr"
	"github.com/davitran/aperture/internal/platform/constants"
)

// Uploader turns a local image handle into a durable URL. The upload happens
// before any post payload is sent to the backend.
type Uploader interface {

	/*
		Upload pushes the local image to the media provider.

		Parameters:
		  - context: context.Context
		  - localRef: string (opaque local handle, e.g. "file://x.jpg")

		Returns:
		  - string: Durable URL of the uploaded image
		  - error: apperr.Network on transport failures
	*/
	Upload(context stdctx.Context, localRef string) (string, error)
}

// RESTUploader implements [Uploader] against a Cloudinary-style unsigned
// upload endpoint: a form post answered with a secure_url.
type RESTUploader struct {
	endpoint string
	preset   string
	client   *http.Client
	timeout  time.Duration
}

// NewRESTUploader creates an uploader for the given endpoint and preset.
func NewRESTUploader(endpoint, preset string, client *http.Client) *RESTUploader {
	if client == nil {
		client = &http.Client{}
	}
	return &RESTUploader{
		endpoint: endpoint,
		preset:   preset,
		client:   client,
		timeout:  constants.DefaultUploadTimeout,
	}
}

// Upload posts the local reference and returns the durable URL.
func (uploader *RESTUploader) Upload(context stdctx.Context, localRef string) (string, error) {
	uploadCtx, cancel := stdctx.WithTimeout(context, uploader.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("file", localRef)
	form.Set("upload_preset", uploader.preset)

	request, err := http.NewRequestWithContext(uploadCtx, http.MethodPost, uploader.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", apperr.Network("upload image", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := uploader.client.Do(request)
	if err != nil {
		return "", apperr.Network("upload image", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return "", apperr.Network("upload image",
			fmt.Errorf("upload provider responded with status %d", response.StatusCode))
	}

	var uploaded struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(response.Body).Decode(&uploaded); err != nil {
		return "", apperr.Validation("upload image", err)
	}
	if uploaded.SecureURL == "" {
		return "", apperr.Validation("upload image", fmt.Errorf("response lacks secure_url"))
	}
	return uploaded.SecureURL, nil
}
