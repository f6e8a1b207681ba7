package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Uploader hands media bytes to the external object store and returns the
// hosted URL. Handlers treat it as a black box so tests can stub it.
type Uploader interface {
	Upload(ctx context.Context, file []byte, filename string) (string, error)
}

// CloudinaryUploader implements Uploader against cloudinary
type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryUploader builds an uploader from a cloudinary:// URL
func NewCloudinaryUploader(cloudinaryURL, folder string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, err
	}
	return &CloudinaryUploader{cld: cld, folder: folder}, nil
}

// Upload sends the buffer to cloudinary and returns the hosted URL
func (c *CloudinaryUploader) Upload(ctx context.Context, file []byte, filename string) (string, error) {
	resp, err := c.cld.Upload.Upload(ctx, bytes.NewReader(file), uploader.UploadParams{
		PublicID: filename,
		Folder:   c.folder,
	})
	if err != nil {
		return "", err
	}
	return resp.SecureURL, nil
}

// UploadSignatureHandler handles signed client-side upload requests
type UploadSignatureHandler struct {
	UploadPreset string
	APISecret    string
}

// GenerateSignature generates a signature for client-side uploads
func (u UploadSignatureHandler) GenerateSignature(w http.ResponseWriter, r *http.Request) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	h := hmac.New(sha1.New, []byte(u.APISecret))
	h.Write([]byte("timestamp=" + timestamp + "&upload_preset=" + u.UploadPreset))
	signature := hex.EncodeToString(h.Sum(nil))

	response := map[string]string{
		"timestamp": timestamp,
		"signature": signature,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
