package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"productshoot/internal/domain"
	"productshoot/internal/providers/image"
	"productshoot/internal/validate"
)

const (
	// maxBodyBytes bounds how much of an oversize upload is drained to measure it.
	maxBodyBytes = 64 << 20
	maxFieldSize = 64 << 10
	maxFields    = 32
)

// parseCount reads a requested count; missing or malformed values mean 1.
func parseCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return image.MinCount
	}
	return image.ClampCount(n)
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// uploadForm is a parsed multipart body: text fields plus the optional "image" part.
type uploadForm struct {
	fields map[string]string
	image  *image.SourceImage
}

func (f *uploadForm) value(key string) string {
	return strings.TrimSpace(f.fields[key])
}

func (f *uploadForm) count() int {
	return parseCount(f.fields["count"])
}

// readForm streams the multipart body. Only the first MaxImageBytes+1 bytes of
// the image are kept; the remainder is drained so an oversize upload can be
// reported with its real size.
func readForm(w http.ResponseWriter, r *http.Request) (*uploadForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, domain.Invalidf("invalid form data")
	}
	form := &uploadForm{fields: make(map[string]string)}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			return nil, bodyError(r, err, 0)
		}
		name := part.FormName()
		if name == "image" && part.FileName() != "" {
			img, err := readImagePart(r, part)
			if err != nil {
				return nil, err
			}
			form.image = img
			continue
		}
		if name == "" || len(form.fields) >= maxFields {
			_, _ = io.Copy(io.Discard, part)
			continue
		}
		raw, err := io.ReadAll(io.LimitReader(part, maxFieldSize))
		if err != nil {
			return nil, bodyError(r, err, 0)
		}
		form.fields[name] = string(raw)
	}
}

func readImagePart(r *http.Request, part *multipart.Part) (*image.SourceImage, error) {
	data, err := io.ReadAll(io.LimitReader(part, validate.MaxImageBytes+1))
	if err != nil {
		return nil, bodyError(r, err, int64(len(data)))
	}
	size := int64(len(data))
	if size > validate.MaxImageBytes {
		rest, err := io.Copy(io.Discard, part)
		size += rest
		if err != nil {
			return nil, bodyError(r, err, size)
		}
		return nil, validate.TooLarge(size)
	}
	contentType := part.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &image.SourceImage{Data: data, MIME: validate.NormalizeContentType(contentType)}, nil
}

// bodyError maps a body read failure. Past the drain ceiling the declared
// Content-Length is the best available measure of the upload.
func bodyError(r *http.Request, err error, read int64) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		size := max(r.ContentLength, read)
		if size <= 0 {
			size = tooBig.Limit
		}
		return validate.TooLarge(size)
	}
	return domain.Invalidf("invalid form data")
}

// jsonRequest is the JSON body accepted by the images and prompts endpoints.
type jsonRequest struct {
	Prompt             string          `json:"prompt"`
	Template           string          `json:"template"`
	ProductDescription string          `json:"productDescription"`
	Count              json.RawMessage `json:"count"`
	Engine             string          `json:"engine"`
	ImageBase64        string          `json:"imageBase64"`
	ImageMimeType      string          `json:"imageMimeType"`
}

// decodeJSON reads a JSON body. The decoded image is size-checked by the
// validator, so only bodies past the drain ceiling are rejected here.
func decodeJSON(w http.ResponseWriter, r *http.Request) (jsonRequest, error) {
	var req jsonRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			// base64 inflates by 4/3
			return req, validate.TooLarge(max(r.ContentLength, tooBig.Limit) * 3 / 4)
		}
		return req, domain.Invalidf("invalid JSON body")
	}
	return req, nil
}

func (j jsonRequest) count() int {
	return parseCount(strings.Trim(string(j.Count), `"`))
}

// image decodes imageBase64, accepting either raw base64 or a data URL.
func (j jsonRequest) image() (*image.SourceImage, error) {
	raw := strings.TrimSpace(j.ImageBase64)
	if raw == "" {
		return nil, nil
	}
	mimeType := strings.TrimSpace(j.ImageMimeType)
	if rest, ok := strings.CutPrefix(raw, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, domain.Invalidf("imageBase64 is not valid base64")
		}
		if mimeType == "" {
			mimeType, _, _ = strings.Cut(meta, ";")
		}
		raw = payload
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, domain.Invalidf("imageBase64 is not valid base64")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return &image.SourceImage{Data: data, MIME: validate.NormalizeContentType(mimeType)}, nil
}
