package uploads

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
)

const (
	maxFiles        = 10
	multipartMemory = 1 << 20
	base64Marker    = "base64,"
)

var allowedImageTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}

// File is one decoded upload, independent of how the client sent it.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

func (f File) Size() int64 {
	return int64(len(f.Data))
}

// Normalize extracts files from a multipart form or from data-URL strings in
// a JSON body. Every file must be an image of at most limit bytes.
func Normalize(r *http.Request, limit int64) ([]File, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("upload limit must be positive")
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		files []File
		err   error
	)
	if mediaType == "multipart/form-data" {
		files, err = fromMultipart(r, limit)
	} else {
		files, err = fromJSON(r, limit)
	}
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no file provided")
	}
	for i := range files {
		if err := sniff(&files[i]); err != nil {
			return nil, err
		}
	}
	return files, nil
}

func fromMultipart(r *http.Request, limit int64) ([]File, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}
	var files []File
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
		}
		if part.FileName() == "" {
			// skip plain form values
			if _, err := io.Copy(io.Discard, io.LimitReader(part, multipartMemory)); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
			}
			continue
		}
		if len(files) == maxFiles {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d files per request", maxFiles))
		}
		data, err := io.ReadAll(io.LimitReader(part, limit+1))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
		}
		if int64(len(data)) > limit {
			return nil, tooLarge(limit)
		}
		field := part.FormName()
		if field == "" {
			field = fmt.Sprintf("file_%d", len(files))
		}
		files = append(files, File{
			Field:       field,
			Name:        part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func fromJSON(r *http.Request, limit int64) ([]File, error) {
	// base64 inflates by 4/3; leave room for the surrounding document
	bodyLimit := (limit*4/3+1024)*maxFiles + multipartMemory
	raw, err := io.ReadAll(io.LimitReader(r.Body, bodyLimit+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read body")
	}
	if int64(len(raw)) > bodyLimit {
		return nil, tooLarge(limit)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid json body")
	}

	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var files []File
	for _, key := range keys {
		value, ok := doc[key].(string)
		if !ok || !strings.Contains(value, base64Marker) {
			continue
		}
		if len(files) == maxFiles {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d files per request", maxFiles))
		}
		file, err := decodeDataURL(key, value, limit)
		if err != nil {
			return nil, err
		}
		if name, ok := doc[key+"_name"].(string); ok {
			file.Name = name
		}
		files = append(files, file)
	}
	return files, nil
}

// decodeDataURL accepts "data:<type>;base64,<payload>" or a bare "base64,<payload>".
func decodeDataURL(field, value string, limit int64) (File, error) {
	idx := strings.Index(value, base64Marker)
	prefix, payload := value[:idx], strings.TrimSpace(value[idx+len(base64Marker):])
	contentType := strings.TrimSuffix(strings.TrimPrefix(prefix, "data:"), ";")

	if int64(base64.StdEncoding.DecodedLen(len(payload))) > limit+2 {
		return File{}, tooLarge(limit)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return File{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("%s is not valid base64", field))
	}
	if int64(len(data)) > limit {
		return File{}, tooLarge(limit)
	}
	return File{Field: field, ContentType: contentType, Data: data}, nil
}

// sniff replaces the client-declared content type with the detected one.
func sniff(file *File) error {
	detected := mimetype.Detect(file.Data)
	if !mimetype.EqualsAny(detected.String(), allowedImageTypes...) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be a png, jpeg, webp or gif image", file.Field)).
			WithDetails(map[string]any{"field": file.Field, "detected": detected.String()})
	}
	file.ContentType = detected.String()
	if file.Name == "" {
		file.Name = file.Field + detected.Extension()
	}
	return nil
}

func tooLarge(limit int64) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file exceeds %d bytes", limit)).
		WithDetails(map[string]any{"limit_bytes": limit})
}

// Reader exposes the file contents for storage clients.
func (f File) Reader() io.Reader {
	return bytes.NewReader(f.Data)
}
