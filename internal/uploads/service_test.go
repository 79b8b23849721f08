package uploads

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printdock/printdock-backend/pkg/config"
	"github.com/printdock/printdock-backend/pkg/enums"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
	"github.com/printdock/printdock-backend/pkg/storage/gcs"
)

type fakeStore struct {
	objects map[string][]byte
	err     error
}

func (f *fakeStore) Upload(_ context.Context, object, contentType string, body io.Reader) (gcs.Object, error) {
	if f.err != nil {
		return gcs.Object{}, f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return gcs.Object{}, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[object] = data
	return gcs.Object{Name: object, ContentType: contentType, Size: int64(len(data)), URL: "https://cdn.example.com/" + object}, nil
}

var limits = config.UploadsConfig{GeneralMaxBytes: 5 << 20, ProfileMaxBytes: 2 << 20, CSVMaxBytes: 5 << 20}

func newTestService(t *testing.T, store *fakeStore) *service {
	t.Helper()
	svc, err := NewService(store, limits, nil)
	require.NoError(t, err)
	impl := svc.(*service)
	impl.newID = func() uuid.UUID { return uuid.MustParse("11111111-1111-1111-1111-111111111111") }
	return impl
}

func TestUploadStoresUnderKindPrefix(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store)

	got, err := svc.Upload(context.Background(), enums.MediaKindProduct, File{Field: "image", Name: "My Shirt (Final).PNG", ContentType: "image/png", Data: pngOf(10)})
	require.NoError(t, err)

	want := "uploads/product/11111111-1111-1111-1111-111111111111/my-shirt-final.png"
	assert.Equal(t, want, got.Object)
	assert.Equal(t, "https://cdn.example.com/"+want, got.URL)
	assert.EqualValues(t, 10, got.Size)
	assert.Len(t, store.objects[want], 10)
}

func TestLimitPerKind(t *testing.T) {
	svc := newTestService(t, &fakeStore{})
	assert.EqualValues(t, 2<<20, svc.Limit(enums.MediaKindProfile))
	assert.EqualValues(t, 5<<20, svc.Limit(enums.MediaKindProduct))
	assert.EqualValues(t, 5<<20, svc.Limit(enums.MediaKindPaymentProof))
}

func TestUploadRejectsOversizedProfilePhoto(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store)

	_, err := svc.Upload(context.Background(), enums.MediaKindProfile, File{Name: "me.png", ContentType: "image/png", Data: pngOf(2<<20 + 1)})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.Empty(t, store.objects)
}

func TestUploadWrapsStoreFailure(t *testing.T) {
	svc := newTestService(t, &fakeStore{err: errors.New("boom")})
	_, err := svc.Upload(context.Background(), enums.MediaKindProduct, File{Name: "a.png", Data: pngOf(4)})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"photo.JPG":             "photo.jpg",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\pic.webp`:  "pic.webp",
		"  ???.png":             "file.png",
		"Ünïcode name.gif":      "n-code-name.gif",
		strings.Repeat("a", 99): strings.Repeat("a", 80),
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeName(in), in)
	}
}
