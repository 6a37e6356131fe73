package utils

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestFileHeader creates a multipart.FileHeader for testing
func createTestFileHeader(t *testing.T, filename string, size int64, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", ContentTypeFor(filename))
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	require.NotEmpty(t, form.File["image"])
	fileHeader := form.File["image"][0]
	// Override size for testing purposes
	fileHeader.Size = size
	return fileHeader
}

func TestValidateImageFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int64
		wantCode string
	}{
		{name: "png", filename: "jollof.png", size: 1024},
		{name: "jpg", filename: "waakye.jpg", size: 1024},
		{name: "jpeg uppercase", filename: "KELEWELE.JPEG", size: 1024},
		{name: "exactly at limit", filename: "banku.png", size: MaxFileSize},
		{name: "too large", filename: "fufu.png", size: 11 * 1024 * 1024, wantCode: "FILE_TOO_LARGE"},
		{name: "gif", filename: "spin.gif", size: 1024, wantCode: "INVALID_FILE_FORMAT"},
		{name: "no extension", filename: "menu", size: 1024, wantCode: "INVALID_FILE_FORMAT"},
		{name: "script", filename: "menu.png.sh", size: 1024, wantCode: "INVALID_FILE_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileHeader := createTestFileHeader(t, tt.filename, tt.size, []byte("fake image content"))

			err := ValidateImageFile(fileHeader)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}

			var fileErr *FileUploadError
			require.ErrorAs(t, err, &fileErr)
			assert.Equal(t, tt.wantCode, fileErr.Code)
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/png", ContentTypeFor("foods/a.png"))
	assert.Equal(t, "image/jpeg", ContentTypeFor("b.JPG"))
	assert.Equal(t, "image/jpeg", ContentTypeFor("c.jpeg"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("d.txt"))
}

func TestNewImageName(t *testing.T) {
	a := NewImageName("Jollof Rice.PNG")
	b := NewImageName("Jollof Rice.PNG")

	assert.NotEqual(t, a, b, "names must not collide")
	assert.Equal(t, ".png", filepath.Ext(a))
	assert.NotContains(t, a, " ")
}

func TestSaveAndRemoveUploadedFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("\x89PNG fake")
	fileHeader := createTestFileHeader(t, "plate.png", int64(len(content)), content)

	filename, err := SaveUploadedFile(fileHeader, dir)
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(filename))

	saved, err := os.ReadFile(filepath.Join(dir, filename))
	require.NoError(t, err)
	assert.Equal(t, content, saved)

	require.NoError(t, RemoveUploadedFile(filename, dir))
	_, err = os.Stat(filepath.Join(dir, filename))
	assert.True(t, os.IsNotExist(err))

	// Removing again is not an error
	assert.NoError(t, RemoveUploadedFile(filename, dir))
}

func TestGetImageURL(t *testing.T) {
	assert.Equal(t, "", GetImageURL(""))
	assert.Equal(t, "/api/v1/uploads/abc.png", GetImageURL("abc.png"))
}

func TestFileUploadError_Error(t *testing.T) {
	err := &FileUploadError{
		Code:    "TEST_CODE",
		Message: "Test error message",
	}

	assert.Equal(t, "Test error message", err.Error())
}
