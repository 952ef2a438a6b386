package services

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMockFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	part.Write(content)
	writer.Close()

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(10 * 1024 * 1024)
	require.NoError(t, err)
	return form.File["file"][0]
}

func TestLocalStorageLifecycle(t *testing.T) {
	store := NewLocalStorage(t.TempDir())
	content := []byte("%PDF-1.4\ninvoice scan")
	file := createMockFileHeader(t, "invoice.pdf", content)

	key := GenerateEvidenceKey("user1", "case1", "invoice.pdf")

	var stored *StorageResult
	t.Run("Upload", func(t *testing.T) {
		result, err := store.Upload(context.Background(), file, key)
		require.NoError(t, err)
		assert.Equal(t, key, result.Key)
		assert.Equal(t, int64(len(content)), result.FileSize)
		stored = result
	})

	t.Run("Get", func(t *testing.T) {
		reader, contentType, err := store.Get(context.Background(), stored.Key)
		require.NoError(t, err)
		defer reader.Close()

		assert.Equal(t, "application/pdf", contentType)
		read, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, content, read)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(context.Background(), stored.Key))

		_, _, err := store.Get(context.Background(), stored.Key)
		assert.Error(t, err)
	})

	t.Run("Delete missing key is not an error", func(t *testing.T) {
		assert.NoError(t, store.Delete(context.Background(), "users/none/missing.pdf"))
	})
}

func TestLocalStorageUploadCreatesNestedDirs(t *testing.T) {
	baseDir := t.TempDir()
	store := NewLocalStorage(baseDir)

	result, err := store.UploadReader(context.Background(),
		strings.NewReader("photo bytes"), "users/u1/cases/c1/evidence/site.jpg", "image/jpeg", 11)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(baseDir, result.Key))
	assert.NoError(t, err)
	assert.Equal(t, "site.jpg", result.FileName)
	assert.Equal(t, "image/jpeg", result.MimeType)
}

func TestGenerateStorageKeys(t *testing.T) {
	evidenceKey := GenerateEvidenceKey("user1", "case1", "report.docx")
	assert.True(t, strings.HasPrefix(evidenceKey, "users/user1/cases/case1/evidence/"))
	assert.True(t, strings.HasSuffix(evidenceKey, ".docx"))

	// Keys embed a UUID so two uploads of the same file never collide
	assert.NotEqual(t, evidenceKey, GenerateEvidenceKey("user1", "case1", "report.docx"))

	artifactKey := GenerateArtifactKey("user1", "case1", "doc1")
	assert.Equal(t, "users/user1/cases/case1/generated/doc1.pdf", artifactKey)
}
