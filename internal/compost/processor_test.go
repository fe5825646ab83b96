package compost

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrectMimeType(t *testing.T) {
	// Only octet-stream gets corrected; declared types pass through.
	assert.Equal(t, MimeText, CorrectMimeType("notes.txt", "text/plain"))
	assert.Equal(t, MimeMarkdown, CorrectMimeType("README.md", "application/octet-stream"))
	assert.Equal(t, MimePDF, CorrectMimeType("doc.PDF", "application/octet-stream"))
	assert.Equal(t, MimeDOCX, CorrectMimeType("report.docx", "application/octet-stream"))
	assert.Equal(t, "application/octet-stream", CorrectMimeType("blob.bin", "application/octet-stream"))
}

func TestExtractFileText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("one two three"), 0o644))

	p := NewProcessor(nil)
	pf, err := p.ExtractFile(path, "notes.txt", "text/plain")
	require.NoError(t, err)

	assert.Equal(t, "one two three", pf.Content)
	assert.Equal(t, 3, pf.WordCount)
	assert.Equal(t, "notes.txt", pf.OriginalName)
	assert.Equal(t, int64(13), pf.Size)
	assert.True(t, len(pf.ID) > len("file_"))
}

func TestExtractFileMarkdownKeepsRawContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n\nSome **bold** words"), 0o644))

	p := NewProcessor(nil)
	pf, err := p.ExtractFile(path, "doc.md", "text/markdown")
	require.NoError(t, err)

	// Raw markdown survives for sectioning; the word count ignores markup.
	assert.Contains(t, pf.Content, "# Title")
	assert.Equal(t, 4, pf.WordCount)
}

func TestExtractFileDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.docx")
	writeDOCX(t, path, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	p := NewProcessor(nil)
	pf, err := p.ExtractFile(path, "report.docx", MimeDOCX)
	require.NoError(t, err)

	assert.Contains(t, pf.Content, "First paragraph\n")
	assert.Contains(t, pf.Content, "Second paragraph\n")
}

func TestExtractFileUnsupportedType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.tar")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	p := NewProcessor(nil)
	_, err := p.ExtractFile(path, "archive.tar", "application/x-tar")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestExtractFileImagePlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mockup.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 0x50, 0x4e, 0x47}, 0o644))

	p := NewProcessor(nil)
	pf, err := p.ExtractFile(path, "mockup.png", "image/png")
	require.NoError(t, err)

	assert.Contains(t, pf.Content, "Image File Analysis: mockup.png")
	assert.Contains(t, pf.Content, ".png")
}

func TestCleanupMissingFileIsQuiet(t *testing.T) {
	p := NewProcessor(nil)
	p.Cleanup(filepath.Join(t.TempDir(), "already-gone.txt"))
}

func writeDOCX(t *testing.T, path, documentXML string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}
