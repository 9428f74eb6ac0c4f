package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"supportrag/internal/port"
)

var (
	_ port.FileWalker = (*Walker)(nil)
	_ port.FileReader = (*Walker)(nil)
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalker(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "email/smtp.md", "# SMTP")
	writeFile(t, root, "dns/records.md", "# DNS")
	writeFile(t, root, "intro.md", "hello")
	writeFile(t, root, "notes.txt", "skip")
	writeFile(t, root, "drafts/wip.md", "skip")
	writeFile(t, root, ".supportrag/notes.md", "skip")
	writeFile(t, root, "email/.draft.md", "skip")
	writeFile(t, root, "email/empty.md", "")

	w := NewWalker(nil, []string{"drafts/**"})
	files, err := w.Walk(root)
	require.NoError(t, err)

	var rel, categories []string
	for _, f := range files {
		rel = append(rel, f.RelPath)
		categories = append(categories, f.Category)
		assert.True(t, filepath.IsAbs(f.Path))
	}
	assert.Equal(t, []string{"dns/records.md", "email/smtp.md", "intro.md"}, rel)
	assert.Equal(t, []string{"dns", "email", DefaultCategory}, categories)

	content, err := w.ReadFile(files[1].Path)
	require.NoError(t, err)
	assert.Equal(t, "# SMTP", content)
}

func TestWalkerIncludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "a")
	writeFile(t, root, "b.txt", "b")

	files, err := NewWalker([]string{"*.txt"}, nil).Walk(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "b.txt", files[0].RelPath)
}

func TestReadFileNormalizesLineEndings(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "win.md", "\xef\xbb\xbf# Title\r\n\r\nBody line.\r\n")

	content, err := ReadFile(filepath.Join(root, "win.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody line.\n", content)
}
