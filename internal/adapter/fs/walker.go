package fs

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"supportrag/internal/port"
)

// DefaultCategory is assigned to articles at the root of a knowledge base.
const DefaultCategory = "general"

// Walker lists knowledge-base articles under a root that match the include
// globs and none of the exclude globs. Patterns match slash-separated paths
// relative to the root. Hidden files and directories and empty files are
// never articles.
type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*.md"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

// Walk returns matching articles in lexical order. Each article's category is
// its top-level directory.
func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []port.FileInfo
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if hidden(d.Name()) || matchAny(w.excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden(d.Name()) || !d.Type().IsRegular() {
			return nil
		}
		if !matchAny(w.includes, rel) || matchAny(w.excludes, rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() == 0 {
			return nil
		}
		files = append(files, port.FileInfo{
			Path:     path,
			RelPath:  rel,
			Category: category(rel),
			ModTime:  info.ModTime().Unix(),
			Size:     info.Size(),
		})
		return nil
	})
	return files, err
}

func (w *Walker) ReadFile(path string) (string, error) {
	return ReadFile(path)
}

// ReadFile returns an article's text with a UTF-8 byte order mark removed
// and CRLF line endings turned into LF.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return string(data), nil
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func category(rel string) string {
	if i := strings.IndexByte(rel, '/'); i > 0 {
		return rel[:i]
	}
	return DefaultCategory
}
