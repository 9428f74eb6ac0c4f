package port

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

// FileInfo describes one knowledge-base file. RelPath is slash-separated and
// relative to the walked root.
type FileInfo struct {
	Path     string
	RelPath  string
	Category string
	ModTime  int64
	Size     int64
}

type FileReader interface {
	ReadFile(path string) (string, error)
}
