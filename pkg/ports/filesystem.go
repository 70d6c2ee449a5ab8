package ports

// FileSystem abstracts the file operations used to read traces and write reports.
type FileSystem interface {
	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)
	// WriteFile writes data to a file, creating parent directories if necessary.
	WriteFile(path string, data []byte) error
	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error
	// Exists checks if a file or directory exists.
	Exists(path string) (bool, error)
}
