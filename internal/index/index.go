package index

// Settings is the persisted key-value store for user preferences.
type Settings interface {
	// Setting returns the stored value and whether the key exists.
	Setting(key string) (string, bool, error)
	SetSetting(key, value string) error
}

// ClipIndex defines the interface for clip indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type ClipIndex interface {
	UpsertClip(c ClipRow, body string) error
	DeleteClip(path string) error
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies both interfaces at compile time.
var (
	_ Settings  = (*DB)(nil)
	_ ClipIndex = (*DB)(nil)
)
