package index

// BoardIndex defines the interface for board catalog operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type BoardIndex interface {
	UpsertBoard(r BoardRow, body string, images []string) error
	DeleteBoard(id string) error
	GetChecksum(id string) (string, error)
	GetBoard(id string) (*BoardRow, error)
	ListBoards(limit, offset int) ([]BoardRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	ImageUsers(src string) ([]string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies BoardIndex at compile time.
var _ BoardIndex = (*DB)(nil)
