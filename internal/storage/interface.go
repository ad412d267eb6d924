package storage

// Store is the durable record store behind status tracking and analytics.
type Store interface {
	Store(name string, data []byte) error
	Retrieve(name string) ([]byte, error)
	Append(name string, data []byte) error
	List(prefix string) ([]string, error)
}
