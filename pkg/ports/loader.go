package ports

import "github.com/kursio/weft/pkg/domain"

// GraphSource resolves named flow graphs for the transports. Implementations
// may parse files, hold in-memory registrations, or fetch remotely.
type GraphSource interface {
	// Graph returns the parsed graph registered under name.
	Graph(name string) (*domain.Graph, error)

	// Names lists the registered graph names.
	Names() ([]string, error)
}
