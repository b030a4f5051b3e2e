// Package graph parses flow-graph representations into domain graphs and
// provides a named registry for the transports.
package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kursio/weft/pkg/domain"
)

// document is the external graph representation: a node collection plus an
// edge collection. Both JSON and YAML use the same field names.
type document struct {
	Nodes []domain.Node `json:"nodes" yaml:"nodes"`
	Edges []domain.Edge `json:"edges" yaml:"edges"`
}

// Parse decodes a raw graph representation (JSON object or YAML document)
// into a domain graph. It fails with a domain.GraphFormatError when the
// input is not well-formed or lacks both a node and an edge collection.
func Parse(raw []byte) (*domain.Graph, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, &domain.GraphFormatError{Reason: "empty representation"}
	}

	var doc document
	var err error
	if strings.HasPrefix(trimmed, "{") {
		err = json.Unmarshal(raw, &doc)
	} else {
		err = yaml.Unmarshal(raw, &doc)
	}
	if err != nil {
		return nil, &domain.GraphFormatError{Reason: "malformed representation", Err: err}
	}

	if doc.Nodes == nil && doc.Edges == nil {
		return nil, &domain.GraphFormatError{Reason: "missing node and edge collections"}
	}

	return domain.NewGraph(doc.Nodes, doc.Edges), nil
}

// LoadFile reads and parses a graph file. The format is chosen by content,
// not extension, so .json, .yaml and .yml all work.
func LoadFile(path string) (*domain.Graph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph file: %w", err)
	}
	g, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return g, nil
}
