// Package flowchart loads the triage flowcharts from disk and hands out
// immutable flowchart/graph pairs to the rest of the service.
package flowchart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"

	"triagemd/pkg"
)

// ErrNotFound is returned when no flowchart file exists for a name.
var ErrNotFound = errors.New("flowchart not found")

// Store resolves flowchart names to loaded flowchart/graph pairs. Flowcharts
// are immutable once loaded, so the store caches them and is safe for
// concurrent use.
type Store struct {
	dir   string
	cache *gocache.Cache
}

// NewStore creates a store over a directory of flowchart YAML files.
func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		cache: gocache.New(24*time.Hour, time.Hour),
	}
}

type loaded struct {
	chart *pkg.Flowchart
	graph pkg.Graph
}

// fileDef mirrors the on-disk YAML layout of a flowchart.
type fileDef struct {
	Name  string              `yaml:"name"`
	Entry string              `yaml:"entry"`
	Nodes map[string]string   `yaml:"nodes"`
	Edges map[string][]string `yaml:"edges"`
}

// Load returns the flowchart and transition graph for a name. The name is the
// human-readable flowchart title; the file is looked up by its slug. Returns
// ErrNotFound when no such file exists.
func (s *Store) Load(name string) (*pkg.Flowchart, pkg.Graph, error) {
	if v, ok := s.cache.Get(name); ok {
		l := v.(loaded)
		return l.chart, l.graph, nil
	}
	path := filepath.Join(s.dir, Slugify(name)+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, nil, fmt.Errorf("read flowchart %s: %w", name, err)
	}
	var def fileDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, nil, fmt.Errorf("parse flowchart %s: %w", name, err)
	}
	chart, graph, err := build(name, def)
	if err != nil {
		return nil, nil, fmt.Errorf("flowchart %s: %w", name, err)
	}
	s.cache.SetDefault(name, loaded{chart: chart, graph: graph})
	return chart, graph, nil
}

// build validates the file definition and tags every node with its kind. The
// N/I/F id prefix is a wire contract with the flowchart data files; it is
// parsed exactly once here.
func build(name string, def fileDef) (*pkg.Flowchart, pkg.Graph, error) {
	if len(def.Nodes) == 0 {
		return nil, nil, errors.New("no nodes")
	}
	entry := def.Entry
	if entry == "" {
		entry = "N1"
	}
	nodes := make(map[string]pkg.Node, len(def.Nodes))
	for id, content := range def.Nodes {
		kind, err := kindOf(id)
		if err != nil {
			return nil, nil, err
		}
		nodes[id] = pkg.Node{ID: id, Kind: kind, Content: content}
	}
	if _, ok := nodes[entry]; !ok {
		return nil, nil, fmt.Errorf("entry node %s not defined", entry)
	}
	graph := make(pkg.Graph, len(def.Edges))
	for from, targets := range def.Edges {
		src, ok := nodes[from]
		if !ok {
			return nil, nil, fmt.Errorf("edge from unknown node %s", from)
		}
		if src.Kind.Terminal() && len(targets) > 0 {
			return nil, nil, fmt.Errorf("terminal node %s has outgoing edges", from)
		}
		for _, to := range targets {
			if _, ok := nodes[to]; !ok {
				return nil, nil, fmt.Errorf("edge %s -> %s targets unknown node", from, to)
			}
		}
		graph[from] = targets
	}
	for id, n := range nodes {
		if n.Kind == pkg.KindQuestion && len(graph[id]) == 0 {
			return nil, nil, fmt.Errorf("question node %s has no outgoing edges", id)
		}
	}
	chartName := def.Name
	if chartName == "" {
		chartName = name
	}
	return &pkg.Flowchart{Name: chartName, Entry: entry, Nodes: nodes}, graph, nil
}

func kindOf(id string) (pkg.NodeKind, error) {
	if id == "" {
		return 0, errors.New("empty node id")
	}
	switch id[0] {
	case 'N':
		return pkg.KindQuestion, nil
	case 'I':
		return pkg.KindInfo, nil
	case 'F':
		return pkg.KindSwitch, nil
	}
	return 0, fmt.Errorf("node id %s has unknown kind prefix", id)
}

var nonSlug = regexp.MustCompile(`[^\w\s-]`)
var slugSep = regexp.MustCompile(`[\s_]+`)

// Slugify turns a flowchart title into its file/URL identifier: lowercase,
// hyphen separated.
func Slugify(name string) string {
	cleaned := strings.ToLower(strings.TrimSpace(nonSlug.ReplaceAllString(name, "")))
	return slugSep.ReplaceAllString(cleaned, "-")
}
