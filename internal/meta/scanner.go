package meta

import (
	"sort"
	"strings"

	apperrors "minimvc/internal/errors"
)

// Scanner enumerates the classes reachable beneath a root package.
type Scanner struct {
	catalog *Catalog
}

// NewScanner creates a scanner over the catalog
func NewScanner(c *Catalog) *Scanner {
	return &Scanner{catalog: c}
}

// packageNode is one directory of the package tree.
type packageNode struct {
	classes  []string
	children map[string]*packageNode
}

func (n *packageNode) child(seg string) *packageNode {
	if n.children == nil {
		n.children = make(map[string]*packageNode)
	}
	c, ok := n.children[seg]
	if !ok {
		c = &packageNode{}
		n.children[seg] = c
	}
	return c
}

// Scan returns the fully-qualified names of every class in root and its
// sub-packages, depth-first. Classes of a package come before those of its
// sub-packages; siblings are visited in lexical order.
func (s *Scanner) Scan(root string) ([]string, error) {
	root = strings.TrimSuffix(strings.TrimSpace(root), "/")
	if root == "" {
		return nil, apperrors.NewConfigurationError("scanPackage", "scan package is not set", nil)
	}

	byPkg, pkgs := s.catalog.snapshot()

	tree := &packageNode{}
	found := false
	for _, p := range pkgs {
		rel, ok := relativeTo(root, p)
		if !ok {
			continue
		}
		found = true

		node := tree
		if rel != "" {
			for _, seg := range strings.Split(rel, "/") {
				node = node.child(seg)
			}
		}
		node.classes = append(node.classes, byPkg[p]...)
	}
	if !found {
		return nil, apperrors.NewConfigurationError(root, "scan package not found", nil)
	}

	names := make([]string, 0)
	walk(tree, &names)
	return names, nil
}

func walk(n *packageNode, out *[]string) {
	sort.Strings(n.classes)
	*out = append(*out, n.classes...)

	segs := make([]string, 0, len(n.children))
	for seg := range n.children {
		segs = append(segs, seg)
	}
	sort.Strings(segs)
	for _, seg := range segs {
		walk(n.children[seg], out)
	}
}

// relativeTo returns pkg relative to root when pkg is root or lies beneath it.
func relativeTo(root, pkg string) (string, bool) {
	if pkg == root {
		return "", true
	}
	if strings.HasPrefix(pkg, root+"/") {
		return pkg[len(root)+1:], true
	}
	return "", false
}
