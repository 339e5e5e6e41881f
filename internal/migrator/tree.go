package migrator

import (
	"sort"

	"github.com/temirov/confcopy/internal/confluence"
)

// PageNode captures the source-side facts needed to recreate one page.
type PageNode struct {
	ID       string
	Title    string
	Body     string
	ParentID string
	Depth    int
}

// PageTree holds the source space's pages ordered so parents precede children.
type PageTree struct {
	orderedNodes []PageNode
	nodesByID    map[string]PageNode
}

// BuildPageTree assembles a PageTree from the raw space listing.
//
// The parent link of each node is its nearest ancestor that is itself part of
// the listing; pages whose ancestors all live outside the copied set (for
// example under the space homepage) become roots. Ordering follows ancestor
// depth, so a parent always appears before any of its descendants.
func BuildPageTree(sourcePages []confluence.ContentPage) PageTree {
	knownIdentifiers := make(map[string]struct{}, len(sourcePages))
	for _, sourcePage := range sourcePages {
		knownIdentifiers[sourcePage.ID] = struct{}{}
	}

	orderedNodes := make([]PageNode, 0, len(sourcePages))
	nodesByID := make(map[string]PageNode, len(sourcePages))

	for _, sourcePage := range sourcePages {
		node := PageNode{
			ID:       sourcePage.ID,
			Title:    sourcePage.Title,
			Body:     sourcePage.StorageValue(),
			ParentID: nearestKnownAncestor(sourcePage, knownIdentifiers),
			Depth:    len(sourcePage.Ancestors),
		}
		orderedNodes = append(orderedNodes, node)
		nodesByID[node.ID] = node
	}

	sort.SliceStable(orderedNodes, func(firstIndex int, secondIndex int) bool {
		return orderedNodes[firstIndex].Depth < orderedNodes[secondIndex].Depth
	})

	return PageTree{orderedNodes: orderedNodes, nodesByID: nodesByID}
}

// OrderedPages returns the pages parents-first.
func (tree PageTree) OrderedPages() []PageNode {
	duplicatedNodes := make([]PageNode, len(tree.orderedNodes))
	copy(duplicatedNodes, tree.orderedNodes)
	return duplicatedNodes
}

// Size reports the number of pages in the tree.
func (tree PageTree) Size() int {
	return len(tree.orderedNodes)
}

// Node looks up a page by source identifier.
func (tree PageTree) Node(pageID string) (PageNode, bool) {
	node, nodeExists := tree.nodesByID[pageID]
	return node, nodeExists
}

func nearestKnownAncestor(sourcePage confluence.ContentPage, knownIdentifiers map[string]struct{}) string {
	for ancestorIndex := len(sourcePage.Ancestors) - 1; ancestorIndex >= 0; ancestorIndex-- {
		ancestorID := sourcePage.Ancestors[ancestorIndex].ID
		if _, ancestorKnown := knownIdentifiers[ancestorID]; ancestorKnown {
			return ancestorID
		}
	}
	return ""
}
