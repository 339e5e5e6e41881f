package migrator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/confcopy/internal/confluence"
)

func buildSourcePage(pageID string, title string, body string, ancestorIDs ...string) confluence.ContentPage {
	ancestors := make([]confluence.ContentAncestor, 0, len(ancestorIDs))
	for _, ancestorID := range ancestorIDs {
		ancestors = append(ancestors, confluence.ContentAncestor{ID: ancestorID})
	}
	return confluence.ContentPage{
		ID:    pageID,
		Type:  "page",
		Title: title,
		Body: &confluence.ContentBody{
			Storage: &confluence.StorageRepresentation{Value: body, Representation: "storage"},
		},
		Ancestors: ancestors,
	}
}

func TestBuildPageTreeOrdersParentsFirst(testInstance *testing.T) {
	testInstance.Parallel()

	sourcePages := []confluence.ContentPage{
		buildSourcePage("3", "Grandchild", "<p>g</p>", "1", "2"),
		buildSourcePage("2", "Child", "<p>c</p>", "1"),
		buildSourcePage("1", "Root", "<p>r</p>"),
	}

	pageTree := BuildPageTree(sourcePages)
	orderedPages := pageTree.OrderedPages()

	require.Equal(testInstance, 3, pageTree.Size())
	require.Equal(testInstance, "1", orderedPages[0].ID)
	require.Equal(testInstance, "2", orderedPages[1].ID)
	require.Equal(testInstance, "3", orderedPages[2].ID)

	require.Equal(testInstance, "", orderedPages[0].ParentID)
	require.Equal(testInstance, "1", orderedPages[1].ParentID)
	require.Equal(testInstance, "2", orderedPages[2].ParentID)
}

func TestBuildPageTreeResolvesNearestKnownAncestor(testInstance *testing.T) {
	testInstance.Parallel()

	// The space homepage ("1000") is not part of the listing; pages directly
	// beneath it become roots, and intermediate unknown ancestors are skipped.
	sourcePages := []confluence.ContentPage{
		buildSourcePage("10", "Top", "<p></p>", "1000"),
		buildSourcePage("11", "Nested", "<p></p>", "1000", "10", "9999"),
	}

	pageTree := BuildPageTree(sourcePages)
	orderedPages := pageTree.OrderedPages()

	require.Equal(testInstance, "", orderedPages[0].ParentID)
	require.Equal(testInstance, "10", orderedPages[1].ParentID)
}

func TestPageTreeNodeLookup(testInstance *testing.T) {
	testInstance.Parallel()

	pageTree := BuildPageTree([]confluence.ContentPage{buildSourcePage("7", "Only", "<p>b</p>")})

	node, nodeExists := pageTree.Node("7")
	require.True(testInstance, nodeExists)
	require.Equal(testInstance, "Only", node.Title)
	require.Equal(testInstance, "<p>b</p>", node.Body)

	_, missingExists := pageTree.Node("8")
	require.False(testInstance, missingExists)
}
