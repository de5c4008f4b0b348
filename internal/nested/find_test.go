package nested

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindValues_OrderPreserved(t *testing.T) {
	tree, err := ParseJSON([]byte(`{"a": {"url": "x"}, "b": [{"url": "y"}, {"z": 1}]}`))
	require.NoError(t, err)

	got := FindValues(tree, "url")

	assert.Equal(t, []Node{Scalar("x"), Scalar("y")}, got)
}

func TestFindValues_DoesNotDescendIntoMatch(t *testing.T) {
	tree := Mapping(
		E("url", Mapping(E("url", Scalar("inner")))),
		E("other", Mapping(E("url", Scalar("second")))),
	)

	got := FindValues(tree, "url")

	require.Len(t, got, 2)
	assert.True(t, got[0].IsMapping())
	assert.Equal(t, Scalar("second"), got[1])
}

func TestFindValues_DuplicateKeysAllContribute(t *testing.T) {
	tree := Sequence(
		Mapping(E("url", Scalar("a"))),
		Sequence(Mapping(E("url", Scalar("b")), E("url", Scalar("c")))),
		Scalar("url"),
	)

	assert.Equal(t, []string{"a", "b", "c"}, FindStrings(tree, "url"))
}

func TestFindValues_ScalarAndEmptyInputs(t *testing.T) {
	assert.Empty(t, FindValues(Scalar("url"), "url"))
	assert.Empty(t, FindValues(Node{}, "url"))
	assert.Empty(t, FindValues(Mapping(), "url"))
	assert.Empty(t, FindValues(Sequence(), "url"))
}

func TestFindValues_WebMapOperationalLayers(t *testing.T) {
	data := `{
		"operationalLayers": [
			{"id": "roads", "url": "https://gis.example.com/arcgis/rest/services/Roads/MapServer"},
			{"id": "group", "layers": [
				{"url": "https://gis.example.com/arcgis/rest/services/Parcels/FeatureServer/0"}
			]}
		],
		"baseMap": {"baseMapLayers": [{"url": "https://basemaps.example.com/tiles"}]}
	}`
	tree, err := ParseJSON([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://gis.example.com/arcgis/rest/services/Roads/MapServer",
		"https://gis.example.com/arcgis/rest/services/Parcels/FeatureServer/0",
		"https://basemaps.example.com/tiles",
	}, FindStrings(tree, "url"))
}
