package nested

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten_ScalarSequence(t *testing.T) {
	got := Flatten(Mapping(E("tags", Strings("a", "b"))))

	assert.Equal(t, []string{"tags_0", "tags_1"}, got.Columns())
	assert.Equal(t, "a", got.Text("tags_0"))
	assert.Equal(t, "b", got.Text("tags_1"))
}

func TestFlatten_MappingSequence(t *testing.T) {
	got := Flatten(Mapping(E("items", Sequence(Mapping(E("n", Scalar(int64(1))))))))

	assert.Equal(t, []string{"items_0_n"}, got.Columns())
	v, ok := got.Get("items_0_n")
	require.True(t, ok)
	assert.Equal(t, int64(1), v.Value())
}

func TestFlatten_IdempotentOnFlatRecord(t *testing.T) {
	in := Mapping(
		E("server_name", Scalar("prod")),
		E("count", Scalar(int64(3))),
		E("props", Mapping(E("nested", Scalar(true)))),
		E("empty", Scalar(nil)),
	)

	once := Flatten(in)
	assert.Equal(t, in, once.Node())
	assert.Equal(t, once, Flatten(once.Node()))
}

func TestFlatten_BareMappingPassesThrough(t *testing.T) {
	props := Mapping(E("a", Sequence(Scalar(int64(1)))))
	got := Flatten(Mapping(E("props", props)))

	v, ok := got.Get("props")
	require.True(t, ok)
	assert.Equal(t, props, v)
	assert.Equal(t, `{"a": [1]}`, got.Text("props"))
}

func TestFlatten_MixedSequenceElements(t *testing.T) {
	got := Flatten(Mapping(E("xs", Sequence(
		Scalar("plain"),
		Mapping(E("k", Scalar("v")), E("j", Scalar("w"))),
		Sequence(Scalar(int64(1))),
	))))

	assert.Equal(t, []string{"xs_0", "xs_1_k", "xs_1_j", "xs_2"}, got.Columns())
	assert.Equal(t, "[1]", got.Text("xs_2"))
}

func TestFlatten_CollisionLastWriteWins(t *testing.T) {
	// "a_0_b" is produced both by the sequence under "a" and by the literal key.
	in := Mapping(
		E("a", Sequence(Mapping(E("b", Scalar("from-seq"))))),
		E("a_0_b", Scalar("literal")),
	)

	got := Flatten(in)

	assert.Equal(t, 1, got.Len())
	assert.Equal(t, "literal", got.Text("a_0_b"))
}

func TestFlatten_LosslessLeafCount(t *testing.T) {
	in, err := ParseJSON([]byte(`{
		"databases": [{"byReference": true, "onServerName": "gis"}, {"byReference": false}],
		"resources": ["r1", "r2", "r3"],
		"type": "MapServer"
	}`))
	require.NoError(t, err)

	got := Flatten(in)

	assert.Equal(t, 7, got.Len())
	assert.Equal(t, "gis", got.Text("databases_0_onServerName"))
	assert.Equal(t, "false", got.Text("databases_1_byReference"))
	assert.Equal(t, "r3", got.Text("resources_2"))
	assert.Equal(t, "MapServer", got.Text("type"))
}

func TestFlatten_NonMappingYieldsEmpty(t *testing.T) {
	assert.Equal(t, 0, Flatten(Scalar("x")).Len())
	assert.Equal(t, 0, Flatten(Sequence(Scalar("x"))).Len())
}

func TestInject_AppendsAndOverwrites(t *testing.T) {
	m := Mapping(E("service_name", Scalar("old")), E("x", Scalar(int64(1))))

	m = Inject(m, "server_name", Scalar("prod"))
	m = Inject(m, "service_name", Scalar("Roads"))

	rec := Flatten(m)
	assert.Equal(t, []string{"service_name", "x", "server_name"}, rec.Columns())
	assert.Equal(t, "Roads", rec.Text("service_name"))
}

func TestColumns_UnionWithLeading(t *testing.T) {
	a := RecordOf(E("x", Scalar("1")), E("server_name", Scalar("s")))
	b := RecordOf(E("y", Scalar("2")), E("x", Scalar("3")))

	cols := Columns([]Record{a, b}, "server_name", "directory")

	assert.Equal(t, []string{"server_name", "directory", "x", "y"}, cols)
	assert.Equal(t, []string{"", "", "3", "2"}, b.Row(cols))
}
