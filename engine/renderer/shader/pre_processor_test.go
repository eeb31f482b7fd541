package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessSubstitutesDefines(t *testing.T) {
	pp := NewPreProcessor(WithDefines(map[string]uint32{
		"RADIX_BASE": 256,
		"PLACES":     4,
	}))

	out, err := pp.Process("var<workgroup> hist: array<u32, #{RADIX_BASE}>;\nconst places = #{PLACES}u;")
	require.NoError(t, err)
	assert.Equal(t, "var<workgroup> hist: array<u32, 256>;\nconst places = 4u;", out)
}

func TestProcessUnknownDefineFails(t *testing.T) {
	pp := NewPreProcessor()
	_, err := pp.Process("const n = #{MISSING};")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MISSING")
}

func TestProcessUnterminatedTokenFails(t *testing.T) {
	pp := NewPreProcessor(WithDefines(map[string]uint32{"N": 1}))
	_, err := pp.Process("const n = #{N;")
	require.Error(t, err)
}

func TestProcessImport(t *testing.T) {
	pp := NewPreProcessor(
		WithStruct("entry", "struct Entry {\n    key: u32,\n    index: u32,\n}"),
	)

	out, err := pp.Process("#import entry\nfn main() {}")
	require.NoError(t, err)
	assert.Contains(t, out, "struct Entry {")
	assert.Contains(t, out, "fn main() {}")
	assert.NotContains(t, out, "#import")
}

func TestProcessImportSubstitutesDefines(t *testing.T) {
	pp := NewPreProcessor(
		WithStruct("splat", "struct Splat { sh: array<f32, #{MAX_SH_COEFF_COUNT}> }"),
		WithDefines(map[string]uint32{"MAX_SH_COEFF_COUNT": 48}),
	)

	out, err := pp.Process("#import splat")
	require.NoError(t, err)
	assert.Contains(t, out, "array<f32, 48>")
}

func TestProcessUnknownImportFails(t *testing.T) {
	pp := NewPreProcessor()
	_, err := pp.Process("#import nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestProcessIfdef(t *testing.T) {
	source := "#ifdef USE_AABB\naabb code\n#else\nobb code\n#endif"

	withFlag := NewPreProcessor(WithFlags("USE_AABB"))
	out, err := withFlag.Process(source)
	require.NoError(t, err)
	assert.Contains(t, out, "aabb code")
	assert.NotContains(t, out, "obb code")

	withoutFlag := NewPreProcessor()
	out, err = withoutFlag.Process(source)
	require.NoError(t, err)
	assert.NotContains(t, out, "aabb code")
	assert.Contains(t, out, "obb code")
}

func TestProcessIfndef(t *testing.T) {
	pp := NewPreProcessor(WithFlags("VISUALIZE_BOUNDING_BOX"))
	out, err := pp.Process("#ifndef VISUALIZE_BOUNDING_BOX\nplain\n#endif\nalways")
	require.NoError(t, err)
	assert.NotContains(t, out, "plain")
	assert.Contains(t, out, "always")
}

func TestProcessNestedConditionals(t *testing.T) {
	source := "#ifdef OUTER\n#ifdef INNER\nboth\n#else\nouter only\n#endif\n#endif"

	pp := NewPreProcessor(WithFlags("OUTER"))
	out, err := pp.Process(source)
	require.NoError(t, err)
	assert.Contains(t, out, "outer only")
	assert.NotContains(t, out, "both")

	pp = NewPreProcessor(WithFlags("OUTER", "INNER"))
	out, err = pp.Process(source)
	require.NoError(t, err)
	assert.Contains(t, out, "both")

	// Disabled outer block suppresses the inner branch entirely.
	pp = NewPreProcessor(WithFlags("INNER"))
	out, err = pp.Process(source)
	require.NoError(t, err)
	assert.NotContains(t, out, "both")
	assert.NotContains(t, out, "outer only")
}

func TestProcessUnbalancedConditionalsFail(t *testing.T) {
	pp := NewPreProcessor()

	_, err := pp.Process("#ifdef A\nno endif")
	require.Error(t, err)

	_, err = pp.Process("#endif")
	require.Error(t, err)

	_, err = pp.Process("#else")
	require.Error(t, err)
}

func TestProcessDirectivesInsideDisabledBlocksConsumed(t *testing.T) {
	pp := NewPreProcessor(WithDefines(map[string]uint32{"N": 3}))
	// The #{UNBOUND} token sits in a dead branch and must not be evaluated.
	out, err := pp.Process("#ifdef OFF\nconst bad = #{UNBOUND};\n#endif\nconst n = #{N};")
	require.NoError(t, err)
	assert.Equal(t, "const n = 3;", out)
}
