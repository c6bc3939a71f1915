package loader

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path       string
		media      MediaType
		kind       Kind
		transpile  bool
		bestEffort bool
	}{
		{"/m/a.js", JavaScript, Script, false, false},
		{"/m/a.mjs", Mjs, Script, false, false},
		{"/m/a.cjs", Cjs, Script, false, false},
		{"/m/a.jsx", Jsx, Script, true, false},
		{"/m/a.ts", TypeScript, Script, true, false},
		{"/m/a.mts", Mts, Script, true, false},
		{"/m/a.cts", Cts, Script, true, false},
		{"/m/a.d.ts", Dts, Script, true, false},
		{"/m/a.d.mts", Dmts, Script, true, false},
		{"/m/a.d.cts", Dcts, Script, true, false},
		{"/m/a.tsx", Tsx, Script, true, false},
		{"/m/a.json", JSON, StructuredData, false, false},
		{"/m/a", Unknown, Script, true, true},
		{"/m/a.txt", Unknown, Script, true, true},
		{"/m/A.TS", TypeScript, Script, true, false},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			c := Classify(&url.URL{Scheme: "file", Path: tc.path})
			assert.Equal(t, tc.media, c.Media)
			assert.Equal(t, tc.kind, c.Kind)
			assert.Equal(t, tc.transpile, c.Transpile)
			assert.Equal(t, tc.bestEffort, c.BestEffort)
		})
	}
}

func TestClassifyIgnoresQuery(t *testing.T) {
	u, _ := url.Parse("file:///m/data.json?v=2#frag")
	assert.Equal(t, StructuredData, Classify(u).Kind)
}

func TestMediaTypeString(t *testing.T) {
	assert.Equal(t, "TypeScript", TypeScript.String())
	assert.Equal(t, "Json", JSON.String())
	assert.Equal(t, "Unknown", MediaType(99).String())
	assert.Equal(t, "data", StructuredData.String())
}
