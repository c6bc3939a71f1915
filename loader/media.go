package loader

import (
	"net/url"
	"path"
	"strings"
)

// Kind is the module kind handed to the engine.
type Kind int

const (
	// Script modules are evaluated as code.
	Script Kind = iota
	// StructuredData modules (JSON) are parsed into a value and never executed.
	StructuredData
)

func (k Kind) String() string {
	switch k {
	case Script:
		return "script"
	case StructuredData:
		return "data"
	default:
		return "unknown"
	}
}

// MediaType identifies a source format by its file extension.
type MediaType int

const (
	Unknown MediaType = iota
	JavaScript
	Mjs
	Cjs
	Jsx
	TypeScript
	Mts
	Cts
	Dts
	Dmts
	Dcts
	Tsx
	JSON
)

var mediaTypeNames = map[MediaType]string{
	Unknown:    "Unknown",
	JavaScript: "JavaScript",
	Mjs:        "Mjs",
	Cjs:        "Cjs",
	Jsx:        "Jsx",
	TypeScript: "TypeScript",
	Mts:        "Mts",
	Cts:        "Cts",
	Dts:        "Dts",
	Dmts:       "Dmts",
	Dcts:       "Dcts",
	Tsx:        "Tsx",
	JSON:       "Json",
}

func (m MediaType) String() string {
	if name, ok := mediaTypeNames[m]; ok {
		return name
	}
	return "Unknown"
}

// MediaTypeFromPath classifies a slash-separated path by extension.
// Declaration suffixes (.d.ts, .d.mts, .d.cts) take precedence over the
// plain TypeScript extensions.
func MediaTypeFromPath(p string) MediaType {
	base := strings.ToLower(path.Base(p))

	switch {
	case strings.HasSuffix(base, ".d.ts"):
		return Dts
	case strings.HasSuffix(base, ".d.mts"):
		return Dmts
	case strings.HasSuffix(base, ".d.cts"):
		return Dcts
	}

	switch path.Ext(base) {
	case ".js":
		return JavaScript
	case ".mjs":
		return Mjs
	case ".cjs":
		return Cjs
	case ".jsx":
		return Jsx
	case ".ts":
		return TypeScript
	case ".mts":
		return Mts
	case ".cts":
		return Cts
	case ".tsx":
		return Tsx
	case ".json":
		return JSON
	default:
		return Unknown
	}
}

// Classification is the loader's decision for one specifier.
type Classification struct {
	Media     MediaType
	Kind      Kind
	Transpile bool
	// BestEffort is set for unrecognized extensions: the source is treated
	// as TypeScript and a parse failure fails the load.
	BestEffort bool
}

// Classify maps a module specifier to its kind. Only the URL path is
// consulted; query and fragment are ignored.
func Classify(specifier *url.URL) Classification {
	media := MediaTypeFromPath(specifier.Path)

	switch media {
	case JavaScript, Mjs, Cjs:
		return Classification{Media: media, Kind: Script}
	case Jsx, TypeScript, Mts, Cts, Dts, Dmts, Dcts, Tsx:
		return Classification{Media: media, Kind: Script, Transpile: true}
	case JSON:
		return Classification{Media: media, Kind: StructuredData}
	case Unknown:
		return Classification{Media: media, Kind: Script, Transpile: true, BestEffort: true}
	default:
		panic("loader: unhandled media type " + media.String())
	}
}
