package loader

import (
	"github.com/evanw/esbuild/pkg/api"
)

// Transpile lowers TypeScript/JSX source to plain script text. Type
// annotations and declarations are stripped, JSX becomes createElement calls
// and TS-only constructs (enums, namespaces, parameter properties) become
// standard script. Module syntax is left in place.
func Transpile(specifier, code string, media MediaType) (string, error) {
	result := api.Transform(code, api.TransformOptions{
		Loader:     esbuildLoader(media),
		Sourcefile: specifier,
		Target:     api.ESNext,
		Charset:    api.CharsetUTF8,
	})

	if len(result.Errors) > 0 {
		return "", &TranspileError{Messages: formatMessages(result.Errors)}
	}

	return string(result.Code), nil
}

func esbuildLoader(media MediaType) api.Loader {
	switch media {
	case Jsx:
		return api.LoaderJSX
	case Tsx:
		return api.LoaderTSX
	case JavaScript, Mjs, Cjs:
		return api.LoaderJS
	case JSON:
		return api.LoaderJSON
	default:
		// TypeScript, its module/declaration variants and Unknown.
		return api.LoaderTS
	}
}

func formatMessages(msgs []api.Message) []string {
	return api.FormatMessages(msgs, api.FormatMessagesOptions{
		Kind: api.ErrorMessage,
	})
}
