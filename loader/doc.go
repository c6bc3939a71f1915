// Package loader turns module specifiers into executable script text.
//
// # Overview
//
// A module request goes through three steps:
//
//   - [Resolve] normalizes a specifier against the importing module's URL.
//   - [Classify] derives the module kind from the specifier's extension.
//   - [Loader.Load] reads the source and, for TypeScript/JSX, transpiles it.
//
// Classification never inspects file contents:
//
//	.js .mjs .cjs                  Script, passed through untouched
//	.jsx .ts .tsx .mts .cts        Script, transpiled
//	.d.ts .d.mts .d.cts            Script, transpiled (declarations only)
//	.json                          StructuredData, never executed
//	anything else                  Script, transpilation attempted (best effort)
//
// The best-effort fallback exists so extensionless imports work; when the
// file is not valid TypeScript the load fails with a [*LoadError] instead of
// being skipped.
//
// # Caching
//
// The loader keeps no state between calls. Every Load reads the file again
// and re-runs the transpiler.
package loader
