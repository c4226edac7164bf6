// Package i18n holds the localized strings used when rendering audit output.
//
// Strings are addressed by a stable MessageID. A Bundle holds the messages
// for one locale and is immutable once loaded. A Registry groups bundles and
// picks the best match for a requested BCP-47 tag using golang.org/x/text,
// falling back to the default locale.
//
// LoadRegistry reads the embedded en-US and de bundles plus any *.yaml file
// in an optional directory; a file for an already known locale overrides
// individual messages. The registry is built once at startup and replaced
// wholesale on config reload.
package i18n
