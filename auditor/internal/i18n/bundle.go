package i18n

import (
	"embed"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// MessageID names one localized string.
type MessageID string

// Message IDs used by the network RTT audit.
const (
	MsgTitle        MessageID = "network_rtt.title"
	MsgDescription  MessageID = "network_rtt.description"
	MsgColumnOrigin MessageID = "network_rtt.column_origin"
	MsgColumnRTT    MessageID = "network_rtt.column_rtt"
	MsgMilliseconds MessageID = "ms"
)

// DefaultLocale is used when no configured locale is given.
const DefaultLocale = "en-US"

//go:embed locales/*.yaml
var builtin embed.FS

// bundleFile is the on-disk YAML layout of a bundle.
type bundleFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle is the set of messages for one locale.
type Bundle struct {
	tag      language.Tag
	messages map[MessageID]string
	printer  *message.Printer
}

func newBundle(tag language.Tag, msgs map[MessageID]string) *Bundle {
	return &Bundle{
		tag:      tag,
		messages: msgs,
		printer:  message.NewPrinter(tag),
	}
}

// Locale returns the bundle's BCP-47 tag.
func (b *Bundle) Locale() string { return b.tag.String() }

// Message returns the string for id, or id itself when the bundle lacks it.
func (b *Bundle) Message(id MessageID) string {
	if s, ok := b.messages[id]; ok {
		return s
	}
	return string(id)
}

// FormatMs renders v milliseconds rounded to 1 ms with the locale's digit
// grouping, e.g. "1,234 ms" for en-US.
func (b *Bundle) FormatMs(v float64) string {
	n := b.printer.Sprintf("%d", int64(math.Round(v)))
	return strings.ReplaceAll(b.Message(MsgMilliseconds), "{value}", n)
}

// Registry maps locales to bundles.
type Registry struct {
	tags    []language.Tag // tags[0] is the default
	bundles []*Bundle      // parallel to tags
	matcher language.Matcher
}

// LoadRegistry builds a Registry from the embedded bundles and any *.yaml
// files in dir (dir may be empty). defaultLocale must resolve to a loaded
// bundle.
func LoadRegistry(dir, defaultLocale string) (*Registry, error) {
	if defaultLocale == "" {
		defaultLocale = DefaultLocale
	}
	def, err := language.Parse(defaultLocale)
	if err != nil {
		return nil, fmt.Errorf("i18n: default locale %q: %w", defaultLocale, err)
	}

	byTag := make(map[language.Tag]map[MessageID]string)

	entries, err := builtin.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: read embedded locales: %w", err)
	}
	for _, e := range entries {
		data, err := builtin.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("i18n: read embedded %s: %w", e.Name(), err)
		}
		if err := merge(byTag, data, e.Name()); err != nil {
			return nil, err
		}
	}

	if dir != "" {
		paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
		if err != nil {
			return nil, fmt.Errorf("i18n: glob %q: %w", dir, err)
		}
		for _, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, fmt.Errorf("i18n: read %q: %w", p, err)
			}
			if err := merge(byTag, data, p); err != nil {
				return nil, err
			}
		}
	}

	if _, ok := byTag[def]; !ok {
		return nil, fmt.Errorf("i18n: no bundle for default locale %q", defaultLocale)
	}

	others := make([]language.Tag, 0, len(byTag)-1)
	for tag := range byTag {
		if tag != def {
			others = append(others, tag)
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i].String() < others[j].String() })

	r := &Registry{tags: append([]language.Tag{def}, others...)}
	for _, tag := range r.tags {
		r.bundles = append(r.bundles, newBundle(tag, byTag[tag]))
	}
	r.matcher = language.NewMatcher(r.tags)
	return r, nil
}

// merge parses one YAML bundle and folds its messages into byTag.
func merge(byTag map[language.Tag]map[MessageID]string, data []byte, name string) error {
	var f bundleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("i18n: parse %s: %w", name, err)
	}
	tag, err := language.Parse(f.Locale)
	if err != nil {
		return fmt.Errorf("i18n: %s: locale %q: %w", name, f.Locale, err)
	}
	msgs, ok := byTag[tag]
	if !ok {
		msgs = make(map[MessageID]string, len(f.Messages))
		byTag[tag] = msgs
	}
	for k, v := range f.Messages {
		msgs[MessageID(k)] = v
	}
	return nil
}

// Bundle returns the best bundle for locale. Unknown or unparsable locales
// get the default bundle.
func (r *Registry) Bundle(locale string) *Bundle {
	if locale == "" {
		return r.bundles[0]
	}
	want, err := language.Parse(locale)
	if err != nil {
		return r.bundles[0]
	}
	_, idx, conf := r.matcher.Match(want)
	if conf == language.No {
		return r.bundles[0]
	}
	return r.bundles[idx]
}

// Default returns the default-locale bundle.
func (r *Registry) Default() *Bundle { return r.bundles[0] }

// Locales lists the loaded locales, default first.
func (r *Registry) Locales() []string {
	out := make([]string, len(r.tags))
	for i, t := range r.tags {
		out[i] = t.String()
	}
	return out
}
