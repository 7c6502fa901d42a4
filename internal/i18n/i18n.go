// Package i18n translates product names into the language requested by the
// client.
package i18n

import (
	"context"
	"io"
	"os"
	"sort"

	"github.com/go-faster/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

type ctxKey struct{}

// WithTag stores the negotiated language in ctx.
func WithTag(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, ctxKey{}, tag)
}

// TagFrom returns the language stored in ctx, or the default one.
func TagFrom(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(ctxKey{}).(language.Tag); ok {
		return tag
	}
	return language.English
}

// Localizer translates texts using a message catalog.
type Localizer struct {
	cat     catalog.Catalog
	tags    []language.Tag
	matcher language.Matcher
}

// Load reads translations from a YAML file mapping language tags to
// text-to-translation tables.
func Load(path string) (*Localizer, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, errors.Wrap(err, "open translations")
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// Parse reads translations from r. See Load for the format.
func Parse(r io.Reader) (*Localizer, error) {
	var tables map[string]map[string]string
	if err := yaml.NewDecoder(r).Decode(&tables); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decode translations")
	}

	tags := []language.Tag{language.English}
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	langs := make([]string, 0, len(tables))
	for lang := range tables {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, errors.Wrapf(err, "language %q", lang)
		}
		for text, translation := range tables[lang] {
			if err := b.SetString(tag, text, translation); err != nil {
				return nil, errors.Wrapf(err, "set %s message", tag)
			}
		}
		if tag != language.English {
			tags = append(tags, tag)
		}
	}

	return &Localizer{cat: b, tags: tags, matcher: language.NewMatcher(tags)}, nil
}

// Match negotiates the best supported language for an Accept-Language header.
// Unsupported languages resolve to English.
func (l *Localizer) Match(acceptLanguage string) language.Tag {
	_, idx := language.MatchStrings(l.matcher, acceptLanguage)
	return l.tags[idx]
}

// Localize translates text into the language stored in ctx, returning text
// unchanged when no translation exists.
func (l *Localizer) Localize(ctx context.Context, text string) string {
	p := message.NewPrinter(TagFrom(ctx), message.Catalog(l.cat))
	return p.Sprintf(message.Key(text, text))
}
