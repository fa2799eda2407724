package sourcemap

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloudflare/ahocorasick"
	"github.com/dlclark/regexp2"
)

// ErrNoSourceMap is returned when a generated file carries no source map
// reference.
var ErrNoSourceMap = errors.New("could not find source map")

// referencePattern matches `//# sourceMappingURL=...` and `/*# sourceMappingURL=... */`
// comments. Group 1 is the optional base64 data URL prefix, group 2 the payload.
const referencePattern = `(?:\/{2}[#@]{1,2}|\/\*)\s+sourceMappingURL\s*=\s*(data:(?:[^;]+;)+base64,)?(\S+)`

const referenceKeyword = "sourceMappingURL"

// JSONReader reads the file at path and decodes its JSON content into v.
type JSONReader func(path string, v any) error

// ReadJSONFile is the default JSONReader.
func ReadJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Resolved is a loaded source map ready for queries.
type Resolved struct {
	Consumer Consumer
	// BaseDir is the directory original source paths are relative to.
	BaseDir string
	// MapPath is the sidecar file path, empty for inline maps.
	MapPath string
}

// Resolver finds and loads the source map referenced by a generated file.
type Resolver struct {
	readJSON JSONReader
	keywords *ahocorasick.Matcher
	pattern  *regexp2.Regexp
}

// NewResolver creates a resolver that loads sidecar maps with readJSON.
// A nil readJSON falls back to ReadJSONFile.
func NewResolver(readJSON JSONReader) *Resolver {
	if readJSON == nil {
		readJSON = ReadJSONFile
	}
	return &Resolver{
		readJSON: readJSON,
		keywords: ahocorasick.NewStringMatcher([]string{referenceKeyword}),
		pattern:  regexp2.MustCompile(referencePattern, regexp2.None),
	}
}

// Reference is a source map reference found in generated text.
type Reference struct {
	// Inline is true when Payload is base64 encoded map content.
	Inline  bool
	Payload string
}

// FindReference returns the first source map reference in text.
func (r *Resolver) FindReference(text []byte) (Reference, bool) {
	if len(r.keywords.Match(text)) == 0 {
		return Reference{}, false
	}

	match, err := r.pattern.FindStringMatch(string(text))
	if err != nil || match == nil {
		return Reference{}, false
	}

	groups := match.Groups()
	return Reference{
		Inline:  len(groups[1].Captures) > 0,
		Payload: groups[2].String(),
	}, true
}

// Resolve loads the source map referenced by the generated file at
// generatedPath whose content is text. It returns an error wrapping
// ErrNoSourceMap when text has no reference.
func (r *Resolver) Resolve(generatedPath string, text []byte) (*Resolved, error) {
	ref, ok := r.FindReference(text)
	if !ok {
		return nil, fmt.Errorf("%w for: %q", ErrNoSourceMap, generatedPath)
	}

	dir := filepath.Dir(generatedPath)

	if ref.Inline {
		data, err := decodeBase64(ref.Payload)
		if err != nil {
			return nil, fmt.Errorf("decoding inline source map of %s: %w", generatedPath, err)
		}
		consumer, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parsing inline source map of %s: %w", generatedPath, err)
		}
		return &Resolved{Consumer: consumer, BaseDir: dir}, nil
	}

	mapPath := filepath.Join(dir, ref.Payload)
	var raw json.RawMessage
	if err := r.readJSON(mapPath, &raw); err != nil {
		return nil, fmt.Errorf("reading source map %s: %w", mapPath, err)
	}
	consumer, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing source map %s: %w", mapPath, err)
	}
	return &Resolved{
		Consumer: consumer,
		BaseDir:  filepath.Dir(mapPath),
		MapPath:  mapPath,
	}, nil
}

// decodeBase64 accepts padded and unpadded payloads in the standard or
// URL-safe alphabet.
func decodeBase64(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return data, nil
	}
	for _, enc := range []*base64.Encoding{base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, encErr := enc.DecodeString(payload); encErr == nil {
			return data, nil
		}
	}
	return nil, err
}
