package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/marketplace/internal/errors"
)

// Source is a place a catalog can be loaded from.
type Source interface {
	// Entries returns the catalog entries in declaration order.
	Entries(ctx context.Context) ([]*Entry, error)

	// String describes the source for logs and errors.
	String() string
}

// Format is a catalog document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// document is the object form of a catalog file.
type document struct {
	Plugins []*Entry `json:"plugins" yaml:"plugins"`
}

// FormatFor guesses the document format from a file name or URL path.
// Unknown extensions fall back to sniffing the content in Decode.
func FormatFor(name string) Format {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	}
	return ""
}

// Decode parses a catalog document. The document is either a list of
// entries or an object with a "plugins" list. An empty format sniffs the
// content: documents starting with '[' or '{' are JSON.
func Decode(data []byte, format Format) ([]*Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New(errors.CodeInvalidCatalog).WithDetail("Catalog document is empty")
	}
	if format == "" {
		format = FormatYAML
		if trimmed[0] == '[' || trimmed[0] == '{' {
			format = FormatJSON
		}
	}

	var (
		list []*Entry
		doc  document
		err  error
	)
	switch format {
	case FormatJSON:
		if trimmed[0] == '[' {
			err = json.Unmarshal(trimmed, &list)
		} else {
			err = json.Unmarshal(trimmed, &doc)
			list = doc.Plugins
		}
	case FormatYAML:
		var node yaml.Node
		if err = yaml.Unmarshal(trimmed, &node); err == nil {
			if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
				err = node.Decode(&list)
			} else {
				err = node.Decode(&doc)
				list = doc.Plugins
			}
		}
	default:
		return nil, errors.New(errors.CodeInvalidCatalog).WithDetailf("Unsupported catalog format %q", format)
	}
	if err != nil {
		return nil, errors.New(errors.CodeInvalidCatalog).
			WithDetailf("Failed to parse %s catalog: %v", format, err)
	}

	out := make([]*Entry, 0, len(list))
	for _, e := range list {
		if e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// FileSource loads a catalog from a local JSON or YAML file.
type FileSource struct {
	Path string
}

// Entries reads and decodes the file.
func (s FileSource) Entries(ctx context.Context) ([]*Entry, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.New(errors.CodeSourceUnavailable).
			WithDetailf("Could not read catalog file %s", s.Path).
			Wrap(err)
	}
	return Decode(data, FormatFor(s.Path))
}

func (s FileSource) String() string { return s.Path }

// SourceOptions configures sources built by ParseSource.
type SourceOptions struct {
	// Timeout bounds a single remote fetch attempt.
	Timeout time.Duration

	// S3Region is the AWS region for s3:// sources.
	S3Region string

	// S3Endpoint overrides the S3 endpoint (S3-compatible stores).
	S3Endpoint string

	// S3PathStyle forces path-style bucket addressing.
	S3PathStyle bool

	Logger *slog.Logger
}

// BuiltinSource is the source name of the embedded catalog.
const BuiltinSource = "builtin"

// ParseSource maps a source string to a Source:
//
//	builtin              the catalog compiled into the binary
//	s3://bucket/key      an object in S3
//	http(s)://host/path  a remote feed
//	anything else        a local file path
func ParseSource(spec string, opts SourceOptions) (Source, error) {
	spec = strings.TrimSpace(spec)
	switch {
	case spec == "":
		return nil, errors.New(errors.CodeInvalidConfigValue).WithDetail("Empty catalog source")
	case spec == BuiltinSource:
		return EmbeddedSource{}, nil
	case strings.HasPrefix(spec, "s3://"):
		return NewS3Source(spec, opts)
	case strings.HasPrefix(spec, "http://"), strings.HasPrefix(spec, "https://"):
		return NewHTTPSource(spec, opts), nil
	default:
		return FileSource{Path: spec}, nil
	}
}
