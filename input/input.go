// Package input models the two supported pipeline input variants: a plain
// text architecture description and an architecture image (local file or
// remote URI). The variant set is closed; the executor matches it
// exhaustively.
package input

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/hupe1980/archpipe/core"
)

// DefaultMimeType is assumed for images when no MIME type was supplied.
const DefaultMimeType = "image/png"

// Input is the closed union over the supported input variants. Payload
// resolves the variant into the user content handed to the first stage;
// RequiresInterpretation reports whether the diagram interpreter stage must
// run first.
type Input interface {
	Payload() (core.Content, error)
	RequiresInterpretation() bool

	isInput()
}

// Text is an architecture description supplied directly as text.
type Text struct {
	Content string
}

// NewText wraps a plain text architecture description.
func NewText(content string) Text { return Text{Content: content} }

// isInput implements the Input interface for Text.
func (Text) isInput() {}

// Payload returns the text verbatim as user content.
func (t Text) Payload() (core.Content, error) {
	return core.NewUserText(t.Content), nil
}

// RequiresInterpretation is always false for text input.
func (Text) RequiresInterpretation() bool { return false }

// Image is an architecture diagram image, referenced either by local path or
// by http(s) URI. Remote sources are passed through to the completion engine
// as a reference; local sources are read into inlined bytes.
type Image struct {
	Source   string
	MimeType string // Defaults to DefaultMimeType when empty
}

// NewImage wraps an image source (local path or http(s) URI).
func NewImage(source string) Image {
	return Image{Source: source, MimeType: DefaultMimeType}
}

// isInput implements the Input interface for Image.
func (Image) isInput() {}

// RequiresInterpretation is always true for image input.
func (Image) RequiresInterpretation() bool { return true }

// Remote reports whether the source is an http(s) URI. Detection is a pure
// string prefix check.
func (i Image) Remote() bool {
	return strings.HasPrefix(i.Source, "http://") || strings.HasPrefix(i.Source, "https://")
}

// Payload resolves the image into user content carrying a single file part:
// a URI reference for remote sources, base64 inlined bytes for local files.
// A failed local read surfaces as *LoadError.
func (i Image) Payload() (core.Content, error) {
	mimeType := i.MimeType
	if mimeType == "" {
		mimeType = DefaultMimeType
	}

	if i.Remote() {
		return core.NewUserContent(core.FilePart{
			File: core.FilePartFile{URI: i.Source, MimeType: &mimeType},
		}), nil
	}

	data, err := os.ReadFile(i.Source)
	if err != nil {
		return core.Content{}, &LoadError{Source: i.Source, Err: err}
	}
	return core.NewUserContent(core.FilePart{
		File: core.FilePartFile{
			Bytes:    base64.StdEncoding.EncodeToString(data),
			MimeType: &mimeType,
		},
	}), nil
}

// LoadError reports a local image source that could not be read. It is fatal
// and surfaces before the pipeline starts.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("input: read image %s: %v", e.Source, e.Err)
}

// Unwrap exposes the underlying read error.
func (e *LoadError) Unwrap() error { return e.Err }
