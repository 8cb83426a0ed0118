package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mozilla-ai/quickmcp/internal/export"
)

// ExportFormat is the encoding of an exported connection document.
// It implements pflag.Value so it can be bound directly to a flag.
type ExportFormat export.Format

// ExportFormats is a wrapper which allows 'helper' receivers to be declared,
// such as String().
type ExportFormats []ExportFormat

// AllowedExportFormats returns the encodings the export command supports, sorted by name.
func AllowedExportFormats() ExportFormats {
	supported := export.Formats()
	formats := make(ExportFormats, 0, len(supported))
	for _, f := range supported {
		formats = append(formats, ExportFormat(f))
	}

	slices.Sort(formats)

	return formats
}

// String converts the collection to a comma separated string.
func (f *ExportFormats) String() string {
	efs := *f
	out := make([]string, len(efs))
	for i := range efs {
		out[i] = efs[i].String()
	}
	return strings.Join(out, ", ")
}

// String implements fmt.Stringer and pflag.Value.
func (f *ExportFormat) String() string {
	return strings.ToLower(string(*f))
}

// Set implements pflag.Value, accepting any supported encoding regardless of case.
func (f *ExportFormat) Set(v string) error {
	v = strings.ToLower(strings.TrimSpace(v))
	allowed := AllowedExportFormats()

	for _, a := range allowed {
		if string(a) == v {
			*f = a
			return nil
		}
	}

	return fmt.Errorf("invalid format '%s', must be one of %v", v, allowed.String())
}

// Type implements pflag.Value.
func (f *ExportFormat) Type() string {
	return "format"
}

// Format returns the export encoding.
func (f ExportFormat) Format() export.Format {
	return export.Format(f)
}
