package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/quickmcp/internal/export"
)

func TestAllowedExportFormats(t *testing.T) {
	t.Parallel()

	expected := ExportFormats{
		ExportFormat(export.FormatJSON),
		ExportFormat(export.FormatTOML),
		ExportFormat(export.FormatYAML),
	}
	got := AllowedExportFormats()

	require.Equal(t, expected, got)
	require.Equal(t, "json, toml, yaml", got.String())
}

func TestExportFormat_Set(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		want    export.Format
		wantErr string
	}{
		{name: "json", value: "json", want: export.FormatJSON},
		{name: "upper case yaml", value: "YAML", want: export.FormatYAML},
		{name: "padded toml", value: " toml ", want: export.FormatTOML},
		{name: "unknown", value: "dotenv", wantErr: "invalid format 'dotenv', must be one of json, toml, yaml"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var f ExportFormat
			err := f.Set(tc.value)
			if tc.wantErr != "" {
				require.EqualError(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, f.Format())
			require.Equal(t, string(tc.want), f.String())
		})
	}
}

func TestExportFormat_Type(t *testing.T) {
	t.Parallel()

	var f ExportFormat
	require.Equal(t, "format", f.Type())
}
