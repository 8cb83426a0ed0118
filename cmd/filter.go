package cmd

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/filter"
)

// serverFilters holds the flags shared by commands that print or export a list of servers.
type serverFilters struct {
	Name      string
	Transport string
	Source    string
	Tools     []string
}

func (f *serverFilters) bind(fs *pflag.FlagSet) {
	fs.StringVar(
		&f.Name,
		"name",
		"",
		"Optional, only include servers whose name contains this value",
	)

	fs.StringVar(
		&f.Transport,
		"transport",
		"",
		"Optional, only include servers using this transport (stdio, network)",
	)

	fs.StringVar(
		&f.Source,
		"source",
		"",
		"Optional, only include servers found through this channel (registry, filesystem, network)",
	)

	fs.StringSliceVar(
		&f.Tools,
		"tool",
		nil,
		"Optional, only include servers exposing this tool (can be repeated)",
	)
}

// active reports whether any filter flag was given a value.
func (f *serverFilters) active() bool {
	for _, v := range f.filters() {
		if v != "" {
			return true
		}
	}
	return false
}

func (f *serverFilters) filters() map[string]string {
	return map[string]string{
		filter.KeyName:      strings.TrimSpace(f.Name),
		filter.KeyTransport: strings.TrimSpace(f.Transport),
		filter.KeySource:    strings.TrimSpace(f.Source),
		filter.KeyTools:     filter.Tools(f.Tools),
	}
}

// apply returns the servers matching every filter flag, in their original order.
func (f *serverFilters) apply(servers []descriptor.Descriptor) ([]descriptor.Descriptor, error) {
	return filter.Descriptors(servers, f.filters())
}
