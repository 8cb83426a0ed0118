package filter

import (
	"fmt"
	"strings"

	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/errors"
)

const (
	// KeyName matches servers whose name contains the value.
	KeyName = "name"

	// KeyTransport matches servers using the given transport.
	KeyTransport = "transport"

	// KeySource matches servers found through the given discovery channel.
	KeySource = "source"

	// KeyTools matches servers exposing every comma-separated tool.
	KeyTools = "tools"

	// KeyHost matches network servers reachable at the given host.
	KeyHost = "host"
)

// sourceOf treats registered descriptors without an explicit source as coming from the registry.
func sourceOf(d descriptor.Descriptor) string {
	if d.Source == "" && d.IsRegistered() {
		return string(descriptor.SourceRegistry)
	}
	return string(d.Source)
}

// DescriptorOptions returns the matchers for every descriptor filter key.
func DescriptorOptions() []Option[descriptor.Descriptor] {
	return []Option[descriptor.Descriptor]{
		WithMatcher(KeyName, Partial(func(d descriptor.Descriptor) string { return d.Name })),
		WithMatcher(KeyTransport, Equals(func(d descriptor.Descriptor) string { return string(d.Transport) })),
		WithMatcher(KeySource, Equals(sourceOf)),
		WithMatcher(KeyTools, HasAll(func(d descriptor.Descriptor) []string { return d.Capabilities.Tools })),
		WithMatcher(KeyHost, Equals(func(d descriptor.Descriptor) string { return d.Host })),
		WithStrictKeys[descriptor.Descriptor](),
	}
}

// Descriptors returns the servers matching every filter, preserving their order.
func Descriptors(servers []descriptor.Descriptor, filters map[string]string) ([]descriptor.Descriptor, error) {
	opts := DescriptorOptions()

	out := make([]descriptor.Descriptor, 0, len(servers))
	for _, d := range servers {
		ok, err := Match(d, filters, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrValidation, err)
		}
		if ok {
			out = append(out, d)
		}
	}

	return out, nil
}

// Tools joins tool names into the comma-separated form expected by KeyTools.
func Tools(names []string) string {
	trimmed := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			trimmed = append(trimmed, n)
		}
	}
	return strings.Join(trimmed, ",")
}
