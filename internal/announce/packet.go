// Package announce implements presence announcements for network servers over UDP multicast.
//
// A datagram is framed as:
//
//	magic "MCPD" (4 bytes) | version (uint16, big endian) | payload length (uint16, big endian) | JSON payload
//
// Announcements carry capability counts only, never full capability lists, so that a datagram always
// fits well within a typical multicast MTU.
package announce

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mozilla-ai/quickmcp/internal/descriptor"
	"github.com/mozilla-ai/quickmcp/internal/errors"
)

const (
	// ProtocolVersion is the only frame version understood by Decode.
	ProtocolVersion uint16 = 1

	// MaxDatagramSize is the largest frame Encode will produce.
	MaxDatagramSize = 1024

	headerSize = 8
)

// magic prefixes every announcement frame.
var magic = []byte("MCPD")

// Announcement is the payload of a single presence datagram.
type Announcement struct {
	Name       string                   `json:"name"`
	Host       string                   `json:"host"`
	Port       int                      `json:"port"`
	Transport  descriptor.TransportKind `json:"transport"`
	Version    string                   `json:"version,omitempty"`
	InstanceID string                   `json:"instance_id,omitempty"`
	Tools      int                      `json:"tools"`
	Resources  int                      `json:"resources"`
	Prompts    int                      `json:"prompts"`
}

// FromDescriptor builds the announcement advertising a network descriptor.
func FromDescriptor(d descriptor.Descriptor) Announcement {
	counts := d.Capabilities.Summary()

	return Announcement{
		Name:       d.Name,
		Host:       d.Host,
		Port:       d.Port,
		Transport:  descriptor.TransportNetwork,
		Version:    d.Version,
		InstanceID: d.InstanceID,
		Tools:      counts.Tools,
		Resources:  counts.Resources,
		Prompts:    counts.Prompts,
	}
}

// Validate checks the fields every announcement must carry.
// Host may be empty, listeners substitute the sender address.
func (a Announcement) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: announcement name cannot be empty", errors.ErrValidation)
	}
	if a.Port <= 0 || a.Port > 65535 {
		return fmt.Errorf("%w: announcement for '%s' has invalid port %d", errors.ErrValidation, a.Name, a.Port)
	}
	if a.Transport != "" && a.Transport != descriptor.TransportNetwork {
		return fmt.Errorf("%w: announcement for '%s' has transport '%s'", errors.ErrValidation, a.Name, a.Transport)
	}
	if a.Tools < 0 || a.Resources < 0 || a.Prompts < 0 {
		return fmt.Errorf("%w: announcement for '%s' has negative capability counts", errors.ErrValidation, a.Name)
	}

	return nil
}

// Descriptor converts the announcement to an ephemeral network descriptor last seen at seen.
func (a Announcement) Descriptor(seen time.Time) descriptor.Descriptor {
	return descriptor.Descriptor{
		Name:       a.Name,
		Version:    a.Version,
		Transport:  descriptor.TransportNetwork,
		Host:       a.Host,
		Port:       a.Port,
		InstanceID: a.InstanceID,
		LastSeen:   &seen,
		Capabilities: descriptor.Capabilities{
			Counts: &descriptor.Counts{
				Tools:     a.Tools,
				Resources: a.Resources,
				Prompts:   a.Prompts,
			},
		},
		Source: descriptor.SourceNetwork,
	}
}

// Encode validates a and frames it as a datagram.
func Encode(a Announcement) ([]byte, error) {
	a.Transport = descriptor.TransportNetwork
	if err := a.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode announcement: %w", err)
	}

	if headerSize+len(payload) > MaxDatagramSize {
		return nil, fmt.Errorf(
			"%w: announcement for '%s' is %d bytes, exceeds %d",
			errors.ErrValidation, a.Name, headerSize+len(payload), MaxDatagramSize,
		)
	}

	frame := make([]byte, headerSize, headerSize+len(payload))
	copy(frame, magic)
	binary.BigEndian.PutUint16(frame[4:6], ProtocolVersion)
	binary.BigEndian.PutUint16(frame[6:8], uint16(len(payload)))

	return append(frame, payload...), nil
}

// Decode parses a datagram produced by Encode.
// Bytes beyond the declared payload length are ignored.
func Decode(frame []byte) (Announcement, error) {
	if len(frame) < headerSize {
		return Announcement{}, fmt.Errorf("truncated announcement: %d bytes", len(frame))
	}
	if !bytes.Equal(frame[:4], magic) {
		return Announcement{}, fmt.Errorf("invalid announcement magic %q", frame[:4])
	}
	if v := binary.BigEndian.Uint16(frame[4:6]); v != ProtocolVersion {
		return Announcement{}, fmt.Errorf("unsupported announcement version %d", v)
	}

	size := int(binary.BigEndian.Uint16(frame[6:8]))
	if len(frame)-headerSize < size {
		return Announcement{}, fmt.Errorf("truncated announcement: payload %d of %d bytes", len(frame)-headerSize, size)
	}

	var a Announcement
	if err := json.Unmarshal(frame[headerSize:headerSize+size], &a); err != nil {
		return Announcement{}, fmt.Errorf("invalid announcement payload: %w", err)
	}
	if a.Transport == "" {
		a.Transport = descriptor.TransportNetwork
	}
	if err := a.Validate(); err != nil {
		return Announcement{}, err
	}

	return a, nil
}
