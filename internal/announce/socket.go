package announce

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// openMulticastSink opens an unbound UDP socket whose outgoing multicast datagrams use the configured
// TTL and interface. Loopback is enabled so listeners on the same host receive announcements.
func openMulticastSink(opts AnnouncerOptions) (PacketSink, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("failed to open announce socket: %w", err)
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastTTL(opts.TTL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set multicast TTL: %w", err)
	}
	if err := pc.SetMulticastLoopback(true); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable multicast loopback: %w", err)
	}
	if opts.Interface != nil {
		if err := pc.SetMulticastInterface(opts.Interface); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set multicast interface '%s': %w", opts.Interface.Name, err)
		}
	}

	return conn, nil
}

// openMulticastSource joins the group and returns the socket announcements are read from.
// The group is joined on the first configured interface (or the system default) by the standard
// library, which also sets SO_REUSEADDR so several listeners can share the port. Any further
// interfaces are joined explicitly.
func openMulticastSource(opts ListenOptions) (PacketSource, error) {
	var first *net.Interface
	if len(opts.Interfaces) > 0 {
		first = opts.Interfaces[0]
	}

	conn, err := net.ListenMulticastUDP("udp4", first, opts.Group)
	if err != nil {
		return nil, fmt.Errorf("failed to join multicast group %s: %w", opts.Group, err)
	}

	if len(opts.Interfaces) > 1 {
		pc := ipv4.NewPacketConn(conn)
		for _, iface := range opts.Interfaces[1:] {
			if err := pc.JoinGroup(iface, &net.UDPAddr{IP: opts.Group.IP}); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("failed to join multicast group %s on '%s': %w", opts.Group, iface.Name, err)
			}
		}
	}

	return conn, nil
}
