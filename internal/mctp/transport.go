// Package mctp implements the MCTP request/response engine and instance-id
// arbiter (spec §4.2): a correlation layer multiplexing outstanding
// requests on a datagram transport, matching responses by (EID,
// instance-id), enforcing per-command timeouts.
//
// The MCTP transport driver itself is explicitly out of scope (spec §1);
// this package treats it as a datagram socket through the Transport
// interface, grounded on the teacher's portmap UDP server loop
// (internal/protocol/portmap/server.go's serveUDP: poll-for-shutdown via a
// short read deadline, per-datagram buffer copy, dispatch, reply).
package mctp

// MsgType is the MCTP message-type octet identifying a PLDM payload
// (spec §4.2 wire framing).
const MsgType uint8 = 1

// Transport is a datagram socket: one ReadDatagram call yields exactly one
// MCTP datagram (EID prefix + message type + PLDM message), and one
// WriteDatagram call sends exactly one. Implementations wrap whatever the
// platform's MCTP binding actually is (kernel MCTP socket, AF_UNIX test
// fixture, …); this package never opens a transport itself.
type Transport interface {
	// ReadDatagram blocks until one datagram is available and copies it
	// into buf, returning the number of bytes written. Implementations
	// should return promptly (e.g. honoring a short read deadline) so the
	// engine's serve loop can observe shutdown.
	ReadDatagram(buf []byte) (n int, err error)

	// WriteDatagram sends one complete datagram (MCTP prefix included).
	WriteDatagram(buf []byte) (n int, err error)
}

// IsTimeout is satisfied by transports that can distinguish a read
// deadline expiry (keep polling) from a real transport error (log and
// continue, per spec §7's Transport error kind).
type IsTimeout interface {
	Timeout() bool
}
