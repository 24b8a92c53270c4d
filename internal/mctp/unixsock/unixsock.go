// Package unixsock implements internal/mctp.Transport over a SOCK_DGRAM
// Unix domain socket, standing in for the kernel AF_MCTP socket the spec
// treats as out of scope (spec §1): each datagram written/read here is one
// complete MCTP frame (EID prefix, message type, PLDM message).
//
// Shape grounded on the teacher's portmap UDP server loop
// (internal/protocol/portmap/server.go's serveUDP): a short read deadline so
// the read loop can observe shutdown between blocking reads, since
// net.UnixConn has no way to interrupt an in-flight Read other than closing
// the socket out from under it.
package unixsock

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// pollInterval bounds how long a ReadDatagram call blocks before Stop is
// observed by the caller's shutdown-check loop.
const pollInterval = 500 * time.Millisecond

// Transport is a SOCK_DGRAM Unix domain socket satisfying
// internal/mctp.Transport and internal/mctp.IsTimeout.
type Transport struct {
	conn *net.UnixConn
	path string

	mu   sync.Mutex
	peer *net.UnixAddr
}

// Listen binds a new Unix datagram socket at path, removing any stale socket
// file left behind by a previous, uncleanly-terminated process.
func Listen(path string) (*Transport, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("unixsock: remove stale socket %s: %w", path, err)
	}
	addr, err := net.ResolveUnixAddr("unixgram", path)
	if err != nil {
		return nil, fmt.Errorf("unixsock: resolve %s: %w", path, err)
	}
	conn, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		return nil, fmt.Errorf("unixsock: listen %s: %w", path, err)
	}
	return &Transport{conn: conn, path: path}, nil
}

// Dial binds a new Unix datagram socket at localPath and fixes remotePath as
// its peer, for a pure requester (cmd/pldmtool) that must send before ever
// receiving anything on the socket — unlike Listen, whose peer is only
// learned from the first inbound datagram.
func Dial(localPath, remotePath string) (*Transport, error) {
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("unixsock: remove stale socket %s: %w", localPath, err)
	}
	localAddr, err := net.ResolveUnixAddr("unixgram", localPath)
	if err != nil {
		return nil, fmt.Errorf("unixsock: resolve %s: %w", localPath, err)
	}
	conn, err := net.ListenUnixgram("unixgram", localAddr)
	if err != nil {
		return nil, fmt.Errorf("unixsock: listen %s: %w", localPath, err)
	}
	peerAddr, err := net.ResolveUnixAddr("unixgram", remotePath)
	if err != nil {
		return nil, fmt.Errorf("unixsock: resolve %s: %w", remotePath, err)
	}
	return &Transport{conn: conn, path: localPath, peer: peerAddr}, nil
}

// ReadDatagram blocks until one datagram arrives or pollInterval elapses,
// returning a timeout error in the latter case so the caller's serve loop
// can re-check its shutdown channel.
func (t *Transport) ReadDatagram(buf []byte) (int, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
		return 0, err
	}
	n, peer, err := t.conn.ReadFromUnix(buf)
	if err == nil && peer != nil {
		t.mu.Lock()
		t.peer = peer
		t.mu.Unlock()
	}
	return n, err
}

// WriteDatagram sends buf to the peer address last seen by ReadDatagram, i.e.
// back to whichever MCTP bridge process last sent a datagram on this socket.
//
// A true AF_MCTP or unixgram peer model binds a distinct peer per EID; this
// transport instead assumes a single correspondent (spec's "local MCTP
// datagram socket", not a multi-host bridge), matching the single
// SocketPath field on MCTPConfig.
func (t *Transport) WriteDatagram(buf []byte) (int, error) {
	t.mu.Lock()
	peer := t.peer
	t.mu.Unlock()
	if peer == nil {
		return 0, fmt.Errorf("unixsock: no peer address known yet (nothing received on %s)", t.path)
	}
	return t.conn.WriteToUnix(buf, peer)
}

// Close releases the underlying socket and removes the socket file.
func (t *Transport) Close() error {
	err := t.conn.Close()
	_ = os.Remove(t.path)
	return err
}
