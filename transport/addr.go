package transport

import (
	"net"
	"strconv"
)

// TCPAddr is the concrete Addr this module dials: a resolved host and port.
type TCPAddr struct {
	Host string
	Port uint16
}

var _ Addr = TCPAddr{}

func (a TCPAddr) Network() string { return "tcp" }

func (a TCPAddr) String() string {
	return net.JoinHostPort(a.Host, strconv.FormatUint(uint64(a.Port), 10))
}
