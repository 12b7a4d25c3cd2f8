//go:build !unix && !windows

package transport

import "syscall"

func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}
