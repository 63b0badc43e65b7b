package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/grandcat/zeroconf"
)

const (
	mdnsServiceType = "_mudra._tcp"
	mdnsDomain      = "local."
)

// Advertise publishes the dashboard on the local network until ctx is
// cancelled. addr is the server listen address, e.g. ":8080".
func Advertise(ctx context.Context, addr string, txt map[string]string) error {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("mdns: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("mdns port %q: %w", portStr, err)
	}

	name, err := os.Hostname()
	if err != nil || name == "" {
		name = "mudra"
	}

	records := make([]string, 0, len(txt))
	for k, v := range txt {
		records = append(records, k+"="+v)
	}

	server, err := zeroconf.Register(name, mdnsServiceType, mdnsDomain, port, records, nil)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}

	<-ctx.Done()
	server.Shutdown()
	return nil
}
