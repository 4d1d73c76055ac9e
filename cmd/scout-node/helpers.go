package main

import (
	"fmt"
	"net"

	"github.com/hashicorp/mdns"

	"lan-scout/internal/discovery"
)

func printSnapshot(peers []discovery.Peer) {
	fmt.Printf("== Peers (%d) ==\n", len(peers))
	for i, p := range peers {
		fmt.Printf("%2d. %-21s %s\n", i+1, p.Addr, p.Payload)
	}
}

// advertiseMDNS registers this beacon as an mDNS service so probes on
// broadcast-filtered networks can still find it. Returns a shutdown func.
func advertiseMDNS(instance string, port int) (func(), error) {
	service, err := mdns.NewMDNSService(
		instance, "_lan-scout._udp", "", "",
		port, localIPs(), nil,
	)
	if err != nil {
		return nil, err
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, err
	}
	return func() { _ = server.Shutdown() }, nil
}

func localIPs() []net.IP {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return ips
	}

	for _, it := range ifaces {
		if it.Flags&net.FlagUp == 0 || it.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := it.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}
	return ips
}
