// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command gencert generates a self-signed TLS certificate for panoview.
// Headsets refuse motion-sensor and WebXR access on plain HTTP, so LAN
// deployments need a certificate covering the server's addresses.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ManuGH/panoview/internal/log"
	"github.com/ManuGH/panoview/internal/tls"
)

func main() {
	certPath := flag.String("cert", "certs/panoview.crt", "Path to certificate file")
	keyPath := flag.String("key", "certs/panoview.key", "Path to key file")
	years := flag.Int("years", 2, "Certificate validity in years")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "Comma-separated DNS names and IPs")
	lan := flag.Bool("lan", true, "Include the addresses of all network interfaces")
	flag.Parse()

	if *years <= 0 {
		fmt.Fprintln(os.Stderr, "Error: --years must be positive")
		os.Exit(2)
	}

	opts := tls.Options{
		CertPath:          *certPath,
		KeyPath:           *keyPath,
		Hosts:             splitHosts(*hosts),
		IncludeNetworkIPs: *lan,
		Validity:          time.Duration(*years) * 365 * 24 * time.Hour,
		Logger:            log.WithComponent("gencert"),
	}
	if err := tls.GenerateSelfSigned(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Self-signed TLS certificate generated:\n")
	fmt.Printf("   Certificate: %s\n", *certPath)
	fmt.Printf("   Private key: %s\n", *keyPath)
	fmt.Printf("   Hosts:       %s\n", strings.Join(opts.Hosts, ", "))
	fmt.Printf("   Valid for:   %d years\n", *years)
}

func splitHosts(s string) []string {
	var out []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
