// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package tls provisions the self-signed certificate used by the HTTPS
// listener. Browsers only expose device orientation to 360° viewers on
// secure origins, so LAN deployments need HTTPS even without a real CA.
package tls

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	cryptotls "crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

// DefaultValidity is the lifetime of generated certificates.
const DefaultValidity = 2 * 365 * 24 * time.Hour

// Options configures certificate provisioning.
type Options struct {
	CertPath string
	KeyPath  string
	// Hosts are extra SAN entries; IP literals become IP SANs, the rest DNS SANs.
	Hosts []string
	// IncludeNetworkIPs adds the addresses of all up, non-loopback interfaces.
	IncludeNetworkIPs bool
	Validity          time.Duration
	Logger            zerolog.Logger
	now               func() time.Time
}

// EnsureCertificates keeps an existing, loadable pair and otherwise generates
// a new self-signed pair at the configured paths.
func EnsureCertificates(opts Options) error {
	certExists := fileExists(opts.CertPath)
	keyExists := fileExists(opts.KeyPath)

	if certExists && keyExists {
		if _, err := cryptotls.LoadX509KeyPair(opts.CertPath, opts.KeyPath); err == nil {
			opts.Logger.Debug().
				Str("cert", opts.CertPath).
				Str("key", opts.KeyPath).
				Msg("TLS certificates found")
			return nil
		}
		opts.Logger.Warn().
			Str("cert", opts.CertPath).
			Msg("existing TLS pair does not load, regenerating")
	} else if certExists || keyExists {
		opts.Logger.Warn().
			Bool("cert_exists", certExists).
			Bool("key_exists", keyExists).
			Msg("incomplete TLS certificate pair found, regenerating both")
	}

	if opts.IncludeNetworkIPs {
		ips, err := NetworkIPs()
		if err != nil {
			opts.Logger.Warn().Err(err).Msg("failed to detect network IPs, certificate will only cover localhost")
		}
		for _, ip := range ips {
			opts.Hosts = append(opts.Hosts, ip.String())
		}
	}

	if err := GenerateSelfSigned(opts); err != nil {
		return err
	}
	opts.Logger.Info().
		Str("cert", opts.CertPath).
		Strs("hosts", opts.Hosts).
		Dur("validity", opts.validity()).
		Msg("self-signed TLS certificate generated")
	return nil
}

func (o Options) validity() time.Duration {
	if o.Validity <= 0 {
		return DefaultValidity
	}
	return o.Validity
}

// sans splits hosts into IP and DNS SANs, always covering localhost.
func sans(hosts []string) ([]net.IP, []string) {
	ips := []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback}
	dns := []string{"localhost"}
	for _, h := range hosts {
		if h == "" {
			continue
		}
		if ip := net.ParseIP(h); ip != nil {
			if !slices.ContainsFunc(ips, ip.Equal) {
				ips = append(ips, ip)
			}
			continue
		}
		if !slices.Contains(dns, h) {
			dns = append(dns, h)
		}
	}
	return ips, dns
}

// GenerateSelfSigned writes an ECDSA P-256 certificate and key. Files are
// replaced atomically; the key is written with 0600 permissions.
func GenerateSelfSigned(opts Options) error {
	for _, p := range []string{opts.CertPath, opts.KeyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return fmt.Errorf("create cert directory: %w", err)
		}
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate private key: %w", err)
	}
	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generate serial number: %w", err)
	}

	now := time.Now
	if opts.now != nil {
		now = opts.now
	}
	notBefore := now().Add(-time.Hour)
	ips, dns := sans(opts.Hosts)

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"panoview self-signed"},
			CommonName:   "panoview",
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(opts.validity()),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           ips,
		DNSNames:              dns,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	privBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}

	var certPEM, keyPEM bytes.Buffer
	if err := pem.Encode(&certPEM, &pem.Block{Type: "CERTIFICATE", Bytes: derBytes}); err != nil {
		return fmt.Errorf("encode certificate: %w", err)
	}
	if err := pem.Encode(&keyPEM, &pem.Block{Type: "EC PRIVATE KEY", Bytes: privBytes}); err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}

	if err := renameio.WriteFile(opts.KeyPath, keyPEM.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write key: %w", err)
	}
	if err := renameio.WriteFile(opts.CertPath, certPEM.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write cert: %w", err)
	}
	return nil
}

// ServerConfig loads the pair into a TLS config suitable for http.Server.
func ServerConfig(certPath, keyPath string) (*cryptotls.Config, error) {
	pair, err := cryptotls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load TLS pair: %w", err)
	}
	return &cryptotls.Config{
		MinVersion:   cryptotls.VersionTLS12,
		Certificates: []cryptotls.Certificate{pair},
	}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// NetworkIPs returns the non-loopback, non-link-local addresses of all
// interfaces that are up.
func NetworkIPs() ([]net.IP, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("get network interfaces: %w", err)
	}

	var ips []net.IP
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
				continue
			}
			ips = append(ips, ip)
		}
	}
	return ips, nil
}
