// Package certs checks the TLS key pair the server is started with.
package certs

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"
)

var ErrExpired = errors.New("certificate expired")

// CertManager manages the server's certificate and key files.
type CertManager struct {
	certFile string
	keyFile  string
	now      func() time.Time
}

// NewCertManager creates a new CertManager for the given PEM files.
func NewCertManager(certFile, keyFile string) *CertManager {
	return &CertManager{certFile: certFile, keyFile: keyFile, now: time.Now}
}

// Enabled reports whether both files are configured.
func (cm *CertManager) Enabled() bool {
	return cm.certFile != "" && cm.keyFile != ""
}

// LoadCertificate loads the leaf certificate and makes sure the key matches it.
func (cm *CertManager) LoadCertificate() (*x509.Certificate, error) {
	if _, err := tls.LoadX509KeyPair(cm.certFile, cm.keyFile); err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}
	data, err := os.ReadFile(cm.certFile)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to parse certificate PEM")
	}
	return x509.ParseCertificate(block.Bytes)
}

// IsExpired checks if a certificate is expired.
func (cm *CertManager) IsExpired(cert *x509.Certificate) bool {
	return cert.NotAfter.Before(cm.now())
}

// ExpiresWithin reports whether the certificate runs out inside d.
func (cm *CertManager) ExpiresWithin(cert *x509.Certificate, d time.Duration) bool {
	return cert.NotAfter.Before(cm.now().Add(d))
}

// Check loads the pair and fails on an expired certificate.
func (cm *CertManager) Check() (*x509.Certificate, error) {
	cert, err := cm.LoadCertificate()
	if err != nil {
		return nil, err
	}
	if cm.IsExpired(cert) {
		return cert, fmt.Errorf("%w on %s", ErrExpired, cert.NotAfter.Format(time.RFC3339))
	}
	return cert, nil
}
