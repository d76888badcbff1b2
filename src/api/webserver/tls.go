package webserver

import (
	"crypto/tls"
	"log"
	"os"
	"sync"
	"time"
)

// CertReloader serves the current key pair and picks up rotated certificate
// files without a restart.
type CertReloader struct {
	certFile string
	keyFile  string

	mu      sync.RWMutex
	cert    *tls.Certificate
	lastMod time.Time
}

func NewCertReloader(certFile, keyFile string) (*CertReloader, error) {
	r := &CertReloader{certFile: certFile, keyFile: keyFile}
	if err := r.reload(); err != nil {
		return nil, err
	}
	go r.watch()
	return r, nil
}

func (r *CertReloader) reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return err
	}
	mod := time.Time{}
	for _, f := range []string{r.certFile, r.keyFile} {
		if info, err := os.Stat(f); err == nil && info.ModTime().After(mod) {
			mod = info.ModTime()
		}
	}

	r.mu.Lock()
	r.cert = &cert
	r.lastMod = mod
	r.mu.Unlock()
	return nil
}

func (r *CertReloader) watch() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		changed := false
		for _, f := range []string{r.certFile, r.keyFile} {
			info, err := os.Stat(f)
			if err != nil {
				log.Printf("tls: stat %s: %v", f, err)
				changed = false
				break
			}
			if info.ModTime().After(r.lastMod) {
				changed = true
			}
		}
		if changed {
			log.Printf("tls: certificate files changed, reloading")
			if err := r.reload(); err != nil {
				log.Printf("tls: reload failed: %v", err)
			}
		}
	}
}

func (r *CertReloader) Config() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			r.mu.RLock()
			defer r.mu.RUnlock()
			return r.cert, nil
		},
	}
}
