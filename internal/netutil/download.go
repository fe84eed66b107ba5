// Package netutil downloads remote catalog documents over hardened HTTPS.
package netutil

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DownloadConfig bounds a single download
type DownloadConfig struct {
	AllowPrivateHosts bool
	MaxRedirects      int
	Timeout           time.Duration
	MaxSize           int64

	// TLSConfig overrides the default TLS settings, e.g. a private CA
	TLSConfig *tls.Config
}

// DefaultMaxSize caps a downloaded catalog document
const DefaultMaxSize = 4 << 20

func DefaultConfig() DownloadConfig {
	return DownloadConfig{
		AllowPrivateHosts: false,
		MaxRedirects:      5,
		Timeout:           30 * time.Second,
		MaxSize:           DefaultMaxSize,
	}
}

// Download fetches rawURL into memory. Only https is allowed, redirects are
// re-validated, and private or reserved addresses are refused unless
// AllowPrivateHosts is set.
func Download(ctx context.Context, rawURL string, config DownloadConfig) ([]byte, error) {
	if err := ValidateURL(rawURL, config.AllowPrivateHosts); err != nil {
		return nil, fmt.Errorf("invalid catalog URL: %w", err)
	}

	client := createSecureClient(config)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if config.MaxSize > 0 {
		body = io.LimitReader(resp.Body, config.MaxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if config.MaxSize > 0 && int64(len(data)) > config.MaxSize {
		return nil, fmt.Errorf("document exceeds maximum size limit (%d bytes)", config.MaxSize)
	}
	return data, nil
}

// ValidateURL accepts only https URLs, and only public hosts unless allowPrivate
func ValidateURL(rawURL string, allowPrivate bool) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}

	if parsed.Scheme != "https" {
		return fmt.Errorf("only https:// URLs allowed; got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL has no host")
	}

	if !allowPrivate {
		host := strings.ToLower(parsed.Hostname())
		if err := validateHostNotPrivate(host); err != nil {
			return fmt.Errorf("%w (set AEROCHECK_ALLOW_PRIVATE_CATALOG_HOSTS=1 to override)", err)
		}
	}

	return nil
}

func validateHostNotPrivate(host string) error {
	if host == "localhost" {
		return fmt.Errorf("localhost not allowed")
	}

	ip := net.ParseIP(host)
	if ip != nil && IsPrivateOrReservedIP(ip) {
		return fmt.Errorf("private/reserved IP address not allowed: %s", host)
	}

	return nil
}

func IsPrivateOrReservedIP(ip net.IP) bool {
	if ip.IsLoopback() {
		return true
	}

	if ip.IsPrivate() {
		return true
	}

	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}

	if ip.IsUnspecified() {
		return true
	}

	if ip.IsMulticast() {
		return true
	}

	if ip4 := ip.To4(); ip4 != nil {
		if ip4[0] == 0 {
			return true
		}
		if ip4[0] == 169 && ip4[1] == 254 {
			return true
		}
		if ip4[0] == 100 && ip4[1] >= 64 && ip4[1] <= 127 {
			return true
		}
		if ip4[0] == 198 && (ip4[1] == 18 || ip4[1] == 19) {
			return true
		}
		if ip4[0] == 192 && ip4[1] == 0 && ip4[2] == 0 {
			return true
		}
		if ip4[0] == 192 && ip4[1] == 0 && ip4[2] == 2 {
			return true
		}
		if ip4[0] == 198 && ip4[1] == 51 && ip4[2] == 100 {
			return true
		}
		if ip4[0] == 203 && ip4[1] == 0 && ip4[2] == 113 {
			return true
		}
		if ip4[0] >= 240 {
			return true
		}
		if ip4[0] == 255 && ip4[1] == 255 && ip4[2] == 255 && ip4[3] == 255 {
			return true
		}
	}

	return false
}

func createSecureClient(config DownloadConfig) *http.Client {
	var dialCtx func(ctx context.Context, network, addr string) (net.Conn, error)
	if config.AllowPrivateHosts {
		dialer := &net.Dialer{Timeout: 30 * time.Second}
		dialCtx = dialer.DialContext
	} else {
		dialCtx = safeDialContext
	}

	maxRedirects := config.MaxRedirects
	if maxRedirects == 0 {
		maxRedirects = 5
	}

	return &http.Client{
		Timeout: config.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("too many redirects (%d)", len(via))
			}
			if err := ValidateURL(req.URL.String(), config.AllowPrivateHosts); err != nil {
				return fmt.Errorf("redirect to insecure URL blocked: %w", err)
			}
			return nil
		},
		Transport: &http.Transport{
			// resolved IPs are checked at connect time
			DialContext: dialCtx,
			// no proxy: a proxy would bypass the address checks
			Proxy:           nil,
			TLSClientConfig: config.TLSConfig,
		},
	}
}

func safeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no IP addresses found for %s", host)
	}

	for _, ip := range ips {
		if IsPrivateOrReservedIP(ip) {
			return nil, fmt.Errorf("DNS resolved to private/reserved IP address (%s -> %s); connection blocked", host, ip.String())
		}
	}

	dialer := &net.Dialer{Timeout: 30 * time.Second}
	return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
}
