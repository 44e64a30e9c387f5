package trustproxy

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Info is what a request says about its connection once proxy trust is applied.
type Info struct {
	// Secure reports whether the client connection used TLS.
	Secure bool
	// Proto is "https" or "http".
	Proto string
	// ClientIP is the address of the client, empty when it cannot be parsed.
	ClientIP string
	// Trusted reports whether the immediate peer is a trusted proxy.
	Trusted bool
}

// Resolver decides which peers may speak for the client through forwarded headers.
type Resolver struct {
	trusted []netip.Prefix
}

// New builds a resolver trusting the given CIDRs or single addresses.
// The keywords "loopback" and "private" expand to the matching ranges.
func New(trusted ...string) (*Resolver, error) {
	res := &Resolver{}
	for _, raw := range trusted {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		switch raw {
		case "loopback":
			res.trusted = append(res.trusted, loopback...)
			continue
		case "private":
			res.trusted = append(res.trusted, private...)
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, raw)
			}
			res.trusted = append(res.trusted, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, raw)
		}
		addr = addr.Unmap()
		res.trusted = append(res.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return res, nil
}

// NewFromConfig builds a resolver from cfg.
func NewFromConfig(cfg Config) (*Resolver, error) {
	return New(cfg.TrustedProxies...)
}

var (
	loopback = []netip.Prefix{
		netip.MustParsePrefix("127.0.0.0/8"),
		netip.MustParsePrefix("::1/128"),
	}
	private = []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("172.16.0.0/12"),
		netip.MustParsePrefix("192.168.0.0/16"),
		netip.MustParsePrefix("fc00::/7"),
	}
)

// IsTrusted reports whether addr belongs to a trusted proxy.
func (res *Resolver) IsTrusted(addr string) bool {
	ip, err := netip.ParseAddr(strings.TrimSpace(addr))
	if err != nil {
		return false
	}
	ip = ip.Unmap()
	for _, p := range res.trusted {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

// Resolve inspects r. Forwarded headers are only honoured when the peer is trusted.
func (res *Resolver) Resolve(r *http.Request) Info {
	peer := peerIP(r)
	info := Info{Proto: "http", ClientIP: peer}
	info.Trusted = peer != "" && res.IsTrusted(peer)

	switch {
	case r.TLS != nil:
		info.Secure = true
	case info.Trusted:
		info.Secure = ForwardedProto(r) == "https"
	}
	if info.Secure {
		info.Proto = "https"
	}

	if info.Trusted {
		if ip := res.forwardedClient(r); ip != "" {
			info.ClientIP = ip
		}
	}
	return info
}

// forwardedClient walks X-Forwarded-For from the right, skipping trusted hops.
// CF-Connecting-IP and X-Real-IP are used when the chain is absent.
func (res *Resolver) forwardedClient(r *http.Request) string {
	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := parseIP(hops[i])
			if ip == "" {
				return ""
			}
			if !res.IsTrusted(ip) {
				return ip
			}
		}
		return ""
	}
	for _, h := range []string{"CF-Connecting-IP", "X-Real-IP"} {
		if ip := parseIP(r.Header.Get(h)); ip != "" {
			return ip
		}
	}
	return ""
}

// ForwardedProto returns the first X-Forwarded-Proto value, lower-cased.
func ForwardedProto(r *http.Request) string {
	v := r.Header.Get("X-Forwarded-Proto")
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.ToLower(strings.TrimSpace(v))
}

// IsSecure reports whether r reached the server over TLS, using the
// resolution stored by Middleware when present.
func IsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	info, ok := FromContext(r.Context())
	return ok && info.Secure
}

func peerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

// parseIP validates and normalizes an IP address string.
// Returns empty string if the IP is invalid.
func parseIP(s string) string {
	ip, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return ip.Unmap().String()
}
