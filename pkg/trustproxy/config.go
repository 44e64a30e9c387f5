package trustproxy

// Config lists the proxies allowed to set forwarded headers.
type Config struct {
	// TrustedProxies holds CIDRs, single addresses or the keywords "loopback" and "private".
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," envDefault:"loopback"`
}
