// Package requestid assigns every HTTP request a correlation id, echoes it in
// the X-Request-ID response header and exposes it to the logger.
package requestid
