// Package trustproxy resolves what a request says about its own connection
// (TLS, protocol and client address) when the server runs behind proxies.
//
// Forwarded headers (X-Forwarded-Proto, X-Forwarded-For, X-Real-IP,
// CF-Connecting-IP) are only honoured when the immediate peer is in the
// trusted set. Middleware stores the resolution in the request context, where
// the session middleware reads it to decide whether a secure cookie may be sent.
//
//	res, err := trustproxy.New("loopback", "10.0.0.0/8")
//	if err != nil {
//	    return err
//	}
//	handler := res.Middleware(sessions.Middleware(mux))
package trustproxy
