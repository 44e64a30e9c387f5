// Package bolt provides a session store backed by an embedded bbolt
// database. It suits single-instance deployments that need sessions to
// survive restarts without running a separate server.
//
// Records live in one bucket. Every value carries its expiry in front of
// the JSON record, so reads and sweeps can skip expired sessions without
// decoding them.
//
//	store, err := bolt.Open(bolt.Config{Path: "sessions.db", Bucket: "sessions", CleanupInterval: 10 * time.Minute})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
package bolt
