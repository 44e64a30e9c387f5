package bolt

import "time"

// Config describes an embedded bbolt session database.
type Config struct {
	Path   string `env:"BOLT_PATH" envDefault:"sessions.db"`
	Bucket string `env:"BOLT_BUCKET" envDefault:"sessions"`

	// OpenTimeout bounds the wait for the file lock.
	OpenTimeout time.Duration `env:"BOLT_OPEN_TIMEOUT" envDefault:"1s"`

	// CleanupInterval is how often expired records are swept. Zero disables the sweep.
	CleanupInterval time.Duration `env:"BOLT_CLEANUP_INTERVAL" envDefault:"10m"`
}
