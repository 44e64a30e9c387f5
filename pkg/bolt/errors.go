package bolt

import "errors"

var (
	ErrOpenFailed    = errors.New("bolt.open_failed")
	ErrEmptyBucket   = errors.New("bolt.empty_bucket_name")
	ErrCorruptRecord = errors.New("bolt.corrupt_record")
)
