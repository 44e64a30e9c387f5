// Package redis provides a Redis backed session store and the helpers to
// connect to Redis.
//
// Records are stored as JSON strings under a key prefix ("sess:" by
// default). Each key expires together with the session cookie; records
// without a cookie expiry live for DefaultTTL. Touch only runs EXPIRE, so
// unchanged sessions cost a single round trip.
//
// # Usage
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	store := redis.NewStoreFromConfig(client, cfg)
//	defer store.Close()
//
//	sessions, err := session.New(
//	    session.WithSecrets(secret),
//	    session.WithStore(store),
//	)
//
// # Readiness
//
// With a positive HealthcheckInterval the store pings Redis in the
// background. When the ping fails the store reports not ready, its methods
// return session.ErrStoreUnavailable and the session middleware lets
// requests through without a session until Redis answers again.
//
// # Errors
//
// Connection problems are reported as ErrFailedToParseRedisConnString or
// ErrRedisNotReady joined with the driver error. Records that cannot be
// decoded yield ErrCorruptRecord.
package redis
