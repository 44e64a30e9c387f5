// Package mongo provides a MongoDB session store on the official v2 driver
// and the helpers to connect to the server.
//
// Each session is one document:
//
//	{_id: <session id>, session: <JSON record>, expires: <date>}
//
// NewStore creates a TTL index on expires, so the server removes expired
// sessions on its own. Sessions without a cookie expiry have no expires
// field and are kept until destroyed.
//
//	client, err := mongo.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Disconnect(ctx)
//
//	store, err := mongo.NewStoreFromConfig(ctx, client, cfg)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
package mongo
