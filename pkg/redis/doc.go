// Package redis connects the engine's Redis event mirror.
//
// Connect dials with retries so the process tolerates a Redis instance
// that comes up after it does, and Healthcheck plugs the connection into
// readiness probes. Config fields map to environment variables via
// github.com/caarlos0/env.
//
//	cfg := redis.Config{ConnectionURL: "redis://localhost:6379/0"}
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	bridge := notisync.NewRedisBridge(client, "notifications.events")
//	detach := bridge.Attach(engine)
//	defer detach()
package redis
