// Package health serves a single application/health+json endpoint for a
// host service.
//
// A caller supplies a [Check]. Each request that targets the configured
// path runs the check (racing [Options.Timeout] when set), maps its
// [Outcome] to pass, warn or fail with [Classify], and answers with
// 200 or 500 and a small JSON body:
//
//	ep, err := health.Start(ctx, func(ctx context.Context) (health.Outcome, error) {
//		if err := db.PingContext(ctx); err != nil {
//			return nil, err
//		}
//		return health.Pass, nil
//	}, health.Options{ServiceID: health.Str("orders"), Timeout: 200 * time.Millisecond})
//	if err != nil {
//		return err
//	}
//	defer ep.Close(context.Background())
//
// Requests for any other target get an empty 404. Every [Endpoint] owns its
// own listener, so several can run side by side in one process.
package health
