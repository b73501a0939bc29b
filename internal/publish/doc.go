// Package publish uploads a production build to S3.
//
//	client, err := publish.NewClient(ctx, cfg.Publish.Region)
//	if err != nil {
//	    return err
//	}
//	up, err := publish.NewUploader(client, cfg.Publish, publish.Options{})
//	if err != nil {
//	    return err
//	}
//	n, err := up.Upload(ctx, cfg.OutputDir())
//
// Objects are keyed by their slash-separated path below the build
// directory, joined to the configured prefix. HTML documents and the
// asset manifest are sent with Cache-Control: no-cache so that a new
// deployment is picked up immediately.
package publish
