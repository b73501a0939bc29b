package publish

import (
	"bytes"
	"context"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/alvori-dev/alvori/internal/build"
	"github.com/alvori-dev/alvori/internal/config"
	"github.com/alvori-dev/alvori/internal/errors"
)

// DefaultConcurrency is the number of parallel uploads.
const DefaultConcurrency = 8

// PutObjectAPI is the subset of the S3 client used by the Uploader.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures an Uploader.
type Options struct {
	// Concurrency bounds parallel uploads. Defaults to DefaultConcurrency.
	Concurrency int

	// Logger receives one debug record per object.
	Logger *slog.Logger
}

// Uploader copies a build directory to an S3 bucket.
type Uploader struct {
	client      PutObjectAPI
	bucket      string
	prefix      string
	concurrency int
	logger      *slog.Logger
}

// NewClient returns an S3 client from the default AWS configuration
// chain. An empty region keeps the region of the environment.
func NewClient(ctx context.Context, region string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.New("E140").WithDetail("loading AWS configuration").Wrap(err)
	}
	return s3.NewFromConfig(cfg), nil
}

// NewUploader creates an Uploader for the bucket and prefix in cfg.
func NewUploader(client PutObjectAPI, cfg config.PublishConfig, opts Options) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("E140").
			WithDetail("no bucket configured").
			WithSuggestion(`Set "publish": {"bucket": "..."} in alvori.json`)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Uploader{
		client:      client,
		bucket:      cfg.Bucket,
		prefix:      strings.Trim(cfg.Prefix, "/"),
		concurrency: opts.Concurrency,
		logger:      opts.Logger.With("component", "publish", "bucket", cfg.Bucket),
	}, nil
}

// Upload uploads every regular file below dir and returns the number of
// objects written. The first failure cancels the remaining uploads.
func (u *Uploader) Upload(ctx context.Context, dir string) (int, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return 0, errors.New("E140").WithDetail("reading " + dir).Wrap(err)
	}

	var uploaded atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for _, p := range files {
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return 0, errors.New("E140").Wrap(err)
		}
		key := u.Key(filepath.ToSlash(rel))
		p := p
		g.Go(func() error {
			if err := u.put(ctx, p, key); err != nil {
				return errors.New("E140").WithDetail(key).Wrap(err)
			}
			uploaded.Add(1)
			return nil
		})
	}
	err = g.Wait()
	return int(uploaded.Load()), err
}

// Key returns the object key of a slash-separated path below the build
// directory.
func (u *Uploader) Key(rel string) string {
	if u.prefix == "" {
		return rel
	}
	return path.Join(u.prefix, rel)
}

func (u *Uploader) put(ctx context.Context, file, key string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType(key)),
	}
	if cc := cacheControl(key); cc != "" {
		input.CacheControl = aws.String(cc)
	}
	if _, err := u.client.PutObject(ctx, input); err != nil {
		return err
	}
	u.logger.Debug("uploaded", "key", key, "bytes", len(data))
	return nil
}

// ContentType returns the MIME type of name by extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func cacheControl(key string) string {
	if strings.HasSuffix(key, ".html") || path.Base(key) == build.ManifestFile {
		return "no-cache"
	}
	return ""
}
