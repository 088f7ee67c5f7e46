package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/Lawliet-Chan/offchain-storage/internal/logger"
	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
	"github.com/Lawliet-Chan/offchain-storage/pkg/events"
	"github.com/Lawliet-Chan/offchain-storage/pkg/metrics"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/content"
	contentfs "github.com/Lawliet-Chan/offchain-storage/pkg/store/content/fs"
	contenthttp "github.com/Lawliet-Chan/offchain-storage/pkg/store/content/http"
	contentmemory "github.com/Lawliet-Chan/offchain-storage/pkg/store/content/memory"
	contentredis "github.com/Lawliet-Chan/offchain-storage/pkg/store/content/redis"
	contents3 "github.com/Lawliet-Chan/offchain-storage/pkg/store/content/s3"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata/badger"
	metadatamemory "github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata/memory"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata/sqlite"
)

// decode decodes a type-specific options map into out, converting duration
// strings ("30s") and numeric file modes along the way.
func decode(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(options)
}

// CreateMetadataStore creates a metadata store based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": In-memory storage (ephemeral)
//   - "badger": BadgerDB storage (persistent)
//   - "sqlite": SQLite storage (persistent, single file)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Metadata store configuration
//
// Returns:
//   - metadata.Store: Initialized metadata store
//   - error: Configuration or initialization error
func CreateMetadataStore(ctx context.Context, cfg *MetadataConfig) (metadata.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "memory":
		var storeCfg metadatamemory.MemoryMetadataStoreConfig
		if err := decode(cfg.Memory, &storeCfg); err != nil {
			return nil, fmt.Errorf("failed to decode memory metadata store config: %w", err)
		}
		return metadatamemory.NewMemoryMetadataStore(storeCfg), nil

	case "badger":
		var storeCfg badger.BadgerMetadataStoreConfig
		if err := decode(cfg.Badger, &storeCfg); err != nil {
			return nil, fmt.Errorf("failed to decode badger metadata store config: %w", err)
		}
		if storeCfg.DBPath == "" && !storeCfg.InMemory {
			return nil, fmt.Errorf("badger metadata store: db_path is required")
		}
		store, err := badger.NewBadgerMetadataStore(ctx, storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create badger metadata store: %w", err)
		}
		return store, nil

	case "sqlite":
		var storeCfg sqlite.SQLiteMetadataStoreConfig
		if err := decode(cfg.SQLite, &storeCfg); err != nil {
			return nil, fmt.Errorf("failed to decode sqlite metadata store config: %w", err)
		}
		if storeCfg.Path == "" {
			return nil, fmt.Errorf("sqlite metadata store: path is required")
		}
		store, err := sqlite.Open(ctx, storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite metadata store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown metadata store type: %q (supported: memory, badger, sqlite)", cfg.Type)
	}
}

// CreateContentStore creates a content store based on configuration and
// wraps it with backend metrics when metrics are enabled.
//
// Supported types:
//   - "memory": In-memory storage (ephemeral)
//   - "filesystem": Local directory, identifiers are relative paths
//   - "http": Remote HTTP object endpoint
//   - "s3": Amazon S3 or compatible storage
//   - "redis": Redis strings
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Content store configuration
//
// Returns:
//   - content.Store: Initialized content store
//   - error: Configuration or initialization error
func CreateContentStore(ctx context.Context, cfg *ContentConfig) (content.Store, error) {
	store, err := createContentStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return content.Instrumented(store, metrics.NewContentMetrics(cfg.Type)), nil
}

func createContentStore(ctx context.Context, cfg *ContentConfig) (content.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "memory":
		return contentmemory.NewMemoryContentStore(), nil
	case "filesystem":
		return createFilesystemContentStore(ctx, cfg.Filesystem)
	case "http":
		return createHTTPContentStore(cfg.HTTP)
	case "s3":
		return createS3ContentStore(ctx, cfg.S3)
	case "redis":
		return createRedisContentStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown content store type: %q", cfg.Type)
	}
}

// createFilesystemContentStore creates a filesystem-based content store.
func createFilesystemContentStore(ctx context.Context, options map[string]any) (content.Store, error) {
	var storeCfg contentfs.FSContentStoreConfig
	if err := decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem content store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem content store: path is required")
	}

	store, err := contentfs.NewFSContentStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem content store: %w", err)
	}
	return store, nil
}

func createHTTPContentStore(options map[string]any) (content.Store, error) {
	var storeCfg contenthttp.HTTPContentStoreConfig
	if err := decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode http content store config: %w", err)
	}

	if storeCfg.Endpoint == "" {
		return nil, fmt.Errorf("http content store: endpoint is required")
	}

	store, err := contenthttp.NewHTTPContentStore(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create http content store: %w", err)
	}
	return store, nil
}

// createS3ContentStore creates an S3-based content store.
func createS3ContentStore(ctx context.Context, options map[string]any) (content.Store, error) {
	type S3ContentStoreOptions struct {
		contents3.S3ClientConfig `mapstructure:",squash"`

		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		KeyEncoding     string `mapstructure:"key_encoding"`
		SkipBucketCheck bool   `mapstructure:"skip_bucket_check"`
	}

	var storeOpts S3ContentStoreOptions
	if err := decode(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode S3 content store config: %w", err)
	}

	if storeOpts.Bucket == "" {
		return nil, fmt.Errorf("S3 content store: bucket is required")
	}
	if storeOpts.Region == "" {
		return nil, fmt.Errorf("S3 content store: region is required")
	}

	encoding := content.KeyRaw
	if storeOpts.KeyEncoding != "" {
		parsed, err := content.ParseKeyEncoding(storeOpts.KeyEncoding)
		if err != nil {
			return nil, fmt.Errorf("S3 content store: %w", err)
		}
		encoding = parsed
	}

	// ========================================================================
	// Step 1: Build the S3 client
	// ========================================================================

	client, err := contents3.NewS3ClientFromConfig(ctx, storeOpts.S3ClientConfig)
	if err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Create the S3 content store
	// ========================================================================

	store, err := contents3.NewS3ContentStore(ctx, contents3.S3ContentStoreConfig{
		Client:          client,
		Bucket:          storeOpts.Bucket,
		KeyPrefix:       storeOpts.KeyPrefix,
		KeyEncoding:     encoding,
		SkipBucketCheck: storeOpts.SkipBucketCheck,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 content store: %w", err)
	}

	logger.Info("S3 content store initialized: bucket=%s, region=%s, prefix=%s",
		storeOpts.Bucket, storeOpts.Region, storeOpts.KeyPrefix)

	return store, nil
}

func createRedisContentStore(ctx context.Context, options map[string]any) (content.Store, error) {
	var storeCfg contentredis.RedisContentStoreConfig
	if err := decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode redis content store config: %w", err)
	}

	if storeCfg.Addr == "" {
		return nil, fmt.Errorf("redis content store: addr is required")
	}

	store, err := contentredis.NewRedisContentStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis content store: %w", err)
	}
	return store, nil
}

// CreatePolicy builds the access policy from configuration.
func CreatePolicy(cfg *PolicyConfig) (access.Policy, error) {
	policy, err := access.PolicyByName(cfg.Mode)
	if err != nil {
		return access.Policy{}, err
	}

	if cfg.CreateOnWrite != nil {
		policy.CreateOnWrite = *cfg.CreateOnWrite
	}

	if cfg.DefaultAccess != "" {
		level, err := access.ParseLevel(cfg.DefaultAccess)
		if err != nil {
			return access.Policy{}, err
		}
		policy.DefaultAccess = level
	}

	if err := policy.Validate(); err != nil {
		return access.Policy{}, err
	}
	return policy, nil
}

// NotifierResult is the configured notification sink.
type NotifierResult struct {
	// Notifier is handed to the gateway (never nil)
	Notifier events.Notifier

	// Queue is set for type "queue"; the caller must run Queue.Forward and
	// close it on shutdown
	Queue *events.Queue
}

// CreateNotifier builds the DataRetrieved sink from configuration.
func CreateNotifier(cfg *NotificationsConfig) (*NotifierResult, error) {
	switch cfg.Type {
	case "log":
		return &NotifierResult{Notifier: events.LogNotifier{}}, nil
	case "queue":
		q := events.NewQueue(cfg.QueueSize, cfg.Block)
		return &NotifierResult{Notifier: q, Queue: q}, nil
	case "none":
		return &NotifierResult{Notifier: events.Noop{}}, nil
	default:
		return nil, fmt.Errorf("unknown notifications type: %q (supported: log, queue, none)", cfg.Type)
	}
}
