package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
	"github.com/Lawliet-Chan/offchain-storage/pkg/events"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/content"
)

func TestCreateMetadataStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  MetadataConfig
	}{
		{"memory", MetadataConfig{Type: "memory", Memory: map[string]any{"max_records": 10}}},
		{"badger", MetadataConfig{Type: "badger", Badger: map[string]any{"db_path": filepath.Join(dir, "badger")}}},
		{"badger in memory", MetadataConfig{Type: "badger", Badger: map[string]any{"in_memory": true}}},
		{"sqlite", MetadataConfig{Type: "sqlite", SQLite: map[string]any{"path": filepath.Join(dir, "meta.db")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := CreateMetadataStore(ctx, &tt.cfg)
			if err != nil {
				t.Fatalf("CreateMetadataStore failed: %v", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.Insert(ctx, "k", access.Record{Author: "alice", Access: access.Read}); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
			if err := store.Healthcheck(ctx); err != nil {
				t.Errorf("Healthcheck failed: %v", err)
			}
		})
	}
}

func TestCreateMetadataStore_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  MetadataConfig
	}{
		{"unknown type", MetadataConfig{Type: "etcd"}},
		{"badger without path", MetadataConfig{Type: "badger", Badger: map[string]any{}}},
		{"sqlite without path", MetadataConfig{Type: "sqlite", SQLite: map[string]any{}}},
		{"bad option type", MetadataConfig{Type: "memory", Memory: map[string]any{"max_records": "lots"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CreateMetadataStore(ctx, &tt.cfg); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestCreateContentStore(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  ContentConfig
	}{
		{"memory", ContentConfig{Type: "memory"}},
		{"filesystem", ContentConfig{Type: "filesystem", Filesystem: map[string]any{"path": t.TempDir(), "file_mode": 0600}}},
		{"http", ContentConfig{Type: "http", HTTP: map[string]any{"endpoint": "http://127.0.0.1:1/objects", "timeout": "2s"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := CreateContentStore(ctx, &tt.cfg)
			if err != nil {
				t.Fatalf("CreateContentStore failed: %v", err)
			}
			_ = store.Close()
		})
	}
}

func TestCreateContentStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := ContentConfig{Type: "filesystem", Filesystem: map[string]any{"path": t.TempDir()}}

	store, err := CreateContentStore(ctx, &cfg)
	if err != nil {
		t.Fatalf("CreateContentStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Set(ctx, "a/b", []byte("payload")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	data, err := store.Get(ctx, "a/b")
	if err != nil || string(data) != "payload" {
		t.Fatalf("Get returned %q, %v", data, err)
	}

	// Metrics are disabled in tests so the store is not wrapped
	if _, ok := store.(*content.InstrumentedStore); ok {
		t.Error("Expected an unwrapped store with metrics disabled")
	}
}

func TestCreateContentStore_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  ContentConfig
	}{
		{"unknown type", ContentConfig{Type: "ftp"}},
		{"filesystem without path", ContentConfig{Type: "filesystem", Filesystem: map[string]any{}}},
		{"http without endpoint", ContentConfig{Type: "http", HTTP: map[string]any{}}},
		{"http bad scheme", ContentConfig{Type: "http", HTTP: map[string]any{"endpoint": "ftp://x"}}},
		{"s3 without bucket", ContentConfig{Type: "s3", S3: map[string]any{"region": "us-east-1"}}},
		{"s3 without region", ContentConfig{Type: "s3", S3: map[string]any{"bucket": "b"}}},
		{"s3 bad key encoding", ContentConfig{Type: "s3", S3: map[string]any{"bucket": "b", "region": "us-east-1", "key_encoding": "rot13"}}},
		{"redis without addr", ContentConfig{Type: "redis", Redis: map[string]any{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CreateContentStore(ctx, &tt.cfg); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestCreatePolicy(t *testing.T) {
	yes := true

	tests := []struct {
		name    string
		cfg     PolicyConfig
		want    access.Policy
		wantErr bool
	}{
		{
			name: "strict",
			cfg:  PolicyConfig{Mode: "strict", DefaultAccess: "read"},
			want: access.StrictPolicy(),
		},
		{
			name: "compat with overrides",
			cfg:  PolicyConfig{Mode: "compat", CreateOnWrite: &yes, DefaultAccess: "avoid"},
			want: func() access.Policy {
				p := access.CompatPolicy()
				p.CreateOnWrite = true
				p.DefaultAccess = access.Avoid
				return p
			}(),
		},
		{name: "unknown mode", cfg: PolicyConfig{Mode: "open"}, wantErr: true},
		{name: "unknown level", cfg: PolicyConfig{Mode: "strict", DefaultAccess: "admin"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CreatePolicy(&tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreatePolicy failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCreateNotifier(t *testing.T) {
	res, err := CreateNotifier(&NotificationsConfig{Type: "log"})
	if err != nil {
		t.Fatalf("CreateNotifier failed: %v", err)
	}
	if _, ok := res.Notifier.(events.LogNotifier); !ok || res.Queue != nil {
		t.Errorf("Expected LogNotifier without queue, got %T", res.Notifier)
	}

	res, err = CreateNotifier(&NotificationsConfig{Type: "queue", QueueSize: 2})
	if err != nil {
		t.Fatalf("CreateNotifier failed: %v", err)
	}
	if res.Queue == nil {
		t.Fatal("Expected a queue")
	}
	_ = res.Queue.Close()

	res, err = CreateNotifier(&NotificationsConfig{Type: "none"})
	if err != nil {
		t.Fatalf("CreateNotifier failed: %v", err)
	}
	if _, ok := res.Notifier.(events.Noop); !ok {
		t.Errorf("Expected Noop, got %T", res.Notifier)
	}

	if _, err := CreateNotifier(&NotificationsConfig{Type: "kafka"}); err == nil {
		t.Error("Expected error for unknown type")
	}
}

func TestCreateAdapters(t *testing.T) {
	cfg := GetDefaultConfig()

	adapters, err := CreateAdapters(cfg, nil)
	if err != nil {
		t.Fatalf("CreateAdapters failed: %v", err)
	}
	if len(adapters) != 1 || adapters[0].Protocol() != "HTTP" || adapters[0].Port() != 8080 {
		t.Fatalf("Unexpected adapters: %v", adapters)
	}

	cfg.Adapters.HTTP.Enabled = false
	if _, err := CreateAdapters(cfg, nil); err == nil {
		t.Error("Expected error with no adapters enabled")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	res := InitializeMetrics(GetDefaultConfig())
	if res.Server != nil {
		t.Error("Expected no metrics server when disabled")
	}
	if res.Gateway == nil || res.HTTP == nil {
		t.Error("Expected no-op collectors when disabled")
	}
}
