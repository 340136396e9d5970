package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/novamart/novamart-dashboard/backend-go/internal/config"
	"github.com/novamart/novamart-dashboard/backend-go/internal/storage"
)

func pullFlags() []cli.Flag {
	return append(salesSeedFlags(),
		&cli.StringFlag{
			Name:    "storage-endpoint",
			Usage:   "Object storage endpoint",
			EnvVars: []string{"STORAGE_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "storage-access-key",
			Usage:   "Object storage access key",
			EnvVars: []string{"STORAGE_ACCESS_KEY"},
		},
		&cli.StringFlag{
			Name:    "storage-secret-key",
			Usage:   "Object storage secret key",
			EnvVars: []string{"STORAGE_SECRET_KEY"},
		},
		&cli.StringFlag{
			Name:    "storage-bucket",
			Usage:   "Bucket holding sales exports",
			Value:   "novamart-exports",
			EnvVars: []string{"STORAGE_BUCKET"},
		},
		&cli.StringFlag{
			Name:    "storage-region",
			Usage:   "Object storage region",
			Value:   "us-east-1",
			EnvVars: []string{"STORAGE_REGION"},
		},
		&cli.BoolFlag{
			Name:    "storage-use-ssl",
			Usage:   "Use TLS when talking to object storage",
			Value:   true,
			EnvVars: []string{"STORAGE_USE_SSL"},
		},
		&cli.StringFlag{
			Name:    "exports-prefix",
			Usage:   "Object key prefix to pull exports from",
			Value:   "exports/",
			EnvVars: []string{"STORAGE_EXPORTS_PREFIX"},
		},
		&cli.StringFlag{
			Name:    "exports-file",
			Usage:   "Pull a single object instead of the whole prefix",
			EnvVars: []string{"STORAGE_EXPORTS_FILE"},
		},
	)
}

// runPull mirrors the exports prefix from object storage into --sales-dir,
// then seeds the downloaded files through the regular sales path.
func runPull(c *cli.Context) error {
	puller, err := newExportPuller(c)
	if err != nil {
		return err
	}

	paths, err := puller.downloadExports(c.Context, c.String("exports-prefix"), c.String("exports-file"))
	if err != nil {
		return err
	}
	log.Printf("Downloaded %d export file(s) to %s", len(paths), puller.destDir)

	return SeedSalesData(c)
}

type exportPuller struct {
	client  storage.ObjectStorage
	destDir string
}

func newExportPuller(c *cli.Context) (*exportPuller, error) {
	cfg := config.StorageConfig{
		Endpoint:  c.String("storage-endpoint"),
		AccessKey: c.String("storage-access-key"),
		SecretKey: c.String("storage-secret-key"),
		Bucket:    c.String("storage-bucket"),
		Region:    c.String("storage-region"),
		UseSSL:    c.Bool("storage-use-ssl"),
	}

	client, err := storage.NewMinioClient(cfg)
	if err != nil {
		return nil, err
	}

	destDir := c.String("sales-dir")
	if destDir == "" {
		destDir = "./data/seeds/sales"
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure download dir %s: %w", destDir, err)
	}

	return &exportPuller{client: client, destDir: destDir}, nil
}

func (p *exportPuller) downloadExports(ctx context.Context, prefix, override string) ([]string, error) {
	var exports []storage.ObjectInfo

	if override != "" {
		exports = []storage.ObjectInfo{{Key: resolveObjectKey(prefix, override)}}
	} else {
		listPrefix := strings.TrimSpace(prefix)
		objects, err := p.client.ListObjects(ctx, listPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects for prefix %s: %w", listPrefix, err)
		}
		for _, obj := range objects {
			ext := strings.ToLower(filepath.Ext(obj.Key))
			if ext == ".csv" || ext == ".xlsx" {
				exports = append(exports, obj)
			}
		}
		sort.Slice(exports, func(i, j int) bool {
			if exports[i].LastModified.Equal(exports[j].LastModified) {
				return exports[i].Key < exports[j].Key
			}
			return exports[i].LastModified.Before(exports[j].LastModified)
		})
	}

	if len(exports) == 0 {
		return nil, fmt.Errorf("no export files found for prefix %s", prefix)
	}

	localPaths := make([]string, 0, len(exports))
	for _, obj := range exports {
		localPath := filepath.Join(p.destDir, objectRelativePath(prefix, obj.Key))
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to prepare directory for %s: %w", localPath, err)
		}
		if err := p.client.DownloadObject(ctx, obj.Key, localPath); err != nil {
			return nil, err
		}
		if obj.LastModified.IsZero() {
			log.Printf("Pulled %s", obj.Key)
		} else {
			log.Printf("Pulled %s (exported %s)", obj.Key, obj.LastModified.Format("2006-01-02 15:04"))
		}
		localPaths = append(localPaths, localPath)
	}

	sort.Strings(localPaths)
	return localPaths, nil
}

func resolveObjectKey(prefix, override string) string {
	if override == "" {
		return strings.TrimSpace(prefix)
	}
	if prefix == "" {
		return strings.TrimPrefix(override, "/")
	}

	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	overrideTrimmed := strings.TrimPrefix(strings.TrimSpace(override), "/")

	if strings.HasPrefix(overrideTrimmed, prefixTrimmed) {
		return overrideTrimmed
	}
	return fmt.Sprintf("%s/%s", prefixTrimmed, overrideTrimmed)
}

func objectRelativePath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	rel := strings.TrimPrefix(key, prefixTrimmed+"/")
	if rel == "" {
		return filepath.Base(key)
	}
	return rel
}
