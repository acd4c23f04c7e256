package storage

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

const (
	// maxSyncConcurrency bounds the number of files in flight during a
	// directory sync. Parts within one file stay sequential.
	maxSyncConcurrency = 10
)

// UploadTask is one file of a directory sync.
type UploadTask struct {
	LocalPath string
	RemoteKey string
}

// listUploadTasks walks root once and derives the task set. Directories
// are traversed, never uploaded; the tree is not expected to change
// during the sync.
func listUploadTasks(root, prefix string) ([]UploadTask, error) {
	var tasks []UploadTask

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		tasks = append(tasks, UploadTask{
			LocalPath: path,
			RemoteKey: prefix + "/" + filepath.ToSlash(rel),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return tasks, nil
}

// SyncDir uploads every regular file under root to bucket with keys
// prefix/<relative path>. At most maxSyncConcurrency files are in flight;
// the first failing upload fails the sync. Files are independent objects,
// so no relative ordering is guaranteed. Returns the number of files
// uploaded.
func (u *Uploader) SyncDir(ctx context.Context, bucket, prefix, root string) (int, error) {
	tasks, err := listUploadTasks(root, prefix)
	if err != nil {
		return 0, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxSyncConcurrency)

	for _, task := range tasks {
		g.Go(func() error {
			u.emit(ctx, fmt.Sprintf("Uploading file %s...", task.RemoteKey))
			return u.UploadFile(ctx, bucket, task.RemoteKey, task.LocalPath, true)
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	return len(tasks), nil
}
