package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"

	"github.com/mediaforge/transcoded/internal/progress"
)

const (
	// DownloadWindow is the size of one ranged GET.
	DownloadWindow = int64(10 * 1024 * 1024)

	downloadLogInterval = time.Second
)

// byteRange is the window reported by one Content-Range response. Length
// is the total remote object size, known only after the first response.
type byteRange struct {
	start  int64
	end    int64
	length int64
}

// complete reports whether this was the final window of the object.
func (r byteRange) complete() bool {
	return r.length >= 0 && r.end == r.length-1
}

// parseContentRange parses "bytes start-end/total".
func parseContentRange(header string) (byteRange, error) {
	val := strings.TrimPrefix(strings.TrimSpace(header), "bytes ")

	rangePart, totalPart, ok := strings.Cut(val, "/")
	if !ok {
		return byteRange{}, fmt.Errorf("malformed content-range %q", header)
	}

	startPart, endPart, ok := strings.Cut(rangePart, "-")
	if !ok {
		return byteRange{}, fmt.Errorf("malformed content-range %q", header)
	}

	start, err := strconv.ParseInt(startPart, 10, 64)
	if err != nil {
		return byteRange{}, fmt.Errorf("malformed content-range %q: %w", header, err)
	}
	end, err := strconv.ParseInt(endPart, 10, 64)
	if err != nil {
		return byteRange{}, fmt.Errorf("malformed content-range %q: %w", header, err)
	}
	length, err := strconv.ParseInt(totalPart, 10, 64)
	if err != nil {
		return byteRange{}, fmt.Errorf("malformed content-range %q: %w", header, err)
	}

	if end < start {
		return byteRange{}, fmt.Errorf("inverted content-range %q", header)
	}

	return byteRange{start: start, end: end, length: length}, nil
}

// Downloader fetches one remote object in fixed-size windows, appending
// them in order to a local file. Windows are strictly sequential: the next
// offset and the completion check both come from the previous response.
// A Downloader is single-use and owned by one job.
type Downloader struct {
	api      s3API
	window   int64
	log      LogFunc
	throttle progress.Throttle

	// sticky: once the final window landed, late throttle callbacks must
	// not emit another terminal line
	completed bool
}

// Download fetches bucket/key into dst. Any transport error aborts the
// whole download; the caller deletes and retries from scratch.
func (d *Downloader) Download(ctx context.Context, bucket, key, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	d.completed = false
	d.throttle = progress.Throttle{Interval: downloadLogInterval}

	state := byteRange{start: 0, end: -1, length: -1}

	for !state.complete() {
		start := state.end + 1
		end := start + d.window - 1
		if state.length >= 0 && end > state.length-1 {
			end = state.length - 1
		}

		resp, err := d.api.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
		})
		if err != nil {
			return fmt.Errorf("get range %d-%d of %s: %w", start, end, key, asNotFound(err))
		}

		if resp.Body == nil || resp.ContentRange == nil {
			return fmt.Errorf("get range %d-%d of %s: %w", start, end, key, ErrObjectNotFound)
		}

		d.emitProgress(ctx, start, end)

		if _, err := io.Copy(out, resp.Body); err != nil {
			resp.Body.Close()
			return fmt.Errorf("write %s: %w", dst, err)
		}
		resp.Body.Close()

		state, err = parseContentRange(aws.ToString(resp.ContentRange))
		if err != nil {
			return err
		}
	}

	d.completed = true
	if d.log != nil {
		d.log(ctx, "Download of the source file completed successfully")
	}

	if err := out.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", dst, err)
	}

	return nil
}

func (d *Downloader) emitProgress(ctx context.Context, start, end int64) {
	if d.log == nil || d.completed || !d.throttle.Allow() {
		return
	}

	d.log(ctx, fmt.Sprintf("Downloading %s to %s of the source file...",
		humanize.Bytes(uint64(start)), humanize.Bytes(uint64(end))))
}
