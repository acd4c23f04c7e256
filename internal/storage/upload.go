package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dustin/go-humanize"
)

const (
	// UploadPartSize is both the multipart threshold and the part size.
	// S3 requires at least 5 MiB per part except the last.
	UploadPartSize = int64(50 * 1024 * 1024)
)

// partSpan is the byte sub-range of one multipart part. Numbers are
// 1-based and contiguous; the remote service rejects gaps.
type partSpan struct {
	number int32
	offset int64
	size   int64
}

// partSpans splits fileSize into ceil(fileSize/partSize) spans. A size
// that is an exact multiple yields a full-size last part, never a
// zero-byte trailer.
func partSpans(fileSize, partSize int64) []partSpan {
	if fileSize <= 0 || partSize <= 0 {
		return nil
	}

	numParts := (fileSize + partSize - 1) / partSize
	spans := make([]partSpan, 0, numParts)

	for i := int64(0); i < numParts; i++ {
		offset := i * partSize
		size := min(partSize, fileSize-offset)
		spans = append(spans, partSpan{
			number: int32(i + 1),
			offset: offset,
			size:   size,
		})
	}

	return spans
}

// Uploader publishes local files as remote objects, switching to a
// multipart session above the part-size threshold.
type Uploader struct {
	api      s3API
	partSize int64
	log      LogFunc
}

// UploadFile uploads path as bucket/key. Files at or under the threshold
// go up as one PUT; larger files as sequential multipart parts. Any part
// failure aborts the whole file and the multipart session.
func (u *Uploader) UploadFile(ctx context.Context, bucket, key, path string, public bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if info.Size() <= u.partSize {
		return u.putObject(ctx, bucket, key, path, info.Size(), public)
	}

	return u.uploadMultipart(ctx, bucket, key, path, info.Size(), public)
}

func (u *Uploader) putObject(ctx context.Context, bucket, key, path string, size int64, public bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	_, err = u.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(size),
		ACL:           cannedACL(public),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	return nil
}

func (u *Uploader) uploadMultipart(ctx context.Context, bucket, key, path string, size int64, public bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	created, err := u.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		ACL:    cannedACL(public),
	})
	if err != nil {
		return fmt.Errorf("create multipart upload for %s: %w", key, err)
	}
	uploadID := aws.ToString(created.UploadId)

	spans := partSpans(size, u.partSize)

	u.emit(ctx, fmt.Sprintf("Uploading file %s in %d parts of %s...",
		key, len(spans), humanize.Bytes(uint64(u.partSize))))

	completed := make([]types.CompletedPart, 0, len(spans))
	for _, span := range spans {
		part, err := u.api.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:        aws.String(bucket),
			Key:           aws.String(key),
			UploadId:      aws.String(uploadID),
			PartNumber:    aws.Int32(span.number),
			Body:          io.NewSectionReader(file, span.offset, span.size),
			ContentLength: aws.Int64(span.size),
		})
		if err != nil {
			u.abort(ctx, bucket, key, uploadID)
			return fmt.Errorf("upload part %d of %s: %w", span.number, key, err)
		}

		completed = append(completed, types.CompletedPart{
			PartNumber: aws.Int32(span.number),
			ETag:       part.ETag,
		})

		u.emit(ctx, fmt.Sprintf("Part #%d of file %s uploaded successfully", span.number, key))
	}

	u.emit(ctx, fmt.Sprintf("Completing multipart upload for file %s...", key))

	_, err = u.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		u.abort(ctx, bucket, key, uploadID)
		return fmt.Errorf("complete multipart upload for %s: %w", key, err)
	}

	u.emit(ctx, fmt.Sprintf("Multipart upload for file %s completed successfully", key))

	return nil
}

// abort garbage-collects the multipart session after a failed part so the
// bucket does not accumulate dangling sessions.
func (u *Uploader) abort(ctx context.Context, bucket, key, uploadID string) {
	_, err := u.api.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		slog.Warn("abort multipart upload failed", "key", key, "uploadId", uploadID, "error", err)
	}
}

func (u *Uploader) emit(ctx context.Context, content string) {
	if u.log != nil {
		u.log(ctx, content)
	}
}

func cannedACL(public bool) types.ObjectCannedACL {
	if public {
		return types.ObjectCannedACLPublicRead
	}
	return types.ObjectCannedACLPrivate
}
