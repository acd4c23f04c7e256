package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartSpans(t *testing.T) {
	mib := int64(1024 * 1024)

	t.Run("uneven tail", func(t *testing.T) {
		spans := partSpans(120*mib, 50*mib)
		require.Len(t, spans, 3)
		assert.Equal(t, partSpan{number: 1, offset: 0, size: 50 * mib}, spans[0])
		assert.Equal(t, partSpan{number: 2, offset: 50 * mib, size: 50 * mib}, spans[1])
		assert.Equal(t, partSpan{number: 3, offset: 100 * mib, size: 20 * mib}, spans[2])
	})

	t.Run("exact multiple has no empty trailer", func(t *testing.T) {
		spans := partSpans(100*mib, 50*mib)
		require.Len(t, spans, 2)
		assert.Equal(t, int64(50*mib), spans[1].size)
	})

	t.Run("degenerate sizes", func(t *testing.T) {
		assert.Nil(t, partSpans(0, 50*mib))
		assert.Nil(t, partSpans(100, 0))
	})
}

func writeTemp(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload")
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestUploadFileSmallUsesSinglePut(t *testing.T) {
	var puts int
	api := &fakeS3{
		putObject: func(ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
			puts++
			assert.Equal(t, "bucket", aws.ToString(in.Bucket))
			assert.Equal(t, "dir/file.mp4", aws.ToString(in.Key))
			assert.Equal(t, int64(100), aws.ToInt64(in.ContentLength))
			assert.Equal(t, types.ObjectCannedACLPublicRead, in.ACL)
			return &s3.PutObjectOutput{}, nil
		},
		createMultipartUpload: func(ctx context.Context, in *s3.CreateMultipartUploadInput) (*s3.CreateMultipartUploadOutput, error) {
			t.Fatal("multipart used below threshold")
			return nil, nil
		},
	}

	u := &Uploader{api: api, partSize: 100}
	err := u.UploadFile(context.Background(), "bucket", "dir/file.mp4", writeTemp(t, 100), true)
	require.NoError(t, err)
	assert.Equal(t, 1, puts)
}

func TestUploadFileMultipart(t *testing.T) {
	var partNumbers []int32
	var partSizes []int64
	var completedParts []types.CompletedPart
	var logs []string

	api := &fakeS3{
		createMultipartUpload: func(ctx context.Context, in *s3.CreateMultipartUploadInput) (*s3.CreateMultipartUploadOutput, error) {
			assert.Equal(t, types.ObjectCannedACLPrivate, in.ACL)
			return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-1")}, nil
		},
		uploadPart: func(ctx context.Context, in *s3.UploadPartInput) (*s3.UploadPartOutput, error) {
			assert.Equal(t, "upload-1", aws.ToString(in.UploadId))

			data, err := io.ReadAll(in.Body)
			require.NoError(t, err)
			partNumbers = append(partNumbers, aws.ToInt32(in.PartNumber))
			partSizes = append(partSizes, int64(len(data)))

			return &s3.UploadPartOutput{
				ETag: aws.String(fmt.Sprintf("etag-%d", aws.ToInt32(in.PartNumber))),
			}, nil
		},
		completeMultipartUpload: func(ctx context.Context, in *s3.CompleteMultipartUploadInput) (*s3.CompleteMultipartUploadOutput, error) {
			completedParts = in.MultipartUpload.Parts
			return &s3.CompleteMultipartUploadOutput{}, nil
		},
	}

	u := &Uploader{
		api:      api,
		partSize: 10,
		log:      func(ctx context.Context, content string) { logs = append(logs, content) },
	}

	// 25 bytes over 10-byte parts: 10, 10, 5
	err := u.UploadFile(context.Background(), "bucket", "big.mp4", writeTemp(t, 25), false)
	require.NoError(t, err)

	assert.Equal(t, []int32{1, 2, 3}, partNumbers)
	assert.Equal(t, []int64{10, 10, 5}, partSizes)

	require.Len(t, completedParts, 3)
	for i, part := range completedParts {
		assert.Equal(t, int32(i+1), aws.ToInt32(part.PartNumber))
		assert.Equal(t, fmt.Sprintf("etag-%d", i+1), aws.ToString(part.ETag))
	}

	assert.Contains(t, logs, "Part #2 of file big.mp4 uploaded successfully")
	assert.Contains(t, logs, "Multipart upload for file big.mp4 completed successfully")
}

func TestUploadFileMultipartAbortsOnPartFailure(t *testing.T) {
	var aborted bool
	boom := errors.New("connection reset")

	api := &fakeS3{
		createMultipartUpload: func(ctx context.Context, in *s3.CreateMultipartUploadInput) (*s3.CreateMultipartUploadOutput, error) {
			return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-2")}, nil
		},
		uploadPart: func(ctx context.Context, in *s3.UploadPartInput) (*s3.UploadPartOutput, error) {
			if aws.ToInt32(in.PartNumber) == 2 {
				return nil, boom
			}
			return &s3.UploadPartOutput{ETag: aws.String("etag")}, nil
		},
		abortMultipartUpload: func(ctx context.Context, in *s3.AbortMultipartUploadInput) (*s3.AbortMultipartUploadOutput, error) {
			aborted = true
			assert.Equal(t, "upload-2", aws.ToString(in.UploadId))
			return &s3.AbortMultipartUploadOutput{}, nil
		},
		completeMultipartUpload: func(ctx context.Context, in *s3.CompleteMultipartUploadInput) (*s3.CompleteMultipartUploadOutput, error) {
			t.Fatal("complete called after failed part")
			return nil, nil
		},
	}

	u := &Uploader{api: api, partSize: 10}
	err := u.UploadFile(context.Background(), "bucket", "big.mp4", writeTemp(t, 25), false)

	require.ErrorIs(t, err, boom)
	assert.True(t, aborted)
}

func TestUploadFileMissing(t *testing.T) {
	u := &Uploader{api: &fakeS3{}, partSize: 10}
	err := u.UploadFile(context.Background(), "bucket", "key", "/does/not/exist", false)
	assert.Error(t, err)
}
