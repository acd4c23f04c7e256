package storage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeS3 implements s3API with pluggable behavior per call.
type fakeS3 struct {
	getObject               func(ctx context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error)
	putObject               func(ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error)
	createMultipartUpload   func(ctx context.Context, in *s3.CreateMultipartUploadInput) (*s3.CreateMultipartUploadOutput, error)
	uploadPart              func(ctx context.Context, in *s3.UploadPartInput) (*s3.UploadPartOutput, error)
	completeMultipartUpload func(ctx context.Context, in *s3.CompleteMultipartUploadInput) (*s3.CompleteMultipartUploadOutput, error)
	abortMultipartUpload    func(ctx context.Context, in *s3.AbortMultipartUploadInput) (*s3.AbortMultipartUploadOutput, error)
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return f.getObject(ctx, in)
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return f.putObject(ctx, in)
}

func (f *fakeS3) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return f.createMultipartUpload(ctx, in)
}

func (f *fakeS3) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return f.uploadPart(ctx, in)
}

func (f *fakeS3) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return f.completeMultipartUpload(ctx, in)
}

func (f *fakeS3) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return f.abortMultipartUpload(ctx, in)
}
