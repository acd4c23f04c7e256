package storage

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var (
	// ErrObjectNotFound means the remote object or requested range does not
	// exist. Fatal for the enclosing transfer; never retried here.
	ErrObjectNotFound = errors.New("storage: object not found")
)

// asNotFound maps the S3 SDK's not-found shapes onto ErrObjectNotFound so
// callers only ever match one sentinel.
func asNotFound(err error) error {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return ErrObjectNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "InvalidRange":
			return ErrObjectNotFound
		}
	}

	return err
}
