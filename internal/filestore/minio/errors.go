package minio

import (
	"context"
	"errors"
	"net/http"

	miniogo "github.com/minio/minio-go/v7"

	"github.com/koustreak/pgmeta/internal/errs"
)

// codeKinds classifies the S3 error codes a snapshot export can run into.
// Codes are more specific than the HTTP status and win over it.
var codeKinds = map[string]errs.ErrKind{
	"NoSuchBucket": errs.ErrKindNotFound,
	"NoSuchKey":    errs.ErrKindNotFound,
	"NoSuchUpload": errs.ErrKindNotFound,

	"AccessDenied":          errs.ErrKindPermissionDenied,
	"InvalidAccessKeyId":    errs.ErrKindPermissionDenied,
	"SignatureDoesNotMatch": errs.ErrKindPermissionDenied,
	"AllAccessDisabled":     errs.ErrKindPermissionDenied,

	"InvalidBucketName": errs.ErrKindInvalidInput,
	"InvalidObjectName": errs.ErrKindInvalidInput,
	"KeyTooLongError":   errs.ErrKindInvalidInput,
	"EntityTooLarge":    errs.ErrKindInvalidInput,

	"RequestTimeout": errs.ErrKindTimeout,
	"SlowDown":       errs.ErrKindTimeout,

	"ServiceUnavailable":         errs.ErrKindConnectionFailed,
	"XMinioServerNotInitialized": errs.ErrKindConnectionFailed,
}

// mapError classifies a minio-go error. Anything without an S3 code or a
// telling status is treated as a transport failure.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	var resp miniogo.ErrorResponse
	if !errors.As(err, &resp) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}
	if kind, ok := codeKinds[resp.Code]; ok {
		return errs.Wrap(kind, msg, err)
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	case http.StatusForbidden, http.StatusUnauthorized:
		return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
	case http.StatusBadRequest:
		return errs.Wrap(errs.ErrKindInvalidInput, msg, err)
	}
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// bucketOwned reports a MakeBucket that lost a race with another exporter.
func bucketOwned(err error) bool {
	return miniogo.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou"
}
