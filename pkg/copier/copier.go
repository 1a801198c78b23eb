// Package copier performs a single server-side object copy between two
// locators.
package copier

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dashjay/copyit/pkg/parse"
	"github.com/dashjay/copyit/pkg/types"
	"github.com/sirupsen/logrus"
)

// ObjectCopier is the part of the S3 client the copier needs. *s3.Client
// satisfies it.
type ObjectCopier interface {
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

var _ ObjectCopier = (*s3.Client)(nil)

// Copier issues object copies through an ObjectCopier and logs each one.
type Copier struct {
	client ObjectCopier
	log    logrus.FieldLogger
}

// New returns a Copier using client for the remote call and log for progress.
func New(client ObjectCopier, log logrus.FieldLogger) *Copier {
	return &Copier{client: client, log: log}
}

// Request parses both locators into a copy request.
func Request(src, dest string) (types.CopyRequest, error) {
	var req types.CopyRequest
	var err error
	if req.Src, err = parse.Locator(src); err != nil {
		return req, err
	}
	if req.Dst, err = parse.Locator(dest); err != nil {
		return req, err
	}
	return req, nil
}

// Copy copies the object at src to dest with one CopyObject call. Both
// buckets are expected to exist. Errors from the storage service are
// returned untouched.
func (c *Copier) Copy(ctx context.Context, src, dest string) error {
	req, err := Request(src, dest)
	if err != nil {
		return err
	}

	c.log.WithFields(logrus.Fields{"src": src, "dest": dest}).Infof("copying %s to %s...", src, dest)
	if _, err := c.client.CopyObject(ctx, Input(req)); err != nil {
		return err
	}
	c.log.Info("...done")
	return nil
}

// Input builds the CopyObject request for req: the destination addresses the
// request and the source travels escaped in CopySource.
func Input(req types.CopyRequest) *s3.CopyObjectInput {
	return &s3.CopyObjectInput{
		Bucket:     aws.String(req.Dst.Bucket),
		Key:        aws.String(req.Dst.Key),
		CopySource: aws.String(req.Src.CopySource()),
	}
}
