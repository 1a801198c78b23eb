package copier

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/dashjay/copyit/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	calls []*s3.CopyObjectInput
	err   error
}

func (f *fakeClient) CopyObject(_ context.Context, params *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.CopyObjectOutput{}, nil
}

func messages(hook *test.Hook) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		out = append(out, e.Message)
	}
	return out
}

func TestCopy(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.InfoLevel)
	client := &fakeClient{}

	err := New(client, log).Copy(context.Background(), "s3://bucket-a/file.txt", "s3://bucket-b/file.txt")
	require.NoError(t, err)

	require.Len(t, client.calls, 1)
	in := client.calls[0]
	assert.Equal(t, "bucket-b", aws.ToString(in.Bucket))
	assert.Equal(t, "file.txt", aws.ToString(in.Key))
	assert.Equal(t, "bucket-a/file.txt", aws.ToString(in.CopySource))

	assert.Equal(t, []string{"copying s3://bucket-a/file.txt to s3://bucket-b/file.txt...", "...done"}, messages(hook))
	for _, e := range hook.AllEntries() {
		assert.Equal(t, logrus.InfoLevel, e.Level)
	}
	assert.Equal(t, "s3://bucket-a/file.txt", hook.AllEntries()[0].Data["src"])
	assert.Equal(t, "s3://bucket-b/file.txt", hook.AllEntries()[0].Data["dest"])
}

func TestCopyRemoteFailure(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.InfoLevel)
	remote := &smithy.OperationError{
		ServiceID:     "S3",
		OperationName: "CopyObject",
		Err:           &smithy.GenericAPIError{Code: "NoSuchKey", Message: "The specified key does not exist."},
	}
	client := &fakeClient{err: remote}

	err := New(client, log).Copy(context.Background(), "s3://bucket-a/missing.txt", "s3://bucket-b/file.txt")

	assert.Same(t, remote, err)
	assert.Len(t, client.calls, 1)
	assert.Equal(t, []string{"copying s3://bucket-a/missing.txt to s3://bucket-b/file.txt..."}, messages(hook))
}

func TestCopyQuiet(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.ErrorLevel)
	client := &fakeClient{}

	require.NoError(t, New(client, log).Copy(context.Background(), "s3://bucket-a/file.txt", "s3://bucket-b/file.txt"))
	assert.Len(t, client.calls, 1)
	assert.Empty(t, hook.AllEntries())
}

func TestCopyEmptyBucketForwarded(t *testing.T) {
	log, _ := test.NewNullLogger()
	client := &fakeClient{err: errors.New("invalid bucket")}

	err := New(client, log).Copy(context.Background(), "bucket-a/file.txt", "s3://bucket-b/file.txt")

	assert.EqualError(t, err, "invalid bucket")
	require.Len(t, client.calls, 1)
	assert.Equal(t, "/bucket-a/file.txt", aws.ToString(client.calls[0].CopySource))
}

func TestCopyBadLocator(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.InfoLevel)
	client := &fakeClient{}

	err := New(client, log).Copy(context.Background(), "s3://[bucket-a/file.txt", "s3://bucket-b/file.txt")

	assert.Error(t, err)
	assert.Empty(t, client.calls)
	assert.Empty(t, hook.AllEntries())
}

func TestRequest(t *testing.T) {
	req, err := Request("s3://bucket-a//double", "s3://bucket-b")
	require.NoError(t, err)
	assert.Equal(t, types.CopyRequest{
		Src: types.Object{Bucket: "bucket-a", Key: "/double"},
		Dst: types.Object{Bucket: "bucket-b", Key: ""},
	}, req)

	in := Input(req)
	assert.Equal(t, "bucket-a//double", aws.ToString(in.CopySource))
	assert.Equal(t, "", aws.ToString(in.Key))
}
