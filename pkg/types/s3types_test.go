package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectCopySource(t *testing.T) {
	tests := []struct {
		name string
		obj  Object
		want string
	}{
		{"plain", Object{Bucket: "bucket-a", Key: "file.txt"}, "bucket-a/file.txt"},
		{"nested", Object{Bucket: "bucket-a", Key: "dir/sub/file.txt"}, "bucket-a/dir/sub/file.txt"},
		{"space", Object{Bucket: "bucket-a", Key: "my file.txt"}, "bucket-a/my%20file.txt"},
		{"leading slash kept", Object{Bucket: "bucket-a", Key: "/double"}, "bucket-a//double"},
		{"empty key", Object{Bucket: "bucket-a"}, "bucket-a/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.obj.CopySource())
		})
	}
}

func TestS3QueryHasCopy(t *testing.T) {
	assert.False(t, S3Query{}.HasCopy())
	assert.False(t, S3Query{SrcObj: Object{Bucket: "b"}}.HasCopy())
	assert.True(t, S3Query{SrcObj: Object{Bucket: "b", Key: "k"}}.HasCopy())
	assert.Equal(t, "CopyObject", CopyObject.String())
}
