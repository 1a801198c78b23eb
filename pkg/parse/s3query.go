package parse

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dashjay/copyit/pkg/types"
	log "github.com/sirupsen/logrus"
)

const (
	Prefix   = "prefix"
	MaxKeys  = "max-keys"
	Uploads  = "uploads"
	UploadId = "uploadId"
	Delete   = "delete"

	// Did not implement
	Acl        = "acl"
	Lifecycle  = "lifecycle"
	Policy     = "policy"
	Tagging    = "tagging"
	Versioning = "versioning"

	CopySourceHeader = "x-amz-copy-source"
)

// path2BucketAndObject Copy from https://github.com/minio/minio/blob/master/cmd/handler-utils.go
func path2BucketAndObject(path string) (bucket, object string) {
	// Skip the first element if it is '/', split the rest.
	path = strings.TrimPrefix(path, "/")
	pathComponents := strings.SplitN(path, "/", 2)
	// Save the bucket and object extracted from path.
	switch len(pathComponents) {
	case 1:
		bucket = pathComponents[0]
	case 2:
		bucket = pathComponents[0]
		object = pathComponents[1]
	}
	return bucket, object
}

// CopySource decodes an x-amz-copy-source header value. A value that does
// not unescape is used as is.
func CopySource(v string) types.Object {
	// versionId is not supported by the gateway. Cut it before unescaping so
	// an encoded '?' stays part of the key.
	if i := strings.Index(v, "?"); i >= 0 {
		v = v[:i]
	}
	src, err := url.PathUnescape(v)
	if err != nil {
		log.WithError(err).Warning("PathUnescape failed")
		src = v
	}
	var o types.Object
	o.Bucket, o.Key = path2BucketAndObject(src)
	return o
}

// S3Query classifies a path-style S3 request.
func S3Query(r *http.Request) (q types.S3Query) {
	bucket, object := path2BucketAndObject(r.URL.Path)
	query := r.URL.Query()

	q.ListQuery.Prefix = query.Get(Prefix)
	q.ListQuery.MaxKeys = 1000
	if v := query.Get(MaxKeys); v != "" {
		k, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			log.WithError(err).WithField(MaxKeys, v).Warn("Parse failed")
		} else {
			q.ListQuery.MaxKeys = k
		}
	}

	anyInQuery := func(keys ...string) bool {
		for _, key := range keys {
			if _, ok := query[key]; ok {
				return true
			}
		}
		return false
	}

	q.DstObj.Bucket = bucket
	if anyInQuery(Acl, Lifecycle, Policy, Tagging, Versioning, Uploads, UploadId, Delete) {
		q.Type = types.NotImplementOperation
		return
	}
	if object == "" {
		if bucket == "" {
			if r.Method == http.MethodGet {
				q.Type = types.ListBuckets
				return
			}
			q.Type = types.NotImplementOperation
			return
		}
		switch r.Method {
		case http.MethodGet:
			q.Type = types.GetBucket
		case http.MethodPut:
			q.Type = types.PutBucket
		default:
			q.Type = types.NotImplementOperation
		}
		return
	}
	q.DstObj.Key = object
	switch r.Method {
	case http.MethodGet:
		q.Type = types.GetObject
	case http.MethodHead:
		q.Type = types.HeadObject
	case http.MethodPut:
		if v := r.Header.Get(CopySourceHeader); v != "" {
			q.SrcObj = CopySource(v)
			if !q.HasCopy() {
				q.Type = types.ErrorOperation
				return
			}
			q.Type = types.CopyObject
			return
		}
		q.Type = types.PutObject
	default:
		q.Type = types.NotImplementOperation
	}
	return
}
