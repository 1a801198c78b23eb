package types

import (
	"net/url"
	"strings"
)

// Object addresses a single stored item: the container (bucket) and the
// item path (key) inside it.
type Object struct {
	Bucket string
	Key    string
}

func (o Object) String() string {
	return o.Bucket + "/" + o.Key
}

// CopySource renders the object as an x-amz-copy-source value. Each path
// segment is escaped on its own so separators survive.
func (o Object) CopySource() string {
	segments := strings.Split(o.String(), "/")
	for i := range segments {
		segments[i] = url.PathEscape(segments[i])
	}
	return strings.Join(segments, "/")
}

type CopyRequest struct {
	Src Object
	Dst Object
}

type ListQuery struct {
	Prefix  string
	MaxKeys int64
}

type S3Query struct {
	Type      S3Operation
	DstObj    Object
	SrcObj    Object
	ListQuery ListQuery
}

func (q S3Query) HasCopy() bool {
	return q.SrcObj.Bucket != "" && q.SrcObj.Key != ""
}
