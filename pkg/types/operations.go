package types

type RequestType uint32
type S3Operation uint32

const (
	AdminBucketReq RequestType = iota
	ListBucketsReq
	ReadBucketReq
	WriteBucketReq
	InvalidReq
)
const (
	PutBucket S3Operation = 100*S3Operation(AdminBucketReq) + iota
)
const (
	ListBuckets S3Operation = 100*S3Operation(ListBucketsReq) + iota
)
const (
	GetBucket S3Operation = 100*S3Operation(ReadBucketReq) + iota
	GetObject
	HeadObject
)
const (
	PutObject = 100*S3Operation(WriteBucketReq) + iota
	CopyObject
)

const (
	NotImplementOperation = 100*S3Operation(InvalidReq) + iota
	ErrorOperation
)

var m = map[S3Operation]string{
	NotImplementOperation: "NotImplementOperation",
	ErrorOperation:        "ErrorOperation",

	PutObject:  "PutObject",
	CopyObject: "CopyObject",

	GetBucket:  "GetBucket",
	GetObject:  "GetObject",
	HeadObject: "HeadObject",

	ListBuckets: "ListBuckets",

	PutBucket: "PutBucket",
}

func (s3 S3Operation) String() string {
	return m[s3]
}
