// Package gateway serves a small path-style S3 API backed by sqlite. It is
// enough to create buckets, put, get and copy objects with the AWS SDK.
package gateway

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dashjay/copyit/pkg/parse"
	"github.com/dashjay/copyit/pkg/s3error"
	"github.com/dashjay/copyit/pkg/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const ownerID = "copyit"

type Bucket struct {
	gorm.Model
	BucketName string `gorm:"column:bucket_name;uniqueIndex"`
}

type Object struct {
	gorm.Model
	BucketName string `gorm:"column:bucket_name;uniqueIndex:idx_object_bucket_key"`
	KeyPrefix  string `gorm:"column:key_prefix;uniqueIndex:idx_object_bucket_key"`
	Data       []byte `gorm:"column:data"`
}

func (o *Object) ETag() string {
	sum := md5.Sum(o.Data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

type handler func(s3query types.S3Query, wr http.ResponseWriter, r *http.Request)

type S3Proxy struct {
	DB    *gorm.DB
	log   logrus.FieldLogger
	mux   map[types.S3Operation]handler
	reqID uint64
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open database %s", path)
	}
	return db, nil
}

func NewS3Proxy(db *gorm.DB, log logrus.FieldLogger) (*S3Proxy, error) {
	log.Debugln("start migrating")
	if err := db.AutoMigrate(&Bucket{}, &Object{}); err != nil {
		return nil, errors.Wrap(err, "migrate schema")
	}
	log.Debugln("migrated")

	s3proxy := &S3Proxy{DB: db, log: log}
	s3proxy.mux = map[types.S3Operation]handler{
		types.PutBucket:      s3proxy.CreateBucket,
		types.PutObject:      s3proxy.PutObject,
		types.CopyObject:     s3proxy.CopyObject,
		types.HeadObject:     s3proxy.HeadObject,
		types.GetObject:      s3proxy.GetObject,
		types.GetBucket:      s3proxy.GetBucket,
		types.ListBuckets:    s3proxy.ListBuckets,
		types.ErrorOperation: s3proxy.invalidRequest,
	}
	return s3proxy, nil
}

func (a *S3Proxy) CreateBucket(s3query types.S3Query, wr http.ResponseWriter, r *http.Request) {
	out, err := a.createBucket(&s3.CreateBucketInput{Bucket: aws.String(s3query.DstObj.Bucket)})
	if err != nil {
		s3error.WriteError(r, wr, err)
		return
	}
	wr.Header().Set("Location", aws.ToString(out.Location))
}

func (a *S3Proxy) createBucket(input *s3.CreateBucketInput) (*s3.CreateBucketOutput, error) {
	if aws.ToString(input.Bucket) == "" {
		return nil, s3error.S3Error{OriginError: nil, Code: s3error.ErrorCodeInvalidArgument}
	}
	var b Bucket
	res := a.DB.First(&b, "bucket_name = ?", aws.ToString(input.Bucket))
	if err := res.Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if err := a.DB.Create(&Bucket{BucketName: aws.ToString(input.Bucket)}).Error; err != nil {
			return nil, err
		}
		return &s3.CreateBucketOutput{Location: aws.String("/" + aws.ToString(input.Bucket))}, nil
	}
	return nil, s3error.S3Error{
		OriginError: nil,
		Code:        s3error.ErrorCodeBucketAlreadyExists,
	}
}

func (a *S3Proxy) bucketExists(bucket string) error {
	var b Bucket
	res := a.DB.First(&b, "bucket_name = ?", bucket)
	if err := res.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s3error.S3Error{Code: s3error.ErrorCodeNoSuchBucket}
		}
		return err
	}
	return nil
}

func (a *S3Proxy) findObject(bucket, key string) (*Object, error) {
	var obj Object
	res := a.DB.First(&obj, "bucket_name = ? AND key_prefix = ?", bucket, key)
	if err := res.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s3error.S3Error{Code: s3error.ErrorCodeNoSuchKey}
		}
		return nil, err
	}
	return &obj, nil
}

// saveObject creates or overwrites bucket/key with data in one statement, so
// concurrent writers to the same key leave a single row.
func (a *S3Proxy) saveObject(bucket, key string, data []byte) (*Object, error) {
	obj := Object{BucketName: bucket, KeyPrefix: key, Data: data}
	err := a.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bucket_name"}, {Name: "key_prefix"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&obj).Error
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

func (a *S3Proxy) PutObject(s3query types.S3Query, wr http.ResponseWriter, r *http.Request) {
	out, err := a.putObject(&s3.PutObjectInput{
		Body:          r.Body,
		Bucket:        aws.String(s3query.DstObj.Bucket),
		Key:           aws.String(s3query.DstObj.Key),
		ContentLength: r.ContentLength,
	})
	if err != nil {
		s3error.WriteError(r, wr, err)
		return
	}
	wr.Header().Set("ETag", aws.ToString(out.ETag))
}

func (a *S3Proxy) putObject(input *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	if err := a.bucketExists(aws.ToString(input.Bucket)); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	if input.ContentLength > 0 && int64(len(data)) != input.ContentLength {
		return nil, s3error.S3Error{OriginError: fmt.Errorf("content length is not equal to actual body length"), Code: s3error.ErrorCodeIncompleteBody}
	}
	obj, err := a.saveObject(aws.ToString(input.Bucket), aws.ToString(input.Key), data)
	if err != nil {
		return nil, err
	}
	return &s3.PutObjectOutput{ETag: aws.String(obj.ETag())}, nil
}

type copyObjectResult struct {
	XMLName      xml.Name `xml:"CopyObjectResult"`
	ETag         string   `xml:"ETag"`
	LastModified string   `xml:"LastModified"`
}

func (a *S3Proxy) CopyObject(s3query types.S3Query, wr http.ResponseWriter, r *http.Request) {
	out, err := a.copyObject(&s3.CopyObjectInput{
		Bucket:     aws.String(s3query.DstObj.Bucket),
		Key:        aws.String(s3query.DstObj.Key),
		CopySource: aws.String(s3query.SrcObj.CopySource()),
	})
	if err != nil {
		s3error.WriteError(r, wr, err)
		return
	}
	a.writeXML(wr, &copyObjectResult{
		ETag:         aws.ToString(out.CopyObjectResult.ETag),
		LastModified: isoTime(aws.ToTime(out.CopyObjectResult.LastModified)),
	})
}

func (a *S3Proxy) copyObject(input *s3.CopyObjectInput) (*s3.CopyObjectOutput, error) {
	src := parse.CopySource(aws.ToString(input.CopySource))
	if err := a.bucketExists(src.Bucket); err != nil {
		return nil, err
	}
	if err := a.bucketExists(aws.ToString(input.Bucket)); err != nil {
		return nil, err
	}
	obj, err := a.findObject(src.Bucket, src.Key)
	if err != nil {
		return nil, err
	}
	copied, err := a.saveObject(aws.ToString(input.Bucket), aws.ToString(input.Key), obj.Data)
	if err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{"src": src.String(), "dst": aws.ToString(input.Bucket) + "/" + aws.ToString(input.Key)}).Infoln("object copied")
	return &s3.CopyObjectOutput{
		CopyObjectResult: &s3types.CopyObjectResult{
			ETag:         aws.String(copied.ETag()),
			LastModified: aws.Time(copied.UpdatedAt),
		},
	}, nil
}

func (a *S3Proxy) HeadObject(s3query types.S3Query, wr http.ResponseWriter, r *http.Request) {
	output, err := a.getObject(&s3.GetObjectInput{
		Bucket: aws.String(s3query.DstObj.Bucket),
		Key:    aws.String(s3query.DstObj.Key),
	})
	if err != nil {
		s3error.WriteError(r, wr, err)
		return
	}
	setObjectHeaders(wr, output)
}

func (a *S3Proxy) GetObject(s3query types.S3Query, wr http.ResponseWriter, r *http.Request) {
	output, err := a.getObject(&s3.GetObjectInput{Bucket: aws.String(s3query.DstObj.Bucket), Key: aws.String(s3query.DstObj.Key)})
	if err != nil {
		s3error.WriteError(r, wr, err)
		return
	}
	defer output.Body.Close()
	setObjectHeaders(wr, output)
	if _, err := io.Copy(wr, output.Body); err != nil {
		a.log.WithError(err).Warnln("write object body")
	}
}

func setObjectHeaders(wr http.ResponseWriter, output *s3.GetObjectOutput) {
	wr.Header().Set("Last-Modified", aws.ToTime(output.LastModified).UTC().Format(http.TimeFormat))
	wr.Header().Set("Content-Length", strconv.FormatInt(output.ContentLength, 10))
	wr.Header().Set("Content-Type", "application/octet-stream")
	wr.Header().Set("ETag", aws.ToString(output.ETag))
}

func (a *S3Proxy) getObject(input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	obj, err := a.findObject(aws.ToString(input.Bucket), aws.ToString(input.Key))
	if err != nil {
		return nil, err
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewBuffer(obj.Data)),
		ContentLength: int64(len(obj.Data)),
		LastModified:  &obj.UpdatedAt,
		ETag:          aws.String(obj.ETag()),
	}, nil
}

type listEntry struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int64  `xml:"Size"`
	StorageClass string `xml:"StorageClass"`
}

type listBucketResult struct {
	XMLName     xml.Name    `xml:"ListBucketResult"`
	Name        string      `xml:"Name"`
	Prefix      string      `xml:"Prefix"`
	KeyCount    int32       `xml:"KeyCount"`
	MaxKeys     int32       `xml:"MaxKeys"`
	IsTruncated bool        `xml:"IsTruncated"`
	Contents    []listEntry `xml:"Contents"`
}

func (a *S3Proxy) GetBucket(s3query types.S3Query, wr http.ResponseWriter, r *http.Request) {
	out, err := a.getBucket(&s3.ListObjectsV2Input{
		Bucket:  aws.String(s3query.DstObj.Bucket),
		Prefix:  aws.String(s3query.ListQuery.Prefix),
		MaxKeys: int32(s3query.ListQuery.MaxKeys),
	})
	if err != nil {
		s3error.WriteError(r, wr, err)
		return
	}
	result := &listBucketResult{
		Name:        aws.ToString(out.Name),
		Prefix:      aws.ToString(out.Prefix),
		KeyCount:    out.KeyCount,
		MaxKeys:     out.MaxKeys,
		IsTruncated: out.IsTruncated,
	}
	for _, o := range out.Contents {
		result.Contents = append(result.Contents, listEntry{
			Key:          aws.ToString(o.Key),
			LastModified: isoTime(aws.ToTime(o.LastModified)),
			ETag:         aws.ToString(o.ETag),
			Size:         o.Size,
			StorageClass: string(o.StorageClass),
		})
	}
	a.writeXML(wr, result)
}

func (a *S3Proxy) getBucket(input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
	bucket, prefix := aws.ToString(input.Bucket), aws.ToString(input.Prefix)
	if err := a.bucketExists(bucket); err != nil {
		return nil, err
	}
	var objects []Object
	if err := a.DB.Order("key_prefix").Find(&objects, "bucket_name = ?", bucket).Error; err != nil {
		return nil, err
	}
	out := &s3.ListObjectsV2Output{
		Name:    input.Bucket,
		Prefix:  input.Prefix,
		MaxKeys: input.MaxKeys,
	}
	for i := range objects {
		if !strings.HasPrefix(objects[i].KeyPrefix, prefix) {
			continue
		}
		if int32(len(out.Contents)) >= input.MaxKeys {
			out.IsTruncated = true
			break
		}
		out.Contents = append(out.Contents, s3types.Object{
			Key:          aws.String(objects[i].KeyPrefix),
			LastModified: aws.Time(objects[i].UpdatedAt),
			ETag:         aws.String(objects[i].ETag()),
			Size:         int64(len(objects[i].Data)),
			StorageClass: s3types.ObjectStorageClassStandard,
		})
	}
	out.KeyCount = int32(len(out.Contents))
	return out, nil
}

type bucketEntry struct {
	Name         string `xml:"Name"`
	CreationDate string `xml:"CreationDate"`
}

type listAllMyBucketsResult struct {
	XMLName xml.Name `xml:"ListAllMyBucketsResult"`
	Owner   struct {
		ID          string `xml:"ID"`
		DisplayName string `xml:"DisplayName"`
	} `xml:"Owner"`
	Buckets []bucketEntry `xml:"Buckets>Bucket"`
}

func (a *S3Proxy) ListBuckets(s3query types.S3Query, wr http.ResponseWriter, r *http.Request) {
	buckets, err := a.listBuckets(&s3.ListBucketsInput{})
	if err != nil {
		s3error.WriteError(r, wr, err)
		return
	}
	result := &listAllMyBucketsResult{}
	result.Owner.ID, result.Owner.DisplayName = aws.ToString(buckets.Owner.ID), aws.ToString(buckets.Owner.DisplayName)
	for _, b := range buckets.Buckets {
		result.Buckets = append(result.Buckets, bucketEntry{
			Name:         aws.ToString(b.Name),
			CreationDate: isoTime(aws.ToTime(b.CreationDate)),
		})
	}
	a.writeXML(wr, result)
}

func (a *S3Proxy) listBuckets(input *s3.ListBucketsInput) (*s3.ListBucketsOutput, error) {
	var buckets []Bucket
	if err := a.DB.Find(&buckets).Error; err != nil {
		return nil, err
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].BucketName < buckets[j].BucketName })
	var outBuckets = make([]s3types.Bucket, 0, len(buckets))
	for i := range buckets {
		outBuckets = append(outBuckets, s3types.Bucket{
			CreationDate: aws.Time(buckets[i].CreatedAt),
			Name:         aws.String(buckets[i].BucketName),
		})
	}
	return &s3.ListBucketsOutput{
		Buckets: outBuckets,
		Owner: &s3types.Owner{
			DisplayName: aws.String(ownerID),
			ID:          aws.String(ownerID),
		},
	}, nil
}

func (a *S3Proxy) invalidRequest(s3query types.S3Query, wr http.ResponseWriter, r *http.Request) {
	s3error.WriteError(r, wr, s3error.S3Error{Code: s3error.ErrorCodeInvalidRequest})
}

func (a *S3Proxy) writeXML(wr http.ResponseWriter, v interface{}) {
	bin, err := xml.Marshal(v)
	if err != nil {
		a.log.WithError(err).Errorln("marshal response")
		wr.WriteHeader(http.StatusInternalServerError)
		return
	}
	wr.Header().Set("Content-Type", "application/xml")
	if _, err := wr.Write(wrapXMLHeader(bin)); err != nil {
		a.log.WithError(err).Warnln("write response body")
	}
}

func (a *S3Proxy) ServeHTTP(wr http.ResponseWriter, r *http.Request) {
	id := fmt.Sprintf("%016X", atomic.AddUint64(&a.reqID, 1))
	wr.Header().Set("x-amz-request-id", id)
	r = r.WithContext(context.WithValue(r.Context(), s3error.RequestIDKey, id))

	query := parse.S3Query(r)
	a.ServeMux(query.Type)(query, wr, r)
}

var _ http.Handler = (*S3Proxy)(nil)

func (a *S3Proxy) ServeMux(s3Op types.S3Operation) handler {
	a.log.Debugln("s3Op: ", s3Op.String())
	if h, ok := a.mux[s3Op]; ok {
		return h
	}
	return func(s3query types.S3Query, wr http.ResponseWriter, r *http.Request) {
		s3error.WriteError(r, wr, s3error.S3Error{OriginError: nil, Code: s3error.ErrorCodeNotImplemented})
	}
}

func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

var wrapXMLHeader = func(body []byte) []byte {
	body = append([]byte(xml.Header), body...)
	return body
}
