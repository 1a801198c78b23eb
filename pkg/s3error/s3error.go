package s3error

import (
	"encoding/xml"
	"net/http"
	"strconv"

	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var wrapXMLHeader = func(body []byte) []byte {
	body = append([]byte(xml.Header), body...)
	return body
}

type ErrorCode string

type S3Error struct {
	OriginError error
	Code        ErrorCode
}

type ResponseError struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string
	Message   string
	Resource  string
	RequestId string
}

type errDetail struct {
	Detail         string
	httpStatusCode int
}

func (s S3Error) Error() string {
	if s.OriginError == nil {
		return s.Detail()
	}
	return s.OriginError.Error()
}

func (s S3Error) Unwrap() error {
	return s.OriginError
}

func (s S3Error) GetCode() ErrorCode {
	return s.Code
}

func (s S3Error) Detail() string {
	return errMap[s.Code].Detail
}

func (s S3Error) HTTPStatusCode() int {
	if d, ok := errMap[s.Code]; ok {
		return d.httpStatusCode
	}
	return http.StatusInternalServerError
}

var _ error = S3Error{}

// Code reports the S3 error code carried by err. Both gateway-side S3Error
// values and errors returned by the AWS SDK are recognized; anything else
// yields "".
func Code(err error) ErrorCode {
	var s3err S3Error
	if errors.As(err, &s3err) {
		return s3err.GetCode()
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return ErrorCode(apiErr.ErrorCode())
	}
	return ""
}

// Describe returns the documented meaning of the code carried by err.
func Describe(err error) string {
	return errMap[Code(err)].Detail
}

func IsS3Error(err error, code ErrorCode) bool {
	c := Code(err)
	return c != "" && c == code
}

func IsNoSuchKey(err error) bool {
	return IsS3Error(err, ErrorCodeNoSuchKey)
}

func IsNotFound(err error) bool {
	// HeadObject answers without a body, so the SDK only sees NotFound
	return IsNoSuchKey(err) || IsS3Error(err, ErrorCodeNoSuchBucket) || IsS3Error(err, ErrorCodeNotFound)
}

func WriteError(r *http.Request, w http.ResponseWriter, err error) {
	var s3err S3Error
	var (
		s3Code   ErrorCode
		httpCode int
	)
	if errors.As(err, &s3err) {
		s3Code, httpCode = s3err.GetCode(), s3err.HTTPStatusCode()
	} else {
		s3Code, httpCode = ErrorCodeInternalError, http.StatusInternalServerError
	}
	if httpCode == http.StatusMethodNotAllowed {
		w.Header().Set("Allow", "GET, HEAD, PUT")
	}
	w.Header().Set("Content-Type", "application/xml")
	id, _ := r.Context().Value(RequestIDKey).(string)
	body, _ := xml.Marshal(&ResponseError{
		Code:      string(s3Code),
		Message:   err.Error(),
		Resource:  r.URL.Path,
		RequestId: id,
	})
	if s3Code == ErrorCodeInternalError {
		logrus.WithError(err).Errorln("request error")
	}
	if r.Method == http.MethodHead {
		w.WriteHeader(httpCode)
		return
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(xml.Header)+len(body)))
	w.WriteHeader(httpCode)
	if _, err := w.Write(wrapXMLHeader(body)); err != nil {
		logrus.WithError(err).Errorln("write body error")
	}
}

type contextKey string

// RequestIDKey is the request context key holding the request id echoed in
// error bodies.
const RequestIDKey contextKey = "RequestId"

var (
	ErrorCodeAccessDenied          ErrorCode = "AccessDenied"
	ErrorCodeBucketAlreadyExists   ErrorCode = "BucketAlreadyExists"
	ErrorCodeIncompleteBody        ErrorCode = "IncompleteBody"
	ErrorCodeInternalError         ErrorCode = "InternalError"
	ErrorCodeInvalidAccessKeyId    ErrorCode = "InvalidAccessKeyId"
	ErrorCodeInvalidArgument       ErrorCode = "InvalidArgument"
	ErrorCodeInvalidBucketName     ErrorCode = "InvalidBucketName"
	ErrorCodeInvalidObjectState    ErrorCode = "InvalidObjectState"
	ErrorCodeInvalidRequest        ErrorCode = "InvalidRequest"
	ErrorCodeMethodNotAllowed      ErrorCode = "MethodNotAllowed"
	ErrorCodeNoSuchBucket          ErrorCode = "NoSuchBucket"
	ErrorCodeNoSuchKey             ErrorCode = "NoSuchKey"
	ErrorCodeNotFound              ErrorCode = "NotFound"
	ErrorCodeNotImplemented        ErrorCode = "NotImplemented"
	ErrorCodePermanentRedirect     ErrorCode = "PermanentRedirect"
	ErrorCodeRequestTimeout        ErrorCode = "RequestTimeout"
	ErrorCodeServiceUnavailable    ErrorCode = "ServiceUnavailable"
	ErrorCodeSignatureDoesNotMatch ErrorCode = "SignatureDoesNotMatch"
	ErrorCodeSlowDown              ErrorCode = "SlowDown"
)
var errMap = map[ErrorCode]errDetail{
	ErrorCodeAccessDenied: {
		"Access Denied",
		403,
	},
	ErrorCodeBucketAlreadyExists: {
		"The requested bucket name is not available. The bucket namespace is shared by all users of the system. Please select a different name and try again.",
		409,
	},
	ErrorCodeIncompleteBody: {
		"You did not provide the number of bytes specified by the Content-Length HTTP header.",
		400,
	},
	ErrorCodeInternalError: {
		"We encountered an internal error. Please try again.",
		500,
	},
	ErrorCodeInvalidAccessKeyId: {
		"The AWS access key ID you provided does not exist in our records.",
		403,
	},
	ErrorCodeInvalidArgument: {
		"Invalid Argument",
		400,
	},
	ErrorCodeInvalidBucketName: {
		"The specified bucket is not valid.",
		400,
	},
	ErrorCodeInvalidObjectState: {
		"The operation is not valid for the current state of the object.",
		403,
	},
	ErrorCodeInvalidRequest: {
		"The copy source is missing a bucket or a key.",
		400,
	},
	ErrorCodeMethodNotAllowed: {
		"The specified method is not allowed against this resource.",
		405,
	},
	ErrorCodeNoSuchBucket: {
		"The specified bucket does not exist.",
		404,
	},
	ErrorCodeNoSuchKey: {
		"The specified key does not exist.",
		404,
	},
	ErrorCodeNotFound: {
		"The specified bucket or key does not exist.",
		404,
	},
	ErrorCodeNotImplemented: {
		"A header you provided implies functionality that is not implemented.",
		501,
	},
	ErrorCodePermanentRedirect: {
		"The bucket you are attempting to access must be addressed using the specified endpoint. Send all future requests to this endpoint.",
		301,
	},
	ErrorCodeRequestTimeout: {
		"Your socket connection to the server was not read from or written to within the timeout period.",
		400,
	},
	ErrorCodeServiceUnavailable: {
		"Reduce your request rate.",
		503,
	},
	ErrorCodeSignatureDoesNotMatch: {
		"The request signature we calculated does not match the signature you provided. Check your AWS secret access key and signing method.",
		403,
	},
	ErrorCodeSlowDown: {
		"Reduce your request rate.",
		503,
	},
}
