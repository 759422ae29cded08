package client

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/kiloprojects/go-client/pkg/client/counter"
	"github.com/kiloprojects/go-client/pkg/request"
)

const ContentTypeFormURLEncoded = "application/x-www-form-urlencoded"

// Body is an encoded, re-openable request body.
type Body struct {
	// Open returns a new reader of the body, it is called again on redirect or retry.
	Open func() (io.ReadCloser, error)
	// ContentType overrides the request Content-Type, if not empty.
	ContentType string
	// Size is -1 if unknown.
	Size int64
}

// EncodeBody encodes the request body definition, nil is returned if the request has no body.
// Upload progress callback, if any, is attached to the reader.
func EncodeBody(r request.HTTPRequest) (*Body, error) {
	body, err := encodeRawBody(r)
	if err != nil || body == nil {
		return body, err
	}

	// Report upload progress
	if fn := r.UploadProgress(); fn != nil {
		open, total := body.Open, body.Size
		body.Open = func() (io.ReadCloser, error) {
			rc, err := open()
			if err != nil {
				return nil, err
			}
			return counter.NewBody(rc, total, counter.ProgressFunc(fn)), nil
		}
	}

	return body, nil
}

func encodeRawBody(r request.HTTPRequest) (*Body, error) {
	switch v := r.RequestBody().(type) {
	case nil:
		return nil, nil
	case string:
		return bytesBody([]byte(v), ""), nil
	case []byte:
		return bytesBody(v, ""), nil
	case url.Values:
		return bytesBody([]byte(v.Encode()), ContentTypeFormURLEncoded), nil
	case *request.Form:
		content, contentType, err := v.Encode()
		if err != nil {
			return nil, fmt.Errorf(`cannot encode multipart body: %w`, err)
		}
		return bytesBody(content, contentType), nil
	case io.ReadSeeker:
		return &Body{
			Size: -1,
			Open: func() (io.ReadCloser, error) {
				if _, err := v.Seek(0, io.SeekStart); err != nil {
					return nil, err
				}
				if rc, ok := v.(io.ReadCloser); ok {
					return rc, nil
				}
				return io.NopCloser(v), nil
			},
		}, nil
	case io.Reader:
		// Stream can be read only once
		var once sync.Once
		return &Body{
			Size: -1,
			Open: func() (rc io.ReadCloser, err error) {
				err = errors.New("stream body cannot be rewound")
				once.Do(func() {
					rc, err = io.NopCloser(v), nil
				})
				return rc, err
			},
		}, nil
	default:
		if !isJSONContentType(r.RequestHeader().Get("Content-Type")) {
			return nil, fmt.Errorf(`unsupported body type "%T"`, v)
		}
		content, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf(`cannot encode JSON body: %w`, err)
		}
		return bytesBody(content, ""), nil
	}
}

func bytesBody(content []byte, contentType string) *Body {
	return &Body{
		ContentType: contentType,
		Size:        int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}
