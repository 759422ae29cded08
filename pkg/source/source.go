// Package source reads submission source files from a local path or a cloud bucket.
//
// Supported locations:
//   - local path, for example "./main.cpp"
//   - "file:///abs/path/main.cpp"
//   - "s3://bucket/key?region=eu-central-1"
//   - "gs://bucket/key"
//   - "azblob://container/key"
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/azureblob" // azblob:// URL opener
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob" // gs:// URL opener
	_ "gocloud.dev/blob/s3blob"  // s3:// URL opener
	"gocloud.dev/gcerrors"
)

// MaxSize of a source file.
const MaxSize = 16 * 1024 * 1024

var ErrNotFound = errors.New("source file not found")

// File is a source file.
type File struct {
	Name    string
	Content []byte
}

// Read reads the file from the location.
func Read(ctx context.Context, location string) (*File, error) {
	bucket, key, err := openBucket(ctx, location)
	if err != nil {
		return nil, fmt.Errorf(`cannot open source "%s": %w`, location, err)
	}
	defer bucket.Close()

	reader, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf(`cannot read source "%s": %w`, location, ErrNotFound)
		}
		return nil, fmt.Errorf(`cannot read source "%s": %w`, location, err)
	}
	defer reader.Close()

	if reader.Size() > MaxSize {
		return nil, fmt.Errorf(`cannot read source "%s": size %d exceeds limit %d`, location, reader.Size(), MaxSize)
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf(`cannot read source "%s": %w`, location, err)
	}

	return &File{Name: path.Base(key), Content: content}, nil
}

// openBucket splits the location to the bucket and the object key.
func openBucket(ctx context.Context, location string) (*blob.Bucket, string, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Local path, one letter scheme is a Windows drive
		abs, err := filepath.Abs(location)
		if err != nil {
			return nil, "", err
		}
		bucket, err := fileblob.OpenBucket(filepath.Dir(abs), nil)
		return bucket, filepath.Base(abs), err
	}

	if u.Scheme == fileblob.Scheme {
		dir, name := path.Split(u.Path)
		bucket, err := fileblob.OpenBucket(filepath.FromSlash(dir), nil)
		return bucket, name, err
	}

	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return nil, "", errors.New("object key is missing")
	}
	bucketURL := *u
	bucketURL.Path = ""
	bucket, err := blob.OpenBucket(ctx, bucketURL.String())
	return bucket, key, err
}
