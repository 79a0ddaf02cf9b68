// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package scantools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"rescribe.xyz/scantools/imgio"
)

const s3Scheme = "s3://"

// ObjMeta is the name and size of a stored object
type ObjMeta struct {
	Name string
	Size int64
}

// IsS3 reports whether a path is an s3:// location
func IsS3(p string) bool {
	return strings.HasPrefix(p, s3Scheme)
}

// ParseS3 splits an s3://bucket/prefix location into its bucket and
// prefix
func ParseS3(p string) (bucket string, prefix string, err error) {
	if !IsS3(p) {
		return "", "", fmt.Errorf("%s is not an s3 location", p)
	}
	s := strings.TrimPrefix(p, s3Scheme)
	parts := strings.SplitN(s, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("No bucket given in %s", p)
	}
	if len(parts) == 2 {
		prefix = strings.Trim(parts[1], "/")
	}
	return parts[0], prefix, nil
}

// AwsConn reads and saves page images in an S3 bucket. Files are
// processed in a local working directory, and each is uploaded under
// Prefix and then removed locally when saved.
type AwsConn struct {
	// these should be set before running Init(), or left to defaults
	Region  string
	Bucket  string
	Prefix  string
	TempDir string
	Logger  *log.Logger

	sess       *session.Session
	s3svc      *s3.S3
	downloader *s3manager.Downloader
	uploader   *s3manager.Uploader
}

// NewAwsConn creates an AwsConn for an s3://bucket/prefix location
func NewAwsConn(location string, logger *log.Logger) (*AwsConn, error) {
	bucket, prefix, err := ParseS3(location)
	if err != nil {
		return nil, err
	}
	return &AwsConn{Bucket: bucket, Prefix: prefix, Logger: logger}, nil
}

// Init sets up the aws session and the local working directory
func (a *AwsConn) Init() error {
	if a.Region == "" {
		a.Region = defaultAwsRegion
	}
	if a.Logger == nil {
		a.Logger = log.New(os.Stdout, "", 0)
	}
	if a.Bucket == "" {
		return errors.New("No bucket set")
	}

	var err error
	if a.TempDir == "" {
		a.TempDir, err = os.MkdirTemp("", tempPrefix)
		if err != nil {
			return fmt.Errorf("Error creating temporary directory: %v", err)
		}
	} else {
		err = os.MkdirAll(a.TempDir, 0700)
		if err != nil {
			return fmt.Errorf("Error creating temporary directory: %v", err)
		}
	}

	a.sess, err = session.NewSession(&aws.Config{
		Region: aws.String(a.Region),
	})
	if err != nil {
		return fmt.Errorf("Failed to set up aws session: %v", err)
	}
	a.s3svc = s3.New(a.sess)
	a.downloader = s3manager.NewDownloader(a.sess)
	a.uploader = s3manager.NewUploader(a.sess)

	return nil
}

// WorkDir is the local directory files should be written to before
// being saved
func (a *AwsConn) WorkDir() string {
	return a.TempDir
}

// key returns the object key for a file name
func (a *AwsConn) key(name string) string {
	if a.Prefix == "" {
		return name
	}
	return path.Join(a.Prefix, name)
}

// Save uploads a file from WorkDir, removing the local copy once it
// has been uploaded
func (a *AwsConn) Save(p string) error {
	key := a.key(filepath.Base(p))
	a.Logger.Println("Uploading", p, "to", a.Bucket+"/"+key)
	err := a.Upload(key, p)
	if err != nil {
		return fmt.Errorf("Error uploading %s: %v", p, err)
	}
	return os.Remove(p)
}

// Upload copies a local file to the bucket
func (a *AwsConn) Upload(key string, p string) error {
	file, err := os.Open(p)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = a.uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(a.Bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	return err
}

// Download copies an object from the bucket to a local file
func (a *AwsConn) Download(key string, p string) error {
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = a.downloader.Download(f,
		&s3.GetObjectInput{
			Bucket: aws.String(a.Bucket),
			Key:    aws.String(key),
		})
	if err != nil {
		_ = os.Remove(p)
	}
	return err
}

// ListObjectsWithMeta lists the objects directly under Prefix, not
// descending into any deeper prefixes
func (a *AwsConn) ListObjectsWithMeta() ([]ObjMeta, error) {
	var objs []ObjMeta
	prefix := ""
	if a.Prefix != "" {
		prefix = a.Prefix + "/"
	}
	err := a.s3svc.ListObjectsV2Pages(&s3.ListObjectsV2Input{
		Bucket:    aws.String(a.Bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, r := range page.Contents {
			objs = append(objs, ObjMeta{Name: *r.Key, Size: *r.Size})
		}
		return true
	})
	return objs, err
}

// DeleteObjects removes objects from the bucket
func (a *AwsConn) DeleteObjects(keys []string) error {
	objs := []*s3.ObjectIdentifier{}
	for _, v := range keys {
		o := s3.ObjectIdentifier{Key: aws.String(v)}
		objs = append(objs, &o)
	}
	_, err := a.s3svc.DeleteObjects(&s3.DeleteObjectsInput{
		Bucket: aws.String(a.Bucket),
		Delete: &s3.Delete{
			Objects: objs,
		},
	})
	return err
}

// Fetch downloads every page image under Prefix into WorkDir,
// returning the local paths sorted the same way a local directory
// would be listed
func (a *AwsConn) Fetch(ctx context.Context) ([]string, error) {
	objs, err := a.ListObjectsWithMeta()
	if err != nil {
		return nil, fmt.Errorf("Error listing %s/%s: %v", a.Bucket, a.Prefix, err)
	}

	byExt := make(map[string][]string)
	for _, o := range objs {
		if imgio.IsInput(o.Name) {
			ext := filepath.Ext(o.Name)
			byExt[ext] = append(byExt[ext], o.Name)
		}
	}

	var paths []string
	for _, ext := range imgio.InputExts {
		for _, key := range sortedCopy(byExt[ext]) {
			select {
			case <-ctx.Done():
				return paths, ctx.Err()
			default:
			}
			p := filepath.Join(a.TempDir, path.Base(key))
			a.Logger.Println("Downloading", a.Bucket+"/"+key)
			err = a.Download(key, p)
			if err != nil {
				return paths, fmt.Errorf("Error downloading %s: %v", key, err)
			}
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// Cleanup removes the local working directory
func (a *AwsConn) Cleanup() error {
	return os.RemoveAll(a.TempDir)
}

// Log records an item with the Logger. Arguments are handled as
// with fmt.Println.
func (a *AwsConn) Log(v ...interface{}) {
	a.Logger.Println(v...)
}

func sortedCopy(s []string) []string {
	c := append([]string{}, s...)
	sort.Strings(c)
	return c
}
