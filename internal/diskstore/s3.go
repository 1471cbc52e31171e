// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package diskstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"

	awsx "github.com/staranto/gifctl/internal/aws"
)

// S3 keeps blobs as objects under {Prefix}/ in Bucket.
type S3 struct {
	Client awsx.ObjectAPI
	Bucket string
	Prefix string
}

// NewS3 returns an S3 blob namespace. Leading and trailing slashes on prefix
// are dropped.
func NewS3(client awsx.ObjectAPI, bucket, prefix string) *S3 {
	return &S3{Client: client, Bucket: bucket, Prefix: strings.Trim(prefix, "/")}
}

func (b *S3) key(name string) string {
	if b.Prefix == "" {
		return name
	}
	return path.Join(b.Prefix, name)
}

func (b *S3) Locate(name string) string {
	return "s3://" + b.Bucket + "/" + b.key(name)
}

func (b *S3) Get(ctx context.Context, name string) ([]byte, error) {
	out, err := b.Client.GetObject(ctx, &s3v2.GetObjectInput{
		Bucket: awsv2.String(b.Bucket),
		Key:    awsv2.String(b.key(name)),
	})
	if err != nil {
		if awsx.IsNotFound(err) {
			return nil, fmt.Errorf("%s: %w", b.Locate(name), fs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

func (b *S3) Exists(ctx context.Context, name string) (bool, error) {
	_, err := b.Client.HeadObject(ctx, &s3v2.HeadObjectInput{
		Bucket: awsv2.String(b.Bucket),
		Key:    awsv2.String(b.key(name)),
	})
	if err != nil {
		if awsx.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object: %w", err)
	}
	return true, nil
}

// Put uploads the blob in one request. S3 writes are atomic per object.
func (b *S3) Put(ctx context.Context, name string, data []byte) error {
	_, err := b.Client.PutObject(ctx, &s3v2.PutObjectInput{
		Bucket:        awsv2.String(b.Bucket),
		Key:           awsv2.String(b.key(name)),
		Body:          bytes.NewReader(data),
		ContentLength: awsv2.Int64(int64(len(data))),
		ContentType:   awsv2.String("image/gif"),
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}
