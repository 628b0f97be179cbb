/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package publish uploads rendered project pages to hosting.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"buildify/internal/config"
	applog "buildify/internal/log"
	"buildify/internal/project"
)

// DefaultDomain hosts published projects as subdomains.
const DefaultDomain = "buildify.app"

// Publisher uploads the rendered page of a project and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, p project.Project, html []byte) (string, error)
}

// URL is the public address of a project: https://<slug>.<domain>.
func URL(domain, name string) string {
	if domain == "" {
		domain = DefaultDomain
	}
	return "https://" + project.Slug(name) + "." + domain
}

// New returns a MinioPublisher when an endpoint is configured and a Noop
// publisher otherwise.
func New(cfg config.PublishConfig) (Publisher, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return Noop{Domain: cfg.BaseDomain}, nil
	}
	return NewMinio(cfg)
}

// Noop only computes the URL. Used when hosting is not configured.
type Noop struct{ Domain string }

func (n Noop) Publish(_ context.Context, p project.Project, _ []byte) (string, error) {
	return URL(n.Domain, p.Name), nil
}

// MinioPublisher stores pages as <slug>/index.html in an S3-compatible bucket.
type MinioPublisher struct {
	client *minio.Client
	bucket string
	domain string
	log    *slog.Logger

	initOnce sync.Once
	initErr  error
}

const region = "us-east-1"

func NewMinio(cfg config.PublishConfig) (*MinioPublisher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("publish endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, errors.New("publish access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("publish bucket is required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &MinioPublisher{
		client: client,
		bucket: bucket,
		domain: cfg.BaseDomain,
		log:    applog.WithComponent("publish").With(slog.String("bucket", bucket)),
	}, nil
}

func (m *MinioPublisher) ensureBucket(ctx context.Context) error {
	m.initOnce.Do(func() {
		exists, err := m.client.BucketExists(ctx, m.bucket)
		if err != nil {
			m.initErr = err
			return
		}
		if exists {
			return
		}
		m.initErr = m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: region})
	})
	return m.initErr
}

// ObjectKey is where the page of the named project is stored.
func ObjectKey(name string) string { return project.Slug(name) + "/index.html" }

func (m *MinioPublisher) Publish(ctx context.Context, p project.Project, html []byte) (string, error) {
	if project.Slug(p.Name) == "" {
		return "", fmt.Errorf("publish %s: project has no name", p.ID)
	}
	if err := m.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}
	key := ObjectKey(p.Name)
	info, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(html), int64(len(html)), minio.PutObjectOptions{
		ContentType:  "text/html; charset=utf-8",
		CacheControl: "no-cache",
		UserMetadata: map[string]string{"project-id": p.ID},
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	m.log.Info("page uploaded", slog.String("key", key), slog.Int64("size", info.Size), slog.String("project", p.ID))
	return URL(m.domain, p.Name), nil
}
