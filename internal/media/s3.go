package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type S3Config struct {
	Bucket      string
	Region      string
	EndpointURL string
	// PublicURL is the base clients fetch objects from. Defaults to the
	// virtual-hosted bucket address.
	PublicURL string
}

// S3Store uploads images to an S3-compatible bucket.
type S3Store struct {
	uploader  *s3manager.Uploader
	bucket    string
	publicURL string
	log       logrus.FieldLogger
}

func NewS3Store(c S3Config, log logrus.FieldLogger) (*S3Store, error) {
	if c.Bucket == "" {
		return nil, errors.New("S3 bucket is not configured")
	}

	cfg := aws.NewConfig().WithRegion(c.Region)
	if c.EndpointURL != "" {
		cfg = cfg.WithEndpoint(c.EndpointURL).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSessionWithOptions(session.Options{Config: *cfg})
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize S3 session")
	}

	return newS3Store(s3.New(sess), c, log), nil
}

func newS3Store(api s3iface.S3API, c S3Config, log logrus.FieldLogger) *S3Store {
	public := strings.TrimRight(c.PublicURL, "/")
	if public == "" {
		public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Bucket, c.Region)
	}
	return &S3Store{
		uploader:  s3manager.NewUploaderWithClient(api),
		bucket:    c.Bucket,
		publicURL: public,
		log:       log,
	}
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	s.log.WithField("key", key).Debugf("uploading image to %s", s.bucket)

	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to upload image")
	}
	return s.publicURL + "/" + key, nil
}
