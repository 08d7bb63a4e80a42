package mailer

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Outbox writes each message as an RFC 822 object into a bucket instead
// of sending it. Pointed at MinIO it gives a local inbox for development
// and staging.
type S3Outbox struct {
	client putObjectAPI
	bucket string
	from   string
	now    func() time.Time
}

func NewS3Outbox(ctx context.Context, c AWSConfig, bucket, from string) (*S3Outbox, error) {
	cfg, err := loadAWSConfig(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Outbox{client: client, bucket: bucket, from: from, now: time.Now}, nil
}

func (o *S3Outbox) Send(ctx context.Context, msg Message) error {
	now := o.now().UTC()
	key := fmt.Sprintf("%s/%s.eml", now.Format("2006/01/02"), uuid.NewString())

	_, err := o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(o.render(msg, now)),
		ContentType: aws.String("message/rfc822"),
	})
	if err != nil {
		return fmt.Errorf("outbox put %s: %w", key, err)
	}
	return nil
}

func (o *S3Outbox) render(msg Message, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", o.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.HTML)
	return b.Bytes()
}
