package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/neurobridge-progress/internal/domain"
	"github.com/yungbote/neurobridge-progress/internal/platform/logger"
)

const (
	DefaultCertificateStream = "progress:certificate_issued"
	EventCertificateIssued   = "certificate.issued"
)

// CertificateEventPublisher tells downstream collaborators (renderer, mailer)
// that a certificate was minted.
type CertificateEventPublisher interface {
	PublishCertificateIssued(ctx context.Context, cert *types.Certificate) error
	Close() error
}

type Config struct {
	Addr     string
	Password string
	Stream   string
	// MaxLen caps the stream length approximately. Zero keeps everything.
	MaxLen int64
}

type certificateEvents struct {
	log    *logger.Logger
	rdb    *goredis.Client
	stream string
	maxLen int64
}

// Dial connects and pings Redis. An empty Addr returns a nil client.
func Dial(ctx context.Context, cfg Config) (*goredis.Client, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewCertificateEventPublisher returns an XADD publisher over rdb, or the
// no-op publisher when rdb is nil. Close does not close rdb.
func NewCertificateEventPublisher(log *logger.Logger, rdb *goredis.Client, cfg Config) CertificateEventPublisher {
	if rdb == nil {
		return NoopCertificateEvents{}
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		stream = DefaultCertificateStream
	}
	if log == nil {
		log = logger.Nop()
	}
	return &certificateEvents{
		log:    log.With("client", "CertificateEventPublisher"),
		rdb:    rdb,
		stream: stream,
		maxLen: cfg.MaxLen,
	}
}

func (p *certificateEvents) PublishCertificateIssued(ctx context.Context, cert *types.Certificate) error {
	if p == nil || p.rdb == nil {
		return fmt.Errorf("certificate event publisher not initialized")
	}
	if cert == nil {
		return fmt.Errorf("certificate required")
	}
	args := &goredis.XAddArgs{
		Stream: p.stream,
		Values: CertificateIssuedFields(cert),
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	id, err := p.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	p.log.Debug("certificate event published", "stream", p.stream, "entry_id", id, "certificate_number", cert.CertificateNumber)
	return nil
}

func (p *certificateEvents) Close() error { return nil }

// CertificateIssuedFields is the flat field map written to the stream entry.
func CertificateIssuedFields(cert *types.Certificate) map[string]any {
	return map[string]any{
		"type":               EventCertificateIssued,
		"certificate_id":     cert.ID.String(),
		"certificate_number": cert.CertificateNumber,
		"learner_id":         cert.LearnerID.String(),
		"course_id":          cert.CourseID.String(),
		"completed_at":       cert.CompletedAt.UTC().Format(time.RFC3339Nano),
	}
}

type NoopCertificateEvents struct{}

func (NoopCertificateEvents) PublishCertificateIssued(context.Context, *types.Certificate) error {
	return nil
}

func (NoopCertificateEvents) Close() error { return nil }
