package grpcclient

import (
	"context"
	"errors"
	"image"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/GriffinCanCode/minimap-tracker/internal/errors"
	"github.com/GriffinCanCode/minimap-tracker/internal/ocr"
	"github.com/GriffinCanCode/minimap-tracker/internal/resilience"
	"github.com/GriffinCanCode/minimap-tracker/internal/trace"
)

// Config holds connection and circuit breaker settings.
type Config struct {
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	Breaker          resilience.Config
	Allowlist        string
}

// DefaultConfig returns production defaults with the fast breaker profile.
func DefaultConfig() Config {
	return Config{
		KeepaliveTime:    DefaultKeepaliveTime,
		KeepaliveTimeout: DefaultKeepaliveTimeout,
		Breaker:          resilience.OCRConfig(),
		Allowlist:        ocr.Allowlist,
	}
}

// Client is an ocr.Recognizer backed by a remote OCR service.
type Client struct {
	conn      *grpc.ClientConn
	breaker   *resilience.Breaker
	allowlist string
}

var _ ocr.Recognizer = (*Client)(nil)

// New creates a client for addr. Extra dial options are appended after the
// defaults, so tests can swap the dialer.
func New(addr string, cfg Config, opts ...grpc.DialOption) (*Client, error) {
	if cfg.KeepaliveTime <= 0 {
		cfg.KeepaliveTime = DefaultKeepaliveTime
	}
	if cfg.KeepaliveTimeout <= 0 {
		cfg.KeepaliveTimeout = DefaultKeepaliveTimeout
	}
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveTime,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: false,
		}),
		grpc.WithChainUnaryInterceptor(trace.UnaryClientInterceptor()),
	}
	conn, err := grpc.NewClient(addr, append(dialOpts, opts...)...)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeOCRUnavailable, "dial ocr server %s", addr)
	}
	return &Client{
		conn:      conn,
		breaker:   resilience.New(cfg.Breaker),
		allowlist: cfg.Allowlist,
	}, nil
}

// Breaker exposes the circuit breaker so callers can attach hooks.
func (c *Client) Breaker() *resilience.Breaker { return c.breaker }

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Recognize encodes img and sends it to the OCR service. When the breaker
// is open the call fails fast with CodeOCRUnavailable.
func (c *Client) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := ocr.EncodePNG(img)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeOCRFailed, "encode frame")
	}
	text, err := resilience.Call(c.breaker, func() (string, error) {
		return c.ExtractText(ctx, data)
	})
	switch {
	case err == nil:
		return text, nil
	case errors.Is(err, resilience.ErrOpen):
		return "", apperrors.Wrap(err, apperrors.CodeOCRUnavailable, "ocr circuit open")
	default:
		return "", apperrors.FromGRPCError(err)
	}
}

// ExtractText performs OCR on an encoded image
func (c *Client) ExtractText(ctx context.Context, imageData []byte) (string, error) {
	if c.allowlist != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, AllowlistKey, c.allowlist)
	}
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, ExtractTextMethod, wrapperspb.Bytes(imageData), out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// WaitReady blocks until the connection is ready, retrying with backoff.
func (c *Client) WaitReady(ctx context.Context, cfg resilience.RetryConfig) error {
	c.conn.Connect()
	err := resilience.Retry(ctx, cfg, func() error {
		state := c.conn.GetState()
		if state == connectivity.Ready {
			return nil
		}
		probeCtx, cancel := context.WithTimeout(ctx, ReadyProbeTimeout)
		defer cancel()
		c.conn.WaitForStateChange(probeCtx, state)
		if c.conn.GetState() == connectivity.Ready {
			return nil
		}
		return status.Errorf(codes.Unavailable, "ocr server %s", c.conn.GetState())
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeOCRUnavailable, "ocr server not ready")
	}
	return nil
}
