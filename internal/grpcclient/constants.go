// Package grpcclient talks to a remote OCR engine over gRPC
package grpcclient

import "time"

// Wire contract. Requests carry the PNG frame in google.protobuf.BytesValue,
// replies the recognized text in google.protobuf.StringValue.
const (
	ServiceName       = "minimap.ocr.v1.OCRService"
	ExtractTextMethod = "/" + ServiceName + "/ExtractText"

	// AllowlistKey carries the character allowlist as request metadata.
	AllowlistKey = "x-ocr-allowlist"
)

// Client configuration defaults
const (
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// Readiness probing at startup
	ReadyProbeTimeout = 2 * time.Second
)
