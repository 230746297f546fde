package grpcclient

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/GriffinCanCode/minimap-tracker/internal/errors"
	"github.com/GriffinCanCode/minimap-tracker/internal/ocr"
)

// OCRServer is the server side of the OCR contract.
type OCRServer interface {
	ExtractText(ctx context.Context, imageData []byte, allowlist string) (string, error)
}

var ocrServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OCRServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExtractText", Handler: extractTextHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "minimap/ocr/v1/ocr.proto",
}

// RegisterOCRServer registers srv on s.
func RegisterOCRServer(s grpc.ServiceRegistrar, srv OCRServer) {
	s.RegisterService(&ocrServiceDesc, srv)
}

func extractTextHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	var allowlist string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(AllowlistKey); len(v) > 0 {
			allowlist = v[0]
		}
	}
	handler := func(ctx context.Context, req any) (any, error) {
		text, err := srv.(OCRServer).ExtractText(ctx, req.(*wrapperspb.BytesValue).GetValue(), allowlist)
		if err != nil {
			return nil, err
		}
		return wrapperspb.String(text), nil
	}
	if interceptor == nil {
		return handler(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExtractTextMethod}
	return interceptor(ctx, in, info, handler)
}

// RecognizerServer exposes a local ocr.Recognizer over gRPC. The allowlist
// sent by clients is ignored; the recognizer carries its own.
type RecognizerServer struct {
	rec ocr.Recognizer
}

// NewRecognizerServer wraps rec.
func NewRecognizerServer(rec ocr.Recognizer) *RecognizerServer {
	return &RecognizerServer{rec: rec}
}

func (s *RecognizerServer) ExtractText(ctx context.Context, imageData []byte, _ string) (string, error) {
	if len(imageData) == 0 {
		return "", apperrors.New(apperrors.CodeOCREmpty, "empty image")
	}
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInvalidArgument, "decode image")
	}
	text, err := s.rec.Recognize(ctx, img)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeOCRFailed, "recognize")
	}
	return text, nil
}
