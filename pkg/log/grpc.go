package log

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const metadataKeyRequestID = "x-request-id"

// UnaryServerInterceptor injects a request-scoped logger into the call context
// and logs every completed unary call.
func UnaryServerInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		child := callLogger(ctx, logger, info.FullMethod)

		resp, err := handler(WithLogger(ctx, child), req)

		logCompleted(child, start, err, "unary call completed")
		return resp, err
	}
}

// StreamServerInterceptor is the streaming counterpart of UnaryServerInterceptor.
// Health Watch calls are long-lived streams and are logged when they end.
func StreamServerInterceptor(logger zerolog.Logger) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()
		child := callLogger(ss.Context(), logger, info.FullMethod)

		err := handler(srv, &wrappedStream{
			ServerStream: ss,
			ctx:          WithLogger(ss.Context(), child),
		})

		logCompleted(child, start, err, "stream call completed")
		return err
	}
}

// wrappedStream overrides Context() to carry the child logger.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

func callLogger(ctx context.Context, logger zerolog.Logger, method string) zerolog.Logger {
	return logger.With().
		Str(FieldRequestID, requestIDFromMD(ctx)).
		Str(FieldGRPCMethod, method).
		Logger()
}

func logCompleted(l zerolog.Logger, start time.Time, err error, msg string) {
	evt := l.Info()
	if err != nil {
		evt = l.Warn().Err(err)
	}
	evt.Str(FieldGRPCCode, status.Code(err).String()).
		Float64(FieldLatency, float64(time.Since(start).Milliseconds())).
		Msg(msg)
}

func requestIDFromMD(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(metadataKeyRequestID); len(vals) > 0 && vals[0] != "" {
			return vals[0]
		}
	}
	return uuid.New().String()
}
