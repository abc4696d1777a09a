package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const subjectKey ctxKey = "subject"

// Validator is the part of session.Manager the guard needs.
type Validator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// SubjectFromContext returns the subject placed by the guard.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok && s != ""
}

// Guard authenticates every call except those on its allow-list. An entry
// ending in "/" allows a whole service.
type Guard struct {
	sessions Validator
	logger   logging.Logger
	public   []string
}

func NewGuard(sessions Validator, logger logging.Logger, public ...string) *Guard {
	return &Guard{sessions: sessions, logger: logger, public: public}
}

func (g *Guard) isPublic(method string) bool {
	for _, p := range g.public {
		if method == p || (strings.HasSuffix(p, "/") && strings.HasPrefix(method, p)) {
			return true
		}
	}
	return false
}

func (g *Guard) authenticate(ctx context.Context, method string) (context.Context, error) {
	if g.isPublic(method) {
		return ctx, nil
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
			header = values[0]
		}
	}
	scheme, token, _ := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !strings.EqualFold(scheme, common.BearerScheme) || token == "" {
		return nil, status.Error(codes.Unauthenticated, "token is missing")
	}

	subject, err := g.sessions.Validate(ctx, token)
	if err != nil {
		g.logger.Debug(ctx, "token rejected", "method", method, "kind", common.ErrorKind(err))
		return nil, statusFromSessionError(err)
	}
	return context.WithValue(ctx, subjectKey, subject), nil
}

// Unary is a grpc.UnaryServerInterceptor.
func (g *Guard) Unary(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	ctx, err := g.authenticate(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

// Stream is a grpc.StreamServerInterceptor.
func (g *Guard) Stream(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := g.authenticate(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &authedStream{ServerStream: ss, ctx: ctx})
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authedStream) Context() context.Context { return s.ctx }

func statusFromSessionError(err error) error {
	switch {
	case errors.Is(err, common.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, "service temporarily unavailable")
	case errors.Is(err, common.ErrWrongTokenType):
		return status.Error(codes.Unauthenticated, "invalid token type")
	case common.IsAuthFailure(err):
		return status.Error(codes.Unauthenticated, "unauthorized")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
