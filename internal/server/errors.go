package server

import (
	"errors"
	"net/http"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/configmonkey/internal/service"
)

// ErrorDomain tags gRPC error details produced by this server.
const ErrorDomain = "configmonkey"

// Transport-level failures that never reach the registry.
const (
	codeBadRequest   = "bad_request"
	codeNotFound     = "not_found"
	codeUnauthorized = "unauthorized"
	msgBadRequest    = "Unable to parse input parameters"
	msgRouteNotFound = "Resource not found"
)

// HTTPStatus maps an error kind to its response status.
func HTTPStatus(kind service.ErrorKind) int {
	switch kind {
	case service.KindInvalidSlug, service.KindInvalidKey, service.KindInvalidValue, service.KindInvalidPagination:
		return http.StatusBadRequest
	case service.KindDomainNotFound, service.KindConfigNotFound, service.KindVersionNotFound:
		return http.StatusNotFound
	case service.KindDuplicateSlug, service.KindConfigAlreadyExists:
		return http.StatusConflict
	case service.KindNotEmpty:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode maps an error kind to a gRPC status code.
func GRPCCode(kind service.ErrorKind) codes.Code {
	switch kind {
	case service.KindInvalidSlug, service.KindInvalidKey, service.KindInvalidValue, service.KindInvalidPagination:
		return codes.InvalidArgument
	case service.KindDomainNotFound, service.KindConfigNotFound, service.KindVersionNotFound:
		return codes.NotFound
	case service.KindDuplicateSlug, service.KindConfigAlreadyExists:
		return codes.AlreadyExists
	case service.KindNotEmpty:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

// errorBody is the JSON error payload.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeServiceError writes err as {"code","message"}. The cause of an
// unknown error is never exposed.
func writeServiceError(w http.ResponseWriter, err error) {
	kind := service.KindOf(err)
	writeError(w, HTTPStatus(kind), kind.Code(), kind.Message())
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// grpcError converts a registry error into a status carrying the kind's code
// as ErrorInfo.Reason.
func grpcError(err error) error {
	kind := service.KindOf(err)
	return statusWithReason(GRPCCode(kind), kind.Code(), kind.Message())
}

func statusWithReason(c codes.Code, reason, message string) error {
	st := status.New(c, message)
	if withInfo, err := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: ErrorDomain}); err == nil {
		st = withInfo
	}
	return st.Err()
}

func badRequest(err error) error {
	var se *service.Error
	if errors.As(err, &se) {
		return grpcError(err)
	}
	return statusWithReason(codes.InvalidArgument, codeBadRequest, msgBadRequest)
}
