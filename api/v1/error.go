package api_v1

import (
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

func withMessage(st *status.Status, msg string) *status.Status {
	d := &errdetails.LocalizedMessage{
		Locale:  "en-US",
		Message: msg,
	}
	std, err := st.WithDetails(d)
	if err != nil {
		return st
	}
	return std
}

type InvalidRequestError struct {
	Reason string
}

func (e InvalidRequestError) GRPCStatus() *status.Status {
	msg := fmt.Sprintf("invalid request: %s", e.Reason)
	return withMessage(status.New(codes.InvalidArgument, msg), msg)
}

func (e InvalidRequestError) Error() string {
	return e.GRPCStatus().Err().Error()
}

// ValidationError carries every validation failure of a workflow definition as a field
// violation.
type ValidationError struct {
	Errors []string
}

func (e ValidationError) GRPCStatus() *status.Status {
	st := status.New(codes.FailedPrecondition, "workflow definition is invalid")
	br := &errdetails.BadRequest{}
	for _, msg := range e.Errors {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       "workflow",
			Description: msg,
		})
	}
	std, err := st.WithDetails(br)
	if err != nil {
		return st
	}
	return std
}

func (e ValidationError) Error() string {
	return e.GRPCStatus().Err().Error()
}

type StorageLayerError struct{}

func (e StorageLayerError) GRPCStatus() *status.Status {
	msg := "error in underline storage layer"
	return withMessage(status.New(codes.Internal, msg), msg)
}

func (e StorageLayerError) Error() string {
	return e.GRPCStatus().Err().Error()
}
