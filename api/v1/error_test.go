package api_v1

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestValidationErrorDetails(t *testing.T) {
	err := ValidationError{Errors: []string{"node id c1 is duplicate", "workflow must have at least one trigger node"}}
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.FailedPrecondition, st.Code())
	require.Len(t, st.Details(), 1)
	br, ok := st.Details()[0].(*errdetails.BadRequest)
	require.True(t, ok)
	require.Len(t, br.FieldViolations, 2)
	require.Equal(t, "node id c1 is duplicate", br.FieldViolations[0].Description)
}

func TestInvalidRequestError(t *testing.T) {
	st, ok := status.FromError(InvalidRequestError{Reason: "event is required"})
	require.True(t, ok)
	require.Equal(t, codes.InvalidArgument, st.Code())
	require.Contains(t, st.Message(), "event is required")
}
