package execgrpc

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	modular "github.com/PolyTorus/polytorus-sub000"
)

// statusFromError maps the execution layer's protocol errors to gRPC
// status codes so a remote caller can keep using errors.Is and
// errors.As the way a local caller would.
func statusFromError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, modular.ErrContextActive):
		return status.Error(codes.FailedPrecondition, modular.ErrContextActive.Error())
	case errors.Is(err, modular.ErrNoActiveContext):
		return status.Error(codes.FailedPrecondition, modular.ErrNoActiveContext.Error())
	case errors.Is(err, modular.ErrAccountNotFound):
		return status.Error(codes.NotFound, modular.ErrAccountNotFound.Error())
	}
	if _, ok := modular.IsGasLimitExceeded(err); ok {
		return status.Error(codes.ResourceExhausted, err.Error())
	}
	if _, ok := modular.IsValidation(err); ok {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// errorFromStatus reverses statusFromError on the client side.
func errorFromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := st.Message()
	switch st.Code() {
	case codes.FailedPrecondition:
		if msg == modular.ErrContextActive.Error() {
			return modular.ErrContextActive
		}
		if msg == modular.ErrNoActiveContext.Error() {
			return modular.ErrNoActiveContext
		}
	case codes.NotFound:
		if msg == modular.ErrAccountNotFound.Error() {
			return modular.ErrAccountNotFound
		}
	case codes.ResourceExhausted:
		if strings.HasPrefix(msg, "gas limit exceeded") {
			g := new(modular.GasLimitExceededError)
			fmt.Sscanf(msg, "gas limit exceeded: used %d of %d", &g.GasUsed, &g.GasLimit)
			return g
		}
	case codes.InvalidArgument:
		if reason, ok := strings.CutPrefix(msg, "block validation: "); ok {
			return &modular.ValidationError{Reason: reason}
		}
	}
	return err
}
