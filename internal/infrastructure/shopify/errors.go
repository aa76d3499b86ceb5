package shopify

import (
	"context"
	"errors"
	"net"
	"strings"

	"archie-core-forms-layer/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

// classifyError maps go-shopify errors onto error kinds.
// go-shopify does not always expose the status, so the message is checked as a last resort.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var rateLimited goshopify.RateLimitError
	if errors.As(err, &rateLimited) {
		return domain.WrapError(domain.KindRemoteUnavailable, op, err)
	}
	var respErr goshopify.ResponseError
	if errors.As(err, &respErr) && respErr.Status != 0 {
		return domain.WrapError(kindOrUnavailable(domain.KindFromStatus(respErr.Status)), op, err)
	}
	var respErrPtr *goshopify.ResponseError
	if errors.As(err, &respErrPtr) && respErrPtr.Status != 0 {
		return domain.WrapError(kindOrUnavailable(domain.KindFromStatus(respErrPtr.Status)), op, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.KindTimeout, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.WrapError(domain.KindTimeout, op, err)
		}
		return domain.WrapError(domain.KindRemoteUnavailable, op, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "401", "unauthorized", "invalid api key or access token", "invalid token"):
		return domain.WrapError(domain.KindUnauthenticated, op, err)
	case containsAny(msg, "403", "forbidden", "access denied"):
		return domain.WrapError(domain.KindForbidden, op, err)
	case containsAny(msg, "404", "not found"):
		return domain.WrapError(domain.KindNotFound, op, err)
	}
	return domain.WrapError(domain.KindRemoteUnavailable, op, err)
}

func kindOrUnavailable(kind domain.ErrorKind) domain.ErrorKind {
	if kind == domain.KindUnknown {
		return domain.KindRemoteUnavailable
	}
	return kind
}

// containsAny checks if s contains any of the substrings
func containsAny(s string, substrings ...string) bool {
	for _, substr := range substrings {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
