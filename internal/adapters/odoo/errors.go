package odoo

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/customk9/booking-gateway/internal/domain"
)

// The backend reports failures three ways: transport errors, non-2xx
// statuses, and structured error payloads inside a 200 response. Each path
// funnels into the fixed domain.Kind set here; classification never fails.

func networkError(err error) *domain.Error {
	return domain.WrapError(domain.KindNetworkError, "remote backend unreachable", err)
}

func statusError(status int, body []byte) *domain.Error {
	msg := fmt.Sprintf("backend returned status %d", status)
	if len(body) > 0 && len(body) <= 512 {
		msg = fmt.Sprintf("%s: %s", msg, strings.TrimSpace(string(body)))
	}
	return domain.NewError(kindFromStatus(status), msg)
}

func kindFromStatus(status int) domain.Kind {
	switch {
	case status == http.StatusUnauthorized:
		return domain.KindUnauthorized
	case status == http.StatusForbidden:
		return domain.KindForbidden
	case status == http.StatusNotFound:
		return domain.KindNotFound
	case status == http.StatusBadRequest:
		return domain.KindBadRequest
	case status >= 500:
		return domain.KindServerError
	default:
		return domain.KindUnknown
	}
}

// sessionExpiredCode is the backend's fixed JSON-RPC code for a dead
// session.
const sessionExpiredCode = 100

func mapRPCError(e *rpcError) *domain.Error {
	if e == nil {
		return domain.NewError(domain.KindUnknown, "backend reported an unspecified error")
	}

	msg := e.Data.Message
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = "backend error with empty message"
	}

	kind := domain.KindUnknown
	name := e.Data.Name
	switch {
	case e.Code == sessionExpiredCode,
		strings.Contains(name, "SessionExpired"),
		strings.Contains(name, "AccessDenied"):
		kind = domain.KindUnauthorized
	case strings.Contains(name, "AccessError"):
		kind = domain.KindForbidden
	case strings.Contains(name, "MissingError"):
		kind = domain.KindNotFound
	case strings.Contains(name, "ValidationError"), strings.Contains(name, "UserError"):
		kind = domain.KindBadRequest
	}

	return domain.NewError(kind, msg)
}
