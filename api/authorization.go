package api

import (
	"fmt"
	"net/http"

	"github.com/ashish-0314/Traffic-Management/config"
	"github.com/ashish-0314/Traffic-Management/models"
)

// Operation names every role-gated action in the system
type Operation string

// Operations gated by the capability table
const (
	OpIncidentCreate       Operation = "incident:create"
	OpIncidentList         Operation = "incident:list"
	OpIncidentUpdateStatus Operation = "incident:update-status"
	OpIncidentStats        Operation = "incident:stats"

	OpFineIssue     Operation = "fine:issue"
	OpFineListAll   Operation = "fine:list-all"
	OpFineListMine  Operation = "fine:list-mine"
	OpFinePay       Operation = "fine:pay"
	OpFineStats     Operation = "fine:stats"
	OpPaymentOrder  Operation = "fine:payment-order"
	OpPaymentVerify Operation = "fine:payment-verify"

	OpUserList    Operation = "user:list"
	OpUserApprove Operation = "user:approve"
	OpUserReject  Operation = "user:reject"

	OpProfileRead     Operation = "profile:read"
	OpProfileUpdate   Operation = "profile:update"
	OpPasswordChange  Operation = "profile:password"
	OpUploadSignature Operation = "upload:signature"

	OpNotificationList    Operation = "notification:list"
	OpNotificationRead    Operation = "notification:read"
	OpNotificationReadAll Operation = "notification:read-all"
)

var anyRole = []string{models.RoleUser, models.RoleAdmin, models.RoleTrafficPolice}
var privileged = []string{models.RoleAdmin, models.RoleTrafficPolice}
var adminOnly = []string{models.RoleAdmin}

// capabilities is the single declarative map from operation to allowed
// roles. Ownership predicates (my fine, my profile, my inbox) are enforced
// by the handlers through caller-scoped queries.
var capabilities = map[Operation][]string{
	OpIncidentCreate:       anyRole,
	OpIncidentList:         anyRole,
	OpIncidentUpdateStatus: privileged,
	OpIncidentStats:        privileged,

	OpFineIssue:     privileged,
	OpFineListAll:   privileged,
	OpFineListMine:  anyRole,
	OpFinePay:       anyRole,
	OpFineStats:     privileged,
	OpPaymentOrder:  anyRole,
	OpPaymentVerify: anyRole,

	// listing doubles as the issue-fine lookup flow for traffic police
	OpUserList:    privileged,
	OpUserApprove: adminOnly,
	OpUserReject:  adminOnly,

	OpProfileRead:     anyRole,
	OpProfileUpdate:   anyRole,
	OpPasswordChange:  anyRole,
	OpUploadSignature: anyRole,

	OpNotificationList:    anyRole,
	OpNotificationRead:    anyRole,
	OpNotificationReadAll: anyRole,
}

// Allowed reports whether the role may perform the operation
func Allowed(op Operation, role string) bool {
	for _, r := range capabilities[op] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize wraps a handler with a capability check for the operation. It
// runs after Middleware, so the caller's role is already on the context.
func Authorize(op Operation, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, fmt.Errorf("no authenticated user"))
			return
		}
		if !Allowed(op, user.Role) {
			config.ErrorStatus("forbidden", http.StatusForbidden, w,
				fmt.Errorf("role %s may not perform %s", user.Role, op))
			return
		}
		next.ServeHTTP(w, r)
	})
}
