// Package gatekeeper implements the account lifecycle and authentication
// subsystem for a multi-tenant conversational assistant backend.
//
// Overview:
//   - Accounts are persisted via Bun and carry an ApprovalState that gates
//     access. Regular users register into "pending" and must be approved by
//     the admin before they can log in; the first (and only) admin account
//     is self-bootstrapped and auto-approved.
//   - Session tokens are stateless HS256 JWTs minted by the TokenService.
//     There is no server-side session store and no early revocation: a token
//     that verifies and has not expired is accepted.
//   - The Guard is the request boundary. It extracts a bearer token, verifies
//     it, attaches the decoded claims to the request, and enforces the admin
//     gate on restricted routes. It trusts token claims and does not re-check
//     the store on every request, so role/approval changes take effect on the
//     next login.
//
// The HTTP surface in http_controller.go is a thin JSON boundary over the
// Workflow; everything with real invariants lives in the workflow, the
// approval state machine, and the Accounts repository.
package gatekeeper
