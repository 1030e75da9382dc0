package core

import "errors"

// Authentication errors form a closed taxonomy; the error message is the
// wire-level code returned to clients, so messages must stay stable.
var (
	// Challenge issuance.
	ErrChallengeFailed = errors.New("stellar_challenge_failed")

	// Challenge verification, in check order.
	ErrInvalidXDR              = errors.New("invalid_xdr")
	ErrInvalidSource           = errors.New("invalid_source")
	ErrInvalidSequence         = errors.New("invalid_sequence")
	ErrExpired                 = errors.New("expired")
	ErrMissingOps              = errors.New("missing_ops")
	ErrInvalidHomeDomainSource = errors.New("invalid_home_domain_source")
	ErrInvalidWebAuthDomain    = errors.New("invalid_web_auth_domain")
	ErrInvalidNonce            = errors.New("invalid_nonce")
	ErrNonceNotFoundOrExpired  = errors.New("nonce_not_found_or_expired")
	ErrServerSigMissing        = errors.New("server_sig_missing")
	ErrClientSigMissing        = errors.New("client_sig_missing")

	// Identity resolution.
	ErrFailedToCreateUser    = errors.New("failed_to_create_user")
	ErrFailedToCreateSession = errors.New("failed_to_create_session")

	// Session.
	ErrNotAuthenticated    = errors.New("not_authenticated")
	ErrNotCustodialAccount = errors.New("not_custodial_account")

	// Custodial signing bridge.
	ErrCustodialAPIKeyMissing = errors.New("custodial_api_key_missing")
	ErrCustodialUserNotFound  = errors.New("custodial_user_not_found")
	ErrCustodialUnauthorized  = errors.New("custodial_unauthorized")
	ErrCustodialBadRequest    = errors.New("custodial_bad_request")
	ErrCustodialSigningFailed = errors.New("custodial_signing_failed")
	ErrCustodialServerError   = errors.New("custodial_server_error")
)
