package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrUpstream covers transport failures and 5xx answers from the provider.
var ErrUpstream = errors.New("ai upstream error")

// ErrAuth indicates the provider rejected our credentials.
var ErrAuth = errors.New("ai credentials rejected")

// ErrEmptyReply is returned when the provider answered without any content.
var ErrEmptyReply = errors.New("ai returned empty reply")
