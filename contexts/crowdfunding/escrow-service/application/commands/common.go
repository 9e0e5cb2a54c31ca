package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "crystalgive/contexts/crowdfunding/escrow-service/application"
	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
	"crystalgive/contexts/crowdfunding/escrow-service/domain/valueobjects"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"
)

const defaultIdempotencyTTL = 7 * 24 * time.Hour

var callerErrorKinds = []error{
	domainerrors.ErrInvalidArgument,
	domainerrors.ErrNotFound,
	domainerrors.ErrUnauthorized,
	domainerrors.ErrAlreadyVoted,
	domainerrors.ErrAlreadyFinalized,
	domainerrors.ErrQuorumNotMet,
	domainerrors.ErrInsufficientFunds,
}

// IsCallerError reports whether err is a precondition failure rather than an
// infrastructure fault.
func IsCallerError(err error) bool {
	for _, kind := range callerErrorKinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func parseCaller(raw string) (valueobjects.Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return "", domainerrors.ErrCallerRequired
	}
	identity, err := valueobjects.ParseIdentity(raw)
	if err != nil {
		return "", domainerrors.ErrCallerRequired
	}
	return identity, nil
}

func resolveNow(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}

func resolveIdempotencyTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultIdempotencyTTL
	}
	return ttl
}

// scopedIdempotencyKey keeps keys from colliding across operations and callers.
func scopedIdempotencyKey(operation string, caller valueobjects.Identity, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	return operation + ":" + caller.String() + ":" + key
}

func hashRequest(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func newEventID(ctx context.Context, generator ports.IDGenerator) (string, error) {
	if generator == nil {
		return "", domainerrors.ErrInvariantViolated
	}
	return generator.NewID(ctx)
}

// logRejection logs caller precondition failures at warn and anything else at error.
func logRejection(logger *slog.Logger, metrics ports.Metrics, operation string, event string, err error, attrs ...any) {
	application.ResolveMetrics(metrics).OperationRejected(operation, err)
	args := append([]any{
		"event", event,
		"module", application.ModuleName,
		"layer", "application",
		"operation", operation,
		"error", err.Error(),
	}, attrs...)
	if IsCallerError(err) {
		logger.Warn(operation+" rejected", args...)
		return
	}
	logger.Error(operation+" failed", args...)
}
