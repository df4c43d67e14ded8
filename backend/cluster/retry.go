package cluster

import (
	"context"
	"fmt"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
)

// Do runs fn with the current clients. If fn fails with an authentication
// error the credentials are refreshed once and fn runs exactly once more with
// the new clients. Every other error, and a second auth failure, is returned
// unchanged. operation names the call in logs.
func Do[T any](ctx context.Context, creds *Credentials, operation string, fn func(context.Context, *Clients) (T, error)) (T, error) {
	var zero T

	clients, err := creds.Clients(ctx)
	if err != nil {
		return zero, err
	}

	result, err := fn(ctx, clients)
	if err == nil || !apperrors.IsAuthExpired(err) {
		return result, err
	}

	creds.logger.Warn(fmt.Sprintf("Authentication failed during %s, refreshing credentials: %v", operation, err), logSource)
	creds.telemetry.RecordRetryAttempt(err)

	refreshed, refreshErr := creds.Refresh(ctx, clients, err.Error())
	if refreshErr != nil {
		creds.telemetry.RecordRetryExhausted(refreshErr)
		return zero, fmt.Errorf("%w (credential refresh failed: %v)", err, refreshErr)
	}

	result, err = fn(ctx, refreshed)
	if err != nil {
		if apperrors.IsAuthExpired(err) {
			creds.logger.Error(fmt.Sprintf("Authentication failed again during %s after refresh: %v", operation, err), logSource)
		}
		creds.telemetry.RecordRetryExhausted(err)
		return zero, err
	}

	creds.telemetry.RecordRetrySuccess()
	return result, nil
}

// Run is Do for operations that only return an error.
func Run(ctx context.Context, creds *Credentials, operation string, fn func(context.Context, *Clients) error) error {
	_, err := Do(ctx, creds, operation, func(ctx context.Context, clients *Clients) (struct{}, error) {
		return struct{}{}, fn(ctx, clients)
	})
	return err
}
