// Package txn runs multi-document writes in a MongoDB transaction when the
// deployment supports one. Standalone servers do not, so Run falls back to
// executing the writes directly.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes meaning "transactions unavailable here".
var unsupportedCodes = map[int32]bool{
	20:  true, // IllegalOperation: no replica set
	51:  true, // IllegalOperation (older servers)
	263: true, // OperationNotSupportedInTransaction
}

// IsNotSupported reports whether err says the server cannot run
// transactions, as opposed to the transaction itself failing.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return unsupportedCodes[ce.Code]
	}

	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}

// Run calls fn inside a transaction on client. If the deployment has no
// transaction support, fn runs once without one and the fallback is logged.
func Run(ctx context.Context, client *mongo.Client, logger *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return runDirect(ctx, logger, fn, err)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if IsNotSupported(err) {
		return runDirect(ctx, logger, fn, err)
	}
	return err
}

func runDirect(ctx context.Context, logger *zap.Logger, fn func(ctx context.Context) error, cause error) error {
	if logger != nil {
		logger.Debug("transactions unavailable; writing without one", zap.Error(cause))
	}
	return fn(ctx)
}
