package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

// matchKey compares command name and lock key, ignoring script hashes and
// random lock tokens.
func matchKey(expected, actual []interface{}) error {
	if fmt.Sprint(expected[0]) != fmt.Sprint(actual[0]) {
		return fmt.Errorf("expected %v, got %v", expected[0], actual[0])
	}
	if lockKey(expected) != lockKey(actual) {
		return fmt.Errorf("expected key %q, got %q", lockKey(expected), lockKey(actual))
	}
	return nil
}

// lockKey finds the key of a plain command or of EVALSHA sha numkeys key.
func lockKey(args []interface{}) string {
	switch fmt.Sprint(args[0]) {
	case "evalsha", "eval":
		if len(args) > 3 {
			return fmt.Sprint(args[3])
		}
	default:
		if len(args) > 1 {
			return fmt.Sprint(args[1])
		}
	}
	return ""
}

func TestSubmitGuard_Local(t *testing.T) {
	ctx := context.Background()
	guard := NewSubmitGuard(nil, 30*time.Second)

	release, err := guard.Acquire(ctx, "submit:s1:save")
	require.NoError(t, err)

	_, err = guard.Acquire(ctx, "submit:s1:save")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	other, err := guard.Acquire(ctx, "submit:s1:transition")
	require.NoError(t, err, "different action is independent")
	other()

	release()
	again, err := guard.Acquire(ctx, "submit:s1:save")
	require.NoError(t, err)
	again()
}

func TestSubmitGuard_LocalExpiry(t *testing.T) {
	ctx := context.Background()
	guard := NewSubmitGuard(nil, time.Second)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	guard.now = func() time.Time { return now }

	stale, err := guard.Acquire(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := guard.Acquire(ctx, "k")
	require.NoError(t, err, "expired lock can be taken over")

	// Releasing the stale holder must not free the new lock.
	stale()
	_, err = guard.Acquire(ctx, "k")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	fresh()
}

func TestSubmitGuard_Redis(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	// redismock checks arg count before the custom matcher, so expectations
	// carry placeholders for redislock's script args; matchKey ignores them.
	keyed := mock.CustomMatch(matchKey)
	guard := NewSubmitGuard(db, 30*time.Second)

	keyed.ExpectEvalSha("obtain", []string{"submit:s1:save"}, "token", "len", "ttl").SetVal("OK")
	keyed.ExpectEvalSha("release", []string{"submit:s1:save"}, "token").SetVal(int64(1))

	release, err := guard.Acquire(ctx, "submit:s1:save")
	require.NoError(t, err)
	release()

	keyed.ExpectEvalSha("obtain", []string{"submit:s1:save"}, "token", "len", "ttl").SetErr(redis.Nil)
	_, err = guard.Acquire(ctx, "submit:s1:save")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	keyed.ExpectEvalSha("obtain", []string{"submit:s1:save"}, "token", "len", "ttl").SetErr(errors.New("connection refused"))
	_, err = guard.Acquire(ctx, "submit:s1:save")
	assert.True(t, apperrors.IsType(err, apperrors.ServerError))

	assert.NoError(t, mock.ExpectationsWereMet())
}
