// Package otp issues and verifies the one-time codes that guard sensitive
// actions: order placement, account signup and password reset.
package otp

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/silkloom/store/internal/domain"
)

// PendingTTL bounds how long an issued code or staged intent stays valid.
// It matches the expiry quoted in the verification email.
const PendingTTL = 10 * time.Minute

var (
	ErrNoPendingAction = errors.New("no pending action for session")
	ErrInvalidCode     = errors.New("invalid verification code")
)

// PendingStore keeps at most one live PendingAction per session and kind.
// Implementations are expected to expire entries after PendingTTL.
type PendingStore interface {
	Put(ctx context.Context, sessionID string, action *domain.PendingAction) error
	// Get returns ErrNoPendingAction when nothing is staged.
	Get(ctx context.Context, sessionID string, kind domain.ActionKind) (*domain.PendingAction, error)
	Delete(ctx context.Context, sessionID string, kind domain.ActionKind) error
}

// Mailer delivers the code. Calls are made on a detached goroutine with no
// retry; a failed send is logged, never surfaced to the end user.
type Mailer interface {
	SendVerificationCode(recipient, code string) error
}

type Gate struct {
	store  PendingStore
	mailer Mailer
}

func NewGate(store PendingStore, mailer Mailer) *Gate {
	return &Gate{store: store, mailer: mailer}
}

// Issue stages a PendingAction for the session and fires the notification
// email without waiting for it. The returned error reflects staging only:
// once the action is durably staged the caller may advance to the
// verification screen regardless of what happens to the email.
func (g *Gate) Issue(ctx context.Context, sessionID string, kind domain.ActionKind, recipient string, payload any) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal pending payload: %w", err)
	}

	action := &domain.PendingAction{
		Kind:     kind,
		Code:     code,
		Payload:  raw,
		IssuedAt: time.Now(),
	}
	if err := g.store.Put(ctx, sessionID, action); err != nil {
		return "", fmt.Errorf("stage pending action: %w", err)
	}

	go func() {
		if err := g.mailer.SendVerificationCode(recipient, code); err != nil {
			log.Error().Err(err).Str("kind", string(kind)).Msg("verification email send failed")
		}
	}()

	return code, nil
}

// Verify checks a submitted code against the staged action. On a match the
// action is consumed and its payload returned. On a mismatch the action is
// retained so the user may retry. A session with nothing staged gets
// ErrNoPendingAction, which callers must treat as "re-initiate the flow",
// not as a wrong code.
func (g *Gate) Verify(ctx context.Context, sessionID string, kind domain.ActionKind, submittedCode string) (json.RawMessage, error) {
	action, err := g.store.Get(ctx, sessionID, kind)
	if err != nil {
		return nil, err
	}

	// Stores expire entries themselves; this check covers any that don't.
	if time.Since(action.IssuedAt) > PendingTTL {
		if err := g.store.Delete(ctx, sessionID, kind); err != nil {
			log.Warn().Err(err).Msg("failed to drop expired pending action")
		}
		return nil, ErrNoPendingAction
	}

	if action.Code != submittedCode {
		return nil, ErrInvalidCode
	}

	if err := g.store.Delete(ctx, sessionID, kind); err != nil {
		return nil, fmt.Errorf("consume pending action: %w", err)
	}
	return action.Payload, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
