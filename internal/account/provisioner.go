package account

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"certo/pkg/platform/audit"
	"certo/pkg/platform/sentinel"
	"certo/pkg/requestcontext"

	"golang.org/x/crypto/bcrypt"
)

// Provisioner creates accounts for first-time credential recipients. The
// account is pre-confirmed with a random password; recipients reset it
// through the normal password flow before first login.
type Provisioner struct {
	store  Store
	audit  audit.Publisher
	logger *slog.Logger
}

func NewProvisioner(store Store, auditPub audit.Publisher, logger *slog.Logger) *Provisioner {
	return &Provisioner{store: store, audit: auditPub, logger: logger}
}

// EnsureAccount creates an account for the email if none exists. Callers
// treat failures as non-fatal: issuance must not fail because account
// provisioning did.
func (p *Provisioner) EnsureAccount(ctx context.Context, email string) (*Account, error) {
	existing, err := p.store.FindByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("find account: %w", err)
	}

	hash, err := randomPasswordHash()
	if err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}
	created, err := p.store.Create(ctx, &Account{
		Username:     email,
		Email:        email,
		PasswordHash: hash,
		Confirmed:    true,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a race with a concurrent issuance for the same recipient.
			return p.store.FindByEmail(ctx, email)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	p.logger.Info("provisioned recipient account", "email", email)
	if p.audit != nil {
		event := audit.Event{
			Category:  audit.EventAccountProvisioned.Category(),
			Timestamp: requestcontext.Now(ctx),
			Subject:   strconv.FormatInt(created.ID, 10),
			Action:    string(audit.EventAccountProvisioned),
			Email:     email,
			RequestID: requestcontext.RequestID(ctx),
			ActorID:   requestcontext.ActorID(ctx),
		}
		if err := p.audit.Publish(ctx, event); err != nil {
			p.logger.Warn("audit publish failed", "action", string(audit.EventAccountProvisioned), "error", err.Error())
		}
	}
	return created, nil
}

func randomPasswordHash() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(raw)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
