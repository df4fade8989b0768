// Package geographic filters transfers by the parties' registered
// jurisdictions. An unverified party blocks unconditionally, independent of
// mode: absence of identity data is a fail-closed regulatory guarantee.
package geographic

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"tokengate/internal/compliance"
	"tokengate/internal/compliance/ports"
	"tokengate/internal/identity/models"
	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
)

// Mode selects how the jurisdiction map is interpreted.
type Mode string

const (
	// ModeAllowlist: a jurisdiction must be explicitly marked allowed;
	// unknown jurisdictions are not allowed.
	ModeAllowlist Mode = "allowlist"
	// ModeBlocklist: a jurisdiction must be explicitly marked blocked to
	// fail; unknown jurisdictions pass.
	ModeBlocklist Mode = "blocklist"
)

// ParseMode validates the wire form of a mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if m != ModeAllowlist && m != ModeBlocklist {
		return "", dErrors.New(dErrors.CodeInvalidInput, "mode must be allowlist or blocklist")
	}
	return m, nil
}

// Rule checks jurisdiction status for both parties via the identity registry.
// Pure mint and burn check only the side that exists.
type Rule struct {
	mu       sync.RWMutex
	mode     Mode
	status   map[string]bool
	identity ports.IdentityReader
	authz    ports.Authorizer
	active   bool
	logger   *slog.Logger
}

type Option func(*Rule)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Rule) { r.logger = logger }
}

func New(mode Mode, identity ports.IdentityReader, authz ports.Authorizer, opts ...Option) (*Rule, error) {
	if mode != ModeAllowlist && mode != ModeBlocklist {
		return nil, dErrors.New(dErrors.CodeValidation, "mode must be allowlist or blocklist")
	}
	if identity == nil {
		return nil, fmt.Errorf("identity reader is required")
	}
	if authz == nil {
		return nil, fmt.Errorf("authorizer is required")
	}
	r := &Rule{
		mode:     mode,
		status:   make(map[string]bool),
		identity: identity,
		authz:    authz,
		active:   true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// SetJurisdiction marks a jurisdiction in the status map. In allowlist mode
// true means allowed; in blocklist mode true means blocked.
func (r *Rule) SetJurisdiction(ctx context.Context, code string, flagged bool) error {
	if err := r.authz.Authorize(ctx); err != nil {
		return err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if !models.ValidJurisdiction(code) {
		return dErrors.New(dErrors.CodeValidation, "jurisdiction must be a 2-letter country code")
	}
	r.mu.Lock()
	r.status[code] = flagged
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.InfoContext(ctx, "jurisdiction status updated",
			"jurisdiction", code, "flagged", flagged, "mode", string(r.mode))
	}
	return nil
}

// CanTransfer checks the relevant parties' jurisdictions. Unverified parties
// (including expired verifications) block regardless of mode.
func (r *Rule) CanTransfer(ctx context.Context, t compliance.Transfer) (bool, error) {
	for _, party := range r.parties(t) {
		ok, err := r.checkParty(ctx, party)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (r *Rule) parties(t compliance.Transfer) []domain.Address {
	switch t.Kind() {
	case compliance.KindMint:
		return []domain.Address{t.To}
	case compliance.KindBurn:
		return []domain.Address{t.From}
	default:
		return []domain.Address{t.From, t.To}
	}
}

func (r *Rule) checkParty(ctx context.Context, party domain.Address) (bool, error) {
	jurisdiction, err := r.identity.Jurisdiction(ctx, party)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read jurisdiction")
	}
	if jurisdiction == "" {
		// Unverified or expired: fail closed.
		return false, nil
	}

	r.mu.RLock()
	flagged, known := r.status[jurisdiction]
	mode := r.mode
	r.mu.RUnlock()

	switch mode {
	case ModeAllowlist:
		return known && flagged, nil
	default: // ModeBlocklist
		return !(known && flagged), nil
	}
}

// SetActive toggles rule participation.
func (r *Rule) SetActive(ctx context.Context, active bool) error {
	if err := r.authz.Authorize(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	r.active = active
	r.mu.Unlock()
	return nil
}

func (r *Rule) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

func (r *Rule) Type() string { return "geographic" }

func (r *Rule) Description() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("geographic restriction (%s mode)", r.mode)
}

func (r *Rule) Parameters() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	params := map[string]string{
		"type":   r.Type(),
		"mode":   string(r.mode),
		"active": strconv.FormatBool(r.active),
	}
	var flagged []string
	for code, on := range r.status {
		if on {
			flagged = append(flagged, code)
		}
	}
	sort.Strings(flagged)
	params["jurisdictions"] = strings.Join(flagged, ",")
	return params
}
