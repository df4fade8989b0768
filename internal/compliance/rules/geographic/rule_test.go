package geographic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"tokengate/internal/compliance"
	"tokengate/internal/compliance/ports/mocks"
	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
	"tokengate/pkg/requestcontext"
)

const (
	sender    = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	recipient = domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	agent     = domain.Address("0x9999999999999999999999999999999999999999")
)

type allowAll struct{}

func (allowAll) Authorize(context.Context) error { return nil }

type GeographicSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	identity *mocks.MockIdentityReader
}

func TestGeographicSuite(t *testing.T) {
	suite.Run(t, new(GeographicSuite))
}

func (s *GeographicSuite) SetupTest() {
	s.ctx = requestcontext.WithCaller(context.Background(), agent)
	s.ctrl = gomock.NewController(s.T())
	s.identity = mocks.NewMockIdentityReader(s.ctrl)
}

func (s *GeographicSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *GeographicSuite) newRule(mode Mode) *Rule {
	rule, err := New(mode, s.identity, allowAll{})
	s.Require().NoError(err)
	return rule
}

func (s *GeographicSuite) jurisdiction(account domain.Address, code string) {
	s.identity.EXPECT().Jurisdiction(gomock.Any(), account).Return(code, nil).AnyTimes()
}

func (s *GeographicSuite) TestBlocklistMode() {
	rule := s.newRule(ModeBlocklist)
	s.Require().NoError(rule.SetJurisdiction(s.ctx, "KP", true))

	s.Run("unlisted jurisdictions pass", func() {
		s.jurisdiction(sender, "US")
		s.jurisdiction(recipient, "DE")
		ok, err := rule.CanTransfer(s.ctx, compliance.Transfer{From: sender, To: recipient, Amount: 10})
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("blocked recipient jurisdiction fails", func() {
		ctrl := gomock.NewController(s.T())
		identity := mocks.NewMockIdentityReader(ctrl)
		identity.EXPECT().Jurisdiction(gomock.Any(), sender).Return("US", nil)
		identity.EXPECT().Jurisdiction(gomock.Any(), recipient).Return("KP", nil)
		blocked, err := New(ModeBlocklist, identity, allowAll{})
		s.Require().NoError(err)
		s.Require().NoError(blocked.SetJurisdiction(s.ctx, "KP", true))

		ok, err := blocked.CanTransfer(s.ctx, compliance.Transfer{From: sender, To: recipient, Amount: 10})
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *GeographicSuite) TestAllowlistMode() {
	rule := s.newRule(ModeAllowlist)
	s.Require().NoError(rule.SetJurisdiction(s.ctx, "US", true))

	s.Run("unlisted jurisdiction fails", func() {
		s.jurisdiction(sender, "US")
		s.jurisdiction(recipient, "DE")
		ok, err := rule.CanTransfer(s.ctx, compliance.Transfer{From: sender, To: recipient, Amount: 10})
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("listed jurisdictions pass", func() {
		ctrl := gomock.NewController(s.T())
		identity := mocks.NewMockIdentityReader(ctrl)
		identity.EXPECT().Jurisdiction(gomock.Any(), sender).Return("US", nil)
		identity.EXPECT().Jurisdiction(gomock.Any(), recipient).Return("US", nil)
		allowed, err := New(ModeAllowlist, identity, allowAll{})
		s.Require().NoError(err)
		s.Require().NoError(allowed.SetJurisdiction(s.ctx, "US", true))

		ok, err := allowed.CanTransfer(s.ctx, compliance.Transfer{From: sender, To: recipient, Amount: 10})
		s.Require().NoError(err)
		s.True(ok)
	})
}

func (s *GeographicSuite) TestUnverifiedPartyFailsClosed() {
	// Empty jurisdiction means unverified or expired. Both modes block,
	// including blocklist mode where unknown codes normally pass.
	for _, mode := range []Mode{ModeAllowlist, ModeBlocklist} {
		ctrl := gomock.NewController(s.T())
		identity := mocks.NewMockIdentityReader(ctrl)
		identity.EXPECT().Jurisdiction(gomock.Any(), recipient).Return("", nil)
		rule, err := New(mode, identity, allowAll{})
		s.Require().NoError(err)

		ok, err := rule.CanTransfer(s.ctx, compliance.Transfer{To: recipient, Amount: 10})
		s.Require().NoError(err)
		s.False(ok, "mode %s must fail closed", mode)
	}
}

func (s *GeographicSuite) TestMintChecksOnlyRecipient() {
	rule := s.newRule(ModeBlocklist)
	s.jurisdiction(recipient, "US")

	ok, err := rule.CanTransfer(s.ctx, compliance.Transfer{To: recipient, Amount: 10})
	s.Require().NoError(err)
	s.True(ok)
}

func (s *GeographicSuite) TestBurnChecksOnlySender() {
	rule := s.newRule(ModeBlocklist)
	s.jurisdiction(sender, "US")

	ok, err := rule.CanTransfer(s.ctx, compliance.Transfer{From: sender, Amount: 10})
	s.Require().NoError(err)
	s.True(ok)
}

func (s *GeographicSuite) TestSetJurisdictionValidation() {
	rule := s.newRule(ModeBlocklist)

	s.Run("lowercase input normalized", func() {
		s.Require().NoError(rule.SetJurisdiction(s.ctx, "kp", true))
		params := rule.Parameters()
		s.Contains(params["jurisdictions"], "KP")
	})

	s.Run("invalid code rejected", func() {
		err := rule.SetJurisdiction(s.ctx, "USA", true)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *GeographicSuite) TestParseMode() {
	_, err := ParseMode("denylist")
	s.Error(err)

	mode, err := ParseMode("allowlist")
	s.Require().NoError(err)
	s.Equal(ModeAllowlist, mode)
}
