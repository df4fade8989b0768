package accredited

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
	treasury  = domain.Address("0xcccccccccccccccccccccccccccccccccccccccc")
	agent     = domain.Address("0x9999999999999999999999999999999999999999")
)

type allowAll struct{}

func (allowAll) Authorize(context.Context) error { return nil }

type AccreditedSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	identity *mocks.MockIdentityReader
	rule     *Rule
}

func TestAccreditedSuite(t *testing.T) {
	suite.Run(t, new(AccreditedSuite))
}

func (s *AccreditedSuite) SetupTest() {
	s.ctx = requestcontext.WithCaller(context.Background(), agent)
	s.ctrl = gomock.NewController(s.T())
	s.identity = mocks.NewMockIdentityReader(s.ctrl)

	rule, err := New(domain.LevelAccredited, s.identity, allowAll{})
	s.Require().NoError(err)
	s.rule = rule
}

func (s *AccreditedSuite) level(account domain.Address, level domain.VerificationLevel) {
	s.identity.EXPECT().VerificationLevel(gomock.Any(), account).Return(level, nil)
}

func (s *AccreditedSuite) TestRecipientLevelGate() {
	s.Run("meeting the minimum passes", func() {
		s.level(recipient, domain.LevelAccredited)
		ok, err := s.rule.CanTransfer(s.ctx, compliance.Transfer{From: sender, To: recipient, Amount: 10})
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("exceeding the minimum passes", func() {
		s.level(recipient, domain.LevelInstitutional)
		ok, err := s.rule.CanTransfer(s.ctx, compliance.Transfer{From: sender, To: recipient, Amount: 10})
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("below the minimum blocks", func() {
		s.level(recipient, domain.LevelBasic)
		ok, err := s.rule.CanTransfer(s.ctx, compliance.Transfer{From: sender, To: recipient, Amount: 10})
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("unverified recipient blocks", func() {
		s.level(recipient, domain.LevelNone)
		ok, err := s.rule.CanTransfer(s.ctx, compliance.Transfer{From: sender, To: recipient, Amount: 10})
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *AccreditedSuite) TestSenderIsNotChecked() {
	// Only the recipient's level is read; the mock would fail the test on an
	// unexpected sender lookup.
	s.level(recipient, domain.LevelAccredited)
	ok, err := s.rule.CanTransfer(s.ctx, compliance.Transfer{From: sender, To: recipient, Amount: 10})
	s.Require().NoError(err)
	s.True(ok)
}

func (s *AccreditedSuite) TestBurnAlwaysPasses() {
	ok, err := s.rule.CanTransfer(s.ctx, compliance.Transfer{From: sender, Amount: 10})
	s.Require().NoError(err)
	s.True(ok)
}

func (s *AccreditedSuite) TestExemptRecipientBypassesGate() {
	s.Require().NoError(s.rule.SetExempt(s.ctx, treasury, true))
	s.True(s.rule.IsExempt(treasury))

	ok, err := s.rule.CanTransfer(s.ctx, compliance.Transfer{From: sender, To: treasury, Amount: 10})
	s.Require().NoError(err)
	s.True(ok)

	s.Require().NoError(s.rule.SetExempt(s.ctx, treasury, false))
	s.False(s.rule.IsExempt(treasury))
}

func (s *AccreditedSuite) TestConstructorRejectsLevelNone() {
	_, err := New(domain.LevelNone, s.identity, allowAll{})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *AccreditedSuite) TestParameters() {
	params := s.rule.Parameters()
	s.Equal("accredited_investor", params["type"])
	s.Equal("accredited", params["minimum_level"])
}
