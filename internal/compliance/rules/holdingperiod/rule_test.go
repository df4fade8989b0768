package holdingperiod

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tokengate/internal/compliance"
	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
	"tokengate/pkg/requestcontext"
)

const (
	holder    = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	recipient = domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	agent     = domain.Address("0x9999999999999999999999999999999999999999")
)

const period = 24 * time.Hour

type allowAll struct{}

func (allowAll) Authorize(context.Context) error { return nil }

type HoldingPeriodSuite struct {
	suite.Suite
	rule *Rule
	t0   time.Time
}

func TestHoldingPeriodSuite(t *testing.T) {
	suite.Run(t, new(HoldingPeriodSuite))
}

func (s *HoldingPeriodSuite) SetupTest() {
	rule, err := New(period, allowAll{})
	s.Require().NoError(err)
	s.rule = rule
	s.t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

// at pins the request clock to t0 plus an offset and attaches the agent
// caller for configuration operations.
func (s *HoldingPeriodSuite) at(offset time.Duration) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), agent)
	return requestcontext.WithTime(ctx, s.t0.Add(offset))
}

func (s *HoldingPeriodSuite) canTransfer(ctx context.Context) bool {
	ok, err := s.rule.CanTransfer(ctx, compliance.Transfer{From: holder, To: recipient, Amount: 10})
	s.Require().NoError(err)
	return ok
}

func (s *HoldingPeriodSuite) TestLockBoundaryIsInclusive() {
	s.Require().NoError(s.rule.TransferExecuted(s.at(0), compliance.Transfer{To: holder, Amount: 10}))

	s.Run("one second before the boundary blocks", func() {
		s.False(s.canTransfer(s.at(period - time.Second)))
	})

	s.Run("exactly at the boundary allows", func() {
		s.True(s.canTransfer(s.at(period)))
	})

	s.Run("after the boundary allows", func() {
		s.True(s.canTransfer(s.at(period + time.Hour)))
	})
}

func (s *HoldingPeriodSuite) TestNoAcquisitionFailsClosed() {
	s.False(s.canTransfer(s.at(100 * period)))
}

func (s *HoldingPeriodSuite) TestMintAndBurnNeverCheck() {
	ok, err := s.rule.CanTransfer(s.at(0), compliance.Transfer{To: recipient, Amount: 10})
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.rule.CanTransfer(s.at(0), compliance.Transfer{From: holder, Amount: 10})
	s.Require().NoError(err)
	s.True(ok)
}

func (s *HoldingPeriodSuite) TestReceiptRestartsTheClock() {
	s.Require().NoError(s.rule.TransferExecuted(s.at(0), compliance.Transfer{To: holder, Amount: 10}))
	s.True(s.canTransfer(s.at(period)))

	// A second receipt at t0+period re-locks the whole position.
	s.Require().NoError(s.rule.TransferExecuted(s.at(period), compliance.Transfer{To: holder, Amount: 5}))
	s.False(s.canTransfer(s.at(period + time.Hour)))
	s.True(s.canTransfer(s.at(2 * period)))
}

func (s *HoldingPeriodSuite) TestExemptSenderBypassesLock() {
	s.Require().NoError(s.rule.TransferExecuted(s.at(0), compliance.Transfer{To: holder, Amount: 10}))
	s.Require().NoError(s.rule.SetExempt(s.at(0), holder, true))
	s.True(s.canTransfer(s.at(time.Minute)))
}

func (s *HoldingPeriodSuite) TestCustomPeriodOverride() {
	s.Require().NoError(s.rule.TransferExecuted(s.at(0), compliance.Transfer{To: holder, Amount: 10}))
	s.Require().NoError(s.rule.SetCustomPeriod(s.at(0), holder, time.Hour))

	s.True(s.canTransfer(s.at(time.Hour)))

	// Removing the override restores the global period.
	s.Require().NoError(s.rule.SetCustomPeriod(s.at(0), holder, 0))
	s.False(s.canTransfer(s.at(2 * time.Hour)))
	s.True(s.canTransfer(s.at(period)))
}

func (s *HoldingPeriodSuite) TestRecordAcquisitionBackfill() {
	backdated := s.t0.Add(-2 * period)
	s.Require().NoError(s.rule.RecordAcquisition(s.at(0), holder, backdated))
	s.True(s.canTransfer(s.at(0)))
}

func (s *HoldingPeriodSuite) TestUnlockProjections() {
	s.Require().NoError(s.rule.TransferExecuted(s.at(0), compliance.Transfer{To: holder, Amount: 10}))

	unlockAt, err := s.rule.UnlockAt(s.at(0), holder)
	s.Require().NoError(err)
	s.Equal(s.t0.Add(period), unlockAt)

	remaining, err := s.rule.TimeRemaining(s.at(period/2), holder)
	s.Require().NoError(err)
	s.Equal(period/2, remaining)

	remaining, err = s.rule.TimeRemaining(s.at(2*period), holder)
	s.Require().NoError(err)
	s.Zero(remaining)

	_, err = s.rule.UnlockAt(s.at(0), recipient)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *HoldingPeriodSuite) TestConstructorValidation() {
	_, err := New(0, allowAll{})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
