package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

// DefaultFeeRate is the platform's cut of the pool.
var DefaultFeeRate = decimal.RequireFromString("0.05")

// Plan kinds.
const (
	PlanPayoutKind = "payout"
	PlanRefundKind = "refund"
)

var errNoWinners = errors.New("settlement has no stakes on the winning side")

// Stake is one participant seat and the wallet that paid for it.
type Stake struct {
	UserID  uuid.UUID
	PayerID uuid.UUID
	Side    string
}

// Entry is the release applied to one payer's wallet. Seats counts the stakes
// the payer covered.
type Entry struct {
	PayerID  uuid.UUID
	Kind     string
	Released decimal.Decimal
	Paid     decimal.Decimal
	Seats    int
}

// Plan is the full set of wallet movements that settle one match.
type Plan struct {
	MatchID    uuid.UUID
	Kind       string
	WinnerSide string
	Pool       decimal.Decimal
	Fee        decimal.Decimal
	Payout     decimal.Decimal
	Entries    []Entry
}

// PlanPayout computes the settlement for a decided match. stakes must be in
// join order; leftover cents of an uneven split go to the first winning stake's
// payer, which is the winning side's captain.
func PlanPayout(matchID uuid.UUID, entryFee, feeRate decimal.Decimal, stakes []Stake, winnerSide string) (*Plan, error) {
	if winnerSide != models.SideA && winnerSide != models.SideB {
		return nil, fmt.Errorf("invalid winner side %q", winnerSide)
	}
	if !entryFee.IsPositive() {
		return nil, fmt.Errorf("invalid entry fee %s", entryFee)
	}

	var winners int
	for _, s := range stakes {
		if s.Side == winnerSide {
			winners++
		}
	}
	if winners == 0 {
		return nil, errNoWinners
	}

	pool := entryFee.Mul(decimal.NewFromInt(int64(len(stakes))))
	fee := pool.Mul(feeRate).Round(2)
	payout := pool.Sub(fee)
	share := payout.Div(decimal.NewFromInt(int64(winners))).Truncate(2)
	leftover := payout.Sub(share.Mul(decimal.NewFromInt(int64(winners))))

	byPayer := make(map[uuid.UUID]*Entry)
	first := true
	for _, s := range stakes {
		e, ok := byPayer[s.PayerID]
		if !ok {
			e = &Entry{PayerID: s.PayerID, Kind: models.TxKindFee}
			byPayer[s.PayerID] = e
		}
		e.Released = e.Released.Add(entryFee)
		e.Seats++
		if s.Side != winnerSide {
			continue
		}
		e.Kind = models.TxKindPayout
		e.Paid = e.Paid.Add(share)
		if first {
			e.Paid = e.Paid.Add(leftover)
			first = false
		}
	}

	return &Plan{
		MatchID:    matchID,
		Kind:       PlanPayoutKind,
		WinnerSide: winnerSide,
		Pool:       pool,
		Fee:        fee,
		Payout:     payout,
		Entries:    sortedEntries(byPayer),
	}, nil
}

// PlanRefund returns every stake to its payer with no fee.
func PlanRefund(matchID uuid.UUID, entryFee decimal.Decimal, stakes []Stake) *Plan {
	byPayer := make(map[uuid.UUID]*Entry)
	for _, s := range stakes {
		e, ok := byPayer[s.PayerID]
		if !ok {
			e = &Entry{PayerID: s.PayerID, Kind: models.TxKindRefund}
			byPayer[s.PayerID] = e
		}
		e.Released = e.Released.Add(entryFee)
		e.Paid = e.Released
		e.Seats++
	}
	pool := entryFee.Mul(decimal.NewFromInt(int64(len(stakes))))
	return &Plan{
		MatchID: matchID,
		Kind:    PlanRefundKind,
		Pool:    pool,
		Fee:     decimal.Zero,
		Payout:  pool,
		Entries: sortedEntries(byPayer),
	}
}

func sortedEntries(byPayer map[uuid.UUID]*Entry) []Entry {
	out := make([]Entry, 0, len(byPayer))
	for _, e := range byPayer {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PayerID.String() < out[j].PayerID.String() })
	return out
}
