package symbols

import "github.com/mselser95/triarb/pkg/types"

// Direction distinguishes a cycle's forward leg order from its reverse.
type Direction int

const (
	DirectionForward Direction = iota
	DirectionReverse
)

func (d Direction) String() string {
	if d == DirectionForward {
		return "forward"
	}
	return "reverse"
}

// Cycle is one monitored triangular path: an ordered triple of (symbol,
// side) legs forming a closed currency loop through a base asset and a
// settlement asset.
//
// Forward: settlement -> base (buy BaseSettlement, pay ask)
//
//	-> base -> alt (buy AltBase, pay ask)
//	-> alt -> settlement (sell AltSettlement, hit bid)
//
// Reverse: settlement -> alt (buy AltSettlement, pay ask)
//
//	-> alt -> base (sell AltBase, hit bid)
//	-> base -> settlement (sell BaseSettlement, hit bid)
type Cycle struct {
	ID         int
	Alt        string
	Base       string
	Settlement string
	Direction  Direction

	// LegSymbols/LegSides describe the three legs in execution order,
	// matching ChanceEvent/OrderEvent's leg-index convention.
	LegSymbols [3]string
	LegSides   [3]types.Side
}

func newCycle(id int, alt, base, settlement, altBaseSymbol, altSettlementSymbol, baseSettlementSymbol string, dir Direction) Cycle {
	c := Cycle{
		ID:         id,
		Alt:        alt,
		Base:       base,
		Settlement: settlement,
		Direction:  dir,
	}

	if dir == DirectionForward {
		c.LegSymbols = [3]string{baseSettlementSymbol, altBaseSymbol, altSettlementSymbol}
		c.LegSides = [3]types.Side{types.SideAsk, types.SideAsk, types.SideBid}
	} else {
		c.LegSymbols = [3]string{altSettlementSymbol, altBaseSymbol, baseSettlementSymbol}
		c.LegSides = [3]types.Side{types.SideAsk, types.SideBid, types.SideBid}
	}

	return c
}

// Key uniquely identifies this cycle for Gatekeeper in-flight/cooldown
// bookkeeping.
func (c Cycle) Key() string {
	return c.Alt + "/" + c.Base + "/" + c.Settlement + "/" + c.Direction.String()
}
