package rpcclient

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mt5copier/tradecopier/pkg/types"
)

func decimalField(name, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %s %q: %w", name, value, err)
	}
	return d, nil
}

func parseSide(s string) types.Side {
	if s == "SELL" {
		return types.SELL
	}
	return types.BUY
}

func parseFillingMode(s string) types.FillingMode {
	switch s {
	case "FOK":
		return types.FillingFOK
	case "RETURN":
		return types.FillingReturn
	default:
		return types.FillingIOC
	}
}

func parseRetcode(s string) types.Retcode {
	switch s {
	case "DONE":
		return types.RetcodeDone
	case "INVALID_FILL":
		return types.RetcodeInvalidFill
	default:
		return types.RetcodeOther
	}
}

func actionString(a types.OrderAction) string {
	if a == types.ActionSLTP {
		return "SLTP"
	}
	return "DEAL"
}
