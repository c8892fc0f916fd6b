package risk

import "strings"

// Violation codes reported when sizing refuses a trade.
const (
	CodeNoEquity          = "NO_EQUITY"
	CodeNoEntry           = "NO_STOP_OR_ENTRY"
	CodeZeroStopDistance  = "ZERO_STOP_DISTANCE"
	CodeQtyBelowMin       = "QTY_BELOW_MIN"
	CodeNonFiniteQuantity = "NON_FINITE_QTY"
)

type Violation struct {
	Code string
	Msg  string
}

// Decision records whether sizing allows a trade and, if not, why.
type Decision struct {
	Allowed    bool
	Violations []Violation
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Codes joins the violation codes, e.g. "QTY_BELOW_MIN".
func (d Decision) Codes() string {
	codes := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		codes[i] = v.Code
	}
	return strings.Join(codes, ",")
}
