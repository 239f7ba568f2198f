package voucher

import "fmt"

// SelectPolicy decides which voucher answers a program status query when an
// account holds several vouchers for the same program.
type SelectPolicy string

const (
	// SelectFirst takes the first match in registry enumeration order. The
	// order is whatever the registry returns and is not guaranteed stable
	// across registry implementations.
	SelectFirst SelectPolicy = "first"
	// SelectHighestBalance takes the match with the largest remaining
	// balance; the earliest one wins a tie.
	SelectHighestBalance SelectPolicy = "highest_balance"
)

// ParseSelectPolicy maps a config value to a policy. Empty means SelectFirst.
func ParseSelectPolicy(s string) (SelectPolicy, error) {
	switch SelectPolicy(s) {
	case "", SelectFirst:
		return SelectFirst, nil
	case SelectHighestBalance:
		return SelectHighestBalance, nil
	default:
		return "", fmt.Errorf("unknown select policy %q", s)
	}
}

// pick returns the voucher for program chosen by the policy, or nil.
func (p SelectPolicy) pick(vs []Voucher, program ProgramID) *Voucher {
	var best *Voucher
	for i := range vs {
		v := &vs[i]
		if !v.Allows(program) {
			continue
		}
		if p != SelectHighestBalance {
			return v
		}
		if best == nil || balanceOf(v).Cmp(balanceOf(best)) > 0 {
			best = v
		}
	}
	return best
}
