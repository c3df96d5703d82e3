package pattern

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zlobste/grepcidr/ipaddr"
)

// TestIndexProperties checks the universal invariants that must hold for any
// compiled index of IPv4 /24-granularity ranges: the merged range set stays
// sorted and gap-separated, and membership of every input address is
// preserved by the merge.
func TestIndexProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	octetGen := gen.UInt8Range(0, 255)

	properties.Property("merged v4 ranges stay sorted and non-adjacent", prop.ForAll(
		func(octets []uint8) bool {
			toks := make([]string, 0, len(octets))
			for _, o := range octets {
				toks = append(toks, fmt.Sprintf("10.0.%d.0/24", o))
			}
			idx, err := Build(toks, false)
			if err != nil {
				return false
			}
			rs := idx.V4Ranges()
			for i := 0; i+1 < len(rs); i++ {
				if rs[i].Min >= rs[i+1].Min {
					return false
				}
				if uint32(rs[i].Max)+1 >= uint32(rs[i+1].Min) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(octetGen),
	))

	properties.Property("every compiled /24 source address is contained after merge", prop.ForAll(
		func(octets []uint8) bool {
			toks := make([]string, 0, len(octets))
			for _, o := range octets {
				toks = append(toks, fmt.Sprintf("10.0.%d.0/24", o))
			}
			idx, err := Build(toks, false)
			if err != nil {
				return false
			}
			for _, o := range octets {
				a, _, _ := ipaddr.ParseV4([]byte(fmt.Sprintf("10.0.%d.1", o)))
				if !idx.ContainsV4(a) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(octetGen),
	))

	properties.TestingRun(t)
}
