package dvfs

import (
	"math/bits"
	"strconv"
	"strings"
)

// DomainID identifies a domain. IDs are small dense integers.
type DomainID int

// MaxDomainIDs is the number of ids a Bitset can hold.
const MaxDomainIDs = 32

// A Bitset is a set of domain ids.
type Bitset uint32

// BitsetOf returns the set of the given ids. Ids out of range are ignored.
func BitsetOf(ids ...DomainID) Bitset {
	var b Bitset

	for _, id := range ids {
		b = b.With(id)
	}

	return b
}

// Has tells if id is in the set.
func (b Bitset) Has(id DomainID) bool {
	if id < 0 || id >= MaxDomainIDs {
		return false
	}

	return b&(1<<uint(id)) != 0
}

// With returns the set plus id.
func (b Bitset) With(id DomainID) Bitset {
	if id < 0 || id >= MaxDomainIDs {
		return b
	}

	return b | 1<<uint(id)
}

// Without returns the set minus id.
func (b Bitset) Without(id DomainID) Bitset {
	if id < 0 || id >= MaxDomainIDs {
		return b
	}

	return b &^ (1 << uint(id))
}

// Empty tells if the set has no member.
func (b Bitset) Empty() bool {
	return b == 0
}

// Len returns the number of members.
func (b Bitset) Len() int {
	return bits.OnesCount32(uint32(b))
}

// IDs lists the members in ascending order.
func (b Bitset) IDs() []DomainID {
	ids := make([]DomainID, 0, b.Len())

	for rest := uint32(b); rest != 0; rest &= rest - 1 {
		ids = append(ids, DomainID(bits.TrailingZeros32(rest)))
	}

	return ids
}

func (b Bitset) String() string {
	parts := make([]string, 0, b.Len())

	for _, id := range b.IDs() {
		parts = append(parts, strconv.Itoa(int(id)))
	}

	return "{" + strings.Join(parts, ",") + "}"
}

// Relations are the links of a domain to the others.
type Relations struct {
	// VoltShareMasters are the domains whose requests are aggregated on the
	// shared rail. A domain may list itself.
	VoltShareMasters Bitset

	// VoltShareHosts are the domains a slave follows on the shared rail.
	VoltShareHosts Bitset

	// VoltShareSlaves are notified when the rail voltage changes.
	VoltShareSlaves Bitset

	// FreqSyncHosts are the domains a slave mirrors the index of.
	FreqSyncHosts Bitset

	// FreqSyncSlaves replay every index request of the host.
	FreqSyncSlaves Bitset

	// SubDomains are rebuilt together with the host.
	SubDomains Bitset
}

// All returns every domain referenced.
func (r Relations) All() Bitset {
	return r.VoltShareMasters | r.VoltShareHosts | r.VoltShareSlaves |
		r.FreqSyncHosts | r.FreqSyncSlaves | r.SubDomains
}
