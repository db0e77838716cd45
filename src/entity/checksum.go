package entity

const (
	checksumP3     = 26 * 26 * 26
	checksumP5     = 26 * 26 * 26 * 26 * 26
	checksumM      = 1000003
	checksumW      = 31
	checksumLength = 5
)

// computeChecksum derives the five letter checksum of address ("0.0.3") on
// the given ledger.
func computeChecksum(ledger LedgerID, address string) string {
	var s, s0, s1 int64

	for i, r := range address {
		var d int64
		if r == '.' {
			d = 10
		} else {
			d = int64(r - '0')
		}

		s = (checksumW*s + d) % checksumP3
		if i%2 == 0 {
			s0 = (s0 + d) % 11
		} else {
			s1 = (s1 + d) % 11
		}
	}

	h := make([]byte, 0, len(ledger)+6)
	h = append(h, ledger...)
	h = append(h, 0, 0, 0, 0, 0, 0)

	var sh int64
	for _, b := range h {
		sh = (checksumW*sh + int64(b)) % checksumP5
	}

	c := ((((int64(len(address)%5)*11+s0)*11+s1)*checksumP3 + s + sh) % checksumP5)
	c = (c * checksumM) % checksumP5

	letters := make([]byte, checksumLength)
	for i := checksumLength - 1; i >= 0; i-- {
		letters[i] = byte('a' + c%26)
		c /= 26
	}

	return string(letters)
}

func validChecksumSyntax(cs string) bool {
	if len(cs) != checksumLength {
		return false
	}
	for _, r := range cs {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
