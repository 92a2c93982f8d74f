// Package simulate generates synthetic attacker chains and background noise
// and drives their timed emission into the event store.
package simulate

import (
	"fmt"
	"math/rand"
)

// First-octet values excluded from generated addresses so they read like
// public-Internet traffic: private, loopback, link-local, multicast,
// broadcast blocks.
var excludedPrefixes = map[int]bool{
	0: true, 10: true, 127: true, 169: true, 172: true, 192: true,
	224: true, 225: true, 226: true, 227: true, 228: true, 229: true,
	230: true, 231: true, 232: true, 233: true, 234: true, 235: true,
	236: true, 237: true, 238: true, 239: true, 255: true,
}

// RandomIP generates a random public-looking IPv4 address, skipping
// private/reserved/broken first octets.
func RandomIP(rng *rand.Rand) string {
	for {
		a := 1 + rng.Intn(254)
		if excludedPrefixes[a] {
			continue
		}
		b := rng.Intn(256)
		c := rng.Intn(256)
		d := 1 + rng.Intn(254)
		return fmt.Sprintf("%d.%d.%d.%d", a, b, c, d)
	}
}

// commonPorts is weighted toward the ports benign traffic actually hits.
var commonPorts = []int{
	443, 443, 443, // heavily weighted
	80, 80, // common web
	8080, // alt web
	22,   // ssh
	53,   // dns
	3306, // mysql
}

// RandomCommonPort returns a port from a small weighted pool of common ports.
func RandomCommonPort(rng *rand.Rand) int {
	return commonPorts[rng.Intn(len(commonPorts))]
}
