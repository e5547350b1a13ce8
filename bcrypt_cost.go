//go:build !race

package gatekeeper

func passwordHashCost() int {
	return 12
}
