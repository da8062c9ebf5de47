package votes

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
)

// Registry is the optional ground-truth wallet->balance map, loaded
// once from a CSV manifest (owner,amount columns), mirroring the
// original TokenHolderRegistry. A nil *Registry is valid: callers treat
// every address as a non-holder and skip the balance-weighted path.
type Registry struct {
	balances map[string]float64
}

// LoadRegistry reads a holders CSV from path. An empty path returns a
// nil Registry (no holder-gating, no balance-weighted scoring) rather
// than an error — the holders manifest is optional per §4.9 step 4.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("votes: failed to open holders manifest %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("votes: failed to parse holders manifest %s: %w", path, err)
	}
	if len(rows) == 0 {
		return &Registry{balances: map[string]float64{}}, nil
	}

	header := rows[0]
	ownerCol, amountCol := -1, -1
	for i, col := range header {
		switch col {
		case "owner":
			ownerCol = i
		case "amount":
			amountCol = i
		}
	}
	if ownerCol == -1 || amountCol == -1 {
		return nil, fmt.Errorf("votes: holders manifest %s missing owner/amount columns", path)
	}

	reg := &Registry{balances: make(map[string]float64, len(rows)-1)}
	for _, row := range rows[1:] {
		if len(row) <= ownerCol || len(row) <= amountCol {
			continue
		}
		amount, err := strconv.ParseFloat(row[amountCol], 64)
		if err != nil {
			continue
		}
		reg.balances[row[ownerCol]] = amount
	}
	return reg, nil
}

// IsHolder reports whether address appears in the manifest.
func (r *Registry) IsHolder(address string) bool {
	if r == nil {
		return false
	}
	_, ok := r.balances[address]
	return ok
}

// Balance returns address's recorded token balance, or 0 if unknown.
func (r *Registry) Balance(address string) float64 {
	if r == nil {
		return 0
	}
	return r.balances[address]
}

// QuadraticWeight is the balance-dampened voting weight: sqrt(balance).
func (r *Registry) QuadraticWeight(address string) float64 {
	if r == nil {
		return 0
	}
	b, ok := r.balances[address]
	if !ok || b <= 0 {
		return 0
	}
	return math.Sqrt(b)
}
