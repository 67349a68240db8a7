// ABOUTME: Capacity credit lifecycle: deployment facts, expiry math, ledger contract
// ABOUTME: Credits expire at a UTC midnight boundary minus a fixed safety margin

package credits

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/2389/toolwarden/internal/store"
)

// ExpiryMargin is subtracted from the midnight expiry boundary so a credit
// never lapses mid-operation at the exact boundary on a slow network.
const ExpiryMargin = 10 * time.Minute

// Deployment is a static description of one network deployment. Only some
// deployments enforce rate limits and therefore require capacity credits.
type Deployment struct {
	Name            string
	RequiresCredits bool
}

var knownDeployments = map[string]Deployment{
	"datil-dev":  {Name: "datil-dev", RequiresCredits: false},
	"datil-test": {Name: "datil-test", RequiresCredits: true},
	"datil":      {Name: "datil", RequiresCredits: true},
}

// DeploymentByName returns the deployment facts for a network name.
func DeploymentByName(name string) (Deployment, error) {
	d, ok := knownDeployments[name]
	if !ok {
		return Deployment{}, fmt.Errorf("credits: unknown deployment %q", name)
	}
	return d, nil
}

// MintParams are the terms of a capacity credit mint.
type MintParams struct {
	RequestsPerKilosecond uint64
	DaysUntilExpiration   int
}

// Receipt is the ledger's confirmation of a mint.
type Receipt struct {
	CreditID string
	TxHash   string
}

// Ledger is the external rate-limit ledger. Mint is non-idempotent and
// consumes balance; callers must quote and check balance first.
type Ledger interface {
	Quote(ctx context.Context, requestsPerKilosecond uint64, expiresAt time.Time) (*big.Int, error)
	Mint(ctx context.Context, signer string, params MintParams) (Receipt, error)
	BalanceOf(ctx context.Context, signer string) (*big.Int, error)
}

// Expiry computes when a credit minted at mintedAt with the given expiry
// horizon stops being usable: the UTC midnight that is daysUntilExpiration
// days after the UTC calendar date of mintedAt, minus ExpiryMargin.
func Expiry(mintedAt time.Time, daysUntilExpiration int) time.Time {
	utc := mintedAt.UTC()
	midnight := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, daysUntilExpiration).Add(-ExpiryMargin)
}

// Expired reports whether the credit is past its expiry at the given instant.
func Expired(credit *store.Credit, now time.Time) bool {
	return now.After(credit.ExpiresAt)
}
