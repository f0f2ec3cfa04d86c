package crypto

import (
	"fmt"
	"runtime"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// KeyedSignature pairs a signature with the key that is claimed to have produced it.
type KeyedSignature struct {
	PublicKey PublicKey
	Signature Signature
}

// BatchVerify checks that every signature verifies against the same digest.
// Signatures are checked concurrently; the returned error aggregates every failure
// and every aggregated failure wraps ErrInvalidSignature.
func BatchVerify(digest []byte, sigs []KeyedSignature) error {
	results := make([]error, len(sigs))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, ks := range sigs {
		i, ks := i, ks
		g.Go(func() error {
			valid, err := ks.PublicKey.Verify(ks.Signature, digest)
			switch {
			case err != nil:
				results[i] = fmt.Errorf("signature %d by %s: %w: %w", i, ks.PublicKey, ErrInvalidSignature, err)
			case !valid:
				results[i] = fmt.Errorf("signature %d by %s: %w", i, ks.PublicKey, ErrInvalidSignature)
			}
			return nil
		})
	}
	_ = g.Wait()

	var merr *multierror.Error
	for _, err := range results {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}
