package main

import (
	"fmt"

	"github.com/dagbft/narwhal/crypto"
	"github.com/dagbft/narwhal/model/narwhal"
)

// newCommittee generates fresh keys for n authorities with one worker each
// and equal stake. The signers are returned in authority index order.
func newCommittee(n int) (*narwhal.Committee, []*crypto.PrivateKey, error) {
	keys := make(map[crypto.PublicKey]*crypto.PrivateKey, n)
	authorities := make([]narwhal.Authority, 0, n)
	for i := 0; i < n; i++ {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return nil, nil, fmt.Errorf("could not generate key: %w", err)
		}
		keys[key.PublicKey()] = key
		authorities = append(authorities, narwhal.Authority{
			PublicKey:      key.PublicKey(),
			Stake:          1,
			PrimaryAddress: fmt.Sprintf("127.0.0.1:%d", 4000+i),
			Workers: map[narwhal.WorkerID]narwhal.WorkerInfo{
				0: {
					Name:                key.PublicKey(),
					TransactionsAddress: fmt.Sprintf("127.0.0.1:%d", 5000+i),
					WorkerAddress:       fmt.Sprintf("127.0.0.1:%d", 6000+i),
				},
			},
		})
	}

	committee, err := narwhal.NewCommittee(0, authorities)
	if err != nil {
		return nil, nil, fmt.Errorf("could not build committee: %w", err)
	}
	signers := make([]*crypto.PrivateKey, committee.Size())
	for _, index := range committee.Indices() {
		signers[index] = keys[committee.Authority(index).PublicKey]
	}
	return committee, signers, nil
}
