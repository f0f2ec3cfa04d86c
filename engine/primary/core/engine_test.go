package core

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/network"
	"github.com/dagbft/narwhal/network/channels"
	netmock "github.com/dagbft/narwhal/network/mock"
	"github.com/dagbft/narwhal/utils/unittest"
)

// conduits is a network handing out a fixed conduit per channel.
type conduits map[channels.Channel]network.Conduit

func (c conduits) Register(channel channels.Channel, _ network.MessageProcessor) (network.Conduit, error) {
	return c[channel], nil
}

// TestEngine_VotesQueuedWithOwnHeader checks that peer votes queued together
// with the own header they answer are counted, and that the header is
// certified exactly once.
func (s *CoreSuite) TestEngine_VotesQueuedWithOwnHeader() {
	headerCon := netmock.NewConduit(s.T())
	e, err := NewEngine(unittest.Logger(), conduits{
		channels.PushHeaders:      headerCon,
		channels.PushVotes:        s.voteCon,
		channels.PushCertificates: s.certCon,
	}, s.core)
	s.Require().NoError(err)

	own := s.committee.HeaderFixture(s.T(), 0, 1, s.committee.GenesisIDs(), nil)
	headerCon.On("Publish", own, narwhal.AuthorityIndex(1), narwhal.AuthorityIndex(2), narwhal.AuthorityIndex(3)).Return(nil).Once()
	s.voteCon.On("Unicast", voteFor(own), narwhal.AuthorityIndex(0)).Return(nil).Once()
	var published []*narwhal.Certificate
	s.certCon.On("Publish", mock.Anything, narwhal.AuthorityIndex(0), narwhal.AuthorityIndex(1), narwhal.AuthorityIndex(2), narwhal.AuthorityIndex(3)).
		Run(func(args mock.Arguments) { published = append(published, args.Get(0).(*narwhal.Certificate)) }).
		Return(nil)

	// the peers answer before the engine gets to run
	s.Require().NoError(e.BroadcastHeader(own))
	votes := s.committee.Votes(s.T(), own, 0, 1, 2, 3)
	for _, vote := range votes[1:] {
		s.Require().NoError(e.Process(channels.PushVotes, vote.Author, vote))
	}
	s.Require().NoError(e.processAvailableMessages(context.Background()))
	s.Require().Len(published, 1)
	s.Assert().Equal(own.ID, published[0].Header.ID)
	s.Assert().NoError(published[0].Verify(s.committee.Committee))

	// our own vote comes back through the network after quorum
	s.Require().NoError(e.Process(channels.PushVotes, 0, votes[0]))
	s.Require().NoError(e.processAvailableMessages(context.Background()))
	s.Assert().Len(published, 1)
}

// TestEngine_BroadcastQueueFull checks that an own header that cannot be
// queued for the core is not sent to the peers.
func (s *CoreSuite) TestEngine_BroadcastQueueFull() {
	s.core = s.newCore(WithQueueCapacity(1))
	headerCon := netmock.NewConduit(s.T())
	e, err := NewEngine(unittest.Logger(), conduits{
		channels.PushHeaders:      headerCon,
		channels.PushVotes:        s.voteCon,
		channels.PushCertificates: s.certCon,
	}, s.core)
	s.Require().NoError(err)

	first := s.committee.HeaderFixture(s.T(), 0, 1, s.committee.GenesisIDs(), nil)
	headerCon.On("Publish", first, narwhal.AuthorityIndex(1), narwhal.AuthorityIndex(2), narwhal.AuthorityIndex(3)).Return(nil).Once()
	s.Require().NoError(e.BroadcastHeader(first))

	second := s.committee.HeaderFixture(s.T(), 0, 2, s.committee.GenesisIDs(), nil)
	s.Assert().Error(e.BroadcastHeader(second))
}
