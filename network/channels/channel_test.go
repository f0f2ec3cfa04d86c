package channels_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dagbft/narwhal/network/channels"
)

func TestChannels(t *testing.T) {
	list := channels.Channels()
	assert.Equal(t, channels.ChannelList{channels.PushCertificates, channels.PushHeaders, channels.PushVotes}, list)
	for _, c := range list {
		assert.True(t, channels.IsValidChannel(c))
	}
	assert.False(t, channels.IsValidChannel(channels.Channel("sync-committee")))
}
