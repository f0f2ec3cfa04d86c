package channels

import (
	"sort"
)

// Channel specifies a virtual and isolated communication medium between the
// same engine on different authorities.
type Channel string
type ChannelList []Channel

func (c Channel) String() string {
	return string(c)
}

func (cl ChannelList) Len() int           { return len(cl) }
func (cl ChannelList) Less(i, j int) bool { return cl[i] < cl[j] }
func (cl ChannelList) Swap(i, j int)      { cl[i], cl[j] = cl[j], cl[i] }

// Contains returns true if the ChannelList contains the given channel.
func (cl ChannelList) Contains(channel Channel) bool {
	for _, c := range cl {
		if c == channel {
			return true
		}
	}
	return false
}

const (
	// PushHeaders carries headers from their author to every authority.
	PushHeaders = Channel("push-headers")
	// PushVotes carries votes from the voter to the header's author.
	PushVotes = Channel("push-votes")
	// PushCertificates carries certificates from their origin to every authority.
	PushCertificates = Channel("push-certificates")
)

// Channels returns every channel of the primary, sorted.
func Channels() ChannelList {
	list := ChannelList{PushHeaders, PushVotes, PushCertificates}
	sort.Sort(list)
	return list
}

// IsValidChannel returns true if the channel is used by the primary.
func IsValidChannel(channel Channel) bool {
	return Channels().Contains(channel)
}
