package directory

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Caching wrapper around another Directory. Message and member lookups against a
// live transport are RPCs; intake re-resolves the same channel several times per
// flow, so a small TTL'd LRU in front cuts most of them.
type CachedDirectory struct {
	inner    Directory
	messages *expirable.LRU[string, Message]
	members  *expirable.LRU[string, []User]
}

var _ Directory = (*CachedDirectory)(nil)

func NewCachedDirectory(inner Directory, capacity int, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		inner:    inner,
		messages: expirable.NewLRU[string, Message](capacity, nil, ttl),
		members:  expirable.NewLRU[string, []User](capacity, nil, ttl),
	}
}

func (d *CachedDirectory) ResolveMessage(ctx context.Context, guildID, channelID, messageID string) (*Message, error) {
	key := guildID + "/" + channelID + "/" + messageID
	if msg, ok := d.messages.Get(key); ok {
		out := msg
		return &out, nil
	}
	msg, err := d.inner.ResolveMessage(ctx, guildID, channelID, messageID)
	if err != nil {
		return nil, err
	}
	d.messages.Add(key, *msg)
	return msg, nil
}

func (d *CachedDirectory) ChannelMembers(ctx context.Context, guildID, channelID string) ([]User, error) {
	key := guildID + "/" + channelID
	if members, ok := d.members.Get(key); ok {
		return members, nil
	}
	members, err := d.inner.ChannelMembers(ctx, guildID, channelID)
	if err != nil {
		return nil, err
	}
	d.members.Add(key, members)
	return members, nil
}

// Purges pass through, and drop cached messages wholesale so removed content
// can't be re-resolved from cache.
func (d *CachedDirectory) PurgeUserMessages(ctx context.Context, userID string) (int, error) {
	n, err := d.inner.PurgeUserMessages(ctx, userID)
	if err != nil {
		return 0, err
	}
	d.messages.Purge()
	return n, nil
}
