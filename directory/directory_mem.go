package directory

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
)

type memChannel struct {
	members  []User
	messages map[string]*Message
}

// In-memory Directory implementation, used in tests and for local runs without a
// live transport binding.
type MemDirectory struct {
	mu     sync.Mutex
	guilds map[string]map[string]*memChannel
}

var _ Directory = (*MemDirectory)(nil)

func NewMemDirectory() *MemDirectory {
	return &MemDirectory{
		guilds: make(map[string]map[string]*memChannel),
	}
}

func (d *MemDirectory) channel(guildID, channelID string) *memChannel {
	g, ok := d.guilds[guildID]
	if !ok {
		g = make(map[string]*memChannel)
		d.guilds[guildID] = g
	}
	ch, ok := g[channelID]
	if !ok {
		ch = &memChannel{messages: make(map[string]*Message)}
		g[channelID] = ch
	}
	return ch
}

func (d *MemDirectory) Insert(msg Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := d.channel(msg.GuildID, msg.ChannelID)
	m := msg
	ch.messages[msg.ID] = &m
}

func (d *MemDirectory) AddMember(guildID, channelID string, u User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := d.channel(guildID, channelID)
	ch.members = append(ch.members, u)
}

func (d *MemDirectory) ResolveMessage(ctx context.Context, guildID, channelID, messageID string) (*Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.guilds[guildID]
	if !ok {
		return nil, ErrGuildNotFound
	}
	ch, ok := g[channelID]
	if !ok {
		return nil, ErrChannelNotFound
	}
	msg, ok := ch.messages[messageID]
	if !ok {
		return nil, ErrMessageNotFound
	}
	out := *msg
	return &out, nil
}

func (d *MemDirectory) ChannelMembers(ctx context.Context, guildID, channelID string) ([]User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.guilds[guildID]
	if !ok {
		return nil, ErrGuildNotFound
	}
	ch, ok := g[channelID]
	if !ok {
		return nil, ErrChannelNotFound
	}
	out := make([]User, len(ch.members))
	copy(out, ch.members)
	return out, nil
}

func (d *MemDirectory) PurgeUserMessages(ctx context.Context, userID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	removed := 0
	for _, g := range d.guilds {
		for _, ch := range g {
			for id, msg := range ch.messages {
				if msg.Author.ID == userID {
					delete(ch.messages, id)
					removed++
				}
			}
		}
	}
	return removed, nil
}

type fixtureChannel struct {
	GuildID   string    `json:"guildId"`
	ChannelID string    `json:"channelId"`
	Members   []User    `json:"members"`
	Messages  []Message `json:"messages"`
}

// Loads a JSON channel fixture into a MemDirectory. Panics on any failure;
// intended for daemon bootstrap and test helpers, not runtime paths.
func MustLoadFixture(path string) *MemDirectory {
	f, err := os.Open(path)
	if err != nil {
		panic(err)
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		panic(err)
	}

	var channels []fixtureChannel
	if err := json.Unmarshal(raw, &channels); err != nil {
		panic(err)
	}

	dir := NewMemDirectory()
	for _, ch := range channels {
		for _, u := range ch.Members {
			dir.AddMember(ch.GuildID, ch.ChannelID, u)
		}
		for _, msg := range ch.Messages {
			msg.GuildID = ch.GuildID
			msg.ChannelID = ch.ChannelID
			dir.Insert(msg)
		}
	}
	return dir
}
