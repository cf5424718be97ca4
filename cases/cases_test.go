package cases

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/modqueue/triage/directory"
)

func TestReviewInfo(t *testing.T) {
	assert := assert.New(t)

	c := New(directory.User{ID: "10", Name: "alice"})
	assert.Equal(StatusInProgress, c.Status)

	c.Message = &directory.Message{
		ID: "301", GuildID: "100", ChannelID: "200",
		Author: directory.User{ID: "11", Name: "mallory"},
		Text:   "you are the worst",
	}
	c.AbuseType = AbuseHarassment
	c.HarassmentTypes = []string{"Threat", "Flaming"}
	c.Target = "Me"
	c.AdditionalMessages = []*directory.Message{
		{ID: "302", Author: directory.User{ID: "11", Name: "mallory"}, Text: "nobody wants you here"},
	}
	c.AdditionalInfo = "He has been doing this for weeks."
	c.SubmittedAt = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	info := c.ReviewInfo()
	assert.Contains(info, "User alice reported the following message on 2024-03-15:")
	assert.Contains(info, "```mallory: you are the worst```")
	assert.Contains(info, "Abuse Type: Bullying or harassment")
	assert.Contains(info, "Harassment Types: Threat, Flaming")
	assert.Contains(info, "Target of the abuse: Me")
	assert.Contains(info, "Additional Msgs: `nobody wants you here`")
	assert.Contains(info, "Additional Info: He has been doing this for weeks.")
}

func TestReviewInfoBareCase(t *testing.T) {
	assert := assert.New(t)

	c := New(directory.User{ID: "1", Name: "triage-bot"})
	c.Message = &directory.Message{
		Author: directory.User{ID: "11", Name: "mallory"},
		Text:   "flagged content",
	}
	c.AbuseType = AbuseHarassment

	info := c.ReviewInfo()
	assert.Contains(info, "Harassment Types: \n")
	assert.Contains(info, "Additional Msgs: \n")
}
