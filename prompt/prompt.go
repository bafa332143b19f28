// Package prompt assembles the completion prompt from a conversation
// context and a companion's persona.
package prompt

import (
	"fmt"
	"strings"

	"github.com/adorahq/companion-go-sdk/core"
)

// Build produces the prompt body for one turn. The section order is a
// contract, not a style choice: persona instructions first, then
// retrieved long-term passages, then the recent transcript, so the model
// weighs persona and deep history before recency. The companion's name
// closes the prompt as the completion cue.
func Build(profile core.CompanionProfile, convCtx *core.ConversationContext) string {
	var b strings.Builder

	fmt.Fprintf(&b,
		"ONLY generate plain sentences without prefix of who is speaking. DO NOT use %s: prefix.\n\n",
		profile.Name)
	fmt.Fprintf(&b, "You are %s.\n\n%s\n\n", profile.Name, profile.Instructions)

	if len(convCtx.RetrievedPassages) > 0 {
		fmt.Fprintf(&b,
			"Below are relevant details about %s's past and the conversation you are in.\n%s\n\n",
			profile.Name, strings.Join(convCtx.RetrievedPassages, "\n"))
	}

	fmt.Fprintf(&b, "Below is a relevant conversation history\n%s\n%s",
		convCtx.Transcript(), profile.Name)

	return b.String()
}
