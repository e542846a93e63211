package discovery

import (
	"fmt"
	"strings"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

const systemPrompt = `You are a research assistant for a regional destination guide.
You find current news and upcoming events for parks, trails, and attractions.
Respond with a single JSON object and nothing else:
{"news":[{"title","summary","source_url","source_name","date"}],"events":[{"title","description","source_url","source_name","start_date","end_date"}]}
Omit a field rather than guessing it. Use null-free JSON: leave unknown fields out.`

// promptBuilder assembles provider prompts for one destination.
type promptBuilder struct {
	timezone string
}

func newPromptBuilder(timezone string) promptBuilder {
	if timezone == "" {
		timezone = "America/New_York"
	}
	return promptBuilder{timezone: timezone}
}

// searchPrompt builds the primary prompt. When rendered page content is
// present the confidence bar drops from 95% to 75% and the model may infer
// partial dates from the page text.
func (p promptBuilder) searchPrompt(dest collector.Destination, eventsPage, newsPage collector.RenderedPage) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Find current news and upcoming events for %q", dest.Name)
	if dest.Kind != "" {
		fmt.Fprintf(&b, ", a %s", dest.Kind)
	}
	b.WriteString(".\n")
	if len(dest.Activities) > 0 {
		fmt.Fprintf(&b, "Known activities there: %s.\n", strings.Join(dest.Activities, ", "))
	}
	if dest.WebsiteURL != "" {
		fmt.Fprintf(&b, "Official website: %s\n", dest.WebsiteURL)
	}

	fmt.Fprintf(&b, "\nAll dates must be interpreted in the %s timezone and returned as ISO 8601 (yyyy-mm-dd). ", p.timezone)
	b.WriteString("Do not convert dates across timezones; never shift a date by a day.\n")

	hasRendered := eventsPage.Success || newsPage.Success
	if hasRendered {
		b.WriteString("\nOnly include items you are at least 75% confident are real and correctly dated. ")
		b.WriteString("You may infer a partial date (for example a missing year) from the page text below when the context makes it unambiguous.\n")
	} else {
		b.WriteString("\nOnly include items you are at least 95% confident are real and correctly dated. ")
		b.WriteString("When in doubt, leave the item out.\n")
	}

	appendPage(&b, "events page", eventsPage)
	appendPage(&b, "news page", newsPage)

	return b.String()
}

// newsPrompt builds the independent second-pass prompt against general news
// sources, run when the primary pass read a dedicated first-party news page.
func (p promptBuilder) newsPrompt(dest collector.Destination) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search general news sources for recent coverage of %q", dest.Name)
	if dest.Kind != "" {
		fmt.Fprintf(&b, " (a %s)", dest.Kind)
	}
	b.WriteString(". Exclude the destination's own website; look for newspapers, local TV, and regional outlets.\n")
	fmt.Fprintf(&b, "All dates must be interpreted in the %s timezone and returned as ISO 8601 (yyyy-mm-dd); never shift a date by a day.\n", p.timezone)
	b.WriteString("Only include items you are at least 95% confident are real and correctly dated. ")
	b.WriteString("Return only news; leave the events list empty.\n")
	return b.String()
}

func appendPage(b *strings.Builder, label string, page collector.RenderedPage) {
	if !page.Success || page.Text == "" {
		return
	}
	fmt.Fprintf(b, "\nRendered %s (%s):\n---\n%s\n---\n", label, page.URL, page.Text)
}
