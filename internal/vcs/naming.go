package vcs

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	nonAlphaNum = regexp.MustCompile(`[^a-zA-Z0-9/_-]+`)
	dashRuns    = regexp.MustCompile(`-{2,}`)
)

// branchSlugLen bounds how much of the instruction feeds the branch name.
const branchSlugLen = 20

// BranchName derives a feature branch name from the instruction.
func BranchName(instruction string) string {
	slug := strings.ToLower(strings.TrimSpace(instruction))
	slug = strings.ReplaceAll(slug, " ", "-")
	if len(slug) > branchSlugLen {
		slug = slug[:branchSlugLen]
	}
	slug = nonAlphaNum.ReplaceAllString(slug, "-")
	slug = strings.Trim(dashRuns.ReplaceAllString(slug, "-"), "-")
	if slug == "" {
		slug = "changes"
	}
	return "feature/auto-" + slug
}

// CommitMessage derives the commit message for a run's changes.
func CommitMessage(instruction string) string {
	return "Auto-generated changes: " + instruction
}

// PRTitle derives the pull request title.
func PRTitle(instruction string) string {
	return "Auto-generated: " + instruction
}

// PRBodyInput carries everything the pull request body mentions.
type PRBodyInput struct {
	Instruction string
	Strategy    string
	Model       string
	Environment string
	Degraded    bool
	Rationale   string
	Approach    string
	Changes     []string
}

// PRBody composes the pull request description.
func PRBody(in PRBodyInput) string {
	var b strings.Builder
	b.WriteString("## Auto-generated changes\n\n")
	fmt.Fprintf(&b, "This PR was automatically generated based on the prompt: %q\n\n", in.Instruction)

	b.WriteString("### Agent used\n")
	agent := in.Strategy
	if in.Model != "" {
		agent = fmt.Sprintf("%s (%s)", in.Strategy, in.Model)
	}
	if in.Degraded {
		agent += ", degraded to baseline"
	}
	fmt.Fprintf(&b, "- %s\n", agent)
	fmt.Fprintf(&b, "- %s sandboxing\n", in.Environment)

	if in.Rationale != "" {
		fmt.Fprintf(&b, "\n### Analysis\n%s\n", in.Rationale)
	}
	if in.Approach != "" {
		fmt.Fprintf(&b, "\n### Approach\n%s\n", in.Approach)
	}

	if len(in.Changes) > 0 {
		b.WriteString("\n### Changes made\n")
		for _, c := range in.Changes {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	return b.String()
}
