package tui

import (
	"fmt"
	"strings"

	"github.com/imamik/stagehand/internal/provisioning"
)

// RenderStatus renders the result of a read-only existence check once.
func RenderStatus(clusterName string, presence []provisioning.Presence) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("stagehand: %s", clusterName)))
	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("  Components"))
	b.WriteString("\n")

	present := 0
	for _, p := range presence {
		var icon, state string
		var style styleFunc
		switch {
		case p.Err != nil:
			icon, style, state = warnMark, sf(warningStyle), fmt.Sprintf("unknown: %v", p.Err)
		case p.Exists:
			icon, style, state = checkMark, sf(readyStyle), "present"
			present++
		default:
			icon, style, state = pending, sf(dimStyle), "absent"
		}
		fmt.Fprintf(&b, "    %s %-28s %s\n", style(icon), p.Name, subtitleStyle.Render(state))
	}

	b.WriteString(footerStyle.Render(fmt.Sprintf("  %d/%d present", present, len(presence))))
	b.WriteString("\n")
	return b.String()
}
