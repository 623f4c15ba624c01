package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/canvasreview/pkg/models"
)

// BuildPrompt assembles the analysis prompt for one comment from the
// comment text and whatever design context survived extraction. The prompt
// degrades gracefully: with no context at all it still asks a useful
// question about the comment itself.
func BuildPrompt(comment models.Comment, dc models.DesignContext) string {
	var b strings.Builder

	b.WriteString("You are a design reviewer. A designer mentioned you in a comment ")
	b.WriteString("on a collaborative design file and wants actionable feedback.\n\n")

	if dc.NodeName != "" || dc.NodeType != "" {
		b.WriteString("Design element under discussion:\n")
		if dc.NodeName != "" {
			fmt.Fprintf(&b, "- Name: %s\n", dc.NodeName)
		}
		if dc.NodeType != "" {
			fmt.Fprintf(&b, "- Type: %s\n", dc.NodeType)
		}
		writeProperties(&b, dc.NodeProperties)
		b.WriteString("\n")
	}

	switch {
	case dc.HasImage():
		b.WriteString("A cropped screenshot of the commented region is attached.\n\n")
	case dc.ImageURL != "":
		fmt.Fprintf(&b, "A rendered image of the element is available at: %s\n\n", dc.ImageURL)
	}

	fmt.Fprintf(&b, "The designer's comment:\n%q\n\n", comment.Body())

	b.WriteString("Reply with concise, specific design feedback addressing the comment. ")
	b.WriteString("Focus on layout, hierarchy, accessibility, and consistency. ")
	b.WriteString("Keep the reply under 200 words and write it as a direct response to the designer.")

	return b.String()
}

func writeProperties(b *strings.Builder, props map[string]string) {
	if len(props) == 0 {
		return
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %s\n", k, props[k])
	}
}
