package chunker

import (
	"strings"

	"pdf-assistant-be/pkg/parser"
	"pdf-assistant-be/pkg/store"
)

// MergeThreshold is the buffer size below which consecutive paragraphs keep
// merging into one passage.
const MergeThreshold = 200

// BuildPassages turns parsed pages into merged, retrieval-sized passages.
// Each page's text is split on blank lines into paragraphs; consecutive
// paragraphs merge into a running buffer while it stays under the threshold.
// Every finalized passage inherits its source page's metadata.
// Pure transform: well-formed input never fails.
func BuildPassages(pages []parser.Page) []store.Passage {
	var passages []store.Passage
	for _, page := range pages {
		for _, content := range mergeParagraphs(splitParagraphs(page.Text)) {
			passages = append(passages, store.Passage{
				Content:  content,
				Metadata: copyMetadata(page.Metadata),
			})
		}
	}
	return passages
}

func splitParagraphs(text string) []string {
	var paras []string
	for _, p := range strings.Split(strings.TrimSpace(text), "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

func mergeParagraphs(paras []string) []string {
	var merged []string
	buffer := ""
	for _, p := range paras {
		if buffer != "" && len(buffer) < MergeThreshold {
			buffer += "\n\n" + p
		} else {
			if buffer != "" {
				merged = append(merged, buffer)
			}
			buffer = p
		}
	}
	if buffer != "" {
		merged = append(merged, buffer)
	}
	return merged
}

// copyMetadata clones page metadata per passage, skipping nil values so
// absent fields stay absent instead of turning into nulls downstream.
func copyMetadata(metadata map[string]interface{}) map[string]interface{} {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		if v == nil {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
