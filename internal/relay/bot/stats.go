package bot

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filegate/internal/relay/models"
)

// FormatStats renders the /stats report.
func FormatStats(st *models.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total links (batches): %d\n", st.TotalBatches)
	fmt.Fprintf(&b, "Total stored files: %d\n", st.TotalFiles)
	fmt.Fprintf(&b, "Total downloads: %d\n", st.TotalDownloads)
	b.WriteString("\nPer link stats:\n")
	for _, bs := range st.Batches {
		fmt.Fprintf(&b, "Batch %s: %d files, %d downloads\n", bs.BatchID, bs.FileCount, bs.Downloads)
	}
	return b.String()
}

// SplitMessage cuts text into pieces of at most limit bytes, breaking after
// a newline where possible.
func SplitMessage(text string, limit int) []string {
	var out []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n') + 1
		if cut <= 0 {
			cut = limit
		}
		out = append(out, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}
