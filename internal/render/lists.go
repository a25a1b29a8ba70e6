package render

import (
	"fmt"
	"io"

	"github.com/GriffinCanCode/chatstream/internal/shared/types"
)

// Sessions prints the conversation list with 1-based positions
func Sessions(w io.Writer, items []types.SessionSummary, selected *types.ConversationID) {
	if len(items) == 0 {
		fmt.Fprintln(w, "no conversations yet")
		return
	}
	for i, s := range items {
		marker := " "
		if selected != nil && *selected == s.ID {
			marker = "*"
		}
		created := "unknown"
		if !s.CreatedAt.IsZero() {
			created = s.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s %2d. id %s  %s\n", marker, i+1, s.ID, created)
	}
}

// Models prints the model catalog, marking the current model
func Models(w io.Writer, catalog *types.ModelCatalog) {
	for _, id := range catalog.IDs() {
		marker := " "
		if id == catalog.CurrentModel {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s  (%s)\n", marker, catalog.Name(id), id)
	}
}
