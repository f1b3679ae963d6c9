package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/platinummonkey/activitylens/pkg/presenter"
)

// writeReport prints one line per record and one indented line per change.
func writeReport(w io.Writer, results []*presenter.Result, causerLabel, subjectLabel string) error {
	for _, result := range results {
		record := result.Record
		subject := result.SubjectLabel(subjectLabel)
		if typeLabel := result.SubjectTypeLabel(); typeLabel != "" && !strings.HasPrefix(subject, typeLabel+" ") {
			subject = typeLabel + " " + subject
		}
		_, err := fmt.Fprintf(w, "#%d %s %s %s by %s\n",
			record.ID,
			record.Timestamp.UTC().Format(time.RFC3339),
			result.EventLabel(),
			subject,
			result.CauserLabel(causerLabel),
		)
		if err != nil {
			return err
		}
		if record.Description != "" {
			if _, err := fmt.Fprintf(w, "    %s\n", record.Description); err != nil {
				return err
			}
		}

		for _, change := range result.Changes {
			oldLabel, newLabel := result.ValueLabels(change, "")
			if _, err := fmt.Fprintf(w, "    %s: %s -> %s\n", result.FieldLabel(change.Field), display(oldLabel), display(newLabel)); err != nil {
				return err
			}
		}
	}
	return nil
}

func display(label string) string {
	if label == "" {
		return "(empty)"
	}
	return label
}
