package reconcile

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/sawpanic/taskbridge/internal/domain"
)

// IssueLinkFormatVersion identifies the layout produced by RenderIssueLink.
// The rendered link is half of the natural key used to find an issue's task,
// so any change to the layout orphans every task synced under the old one.
// Bump this and migrate existing task descriptions together.
const IssueLinkFormatVersion = 1

// RenderIssueLink renders the markdown link stored as a task's description:
// "[#<number>](<url>)". The number comes from the issue, or from the last
// path segment of url when the payload carries none.
func RenderIssueLink(url string, number int) string {
	url = strings.TrimSpace(url)
	label := "#" + strconv.Itoa(number)
	if number <= 0 {
		seg := path.Base(strings.TrimRight(url, "/"))
		if n, err := strconv.Atoi(seg); err == nil {
			label = "#" + strconv.Itoa(n)
		} else {
			label = seg
		}
	}
	return fmt.Sprintf("[%s](%s)", label, url)
}

// IsDuplicateDelivery reports whether a non-"opened" event refers to an issue
// that has never been modified since creation. Such events race the "opened"
// delivery for the same issue (for example an issue created already assigned
// or labeled) and are dropped so the issue yields one task.
//
// This is a heuristic: the tracker's timestamps have second resolution, so a
// genuine edit within the creation second is dropped too.
func IsDuplicateDelivery(e domain.IssueEvent) bool {
	return e.Action != domain.ActionOpened && e.Issue.CreatedAt.Equal(e.Issue.UpdatedAt)
}

// FilterLabels keeps the issue labels present in whitelist, in issue order, without repeats.
func FilterLabels(labels []domain.Label, whitelist []string) []string {
	allowed := make(map[string]struct{}, len(whitelist))
	for _, l := range whitelist {
		allowed[l] = struct{}{}
	}

	out := []string{}
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if _, ok := allowed[l.Name]; !ok {
			continue
		}
		if _, dup := seen[l.Name]; dup {
			continue
		}
		seen[l.Name] = struct{}{}
		out = append(out, l.Name)
	}
	return out
}
